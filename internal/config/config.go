// Package config loads and validates the grove configuration file,
// usually ~/.grove.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrExists reports an init attempt over an existing config file.
var ErrExists = errors.New("config file already exists")

type Config struct {
	Core   CoreConfig   `yaml:"core"`
	GitHub GitHubConfig `yaml:"github"`
	Shell  ShellConfig  `yaml:"shell"`
	Sync   SyncConfig   `yaml:"sync"`
	Log    LogConfig    `yaml:"log"`
}

type CoreConfig struct {
	BaseDir string `yaml:"base_dir"`
	Editor  string `yaml:"editor"`
}

type GitHubConfig struct {
	Username string        `yaml:"username"`
	Queries  []QueryConfig `yaml:"queries"`
}

type QueryConfig struct {
	Label string `yaml:"label"`
	Query string `yaml:"query"`
}

type ShellConfig struct {
	CDShims string `yaml:"cd_shims"`
}

type SyncConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultPath returns the config file location, honoring
// GROVE_CONFIG_PATH for tests and unusual setups.
func DefaultPath() string {
	if p := os.Getenv("GROVE_CONFIG_PATH"); p != "" {
		return p
	}
	return expandTilde("~/.grove.yaml")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Core.BaseDir == "" {
		c.Core.BaseDir = "~/.dev"
	}
	c.Core.BaseDir = expandTilde(c.Core.BaseDir)

	if c.Shell.CDShims == "" {
		c.Shell.CDShims = "gcd"
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = 4
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.Core.BaseDir, ".grove", "logs", "grove.log")
	}

	// with no explicit queries, search the configured user's repositories
	if len(c.GitHub.Queries) == 0 && c.GitHub.Username != "" {
		c.GitHub.Queries = []QueryConfig{{
			Label: c.GitHub.Username,
			Query: fmt.Sprintf("user:%s is:public fork:false archived:false", c.GitHub.Username),
		}}
	}
	for i := range c.GitHub.Queries {
		if c.GitHub.Queries[i].Label == "" {
			c.GitHub.Queries[i].Label = strings.TrimSpace(c.GitHub.Queries[i].Query)
		}
	}
}

func (c *Config) validate() error {
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("sync.concurrency must be positive, got %d", c.Sync.Concurrency)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (debug|info|warn|error)", c.Log.Level)
	}
	for i, q := range c.GitHub.Queries {
		if strings.TrimSpace(q.Query) == "" {
			return fmt.Errorf("github.queries[%d]: query required", i)
		}
	}
	return nil
}

const defaultConfig = `core:
  base_dir: ~/.dev

github:
  username: ""

shell:
  cd_shims: gcd
`

// WriteDefault writes a starter config to path, refusing to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
