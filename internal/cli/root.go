// Package cli defines the grove command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/grove/internal/config"
	"github.com/marcin-skalski/grove/internal/logging"
)

var cfgPath string

// NewRootCmd builds the grove command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "grove",
		Short:         "personal multi-repository workspace manager",
		Long:          "grove clones repositories into a canonical layout, keeps them fresh,\nand aggregates open issues and pull requests across all of them.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default ~/.grove.yaml)")

	root.AddCommand(
		newInitCmd(),
		newCloneCmd(),
		newRefreshCmd(),
		newListCmd(),
		newIssuesCmd(),
		newPathCmd(),
		newEditCmd(),
		newShimsCmd(),
	)
	return root
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.DefaultPath()
}

// setup loads the config and builds the logger. Commands that operate
// on the workspace call this first; a broken config is fatal before any
// unit of work starts.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", configPath(), err)
	}
	logger, err := logging.Setup(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}
	return cfg, logger, nil
}
