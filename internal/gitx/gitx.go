// Package gitx drives the system git binary. It does not reimplement any
// of git's object model; every operation shells out.
package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Error carries the failed git invocation and its stderr.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// FFStatus is the result of a fast-forward attempt.
type FFStatus int

const (
	FFUpToDate FFStatus = iota
	FFFastForwarded
	FFDiverged
)

type Client struct {
	logger *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	return &Client{logger: logger}
}

// IsRepo reports whether dir holds a git repository.
func (c *Client) IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Clone clones url into dest, creating parent directories as needed.
func (c *Client) Clone(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(dest), err)
	}
	c.logger.Info("cloning", "url", url, "dest", dest)
	_, err := c.run(ctx, "", "clone", url, dest)
	return err
}

// Fetch fetches origin with pruning.
func (c *Client) Fetch(ctx context.Context, dir string) error {
	_, err := c.run(ctx, dir, "fetch", "--prune", "origin")
	return err
}

// CurrentBranch returns the checked-out branch name, or "HEAD" when detached.
func (c *Client) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DefaultBranch returns the remote default branch. It reads
// refs/remotes/origin/HEAD, which clone sets up; if that ref is missing
// it falls back to whichever of main or master exists locally.
func (c *Client) DefaultBranch(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err == nil {
		return strings.TrimPrefix(strings.TrimSpace(out), "origin/"), nil
	}
	for _, b := range []string{"main", "master"} {
		if _, verr := c.run(ctx, dir, "show-ref", "--verify", "--quiet", "refs/heads/"+b); verr == nil {
			return b, nil
		}
	}
	return "", fmt.Errorf("default branch of %s: %w", dir, err)
}

// IsClean reports whether the working tree has no uncommitted or
// untracked changes.
func (c *Client) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := c.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// HasRemote reports whether the repository has at least one remote.
func (c *Client) HasRemote(ctx context.Context, dir string) (bool, error) {
	out, err := c.run(ctx, dir, "remote")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// FastForward merges origin/<branch> into the current branch, refusing
// anything but a fast-forward. A refused merge reports FFDiverged, not
// an error; local history is never rewritten.
func (c *Client) FastForward(ctx context.Context, dir, branch string) (FFStatus, error) {
	out, err := c.run(ctx, dir, "merge", "--ff-only", "origin/"+branch)
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) && strings.Contains(strings.ToLower(gerr.Stderr), "not possible to fast-forward") {
			return FFDiverged, nil
		}
		return FFDiverged, err
	}
	if strings.Contains(out, "Already up to date") {
		return FFUpToDate, nil
	}
	return FFFastForwarded, nil
}

// AheadBehind counts commits on branch not on origin/<branch> and vice versa.
func (c *Client) AheadBehind(ctx context.Context, dir, branch string) (ahead, behind int, err error) {
	out, err := c.run(ctx, dir, "rev-list", "--left-right", "--count", branch+"...origin/"+branch)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", out)
	}
	ahead, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, err
	}
	behind, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return ahead, behind, nil
}

// MergedBranches lists local branches already merged into HEAD.
func (c *Client) MergedBranches(ctx context.Context, dir string) ([]string, error) {
	out, err := c.run(ctx, dir, "for-each-ref", "--format=%(refname:short)", "refs/heads", "--merged")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// DeleteBranch deletes a local branch. Only fully merged branches are
// deletable; -D is never used.
func (c *Client) DeleteBranch(ctx context.Context, dir, branch string) error {
	_, err := c.run(ctx, dir, "branch", "-d", branch)
	return err
}

// Switch checks out the named branch.
func (c *Client) Switch(ctx context.Context, dir, branch string) error {
	_, err := c.run(ctx, dir, "switch", branch)
	return err
}

// ConfigGet reads a git config value from the repository at dir.
func (c *Client) ConfigGet(ctx context.Context, dir, key string) (string, error) {
	out, err := c.run(ctx, dir, "config", "--get", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	c.logger.Debug("exec", "cmd", "git "+strings.Join(args, " "), "dir", dir)
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), &Error{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
