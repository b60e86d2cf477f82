// Package reposync brings a single repository clone into a safe,
// up-to-date state. Refresh is deliberately conservative: any step that
// would touch uncommitted work or rewrite local history is refused and
// reported, never forced.
package reposync

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/marcin-skalski/grove/internal/gitx"
	"github.com/marcin-skalski/grove/internal/repo"
	"github.com/marcin-skalski/grove/internal/workspace"
)

// Status is the terminal state of one repository's sync.
type Status int

const (
	StatusCloned Status = iota
	StatusUpdated
	StatusUpToDate
	StatusSkipped
	StatusDiverged
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCloned:
		return "cloned"
	case StatusUpdated:
		return "updated"
	case StatusUpToDate:
		return "up-to-date"
	case StatusSkipped:
		return "skipped"
	case StatusDiverged:
		return "diverged"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Skip reasons.
const (
	ReasonDirty            = "dirty"
	ReasonNonDefaultBranch = "non-default-branch"
	ReasonNotARepository   = "not-a-repository"
	ReasonNoRemote         = "no-remote"
)

// Outcome is the result of syncing one repository. Every sync returns
// an Outcome; failures are carried in Err, never thrown past the caller.
type Outcome struct {
	Repo    repo.Identity
	Status  Status
	Reason  string   // set when Status is StatusSkipped
	Ahead   int      // commits ahead of origin, set when Status is StatusDiverged
	Behind  int      // commits behind origin, set when Status is StatusDiverged
	Pruned  []string // merged branches deleted during refresh
	Err     error    // set when Status is StatusFailed
	LinkErr error    // alias could not be ensured; sync itself succeeded
}

// Git is the capability reposync drives. *gitx.Client satisfies it.
type Git interface {
	IsRepo(dir string) bool
	Clone(ctx context.Context, url, dest string) error
	Fetch(ctx context.Context, dir string) error
	CurrentBranch(ctx context.Context, dir string) (string, error)
	DefaultBranch(ctx context.Context, dir string) (string, error)
	IsClean(ctx context.Context, dir string) (bool, error)
	HasRemote(ctx context.Context, dir string) (bool, error)
	FastForward(ctx context.Context, dir, branch string) (gitx.FFStatus, error)
	AheadBehind(ctx context.Context, dir, branch string) (ahead, behind int, err error)
	MergedBranches(ctx context.Context, dir string) ([]string, error)
	DeleteBranch(ctx context.Context, dir, branch string) error
}

type Syncer struct {
	git     Git
	baseDir string
	logger  *slog.Logger
}

func NewSyncer(g Git, baseDir string, logger *slog.Logger) *Syncer {
	return &Syncer{git: g, baseDir: baseDir, logger: logger}
}

// Sync clones the repository if absent, otherwise refreshes it.
//
// A concurrent invocation of grove on the same repository subtree is a
// documented precondition violation; nothing here locks the subtree.
func (s *Syncer) Sync(ctx context.Context, id repo.Identity) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Repo: id, Status: StatusFailed, Err: err}
	}

	store := id.StorePath(s.baseDir)
	logger := s.logger.With("repo", id.FullName())

	if !s.git.IsRepo(store) {
		// a store path occupied by something that is not a clone is
		// reported, not cloned over
		if occupied(store) {
			return Outcome{Repo: id, Status: StatusSkipped, Reason: ReasonNotARepository}
		}
		return s.clone(ctx, id, store, logger)
	}
	return s.refresh(ctx, id, store, logger)
}

func (s *Syncer) clone(ctx context.Context, id repo.Identity, store string, logger *slog.Logger) Outcome {
	if err := s.git.Clone(ctx, id.CloneURL(), store); err != nil {
		return Outcome{Repo: id, Status: StatusFailed, Err: fmt.Errorf("clone: %w", err)}
	}
	out := Outcome{Repo: id, Status: StatusCloned}
	out.LinkErr = s.link(id, store, logger)
	return out
}

func (s *Syncer) refresh(ctx context.Context, id repo.Identity, store string, logger *slog.Logger) Outcome {
	hasRemote, err := s.git.HasRemote(ctx, store)
	if err != nil {
		return Outcome{Repo: id, Status: StatusFailed, Err: err}
	}
	if !hasRemote {
		return Outcome{Repo: id, Status: StatusSkipped, Reason: ReasonNoRemote}
	}

	clean, err := s.git.IsClean(ctx, store)
	if err != nil {
		return Outcome{Repo: id, Status: StatusFailed, Err: err}
	}
	if !clean {
		logger.Debug("working tree dirty, leaving untouched")
		return Outcome{Repo: id, Status: StatusSkipped, Reason: ReasonDirty}
	}

	branch, err := s.git.CurrentBranch(ctx, store)
	if err != nil {
		return Outcome{Repo: id, Status: StatusFailed, Err: err}
	}
	defaultBranch, err := s.git.DefaultBranch(ctx, store)
	if err != nil {
		return Outcome{Repo: id, Status: StatusFailed, Err: err}
	}
	if branch != defaultBranch {
		logger.Debug("not on default branch", "current", branch, "default", defaultBranch)
		return Outcome{Repo: id, Status: StatusSkipped, Reason: ReasonNonDefaultBranch}
	}

	if err := s.git.Fetch(ctx, store); err != nil {
		return Outcome{Repo: id, Status: StatusFailed, Err: fmt.Errorf("fetch: %w", err)}
	}

	ff, err := s.git.FastForward(ctx, store, defaultBranch)
	if err != nil {
		return Outcome{Repo: id, Status: StatusFailed, Err: fmt.Errorf("fast-forward: %w", err)}
	}

	out := Outcome{Repo: id}
	switch ff {
	case gitx.FFDiverged:
		out.Status = StatusDiverged
		ahead, behind, err := s.git.AheadBehind(ctx, store, defaultBranch)
		if err != nil {
			logger.Warn("counting ahead/behind failed", "error", err)
		} else {
			out.Ahead, out.Behind = ahead, behind
		}
		return out
	case gitx.FFUpToDate:
		out.Status = StatusUpToDate
	case gitx.FFFastForwarded:
		out.Status = StatusUpdated
	}

	out.Pruned = s.pruneMerged(ctx, store, defaultBranch, logger)
	out.LinkErr = s.link(id, store, logger)
	return out
}

// occupied reports whether path exists and holds anything.
func occupied(path string) bool {
	ents, err := os.ReadDir(path)
	return err == nil && len(ents) > 0
}

// pruneMerged deletes local branches already merged into the default
// branch. Failures are logged, not fatal; the refresh itself stands.
func (s *Syncer) pruneMerged(ctx context.Context, store, defaultBranch string, logger *slog.Logger) []string {
	merged, err := s.git.MergedBranches(ctx, store)
	if err != nil {
		logger.Warn("listing merged branches failed", "error", err)
		return nil
	}
	var pruned []string
	for _, b := range merged {
		if b == defaultBranch {
			continue
		}
		if err := s.git.DeleteBranch(ctx, store, b); err != nil {
			logger.Warn("deleting merged branch failed", "branch", b, "error", err)
			continue
		}
		pruned = append(pruned, b)
	}
	return pruned
}

// link ensures the workspace alias even for repositories cloned before
// the alias scheme existed.
func (s *Syncer) link(id repo.Identity, store string, logger *slog.Logger) error {
	if err := workspace.EnsureLink(id.AliasPath(s.baseDir), store); err != nil {
		logger.Warn("workspace link not ensured", "error", err)
		return err
	}
	return nil
}
