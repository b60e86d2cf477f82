package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/grove/internal/gitx"
	"github.com/marcin-skalski/grove/internal/render"
	"github.com/marcin-skalski/grove/internal/repo"
	"github.com/marcin-skalski/grove/internal/reposync"
	"github.com/marcin-skalski/grove/internal/runner"
	"github.com/marcin-skalski/grove/internal/workspace"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [name]...",
		Short: "bring clones up to date without touching local work",
		Long:  "Refresh fetches and fast-forwards each repository's default branch.\nDirty working trees, checked-out feature branches and diverged histories\nare reported and left alone. With no arguments the whole workspace is refreshed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			entries, err := workspace.List(cfg.Core.BaseDir)
			if err != nil {
				return err
			}

			ids := make([]repo.Identity, 0, len(entries))
			if len(args) == 0 {
				for _, e := range entries {
					ids = append(ids, e.Identity)
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No repositories found")
					return nil
				}
			} else {
				byName := make(map[string]repo.Identity, len(entries))
				for _, e := range entries {
					byName[e.Identity.Name] = e.Identity
					byName[e.Identity.FullName()] = e.Identity
				}
				for _, name := range args {
					id, ok := byName[name]
					if !ok {
						return fmt.Errorf("%w: %s", workspace.ErrNotFound, name)
					}
					ids = append(ids, id)
				}
			}

			syncer := reposync.NewSyncer(gitx.NewClient(logger), cfg.Core.BaseDir, logger)
			outcomes := runner.Run(cmd.Context(), ids, cfg.Sync.Concurrency, syncer.Sync)
			render.SyncReport(cmd.OutOrStdout(), outcomes)

			if n := countFailed(outcomes); n > 0 {
				return fmt.Errorf("%d repositories failed", n)
			}
			return nil
		},
	}
}
