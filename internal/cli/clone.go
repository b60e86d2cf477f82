package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/grove/internal/gitx"
	"github.com/marcin-skalski/grove/internal/render"
	"github.com/marcin-skalski/grove/internal/repo"
	"github.com/marcin-skalski/grove/internal/reposync"
	"github.com/marcin-skalski/grove/internal/runner"
)

func newCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <url>...",
		Short: "clone repositories into the workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			ids := make([]repo.Identity, 0, len(args))
			for _, url := range args {
				id, err := repo.Resolve(url)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			syncer := reposync.NewSyncer(gitx.NewClient(logger), cfg.Core.BaseDir, logger)
			outcomes := runner.Run(cmd.Context(), ids, cfg.Sync.Concurrency, syncer.Sync)
			render.SyncReport(cmd.OutOrStdout(), outcomes)

			for _, out := range outcomes {
				if out.Status == reposync.StatusFailed {
					return fmt.Errorf("%d repositories failed", countFailed(outcomes))
				}
			}
			return nil
		},
	}
}

func countFailed(outcomes []reposync.Outcome) int {
	n := 0
	for _, out := range outcomes {
		if out.Status == reposync.StatusFailed {
			n++
		}
	}
	return n
}
