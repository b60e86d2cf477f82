package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/grove/internal/github"
	"github.com/marcin-skalski/grove/internal/render"
)

func newIssuesCmd() *cobra.Command {
	var queries []string

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "aggregate open issues and PRs across repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			// missing credential is fatal before any query runs
			token, err := github.TokenFromEnv()
			if err != nil {
				return err
			}

			var qs []github.Query
			if len(queries) > 0 {
				for _, q := range queries {
					qs = append(qs, github.Query{Label: q, Query: q})
				}
			} else {
				for _, q := range cfg.GitHub.Queries {
					qs = append(qs, github.Query{Label: q.Label, Query: q.Query})
				}
			}
			if len(qs) == 0 {
				return fmt.Errorf("no queries: set github.username or github.queries in %s", configPath())
			}

			agg := github.NewAggregator(github.NewClient(token, logger), logger)
			result, err := agg.Aggregate(cmd.Context(), qs, github.DefaultPageSize)

			var perr *github.PartialError
			if err != nil && !errors.As(err, &perr) {
				return err
			}
			if result != nil {
				render.IssuesTable(cmd.OutOrStdout(), result)
			}
			if perr != nil {
				for _, qerr := range perr.Errs {
					logger.Error("query failed", "error", qerr)
				}
				return fmt.Errorf("partial result: %w", perr)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "search query (repeatable, overrides config)")
	return cmd
}
