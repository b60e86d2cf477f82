package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/grove/internal/config"
	"github.com/marcin-skalski/grove/internal/workspace"
)

func newListCmd() *cobra.Command {
	var (
		showPath bool
		full     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list repositories in the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}

			entries, err := workspace.List(cfg.Core.BaseDir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No repositories found")
				return nil
			}

			for _, e := range entries {
				switch {
				case full && showPath:
					fmt.Fprintln(cmd.OutOrStdout(), e.Store)
				case full:
					fmt.Fprintln(cmd.OutOrStdout(), e.Identity.FullName())
				case showPath:
					fmt.Fprintln(cmd.OutOrStdout(), e.Alias)
				default:
					fmt.Fprintln(cmd.OutOrStdout(), e.Identity.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showPath, "path", "p", false, "print paths instead of names")
	cmd.Flags().BoolVarP(&full, "full", "f", false, "print owner/name (with --path, the store path)")
	return cmd
}
