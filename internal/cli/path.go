package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/grove/internal/config"
	"github.com/marcin-skalski/grove/internal/workspace"
)

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <name>",
		Short: "print the workspace path of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}
			p, err := workspace.ResolvePath(cfg.Core.BaseDir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newShimsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shims",
		Short: "print the shell function for cd-by-name",
		Long:  "Print a shell function that changes directory into a repository by\nname. Add `eval \"$(grove shims)\"` to your shell profile.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), workspace.ShellShims("grove", cfg.Shell.CDShims))
			return nil
		},
	}
}
