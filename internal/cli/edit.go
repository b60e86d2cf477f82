package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/grove/internal/config"
	"github.com/marcin-skalski/grove/internal/gitx"
	"github.com/marcin-skalski/grove/internal/workspace"
)

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <name>",
		Short: "open a repository in your editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}
			path, err := workspace.ResolvePath(cfg.Core.BaseDir, args[0])
			if err != nil {
				return err
			}
			editor, err := resolveEditor(cmd, cfg, path)
			if err != nil {
				return err
			}

			// the editor value may carry arguments ("code --wait")
			fields := strings.Fields(editor)
			ed := exec.CommandContext(cmd.Context(), fields[0], append(fields[1:], path)...)
			ed.Stdin = os.Stdin
			ed.Stdout = os.Stdout
			ed.Stderr = os.Stderr
			if err := ed.Run(); err != nil {
				return fmt.Errorf("editor %q: %w", editor, err)
			}
			return nil
		},
	}
}

// resolveEditor picks the editor by priority: config file, then
// git config core.editor, then $EDITOR/$VISUAL.
func resolveEditor(cmd *cobra.Command, cfg *config.Config, repoPath string) (string, error) {
	if cfg.Core.Editor != "" {
		return cfg.Core.Editor, nil
	}
	git := gitx.NewClient(slog.New(slog.DiscardHandler))
	if editor, err := git.ConfigGet(cmd.Context(), repoPath, "core.editor"); err == nil && editor != "" {
		return editor, nil
	}
	for _, key := range []string{"EDITOR", "VISUAL"} {
		if editor := os.Getenv(key); editor != "" {
			return editor, nil
		}
	}
	return "", fmt.Errorf("no editor found: set core.editor in %s or $EDITOR", configPath())
}
