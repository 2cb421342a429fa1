package main

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lovenda/lovenda/internal/repl"
)

var shellCmd = &cobra.Command{
	Use:   "shell <wedding>",
	Short: "Work through a wedding's checklist interactively",
	Long: `Start an interactive shell on one wedding. The task list stays current
as you make changes; type "help" for the commands.

Without ANTHROPIC_API_KEY the regen command uses the built-in checklist.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController()
		if err != nil {
			return err
		}
		regen, err := newRegenerator(cfg.APIKey == "", cfg.UseFallback)
		if err != nil {
			slog.Warn("regeneration disabled in shell", "error", err)
		}

		var history string
		if dbPath != ":memory:" {
			history = filepath.Join(filepath.Dir(dbPath), "history")
		}

		r, err := repl.New(&repl.Config{
			Store:       store,
			Controller:  ctrl,
			Regenerator: regen,
			WeddingID:   args[0],
			Actor:       actor,
			Now:         today,
			Out:         cmd.OutOrStdout(),
			HistoryFile: history,
		})
		if err != nil {
			return err
		}
		return r.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
