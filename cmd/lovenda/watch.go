package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lovenda/lovenda/internal/display"
	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/planning"
	"github.com/lovenda/lovenda/internal/priorities"
)

var watchCmd = &cobra.Command{
	Use:   "watch <wedding>",
	Short: "Keep the next step on screen as tasks change",
	Long: `Show the next task and overall progress, and redraw whenever the
wedding's tasks change, including changes made from another terminal.

Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		weddingID := args[0]
		out := cmd.OutOrStdout()

		if err := renderNext(ctx, out, weddingID); err != nil {
			return err
		}

		last := time.Now()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				fmt.Fprintln(out, "\nStopped watching")
				return nil
			case <-ticker.C:
				evts, err := store.GetTaskEvents(ctx, events.EventFilter{WeddingID: weddingID, AfterTime: last, Limit: 1})
				if err != nil {
					slog.Warn("failed to poll events", "error", err)
					continue
				}
				if len(evts) == 0 {
					continue
				}
				last = evts[0].Timestamp
				gray := color.New(color.FgHiBlack).SprintFunc()
				fmt.Fprintf(out, "\n%s\n", gray(fmt.Sprintf("── %s: %s", last.Local().Format("15:04:05"), evts[0].Message)))
				if err := renderNext(ctx, out, weddingID); err != nil {
					slog.Warn("failed to refresh", "error", err)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func renderNext(ctx context.Context, out io.Writer, weddingID string) error {
	tasks, err := store.ListTasks(ctx, weddingID)
	if err != nil {
		return err
	}
	now := today()
	task, tier := priorities.SelectNextTaskWithTier(tasks, now)
	display.Next(out, task, tier, now)
	display.Progress(out, planning.Summarize(tasks, now))
	return nil
}
