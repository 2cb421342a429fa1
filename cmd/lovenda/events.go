package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lovenda/lovenda/internal/config"
	"github.com/lovenda/lovenda/internal/display"
	"github.com/lovenda/lovenda/internal/events"
)

// pollInterval is how often follow modes look for new activity
const pollInterval = time.Second

var eventsCmd = &cobra.Command{
	Use:   "events <wedding>",
	Short: "Show a wedding's activity log",
	Long: `Display the audit trail of a wedding: tasks created, status changes,
edits, deletions and plan regenerations.

Use --follow to keep watching for new activity (Ctrl+C to stop).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		filter := events.EventFilter{WeddingID: args[0]}
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		filter.TaskID, _ = cmd.Flags().GetString("task")
		eventType, _ := cmd.Flags().GetString("type")
		filter.Type = events.EventType(eventType)
		follow, _ := cmd.Flags().GetBool("follow")

		if filter.TaskID != "" {
			id, err := store.ResolveTaskID(ctx, filter.TaskID)
			if err == nil {
				filter.TaskID = id
			}
			// a deleted task no longer resolves but its events remain
		}

		evts, err := store.GetTaskEvents(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to get events: %w", err)
		}
		if len(evts) == 0 && !follow {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No activity for %s yet\n\n", yellow("✨"), args[0])
			return nil
		}

		// newest last
		for i := len(evts) - 1; i >= 0; i-- {
			display.Event(cmd.OutOrStdout(), evts[i])
		}
		if !follow {
			return nil
		}

		var last time.Time
		if len(evts) > 0 {
			last = evts[0].Timestamp
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Following activity (Ctrl+C to stop)...\n\n", cyan("👁️"))
		return followEvents(ctx, filter, last, func(e *events.TaskEvent) {
			display.Event(cmd.OutOrStdout(), e)
		})
	},
}

// followEvents polls for events newer than after until ctx is done
func followEvents(ctx context.Context, filter events.EventFilter, after time.Time, fn func(*events.TaskEvent)) error {
	filter.Limit = 100

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped following")
			return nil
		case <-ticker.C:
			filter.AfterTime = after
			evts, err := store.GetTaskEvents(ctx, filter)
			if err != nil {
				slog.Warn("failed to poll events", "error", err)
				continue
			}
			for i := len(evts) - 1; i >= 0; i-- {
				fn(evts[i])
				if evts[i].Timestamp.After(after) {
					after = evts[i].Timestamp
				}
			}
		}
	}
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Cleanup and maintenance commands",
}

var cleanupEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Delete old activity according to the retention policy",
	Long: `Delete old events in two passes:
  1. Time-based: events older than the retention period (errors are kept
     longer)
  2. Per-wedding: keep only the newest events of each wedding

The policy comes from the config file and LOVENDA_EVENT_* variables. This also
runs quietly after every command unless cleanup_enabled is false.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := cfg.Events
		flags := cmd.Flags()
		if flags.Changed("retention-days") {
			rc.RetentionDays, _ = flags.GetInt("retention-days")
		}
		if flags.Changed("per-wedding-limit") {
			rc.PerWeddingLimitEvents, _ = flags.GetInt("per-wedding-limit")
		}
		if rc.RetentionErrorDays < rc.RetentionDays {
			rc.RetentionErrorDays = rc.RetentionDays
		}
		if err := rc.Validate(); err != nil {
			return err
		}

		fmt.Printf("Event Retention Configuration:\n")
		fmt.Printf("  Regular events: %d days\n", rc.RetentionDays)
		fmt.Printf("  Errors: %d days\n", rc.RetentionErrorDays)
		fmt.Printf("  Per-wedding limit: %d events\n", rc.PerWeddingLimitEvents)
		fmt.Printf("  Batch size: %d events/txn\n\n", rc.CleanupBatchSize)

		byAge, byLimit, err := pruneEvents(cmd.Context(), rc)
		if err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Deleted %d expired and %d excess event(s)\n", green("✓"), byAge, byLimit)
		return nil
	},
}

func init() {
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of recent events to show")
	eventsCmd.Flags().StringP("task", "t", "", "Only events of this task")
	eventsCmd.Flags().String("type", "", "Only events of this type (e.g. status_changed)")
	eventsCmd.Flags().BoolP("follow", "f", false, "Keep watching for new events")
	rootCmd.AddCommand(eventsCmd)

	cleanupEventsCmd.Flags().Int("retention-days", 0, "Override the retention period")
	cleanupEventsCmd.Flags().Int("per-wedding-limit", 0, "Override the per-wedding limit (0 = unlimited)")
	cleanupCmd.AddCommand(cleanupEventsCmd)
	rootCmd.AddCommand(cleanupCmd)
}

// pruneEvents applies the retention policy and returns how many events each
// pass deleted
func pruneEvents(ctx context.Context, rc config.EventRetentionConfig) (byAge, byLimit int, err error) {
	byAge, err = store.CleanupEventsByAge(ctx, rc.RetentionDays, rc.RetentionErrorDays, rc.CleanupBatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("time-based cleanup failed: %w", err)
	}
	if rc.PerWeddingLimitEvents > 0 {
		byLimit, err = store.CleanupEventsByWeddingLimit(ctx, rc.PerWeddingLimitEvents)
		if err != nil {
			return byAge, 0, fmt.Errorf("per-wedding cleanup failed: %w", err)
		}
	}
	slog.Debug("pruned events", "by_age", byAge, "by_limit", byLimit)
	return byAge, byLimit, nil
}
