package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/lovenda/lovenda/internal/display"
	"github.com/lovenda/lovenda/internal/planning"
	"github.com/lovenda/lovenda/internal/priorities"
	"github.com/lovenda/lovenda/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list <wedding>",
	Short: "List every task of a wedding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := store.ListTasks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if open, _ := cmd.Flags().GetBool("open"); open {
			tasks = openTasks(tasks)
		}
		if asJSON(cmd) {
			return writeJSON(cmd.OutOrStdout(), tasks)
		}
		display.TaskList(cmd.OutOrStdout(), tasks, today())
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next <wedding>",
	Short: "Show the one task to do next",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := store.ListTasks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		now := today()
		task, tier := priorities.SelectNextTaskWithTier(tasks, now)
		if asJSON(cmd) {
			return writeJSON(cmd.OutOrStdout(), struct {
				Task *types.Task `json:"task"`
				Tier string      `json:"tier,omitempty"`
			}{task, tierName(task, tier)})
		}
		display.Next(cmd.OutOrStdout(), task, tier, now)
		return nil
	},
}

var roadmapCmd = &cobra.Command{
	Use:   "roadmap <wedding>",
	Short: "Show tasks grouped by planning phase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := store.ListTasks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		now := today()
		phases := planning.BucketByPhase(tasks, now)
		current := planning.CurrentPhase(phases, tasks, now)
		progress := planning.Summarize(tasks, now)

		if asJSON(cmd) {
			var currentID planning.PhaseID
			if current != nil {
				currentID = current.ID
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Phases   []planning.Phase  `json:"phases"`
				Current  planning.PhaseID  `json:"current,omitempty"`
				Progress planning.Progress `json:"progress"`
			}{phases, currentID, progress})
		}
		display.Roadmap(cmd.OutOrStdout(), phases, current, now)
		display.Progress(cmd.OutOrStdout(), progress)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <wedding>",
	Short: "Show the analysis from the last regeneration",
	Long: `Show what the generator said about the wedding the last time the plan was
regenerated: its summary, the critical and optional tasks and the phases
that need attention first. --json exports the stored record.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := store.GetTemplateMetadata(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return writeJSON(cmd.OutOrStdout(), meta)
		}
		display.Plan(cmd.OutOrStdout(), meta)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{listCmd, nextCmd, roadmapCmd, planCmd} {
		c.Flags().Bool("json", false, "Print JSON")
		rootCmd.AddCommand(c)
	}
	listCmd.Flags().Bool("open", false, "Hide completed tasks")
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openTasks(tasks []types.Task) []types.Task {
	open := tasks[:0:0]
	for _, t := range tasks {
		if !t.Completed {
			open = append(open, t)
		}
	}
	return open
}

func tierName(task *types.Task, tier priorities.Tier) string {
	if task == nil {
		return ""
	}
	return tier.String()
}
