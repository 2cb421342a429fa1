package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/ncruces/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/lovenda/lovenda/internal/display"
	"github.com/lovenda/lovenda/internal/lifecycle"
	"github.com/lovenda/lovenda/internal/retry"
	"github.com/lovenda/lovenda/internal/types"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Add and update individual tasks",
	Long: `Commands that change one task at a time.

Task ids may be shortened to any unique prefix, as printed by "lovenda list".

Examples:
  lovenda task add smith-2027 "Book the photographer" --due 2027-03-01 --critical
  lovenda task start 3f2a
  lovenda task complete 3f2a
  lovenda task tag 3f2a vendors --color purple`,
}

var taskAddCmd = &cobra.Command{
	Use:   "add <wedding> <title>",
	Short: "Add a task of your own",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nt := lifecycle.NewTask{Title: strings.Join(args[1:], " ")}
		nt.Category, _ = cmd.Flags().GetString("category")
		nt.Notes, _ = cmd.Flags().GetString("notes")
		nt.IsCritical, _ = cmd.Flags().GetBool("critical")

		priority, _ := cmd.Flags().GetString("priority")
		nt.Priority = types.Priority(priority)
		if !nt.Priority.IsValid() {
			return fmt.Errorf("invalid --priority %q (want high, medium or low)", priority)
		}

		due, _ := cmd.Flags().GetString("due")
		if due != "" {
			d, err := parseDate(due)
			if err != nil {
				return err
			}
			nt.DueDate = &d
		}

		tags, _ := cmd.Flags().GetStringSlice("tag")
		for _, t := range tags {
			nt.Tags = append(nt.Tags, parseTag(t))
		}

		ctrl, err := newController()
		if err != nil {
			return err
		}
		var task *types.Task
		err = mutate(cmd.Context(), "create task", func(ctx context.Context) error {
			task, err = ctrl.Create(ctx, args[0], nt)
			return err
		})
		if err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Added task\n", green("✓"))
		display.Task(cmd.OutOrStdout(), task, today())
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := store.ResolveTaskID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		task, err := store.GetTask(cmd.Context(), id)
		if err != nil {
			return err
		}
		display.Task(cmd.OutOrStdout(), task, today())
		if task.Notes != "" {
			fmt.Printf("\n%s\n", task.Notes)
		}
		return nil
	},
}

// statusCommand builds a subcommand that moves a task to one status
func statusCommand(use, short string, to types.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, args[0], "set status", func(ctx context.Context, ctrl *lifecycle.Controller, id string) (*types.Task, error) {
				return ctrl.Transition(ctx, id, to)
			})
		},
	}
}

var taskToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Complete an open task or reopen a completed one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTask(cmd, args[0], "toggle task", func(ctx context.Context, ctrl *lifecycle.Controller, id string) (*types.Task, error) {
			return ctrl.ToggleComplete(ctx, id)
		})
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a task's title, notes, category or due date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var u lifecycle.FieldUpdate
		flags := cmd.Flags()
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			u.Title = &v
		}
		if flags.Changed("notes") {
			v, _ := flags.GetString("notes")
			u.Notes = &v
		}
		if flags.Changed("category") {
			v, _ := flags.GetString("category")
			u.Category = &v
		}
		if flags.Changed("due") {
			v, _ := flags.GetString("due")
			if v == "" || v == "none" {
				u.ClearDueDate = true
			} else {
				d, err := parseDate(v)
				if err != nil {
					return err
				}
				u.DueDate = &d
			}
		}
		return withTask(cmd, args[0], "edit task", func(ctx context.Context, ctrl *lifecycle.Controller, id string) (*types.Task, error) {
			return ctrl.UpdateFields(ctx, id, u)
		})
	},
}

var taskTagCmd = &cobra.Command{
	Use:   "tag <id> <label>",
	Short: "Add a tag, or remove it with --remove",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remove, _ := cmd.Flags().GetBool("remove")
		tagColor, _ := cmd.Flags().GetString("color")
		return withTask(cmd, args[0], "tag task", func(ctx context.Context, ctrl *lifecycle.Controller, id string) (*types.Task, error) {
			if remove {
				return ctrl.RemoveTag(ctx, id, args[1])
			}
			return ctrl.AddTag(ctx, id, types.Tag{Label: args[1], Color: tagColor})
		})
	},
}

var taskSubtaskCmd = &cobra.Command{
	Use:   "subtask <id> <title>",
	Short: "Add a subtask",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args[1:], " ")
		return withTask(cmd, args[0], "add subtask", func(ctx context.Context, ctrl *lifecycle.Controller, id string) (*types.Task, error) {
			return ctrl.AddSubtask(ctx, id, title)
		})
	},
}

var taskCheckCmd = &cobra.Command{
	Use:   "check <id> <n>",
	Short: "Toggle the n-th subtask (1-based)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("subtask number must be a positive integer, got %q", args[1])
		}
		return withTask(cmd, args[0], "toggle subtask", func(ctx context.Context, ctrl *lifecycle.Controller, id string) (*types.Task, error) {
			current, err := store.GetTask(ctx, id)
			if err != nil {
				return nil, err
			}
			if n > len(current.Subtasks) {
				return nil, fmt.Errorf("%s has %d subtasks", current.Title, len(current.Subtasks))
			}
			return ctrl.ToggleSubtask(ctx, id, current.Subtasks[n-1].ID)
		})
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := store.ResolveTaskID(ctx, args[0])
		if err != nil {
			return err
		}
		ctrl, err := newController()
		if err != nil {
			return err
		}
		if err := mutate(ctx, "delete task", func(ctx context.Context) error {
			return ctrl.Delete(ctx, id)
		}); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Deleted %s\n", green("✓"), id)
		return nil
	},
}

func init() {
	taskAddCmd.Flags().String("category", "", "Category (venue, attire, ...)")
	taskAddCmd.Flags().String("notes", "", "Free-form notes")
	taskAddCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	taskAddCmd.Flags().String("priority", string(types.PriorityMedium), "high, medium or low")
	taskAddCmd.Flags().Bool("critical", false, "Mark as critical")
	taskAddCmd.Flags().StringSlice("tag", nil, "Tag as label or label:color (repeatable)")

	taskEditCmd.Flags().String("title", "", "New title")
	taskEditCmd.Flags().String("notes", "", "New notes")
	taskEditCmd.Flags().String("category", "", "New category")
	taskEditCmd.Flags().String("due", "", `New due date (YYYY-MM-DD), or "none" to clear`)

	taskTagCmd.Flags().String("color", "gray", "Tag color")
	taskTagCmd.Flags().Bool("remove", false, "Remove the tag instead")

	taskCmd.AddCommand(
		taskAddCmd,
		taskShowCmd,
		statusCommand("start", "Mark a task in progress", types.StatusInProgress),
		statusCommand("block", "Mark a task blocked", types.StatusBlocked),
		statusCommand("complete", "Complete a task", types.StatusCompleted),
		statusCommand("reopen", "Undo a completion", types.StatusPending),
		taskToggleCmd,
		taskEditCmd,
		taskTagCmd,
		taskSubtaskCmd,
		taskCheckCmd,
		taskDeleteCmd,
	)
	rootCmd.AddCommand(taskCmd)
}

// withTask resolves an id prefix, runs a controller mutation with a retry on
// a busy database, and prints the resulting task
func withTask(cmd *cobra.Command, prefix, op string, fn func(context.Context, *lifecycle.Controller, string) (*types.Task, error)) error {
	ctx := cmd.Context()
	id, err := store.ResolveTaskID(ctx, prefix)
	if err != nil {
		return err
	}
	ctrl, err := newController()
	if err != nil {
		return err
	}

	var task *types.Task
	err = mutate(ctx, op, func(ctx context.Context) error {
		task, err = fn(ctx, ctrl, id)
		return err
	})
	if err != nil {
		return err
	}
	if task == nil {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s Task %s no longer exists\n", yellow("ℹ"), id)
		return nil
	}
	display.Task(cmd.OutOrStdout(), task, today())
	return nil
}

// mutate runs a write, retrying once when another process holds the database
func mutate(ctx context.Context, op string, fn func(context.Context) error) error {
	cfg := retry.DefaultConfig()
	cfg.Retriable = busy
	return retry.Do(ctx, cfg, op, fn)
}

func busy(err error) bool {
	return errors.Is(err, sqlite3.BUSY) || errors.Is(err, sqlite3.LOCKED)
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

// parseTag reads "label" or "label:color"
func parseTag(s string) types.Tag {
	label, tagColor, ok := strings.Cut(s, ":")
	if !ok || tagColor == "" {
		tagColor = "gray"
	}
	return types.Tag{Label: strings.TrimSpace(label), Color: strings.TrimSpace(tagColor)}
}
