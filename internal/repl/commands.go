package repl

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/lovenda/lovenda/internal/display"
	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/lifecycle"
	"github.com/lovenda/lovenda/internal/planctx"
	"github.com/lovenda/lovenda/internal/planning"
	"github.com/lovenda/lovenda/internal/priorities"
	"github.com/lovenda/lovenda/internal/storage"
	"github.com/lovenda/lovenda/internal/tasksync"
	"github.com/lovenda/lovenda/internal/types"
)

// defaultTagColor is used when a tag is added without a color
const defaultTagColor = "gray"

// registerCommands registers all built-in commands
func (r *REPL) registerCommands() {
	add := func(name, usage, help string, taskArg bool, h CommandHandler) {
		r.commands[name] = command{handler: h, usage: usage, help: help, taskArg: taskArg}
	}

	add("help", "help", "Show this help message", false, r.cmdHelp)
	add("?", "?", "Show this help message", false, r.cmdHelp)
	add("exit", "exit", "Leave the shell", false, r.cmdExit)
	add("quit", "quit", "Leave the shell", false, r.cmdExit)

	add("list", "list", "Show every task", false, r.cmdList)
	add("next", "next", "Show the one thing to do next", false, r.cmdNext)
	add("roadmap", "roadmap", "Show tasks by planning phase", false, r.cmdRoadmap)
	add("events", "events [n]", "Show recent activity", false, r.cmdEvents)
	add("plan", "plan", "Show the analysis from the last regeneration", false, r.cmdPlan)

	add("add", "add <title>", "Add a task", false, r.cmdAdd)
	add("start", "start <id>", "Mark a task in progress", true, r.transition(types.StatusInProgress))
	add("block", "block <id>", "Mark a task blocked", true, r.transition(types.StatusBlocked))
	add("done", "done <id>", "Complete a task", true, r.transition(types.StatusCompleted))
	add("reopen", "reopen <id>", "Undo a completion", true, r.transition(types.StatusPending))
	add("toggle", "toggle <id>", "Complete or reopen a task", true, r.cmdToggle)
	add("note", "note <id> <text>", "Replace a task's notes", true, r.cmdNote)
	add("tag", "tag <id> <label> [color]", "Toggle a tag", true, r.cmdTag)
	add("sub", "sub <id> <title>", "Add a subtask", true, r.cmdSubtask)
	add("check", "check <id> <n>", "Toggle the n-th subtask", true, r.cmdCheck)
	add("rm", "rm <id>", "Delete a task", true, r.cmdDelete)

	add("regen", "regen [--keep] [--dedupe]", "Regenerate the plan from the last profile", false, r.cmdRegen)
}

// cmdHelp shows help information
func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Available Commands:"))

	seen := map[string]bool{}
	for _, name := range []string{
		"list", "next", "roadmap", "events", "plan",
		"add", "start", "block", "done", "reopen", "toggle",
		"note", "tag", "sub", "check", "rm", "regen", "help", "exit",
	} {
		cmd := r.commands[name]
		if seen[cmd.usage] {
			continue
		}
		seen[cmd.usage] = true
		fmt.Fprintf(r.out, "  %-28s %s\n", green(cmd.usage), cmd.help)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Task ids may be shortened to any unique prefix.")
	fmt.Fprintln(r.out)
	return nil
}

// cmdExit exits the REPL
func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s Goodbye!\n", green("✓"))
	if r.rl != nil {
		r.rl.Close()
	}
	return io.EOF
}

func (r *REPL) cmdList(args []string) error {
	display.TaskList(r.out, r.snapshot(), r.now())
	return nil
}

func (r *REPL) cmdNext(args []string) error {
	task, tier := priorities.SelectNextTaskWithTier(r.snapshot(), r.now())
	display.Next(r.out, task, tier, r.now())
	return nil
}

func (r *REPL) cmdRoadmap(args []string) error {
	now := r.now()
	tasks := r.snapshot()
	phases := planning.BucketByPhase(tasks, now)
	display.Roadmap(r.out, phases, planning.CurrentPhase(phases, tasks, now), now)
	display.Progress(r.out, planning.Summarize(tasks, now))
	return nil
}

func (r *REPL) cmdEvents(args []string) error {
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("usage: events [n]")
		}
		limit = n
	}
	evts, err := r.store.GetTaskEvents(r.ctx, events.EventFilter{WeddingID: r.weddingID, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}
	if len(evts) == 0 {
		fmt.Fprintln(r.out, "No activity yet.")
		return nil
	}
	for i := len(evts) - 1; i >= 0; i-- {
		display.Event(r.out, evts[i])
	}
	return nil
}

func (r *REPL) cmdPlan(args []string) error {
	meta, err := r.store.GetTemplateMetadata(r.ctx, r.weddingID)
	if err != nil {
		return err
	}
	display.Plan(r.out, meta)
	return nil
}

func (r *REPL) cmdAdd(args []string) error {
	title := strings.Join(args, " ")
	if title == "" {
		return fmt.Errorf("usage: add <title>")
	}
	task, err := r.ctrl.Create(r.ctx, r.weddingID, lifecycle.NewTask{Title: title})
	if err != nil {
		return err
	}
	r.ok("Added %s %s", task.Title, shortID(task.ID))
	return nil
}

func (r *REPL) transition(to types.Status) CommandHandler {
	return func(args []string) error {
		id, err := r.taskArg(args, 1, "<id>")
		if id == "" || err != nil {
			return err
		}
		task, err := r.ctrl.Transition(r.ctx, id, to)
		return r.report(task, err, "%s is now %s", to)
	}
}

func (r *REPL) cmdToggle(args []string) error {
	id, err := r.taskArg(args, 1, "<id>")
	if id == "" || err != nil {
		return err
	}
	task, err := r.ctrl.ToggleComplete(r.ctx, id)
	if err != nil || task == nil {
		return r.report(task, err, "")
	}
	return r.report(task, nil, "%s is now %s", task.Status)
}

func (r *REPL) cmdNote(args []string) error {
	id, err := r.taskArg(args, 2, "<id> <text>")
	if id == "" || err != nil {
		return err
	}
	notes := strings.Join(args[1:], " ")
	task, err := r.ctrl.UpdateFields(r.ctx, id, lifecycle.FieldUpdate{Notes: &notes})
	return r.report(task, err, "Notes saved on %s")
}

func (r *REPL) cmdTag(args []string) error {
	id, err := r.taskArg(args, 2, "<id> <label> [color]")
	if id == "" || err != nil {
		return err
	}
	tag := types.Tag{Label: args[1], Color: defaultTagColor}
	if len(args) > 2 {
		tag.Color = args[2]
	}
	task, err := r.ctrl.ToggleTag(r.ctx, id, tag)
	return r.report(task, err, "Tags updated on %s")
}

func (r *REPL) cmdSubtask(args []string) error {
	id, err := r.taskArg(args, 2, "<id> <title>")
	if id == "" || err != nil {
		return err
	}
	task, err := r.ctrl.AddSubtask(r.ctx, id, strings.Join(args[1:], " "))
	return r.report(task, err, "Subtask added to %s")
}

func (r *REPL) cmdCheck(args []string) error {
	id, err := r.taskArg(args, 2, "<id> <n>")
	if id == "" || err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return fmt.Errorf("usage: check <id> <n>")
	}
	current, err := r.store.GetTask(r.ctx, id)
	if err != nil {
		return err
	}
	if n > len(current.Subtasks) {
		return fmt.Errorf("%s has %d subtasks", current.Title, len(current.Subtasks))
	}
	task, err := r.ctrl.ToggleSubtask(r.ctx, id, current.Subtasks[n-1].ID)
	return r.report(task, err, "Subtask toggled on %s")
}

func (r *REPL) cmdDelete(args []string) error {
	id, err := r.taskArg(args, 1, "<id>")
	if id == "" || err != nil {
		return err
	}
	if err := r.ctrl.Delete(r.ctx, id); err != nil {
		return err
	}
	r.ok("Deleted %s", shortID(id))
	return nil
}

func (r *REPL) cmdRegen(args []string) error {
	if r.regen == nil {
		return fmt.Errorf("regeneration is not configured for this shell")
	}
	req := tasksync.Request{WeddingID: r.weddingID, ClearPrevious: true, Actor: r.actor}
	for _, a := range args {
		switch a {
		case "--keep":
			req.ClearPrevious = false
		case "--dedupe":
			req.Dedupe = true
		default:
			return fmt.Errorf("usage: regen [--keep] [--dedupe]")
		}
	}

	seed, _, err := r.regen.SeedDefaults(r.ctx, r.weddingID)
	if err != nil {
		return err
	}
	req.Profile = planctx.Profile(seed)

	out, err := r.regen.Regenerate(r.ctx, req)
	if err != nil {
		return err
	}
	source := "AI"
	if out.UsedFallback || !out.Result.UsedAI {
		source = "built-in checklist"
	}
	r.ok("Plan regenerated from %s: %d created, %d removed, %d skipped",
		source, out.Applied.Created, out.Applied.Removed, out.Applied.Skipped)
	return nil
}

// taskArg resolves the first argument to a full task id. An unknown id is
// reported and yields "" with no error.
func (r *REPL) taskArg(args []string, min int, usage string) (string, error) {
	if len(args) < min {
		return "", fmt.Errorf("usage: %s", usage)
	}
	id, err := r.store.ResolveTaskID(r.ctx, args[0])
	if errors.Is(err, storage.ErrNotFound) {
		r.warn("No task matches %q", args[0])
		return "", nil
	}
	return id, err
}

// report prints the outcome of a controller call. A nil task means the task
// disappeared before the change landed.
func (r *REPL) report(task *types.Task, err error, format string, extra ...interface{}) error {
	if err != nil {
		return err
	}
	if task == nil {
		r.warn("That task no longer exists")
		return nil
	}
	r.ok(format, append([]interface{}{task.Title}, extra...)...)
	return nil
}

func (r *REPL) ok(format string, args ...interface{}) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

func (r *REPL) warn(format string, args ...interface{}) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(r.out, "%s %s\n", yellow("ℹ"), fmt.Sprintf(format, args...))
}
