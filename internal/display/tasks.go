// Package display renders tasks, roadmaps and audit events for the terminal.
// Color is applied through fatih/color, which turns itself off when the
// output is not a terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/lovenda/lovenda/internal/planning"
	"github.com/lovenda/lovenda/internal/priorities"
	"github.com/lovenda/lovenda/internal/types"
)

var (
	bold   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func statusIcon(s types.Status) string {
	switch s {
	case types.StatusCompleted:
		return green("✓")
	case types.StatusInProgress:
		return yellow("◐")
	case types.StatusBlocked:
		return red("⊗")
	default:
		return "○"
	}
}

// Due describes a due date relative to now, e.g. "in 12d" or "3d overdue"
func Due(due *time.Time, now time.Time) string {
	if due == nil {
		return "no date"
	}
	d := priorities.DaysUntil(*due, now)
	switch {
	case due.Before(now) && d == 0:
		return "due today (passed)"
	case d < 0:
		return fmt.Sprintf("%dd overdue", -d)
	case d == 0:
		return "due today"
	default:
		return fmt.Sprintf("in %dd", d)
	}
}

// Task prints a single task line followed by its open subtasks
func Task(w io.Writer, t *types.Task, now time.Time) {
	title := t.Title
	if t.Completed {
		title = gray(title)
	}

	var flags []string
	if t.Critical() && !t.Completed {
		flags = append(flags, red("critical"))
	}
	if t.Priority == types.PriorityHigh && !t.Completed {
		flags = append(flags, yellow("high"))
	}
	for _, tag := range t.Tags {
		flags = append(flags, "#"+tag.Label)
	}

	due := Due(t.DueDate, now)
	if t.DueDate != nil {
		due = t.DueDate.Format("2006-01-02") + ", " + due
		if !t.Completed && t.DueDate.Before(now) {
			due = red(due)
		}
	}

	line := fmt.Sprintf("  %s %s", statusIcon(t.Status), title)
	if t.Category != "" {
		line += gray(" [" + t.Category + "]")
	}
	line += "  " + due
	if len(flags) > 0 {
		line += "  " + strings.Join(flags, " ")
	}
	fmt.Fprintf(w, "%s  %s\n", line, gray(shortID(t.ID)))

	for _, st := range t.Subtasks {
		mark := "[ ]"
		if st.Completed {
			mark = green("[x]")
		}
		fmt.Fprintf(w, "      %s %s\n", mark, st.Title)
	}
}

// TaskList prints tasks in the given order
func TaskList(w io.Writer, tasks []types.Task, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintf(w, "\n%s No tasks yet. Run 'regenerate' to create a plan.\n\n", yellow("ℹ"))
		return
	}
	fmt.Fprintln(w)
	for i := range tasks {
		Task(w, &tasks[i], now)
	}
	fmt.Fprintln(w)
}

var tierHeadlines = map[priorities.Tier]string{
	priorities.TierOverdueCritical: "Overdue and critical",
	priorities.TierCriticalSoon:    "Critical and due this week",
	priorities.TierOverdue:         "Overdue",
	priorities.TierHighSoon:        "High priority, due this week",
	priorities.TierDated:           "Coming up next",
	priorities.TierUndated:         "When you have a moment",
}

// Next prints the next-step card for the task the resolver picked
func Next(w io.Writer, task *types.Task, tier priorities.Tier, now time.Time) {
	if task == nil {
		fmt.Fprintf(w, "\n%s Nothing left to do. Enjoy the wedding!\n\n", green("✓"))
		return
	}
	fmt.Fprintf(w, "\n%s\n", bold(tierHeadlines[tier]))
	Task(w, task, now)
	if task.Metadata.PriorityReason != "" {
		fmt.Fprintf(w, "    %s %s\n", gray("why:"), task.Metadata.PriorityReason)
	}
	if task.Notes != "" {
		fmt.Fprintf(w, "    %s %s\n", gray("notes:"), task.Notes)
	}
	fmt.Fprintln(w)
}

// Progress prints the completion summary line
func Progress(w io.Writer, p planning.Progress) {
	fmt.Fprintf(w, "%s %d/%d done (%d%%)", bold("Progress:"), p.Completed, p.Total, p.Percent())
	if p.InProgress > 0 {
		fmt.Fprintf(w, ", %s", yellow(fmt.Sprintf("%d in progress", p.InProgress)))
	}
	if p.Blocked > 0 {
		fmt.Fprintf(w, ", %s", red(fmt.Sprintf("%d blocked", p.Blocked)))
	}
	if p.Overdue > 0 {
		fmt.Fprintf(w, ", %s", red(fmt.Sprintf("%d overdue", p.Overdue)))
	}
	if p.CriticalOpen > 0 {
		fmt.Fprintf(w, ", %d critical open", p.CriticalOpen)
	}
	fmt.Fprintln(w)
}

// Roadmap prints every phase with its tasks, marking the current one
func Roadmap(w io.Writer, phases []planning.Phase, current *planning.Phase, now time.Time) {
	if len(phases) == 0 {
		fmt.Fprintf(w, "\n%s No tasks yet. Run 'regenerate' to create a plan.\n\n", yellow("ℹ"))
		return
	}
	fmt.Fprintln(w)
	for i := range phases {
		p := &phases[i]
		header := fmt.Sprintf("%s (%d/%d open)", p.Title, p.Open(), len(p.Tasks))
		if current != nil && current.ID == p.ID {
			fmt.Fprintf(w, "%s %s\n", bold(header), yellow("← you are here"))
		} else {
			fmt.Fprintf(w, "%s\n", bold(header))
		}
		for j := range p.Tasks {
			Task(w, &p.Tasks[j], now)
		}
		fmt.Fprintln(w)
	}
}

// Context prints a normalized planning context
func Context(w io.Writer, pc types.PlanningContext) {
	fmt.Fprintf(w, "\n%s\n", bold("Planning context"))
	rows := []struct {
		key   string
		value string
	}{
		{"ceremony", string(pc.CeremonyType)},
		{"budget", string(pc.BudgetTier)},
		{"guests", fmt.Sprint(pc.GuestCount)},
		{"lead time", fmt.Sprintf("%d months", pc.LeadTimeMonths)},
		{"style", pc.Style},
		{"venue", string(pc.VenueType)},
		{"location", string(pc.LocationKind)},
		{"city", pc.City},
		{"children", yesNo(pc.ManyChildren)},
		{"travelling guests", yesNo(pc.GuestsFromOutside)},
		{"same place", yesNo(pc.SamePlaceCeremonyReception)},
		{"planner", yesNo(pc.HasPlanner)},
	}
	if pc.WeddingDate != nil {
		rows = append(rows, struct {
			key   string
			value string
		}{"date", pc.WeddingDate.Format("2006-01-02")})
	}
	for _, r := range rows {
		if r.value == "" {
			continue
		}
		fmt.Fprintf(w, "  %-18s %s\n", r.key, r.value)
	}
	fmt.Fprintln(w)
}

// Plan prints the analysis stored with the last regeneration of a wedding
func Plan(w io.Writer, meta *types.TemplateMetadata) {
	if meta == nil {
		fmt.Fprintf(w, "\n%s No plan yet. Run 'regenerate' to create one.\n\n", yellow("ℹ"))
		return
	}
	source := "AI"
	if !meta.UsedAI {
		source = "built-in checklist"
	}
	fmt.Fprintf(w, "\n%s %s\n", bold("Plan for"), meta.WeddingID)
	fmt.Fprintf(w, "  %s\n", gray(fmt.Sprintf("generated %s from %s", meta.GeneratedAt.Local().Format("2006-01-02 15:04"), source)))
	fmt.Fprintf(w, "  %s\n", gray(meta.Context.String()))
	if meta.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", meta.Summary)
	}
	planList(w, red("Critical"), meta.CriticalBlocks)
	planList(w, gray("Optional"), meta.OptionalBlocks)
	if rec := meta.TimelineAdjustments.Recommendation; rec != "" {
		fmt.Fprintf(w, "\n%s %s\n", yellow("Timeline:"), rec)
	}
	if len(meta.TimelineAdjustments.UrgentPhases) > 0 {
		fmt.Fprintf(w, "%s %s\n", yellow("Urgent:"), strings.Join(meta.TimelineAdjustments.UrgentPhases, ", "))
	}
	fmt.Fprintln(w)
}

func planList(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", heading)
	for _, it := range items {
		fmt.Fprintf(w, "  • %s\n", it)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// shortID trims a uuid to its first block for display
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
