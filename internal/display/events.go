package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/lovenda/lovenda/internal/events"
)

// Event prints one audit event in a two-line format: a headline and a line
// of key fields (blank when the event carries none).
func Event(w io.Writer, event *events.TaskEvent) {
	emoji := eventEmoji(event)
	severityColor := severityColor(event.Severity)

	subject := event.TaskID
	if subject == "" {
		subject = event.WeddingID
	}
	maxMessageLen := 60 - len(subject) - len(string(event.Type))
	message := truncateString(event.Message, maxMessageLen)

	fmt.Fprintf(w, "%s [%s] %s %s: %s\n",
		emoji,
		event.Timestamp.Local().Format("2006-01-02 15:04"),
		color.New(color.FgGreen).Sprint(subject),
		color.New(color.FgMagenta).Sprint(event.Type),
		severityColor.Sprint(message),
	)

	if metadata := eventMetadata(event); metadata != "" {
		fmt.Fprintf(w, "  %s\n", color.New(color.FgHiBlack).Sprint(metadata))
	} else {
		fmt.Fprintln(w)
	}
}

func eventEmoji(event *events.TaskEvent) string {
	switch event.Type {
	case events.EventTypeTaskCreated:
		return "📝"
	case events.EventTypeStatusChanged:
		if getStringField(event.Data, "to", "") == "completed" {
			return "✅"
		}
		return "🔄"
	case events.EventTypeTaskUpdated:
		return "✏️"
	case events.EventTypeTaskDeleted:
		return "🗑️"
	case events.EventTypeTaskMissing:
		return "👻"
	case events.EventTypePlanRegenerated:
		return "💍"
	case events.EventTypePlanGenerationFailed:
		return "🚫"
	}

	switch event.Severity {
	case events.SeverityWarning:
		return "⚠️"
	case events.SeverityError:
		return "❌"
	default:
		return "ℹ️"
	}
}

func severityColor(severity events.EventSeverity) *color.Color {
	switch severity {
	case events.SeverityInfo:
		return color.New(color.FgCyan)
	case events.SeverityWarning:
		return color.New(color.FgYellow)
	case events.SeverityError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

// eventMetadata extracts the handful of fields worth showing for each event
// type, pipe-separated and truncated to fit a narrow terminal.
func eventMetadata(event *events.TaskEvent) string {
	var fields []string

	switch event.Type {
	case events.EventTypeStatusChanged:
		from := getStringField(event.Data, "from", "?")
		to := getStringField(event.Data, "to", "?")
		fields = []string{from + " → " + to, event.Actor}

	case events.EventTypeTaskUpdated:
		fields = []string{strings.Join(getStringList(event.Data, "fields"), ", "), event.Actor}

	case events.EventTypePlanRegenerated:
		created := fmt.Sprintf("%d created", getIntField(event.Data, "created", 0))
		removed := fmt.Sprintf("%d removed", getIntField(event.Data, "removed", 0))
		skipped := fmt.Sprintf("%d skipped", getIntField(event.Data, "skipped", 0))
		source := "built-in"
		if getBoolField(event.Data, "used_ai", false) {
			source = "ai"
		}
		fields = []string{created, removed, skipped, source}

	case events.EventTypePlanGenerationFailed:
		fields = []string{
			getStringField(event.Data, "reason", "unknown"),
			truncateString(getStringField(event.Data, "error", ""), 40),
		}

	case events.EventTypeTaskMissing:
		fields = []string{getStringField(event.Data, "operation", ""), event.Actor}

	default:
		if err, ok := event.Data["error"].(string); ok {
			fields = append(fields, truncateString(err, 50))
		}
	}

	return truncateString(joinFields(fields), 70)
}

func getStringField(data map[string]interface{}, key, defaultValue string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return defaultValue
}

func getIntField(data map[string]interface{}, key string, defaultValue int) int {
	switch val := data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	}
	return defaultValue
}

func getBoolField(data map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := data[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getStringList reads a list that may have round-tripped through JSON
func getStringList(data map[string]interface{}, key string) []string {
	switch val := data[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, v := range val {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func joinFields(fields []string) string {
	nonEmpty := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	return strings.Join(nonEmpty, " | ")
}

// truncateString shortens s to at most maxLen runes, ending in "..."
func truncateString(s string, maxLen int) string {
	if maxLen < 4 {
		maxLen = 4
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
