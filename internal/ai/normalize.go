package ai

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/lovenda/lovenda/internal/types"
	"github.com/spf13/cast"
)

// Limits applied to generator output
const (
	MaxBlocks      = 200
	MaxOffsetDays  = 730
	maxTitleLen    = 280
	maxCategoryLen = 60
	maxReasonLen   = 500
	maxSummaryLen  = 2000
	maxListItems   = 50
	maxListItemLen = 280
)

// normalizePlan converts a decoded response into a TemplateResult. ok is false
// when the payload is not shaped like a plan at all.
func normalizePlan(payload any) (result *types.TemplateResult, ok bool) {
	var rawBlocks []any
	var obj map[string]any

	switch v := payload.(type) {
	case []any:
		rawBlocks = v
	case map[string]any:
		obj = v
		for _, key := range []string{"blocks", "items", "tasks"} {
			if list, isList := v[key].([]any); isList {
				rawBlocks = list
				break
			}
		}
	default:
		return nil, false
	}

	result = &types.TemplateResult{}
	for _, raw := range rawBlocks {
		if len(result.Blocks) >= MaxBlocks {
			break
		}
		if block, valid := normalizeBlock(raw); valid {
			result.Blocks = append(result.Blocks, block)
		}
	}

	if obj != nil {
		result.Summary = clip(stringField(obj, "summary"), maxSummaryLen)
		result.CriticalBlocks = stringList(obj["criticalBlocks"])
		result.OptionalBlocks = stringList(obj["optionalBlocks"])
		if adj, isMap := obj["timelineAdjustments"].(map[string]any); isMap {
			result.TimelineAdjustments = types.TimelineAdjustments{
				Recommendation: clip(stringField(adj, "recommendation"), maxSummaryLen),
				UrgentPhases:   stringList(adj["urgentPhases"]),
			}
		}
	}
	return result, true
}

// normalizeBlock returns false for blocks that have no usable title
func normalizeBlock(raw any) (types.TaskTemplateBlock, bool) {
	if s, isString := raw.(string); isString {
		title := clip(strings.TrimSpace(s), maxTitleLen)
		return types.TaskTemplateBlock{Title: title, Priority: types.BlockPriorityMedium}, title != ""
	}
	m, isMap := raw.(map[string]any)
	if !isMap {
		return types.TaskTemplateBlock{}, false
	}

	title := clip(stringField(m, "title", "name", "label"), maxTitleLen)
	if title == "" {
		return types.TaskTemplateBlock{}, false
	}

	return types.TaskTemplateBlock{
		Title:                  title,
		Category:               clip(stringField(m, "category"), maxCategoryLen),
		SuggestedDueOffsetDays: offsetField(m, "suggestedDueOffsetDays", "dueOffsetDays", "offsetDays", "leadTimeDays"),
		Priority:               NormalizePriority(stringField(m, "priority")),
		AIReason:               clip(stringField(m, "aiReason", "reason", "priorityReason"), maxReasonLen),
	}, true
}

// NormalizePriority maps free text to a block priority, defaulting to medium
func NormalizePriority(s string) types.BlockPriority {
	p := types.BlockPriority(strings.ToLower(strings.TrimSpace(s)))
	if p.IsValid() {
		return p
	}
	return types.BlockPriorityMedium
}

// ClampOffset truncates to whole days within ±MaxOffsetDays
func ClampOffset(days float64) int {
	if math.IsNaN(days) {
		return 0
	}
	days = math.Trunc(days)
	if days > MaxOffsetDays {
		return MaxOffsetDays
	}
	if days < -MaxOffsetDays {
		return -MaxOffsetDays
	}
	return int(days)
}

// stringField returns the first non-blank string value among keys. Non-string
// values are ignored rather than stringified.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func offsetField(m map[string]any, keys ...string) int {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if _, isBool := v.(bool); isBool {
			continue
		}
		if s, isString := v.(string); isString {
			v = strings.TrimSpace(s)
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			continue
		}
		return ClampOffset(f)
	}
	return 0
}

// stringList keeps trimmed, non-empty strings, deduplicated case-insensitively
// in first-seen order
func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, item := range list {
		s, isString := item.(string)
		if !isString {
			continue
		}
		s = clip(strings.TrimSpace(s), maxListItemLen)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) >= maxListItems {
			break
		}
	}
	return out
}

// clip shortens s to at most n runes
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
