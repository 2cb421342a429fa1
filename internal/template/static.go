// Package template generates plans from a built-in checklist. It stands in for
// the model-backed generator when that is unavailable or disabled.
package template

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"strings"

	"github.com/lovenda/lovenda/internal/ai"
	"github.com/lovenda/lovenda/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var defaultCatalogue []byte

// daysPerMonth converts the lead time into a planning window
const daysPerMonth = 30

// shortLeadTimeMonths marks the point below which the timeline is compressed
const shortLeadTimeMonths = 6

type catalogue struct {
	Categories []category `yaml:"categories"`
}

type category struct {
	Category string  `yaml:"category"`
	Tasks    []entry `yaml:"tasks"`
}

type entry struct {
	Title     string    `yaml:"title"`
	End       float64   `yaml:"end"`
	AfterDays int       `yaml:"afterDays"`
	Priority  string    `yaml:"priority"`
	Reason    string    `yaml:"reason"`
	Optional  bool      `yaml:"optional"`
	When      condition `yaml:"when"`
}

// condition restricts an entry to matching profiles. Unset fields match anything.
type condition struct {
	Ceremony          []string `yaml:"ceremony"`
	Venue             []string `yaml:"venue"`
	Budget            []string `yaml:"budget"`
	Destination       *bool    `yaml:"destination"`
	Outdoor           *bool    `yaml:"outdoor"`
	ManyChildren      *bool    `yaml:"manyChildren"`
	GuestsFromOutside *bool    `yaml:"guestsFromOutside"`
	SamePlace         *bool    `yaml:"samePlace"`
	HasPlanner        *bool    `yaml:"hasPlanner"`
	MinGuests         int      `yaml:"minGuests"`
}

func (c condition) matches(pc types.PlanningContext) bool {
	if len(c.Ceremony) > 0 && !contains(c.Ceremony, string(pc.CeremonyType)) {
		return false
	}
	if len(c.Venue) > 0 && !contains(c.Venue, string(pc.VenueType)) {
		return false
	}
	if len(c.Budget) > 0 && !contains(c.Budget, string(pc.BudgetTier)) {
		return false
	}
	if c.MinGuests > 0 && pc.GuestCount < c.MinGuests {
		return false
	}
	checks := []struct {
		want *bool
		got  bool
	}{
		{c.Destination, pc.IsDestination()},
		{c.Outdoor, pc.VenueType.Outdoor()},
		{c.ManyChildren, pc.ManyChildren},
		{c.GuestsFromOutside, pc.GuestsFromOutside},
		{c.SamePlace, pc.SamePlaceCeremonyReception},
		{c.HasPlanner, pc.HasPlanner},
	}
	for _, chk := range checks {
		if chk.want != nil && *chk.want != chk.got {
			return false
		}
	}
	return true
}

// Static is a Generator backed by a fixed catalogue
type Static struct {
	cat catalogue
}

var _ ai.Generator = (*Static)(nil)

// New returns a generator over the embedded catalogue
func New() (*Static, error) {
	return NewFromYAML(defaultCatalogue)
}

// NewFromYAML parses and validates a catalogue document
func NewFromYAML(data []byte) (*Static, error) {
	var cat catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse template catalogue: %w", err)
	}
	count := 0
	for _, c := range cat.Categories {
		for _, e := range c.Tasks {
			if strings.TrimSpace(e.Title) == "" {
				return nil, fmt.Errorf("category %q: task without title", c.Category)
			}
			if e.End < 0 || e.End > 1 {
				return nil, fmt.Errorf("task %q: end must be between 0 and 1 (got %v)", e.Title, e.End)
			}
			if e.AfterDays < 0 {
				return nil, fmt.Errorf("task %q: afterDays must be non-negative", e.Title)
			}
			count++
		}
	}
	if count == 0 {
		return nil, fmt.Errorf("template catalogue has no tasks")
	}
	return &Static{cat: cat}, nil
}

// GeneratePlan selects the catalogue entries that apply to pc and schedules
// them across the lead time
func (s *Static) GeneratePlan(ctx context.Context, pc types.PlanningContext) (*types.TemplateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ai.GenerationError{Reason: ai.ReasonUnavailable, Err: err}
	}

	window := float64(pc.LeadTimeMonths * daysPerMonth)
	short := pc.LeadTimeMonths <= shortLeadTimeMonths

	result := &types.TemplateResult{}
	var urgent []string
	for _, c := range s.cat.Categories {
		categoryUrgent := false
		for _, e := range c.Tasks {
			if !e.When.matches(pc) {
				continue
			}
			offset := -e.AfterDays
			if e.AfterDays == 0 {
				offset = int(math.Round((1 - e.End) * window))
			}
			block := types.TaskTemplateBlock{
				Title:                  e.Title,
				Category:               c.Category,
				SuggestedDueOffsetDays: ai.ClampOffset(float64(offset)),
				Priority:               ai.NormalizePriority(e.Priority),
				AIReason:               e.Reason,
			}
			result.Blocks = append(result.Blocks, block)

			if block.Priority == types.BlockPriorityCritical {
				result.CriticalBlocks = append(result.CriticalBlocks, block.Title)
			}
			if e.Optional {
				result.OptionalBlocks = append(result.OptionalBlocks, block.Title)
			}
			// Early tasks are the ones a short lead time squeezes hardest
			if short && e.AfterDays == 0 && e.End <= 0.25 {
				categoryUrgent = true
			}
		}
		if categoryUrgent {
			urgent = append(urgent, c.Category)
		}
	}
	if len(result.Blocks) > ai.MaxBlocks {
		result.Blocks = result.Blocks[:ai.MaxBlocks]
	}

	result.Summary = fmt.Sprintf("Standard checklist for a %s %s wedding with %d guests, %d months out.",
		pc.BudgetTier, pc.CeremonyType, pc.GuestCount, pc.LeadTimeMonths)
	if short {
		result.TimelineAdjustments = types.TimelineAdjustments{
			Recommendation: "Lead time is short: book the venue and key suppliers this week and run the remaining phases in parallel.",
			UrgentPhases:   urgent,
		}
	} else {
		result.TimelineAdjustments = types.TimelineAdjustments{
			Recommendation: "Follow the standard timeline.",
		}
	}
	result.UsedAI = false
	return result, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
