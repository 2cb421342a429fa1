package ai

import (
	"fmt"
	"strings"

	"github.com/lovenda/lovenda/internal/types"
)

const systemPrompt = `You are an experienced wedding planner. You turn a couple's wedding profile into a concrete, prioritized checklist of planning tasks. You answer with JSON only.`

// buildPlanPrompt renders the planning context into the generation prompt
func buildPlanPrompt(pc types.PlanningContext) string {
	var details strings.Builder
	details.WriteString(fmt.Sprintf("- Ceremony type: %s\n", pc.CeremonyType))
	details.WriteString(fmt.Sprintf("- Budget tier: %s\n", pc.BudgetTier))
	details.WriteString(fmt.Sprintf("- Months until the wedding: %d\n", pc.LeadTimeMonths))
	details.WriteString(fmt.Sprintf("- Guest count: %d\n", pc.GuestCount))
	details.WriteString(fmt.Sprintf("- Style: %s\n", pc.Style))
	details.WriteString(fmt.Sprintf("- Venue type: %s\n", pc.VenueType))
	details.WriteString(fmt.Sprintf("- Location: %s\n", pc.LocationKind))
	if pc.City != "" {
		details.WriteString(fmt.Sprintf("- City: %s\n", pc.City))
	}
	if pc.WeddingDate != nil {
		details.WriteString(fmt.Sprintf("- Wedding date: %s\n", pc.WeddingDate.Format("2006-01-02")))
	}

	var flags []string
	if pc.ManyChildren {
		flags = append(flags, "many children among the guests")
	}
	if pc.GuestsFromOutside {
		flags = append(flags, "many guests travelling from out of town")
	}
	if pc.SamePlaceCeremonyReception {
		flags = append(flags, "ceremony and reception at the same place")
	} else {
		flags = append(flags, "ceremony and reception at different places")
	}
	if pc.HasPlanner {
		flags = append(flags, "the couple has hired a professional wedding planner")
	}
	for _, f := range flags {
		details.WriteString(fmt.Sprintf("- %s\n", f))
	}

	urgency := ""
	if pc.LeadTimeMonths <= 6 {
		urgency = "\nThe lead time is short. Compress the schedule and flag the phases that are now urgent.\n"
	}

	return fmt.Sprintf(`Build the planning checklist for this wedding.

WEDDING PROFILE:
%s%s
OUTPUT FORMAT:
{
  "blocks": [
    {
      "title": "Book the ceremony venue",
      "category": "venue",
      "suggestedDueOffsetDays": 300,
      "priority": "critical",
      "aiReason": "Popular venues book out a year ahead"
    }
  ],
  "summary": "One or two sentences describing the plan",
  "criticalBlocks": ["titles of the blocks the wedding cannot happen without"],
  "optionalBlocks": ["titles of the blocks the couple could skip"],
  "timelineAdjustments": {
    "recommendation": "How the schedule should adapt to the lead time",
    "urgentPhases": ["names of phases that need immediate attention"]
  }
}

Guidelines:
- suggestedDueOffsetDays is the number of days BEFORE the wedding the task is due; use negative numbers for tasks after the wedding
- priority is one of: critical, high, medium, low
- Between 20 and 60 blocks, each a single actionable task
- Do not schedule tasks further out than %d months before the wedding unless they are already overdue
- Tailor the list to the profile: skip what does not apply, add what the profile makes necessary

IMPORTANT: Respond with ONLY raw JSON. Do NOT wrap it in markdown code fences (`+"```"+`). Just the JSON object.`,
		details.String(), urgency, pc.LeadTimeMonths)
}
