package planctx

import "github.com/lovenda/lovenda/internal/types"

var (
	leadTimeKeys    = []string{"leadTimeMonths", "leadTime"}
	weddingDateKeys = []string{"weddingDate", "date"}
)

// Profile renders a context back into raw profile form so a previous
// regeneration can pre-fill the next one. When the context carries a wedding
// date the lead time is left out and Build derives it again from the date,
// so a re-plan months later sees the time that is actually left.
func Profile(pc types.PlanningContext) map[string]any {
	raw := map[string]any{
		"ceremonyType":               string(pc.CeremonyType),
		"budget":                     string(pc.BudgetTier),
		"guestCount":                 pc.GuestCount,
		"style":                      pc.Style,
		"venueType":                  string(pc.VenueType),
		"location":                   string(pc.LocationKind),
		"manyChildren":               pc.ManyChildren,
		"guestsFromOutside":          pc.GuestsFromOutside,
		"samePlaceCeremonyReception": pc.SamePlaceCeremonyReception,
		"hasPlanner":                 pc.HasPlanner,
	}
	if pc.City != "" {
		raw["city"] = pc.City
	}
	if pc.WeddingDate != nil {
		raw["weddingDate"] = *pc.WeddingDate
	} else {
		raw["leadTimeMonths"] = pc.LeadTimeMonths
	}
	return raw
}

// Merge overlays raw on top of base. Nil values in raw are ignored. A wedding
// date in raw without a lead time drops the lead time inherited from base, so
// the date decides it.
func Merge(base, raw map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(raw))
	for k, v := range base {
		out[k] = v
	}
	if setsAny(raw, weddingDateKeys) && !setsAny(raw, leadTimeKeys) {
		for _, k := range leadTimeKeys {
			delete(out, k)
		}
		if info, ok := out["weddingInfo"].(map[string]any); ok {
			trimmed := make(map[string]any, len(info))
			for k, v := range info {
				trimmed[k] = v
			}
			for _, k := range leadTimeKeys {
				delete(trimmed, k)
			}
			out["weddingInfo"] = trimmed
		}
	}
	for k, v := range raw {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// setsAny reports whether raw, or its weddingInfo, has a non-nil value for
// one of keys
func setsAny(raw map[string]any, keys []string) bool {
	p := profile{top: raw}
	if info, ok := raw["weddingInfo"].(map[string]any); ok {
		p.info = info
	}
	_, ok := p.lookup(keys...)
	return ok
}
