// Package planctx turns a loosely structured wedding profile into a
// types.PlanningContext. Build never fails: unknown enum values fall back to
// defaults and numbers are clamped into range.
package planctx

import (
	"math"
	"strings"
	"time"

	"github.com/lovenda/lovenda/internal/types"
	"github.com/spf13/cast"
)

// Budget amount brackets used when the profile carries a number instead of a tier
const (
	lowBudgetCeiling    = 20000
	mediumBudgetCeiling = 40000
	highBudgetCeiling   = 70000
)

var ceremonyAliases = map[string]types.CeremonyType{
	"civil":       types.CeremonyCivil,
	"religious":   types.CeremonyReligious,
	"religiosa":   types.CeremonyReligious,
	"religioso":   types.CeremonyReligious,
	"church":      types.CeremonyReligious,
	"symbolic":    types.CeremonySymbolic,
	"simbolica":   types.CeremonySymbolic,
	"simbolico":   types.CeremonySymbolic,
	"destination": types.CeremonyDestination,
	"destino":     types.CeremonyDestination,
}

var budgetAliases = map[string]types.BudgetTier{
	"low":      types.BudgetLow,
	"ajustado": types.BudgetLow,
	"bajo":     types.BudgetLow,
	"medium":   types.BudgetMedium,
	"medio":    types.BudgetMedium,
	"high":     types.BudgetHigh,
	"alto":     types.BudgetHigh,
	"luxury":   types.BudgetLuxury,
	"premium":  types.BudgetLuxury,
	"lujo":     types.BudgetLuxury,
}

var venueAliases = map[string]types.VenueType{
	"mixed":       types.VenueMixed,
	"mixto":       types.VenueMixed,
	"indoor":      types.VenueIndoor,
	"interior":    types.VenueIndoor,
	"salon":       types.VenueIndoor,
	"outdoor":     types.VenueOutdoor,
	"exterior":    types.VenueOutdoor,
	"finca":       types.VenueOutdoor,
	"garden":      types.VenueGarden,
	"jardin":      types.VenueGarden,
	"beach":       types.VenueBeach,
	"playa":       types.VenueBeach,
	"hotel":       types.VenueHotel,
	"restaurant":  types.VenueRestaurant,
	"restaurante": types.VenueRestaurant,
}

var locationAliases = map[string]types.LocationKind{
	"local":       types.LocationLocal,
	"destination": types.LocationDestination,
	"destino":     types.LocationDestination,
}

var accentFolder = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")

// Build normalizes raw against the current time
func Build(raw map[string]any) types.PlanningContext {
	return BuildAt(raw, time.Now())
}

// BuildAt normalizes raw. now is only used to derive the lead time from a
// wedding date when the profile does not state one.
func BuildAt(raw map[string]any, now time.Time) types.PlanningContext {
	p := profile{top: raw}
	if info, err := cast.ToStringMapE(raw["weddingInfo"]); err == nil {
		p.info = info
	}

	ctx := types.DefaultPlanningContext()

	if v, ok := p.enum("ceremonyType", "ceremony"); ok {
		if c, ok := ceremonyAliases[v]; ok {
			ctx.CeremonyType = c
		}
	}
	if tier, ok := p.budget(); ok {
		ctx.BudgetTier = tier
	}
	if v, ok := p.enum("venueType", "venue"); ok {
		if vt, ok := venueAliases[v]; ok {
			ctx.VenueType = vt
		}
	}
	if v, ok := p.enum("location", "locationKind"); ok {
		if lk, ok := locationAliases[v]; ok {
			ctx.LocationKind = lk
		}
	}
	if s, ok := p.text("style"); ok {
		ctx.Style = s
	}
	if s, ok := p.text("city", "weddingCity"); ok {
		ctx.City = s
	}
	if d, ok := p.date("weddingDate", "date"); ok {
		ctx.WeddingDate = &d
	}

	if n, ok := p.number("guestCount", "guests", "guestsTotal"); ok {
		ctx.GuestCount = clamp(n, types.MinGuestCount, types.MaxGuestCount)
	}

	if n, ok := p.number("leadTimeMonths", "leadTime"); ok {
		ctx.LeadTimeMonths = clamp(n, types.MinLeadTimeMonths, types.MaxLeadTimeMonths)
	} else if ctx.WeddingDate != nil {
		ctx.LeadTimeMonths = clamp(monthsBetween(now, *ctx.WeddingDate), types.MinLeadTimeMonths, types.MaxLeadTimeMonths)
	}

	ctx.ManyChildren = p.flag("manyChildren")
	ctx.GuestsFromOutside = p.flag("guestsFromOutside")
	ctx.SamePlaceCeremonyReception = p.flag("samePlaceCeremonyReception")
	ctx.HasPlanner = p.flag("hasPlanner")

	return ctx
}

// profile looks keys up in the top-level map first and in weddingInfo second
type profile struct {
	top  map[string]any
	info map[string]any
}

func (p profile) lookup(keys ...string) (any, bool) {
	for _, m := range []map[string]any{p.top, p.info} {
		if m == nil {
			continue
		}
		for _, k := range keys {
			if v, ok := m[k]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func (p profile) text(keys ...string) (string, bool) {
	v, ok := p.lookup(keys...)
	if !ok {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func (p profile) enum(keys ...string) (string, bool) {
	s, ok := p.text(keys...)
	if !ok {
		return "", false
	}
	return accentFolder.Replace(strings.ToLower(s)), true
}

// number accepts ints, floats and numeric strings. NaN and infinities are malformed.
func (p profile) number(keys ...string) (int, bool) {
	v, ok := p.lookup(keys...)
	if !ok {
		return 0, false
	}
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	if s, isString := v.(string); isString {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	// Keep the value inside int range before converting; clamp does the rest.
	f = math.Max(math.Min(f, math.MaxInt32), math.MinInt32)
	return int(math.Round(f)), true
}

func (p profile) flag(key string) bool {
	v, ok := p.lookup(key)
	if !ok {
		return false
	}
	if s, isString := v.(string); isString {
		switch accentFolder.Replace(strings.ToLower(strings.TrimSpace(s))) {
		case "yes", "si", "y", "s":
			return true
		}
	}
	b, err := cast.ToBoolE(v)
	return err == nil && b
}

// budget reads a tier name or a numeric amount
func (p profile) budget() (types.BudgetTier, bool) {
	if s, ok := p.enum("budget", "budgetTier"); ok {
		if tier, ok := budgetAliases[s]; ok {
			return tier, true
		}
	}
	n, ok := p.number("budget", "budgetTier", "budgetAmount")
	if !ok || n <= 0 {
		return "", false
	}
	switch {
	case n < lowBudgetCeiling:
		return types.BudgetLow, true
	case n < mediumBudgetCeiling:
		return types.BudgetMedium, true
	case n < highBudgetCeiling:
		return types.BudgetHigh, true
	default:
		return types.BudgetLuxury, true
	}
}

// date accepts time values, common string layouts and Firestore-style
// {seconds: n} timestamps
func (p profile) date(keys ...string) (time.Time, bool) {
	v, ok := p.lookup(keys...)
	if !ok {
		return time.Time{}, false
	}
	switch tv := v.(type) {
	case time.Time:
		return tv, !tv.IsZero()
	case *time.Time:
		if tv == nil || tv.IsZero() {
			return time.Time{}, false
		}
		return *tv, true
	case string:
		if strings.TrimSpace(tv) == "" {
			return time.Time{}, false
		}
	}
	if m, err := cast.ToStringMapE(v); err == nil {
		secs, err := cast.ToInt64E(m["seconds"])
		if err != nil || secs <= 0 {
			return time.Time{}, false
		}
		return time.Unix(secs, 0).UTC(), true
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// monthsBetween counts whole calendar months from now until t. Past dates give
// a non-positive count and are clamped by the caller.
func monthsBetween(now, t time.Time) int {
	t = t.In(now.Location())
	months := (t.Year()-now.Year())*12 + int(t.Month()) - int(now.Month())
	if t.Day() < now.Day() {
		months--
	}
	return months
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
