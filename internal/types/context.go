package types

import (
	"fmt"
	"time"
)

// CeremonyType is the kind of ceremony being planned
type CeremonyType string

const (
	CeremonyCivil       CeremonyType = "civil"
	CeremonyReligious   CeremonyType = "religious"
	CeremonySymbolic    CeremonyType = "symbolic"
	CeremonyDestination CeremonyType = "destination"
)

// IsValid checks if the ceremony type value is valid
func (c CeremonyType) IsValid() bool {
	switch c {
	case CeremonyCivil, CeremonyReligious, CeremonySymbolic, CeremonyDestination:
		return true
	}
	return false
}

// BudgetTier is a coarse budget bracket
type BudgetTier string

const (
	BudgetLow    BudgetTier = "low"
	BudgetMedium BudgetTier = "medium"
	BudgetHigh   BudgetTier = "high"
	BudgetLuxury BudgetTier = "luxury"
)

// IsValid checks if the budget tier value is valid
func (b BudgetTier) IsValid() bool {
	switch b {
	case BudgetLow, BudgetMedium, BudgetHigh, BudgetLuxury:
		return true
	}
	return false
}

// VenueType describes the celebration venue
type VenueType string

const (
	VenueMixed      VenueType = "mixed"
	VenueIndoor     VenueType = "indoor"
	VenueOutdoor    VenueType = "outdoor"
	VenueGarden     VenueType = "garden"
	VenueBeach      VenueType = "beach"
	VenueHotel      VenueType = "hotel"
	VenueRestaurant VenueType = "restaurant"
)

// IsValid checks if the venue type value is valid
func (v VenueType) IsValid() bool {
	switch v {
	case VenueMixed, VenueIndoor, VenueOutdoor, VenueGarden, VenueBeach, VenueHotel, VenueRestaurant:
		return true
	}
	return false
}

// Outdoor reports whether the venue is exposed to the weather
func (v VenueType) Outdoor() bool {
	return v == VenueOutdoor || v == VenueGarden || v == VenueBeach
}

// LocationKind says whether the wedding happens where the couple lives
type LocationKind string

const (
	LocationLocal       LocationKind = "local"
	LocationDestination LocationKind = "destination"
)

// IsValid checks if the location kind value is valid
func (l LocationKind) IsValid() bool {
	return l == LocationLocal || l == LocationDestination
}

// Planning context bounds and defaults
const (
	MinLeadTimeMonths     = 1
	MaxLeadTimeMonths     = 36
	DefaultLeadTimeMonths = 12
	MinGuestCount         = 10
	MaxGuestCount         = 500
	DefaultGuestCount     = 100
	DefaultStyle          = "classic"
)

// PlanningContext is the normalized wedding profile every generator works from.
// Values are always in range; use planctx.Build to produce one from raw input.
type PlanningContext struct {
	CeremonyType               CeremonyType `json:"ceremonyType" yaml:"ceremonyType"`
	BudgetTier                 BudgetTier   `json:"budget" yaml:"budget"`
	LeadTimeMonths             int          `json:"leadTimeMonths" yaml:"leadTimeMonths"`
	GuestCount                 int          `json:"guestCount" yaml:"guestCount"`
	Style                      string       `json:"style" yaml:"style"`
	VenueType                  VenueType    `json:"venueType" yaml:"venueType"`
	LocationKind               LocationKind `json:"location" yaml:"location"`
	City                       string       `json:"city,omitempty" yaml:"city,omitempty"`
	WeddingDate                *time.Time   `json:"weddingDate,omitempty" yaml:"weddingDate,omitempty"`
	ManyChildren               bool         `json:"manyChildren" yaml:"manyChildren"`
	GuestsFromOutside          bool         `json:"guestsFromOutside" yaml:"guestsFromOutside"`
	SamePlaceCeremonyReception bool         `json:"samePlaceCeremonyReception" yaml:"samePlaceCeremonyReception"`
	HasPlanner                 bool         `json:"hasPlanner" yaml:"hasPlanner"`
}

// DefaultPlanningContext returns the context used when nothing is known
func DefaultPlanningContext() PlanningContext {
	return PlanningContext{
		CeremonyType:   CeremonyCivil,
		BudgetTier:     BudgetMedium,
		LeadTimeMonths: DefaultLeadTimeMonths,
		GuestCount:     DefaultGuestCount,
		Style:          DefaultStyle,
		VenueType:      VenueMixed,
		LocationKind:   LocationLocal,
	}
}

// Validate reports the first out-of-range or unknown value
func (c PlanningContext) Validate() error {
	if !c.CeremonyType.IsValid() {
		return fmt.Errorf("invalid ceremony type: %q", c.CeremonyType)
	}
	if !c.BudgetTier.IsValid() {
		return fmt.Errorf("invalid budget tier: %q", c.BudgetTier)
	}
	if c.LeadTimeMonths < MinLeadTimeMonths || c.LeadTimeMonths > MaxLeadTimeMonths {
		return fmt.Errorf("lead time must be between %d and %d months (got %d)",
			MinLeadTimeMonths, MaxLeadTimeMonths, c.LeadTimeMonths)
	}
	if c.GuestCount < MinGuestCount || c.GuestCount > MaxGuestCount {
		return fmt.Errorf("guest count must be between %d and %d (got %d)",
			MinGuestCount, MaxGuestCount, c.GuestCount)
	}
	if !c.VenueType.IsValid() {
		return fmt.Errorf("invalid venue type: %q", c.VenueType)
	}
	if !c.LocationKind.IsValid() {
		return fmt.Errorf("invalid location kind: %q", c.LocationKind)
	}
	return nil
}

// IsDestination reports whether guests have to travel to the ceremony
func (c PlanningContext) IsDestination() bool {
	return c.CeremonyType == CeremonyDestination || c.LocationKind == LocationDestination
}

// String returns a one-line summary for logs and the CLI
func (c PlanningContext) String() string {
	s := fmt.Sprintf("%s ceremony, %s budget, %d guests, %d months, %s venue, %s",
		c.CeremonyType, c.BudgetTier, c.GuestCount, c.LeadTimeMonths, c.VenueType, c.LocationKind)
	if c.WeddingDate != nil {
		s += ", on " + c.WeddingDate.Format("2006-01-02")
	}
	return s
}
