package domain

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindCruise Kind = "cruise"
	KindHotel  Kind = "hotel"
)

// ScheduleModel decides how duration units are derived for a product.
type ScheduleModel string

const (
	ScheduleSlot  ScheduleModel = "slot"  // fixed departures, fixed length baked into the base price
	ScheduleRange ScheduleModel = "range" // check-in/check-out, priced per night
)

type PricingMode string

const (
	Multiplicative PricingMode = "multiplicative"
	Additive       PricingMode = "additive"
)

type Choice struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Factor    float64 `json:"factor,omitempty"`    // multiplicative categories only
	Surcharge int64   `json:"surcharge,omitempty"` // additive categories only, minor units
}

type OptionCategory struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Mode  PricingMode `json:"mode"`

	// PerDurationUnit applies an additive surcharge once per night instead of once per stay.
	PerDurationUnit bool     `json:"per_duration_unit,omitempty"`
	Choices         []Choice `json:"choices"`
}

func (c OptionCategory) Choice(id string) (Choice, bool) {
	for _, ch := range c.Choices {
		if ch.ID == id {
			return ch, true
		}
	}
	return Choice{}, false
}

type Slot struct {
	ID    string    `json:"id"`
	Date  time.Time `json:"date"`
	Label string    `json:"label,omitempty"`
}

type Capacity struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (c Capacity) Contains(n int) bool { return n >= c.Min && n <= c.Max }

// Product is a bookable catalog item. Products are read-only once loaded.
type Product struct {
	ID               string              `json:"id"`
	Kind             Kind                `json:"kind"`
	Name             string              `json:"name"`
	Description      string              `json:"description"`
	Location         string              `json:"location"`
	Currency         string              `json:"currency"`
	BaseUnitPrice    int64               `json:"base_unit_price"`
	Rating           float64             `json:"rating"`
	Schedule         ScheduleModel       `json:"schedule"`
	FixedNights      int                 `json:"fixed_nights,omitempty"`
	Slots            []Slot              `json:"slots,omitempty"`
	Capacity         Capacity            `json:"capacity"`
	DefaultPartySize int                 `json:"default_party_size,omitempty"`
	Options          []OptionCategory    `json:"options"`
	Attributes       map[string][]string `json:"attributes,omitempty"`
	Amenities        []string            `json:"amenities,omitempty"`
	Image            string              `json:"image,omitempty"`
}

func (p Product) Category(id string) (OptionCategory, bool) {
	for _, c := range p.Options {
		if c.ID == id {
			return c, true
		}
	}
	return OptionCategory{}, false
}

func (p Product) Slot(id string) (Slot, bool) {
	for _, s := range p.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}

// AttributeValues returns every value the product carries for a filterable attribute.
// "kind" and "location" resolve to the corresponding fields.
func (p Product) AttributeValues(name string) []string {
	switch strings.ToLower(name) {
	case "kind":
		return []string{string(p.Kind)}
	case "location":
		return []string{p.Location}
	}
	return p.Attributes[name]
}

// Validate checks the option data the pricing engine relies on.
func (p Product) Validate() error {
	bad := func(format string, args ...any) error {
		return &ConfigError{ProductID: p.ID, Reason: fmt.Sprintf(format, args...)}
	}
	if strings.TrimSpace(p.ID) == "" {
		return bad("missing id")
	}
	if p.BaseUnitPrice < 0 {
		return bad("negative base unit price %d", p.BaseUnitPrice)
	}
	switch p.Schedule {
	case ScheduleSlot:
		if len(p.Slots) == 0 {
			return bad("slot schedule without slots")
		}
	case ScheduleRange:
	default:
		return bad("unknown schedule model %q", p.Schedule)
	}
	if p.Capacity.Min < 1 || p.Capacity.Max < p.Capacity.Min {
		return bad("invalid capacity %d..%d", p.Capacity.Min, p.Capacity.Max)
	}

	seen := map[string]bool{}
	for _, c := range p.Options {
		if c.ID == "" || seen[c.ID] {
			return bad("missing or duplicate option category id %q", c.ID)
		}
		seen[c.ID] = true
		if len(c.Choices) == 0 {
			return bad("category %s has no choices", c.ID)
		}
		choiceIDs := map[string]bool{}
		for _, ch := range c.Choices {
			if ch.ID == "" || choiceIDs[ch.ID] {
				return bad("category %s: missing or duplicate choice id %q", c.ID, ch.ID)
			}
			choiceIDs[ch.ID] = true
			switch c.Mode {
			case Multiplicative:
				if ch.Surcharge != 0 {
					return bad("category %s mixes modes: choice %s has a surcharge", c.ID, ch.ID)
				}
				if ch.Factor <= 0 {
					return bad("category %s: choice %s needs a positive factor", c.ID, ch.ID)
				}
			case Additive:
				if ch.Factor != 0 {
					return bad("category %s mixes modes: choice %s has a factor", c.ID, ch.ID)
				}
			default:
				return bad("category %s has unknown pricing mode %q", c.ID, c.Mode)
			}
		}
		if c.Mode == Multiplicative && c.PerDurationUnit {
			return bad("category %s: per_duration_unit only applies to additive categories", c.ID)
		}
	}
	return nil
}
