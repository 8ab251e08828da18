// Package pricing computes booking totals in currency minor units.
//
//	total = ((base × Πfactors + Σper-night surcharges) × durationUnits + Σonce surcharges) × partySize
//
// Choices missing from the draft count as factor 1 / surcharge 0 so a partially
// configured draft still yields a live estimate. The result is rounded half away
// from zero once, at the end.
package pricing

import (
	"fmt"
	"math"

	"travel_booking/internal/domain"
)

const maxTotal = float64(1 << 63)

// Breakdown exposes the intermediate terms of a quote.
type Breakdown struct {
	BaseUnitPrice    int64   `json:"base_unit_price"`
	Multiplier       float64 `json:"multiplier"`
	PerUnitSurcharge int64   `json:"per_unit_surcharge"`
	PerStaySurcharge int64   `json:"per_stay_surcharge"`
	DurationUnits    int     `json:"duration_units"`
	PartySize        int     `json:"party_size"`
	Total            int64   `json:"total"`
}

// DurationUnits is 1 for fixed-length voyages and the night count for stays.
func DurationUnits(p domain.Product, d domain.BookingDraft) int {
	if p.Schedule == domain.ScheduleRange {
		if n := d.Nights(); n > 0 {
			return n
		}
		return 0
	}
	return 1
}

func Compute(p domain.Product, d domain.BookingDraft) (int64, error) {
	b, err := Quote(p, d)
	return b.Total, err
}

func Quote(p domain.Product, d domain.BookingDraft) (Breakdown, error) {
	b := Breakdown{
		BaseUnitPrice: p.BaseUnitPrice,
		Multiplier:    1.0,
		DurationUnits: DurationUnits(p, d),
		PartySize:     d.PartySize,
	}
	for _, c := range p.Options {
		ch, ok := c.Choice(d.Choices[c.ID])
		switch c.Mode {
		case domain.Multiplicative:
			if ok {
				b.Multiplier *= ch.Factor
			}
		case domain.Additive:
			if !ok {
				continue
			}
			if c.PerDurationUnit {
				b.PerUnitSurcharge += ch.Surcharge
			} else {
				b.PerStaySurcharge += ch.Surcharge
			}
		default:
			return Breakdown{}, &domain.ConfigError{
				ProductID: p.ID,
				Reason:    fmt.Sprintf("category %s has unknown pricing mode %q", c.ID, c.Mode),
			}
		}
	}

	perUnit := float64(b.BaseUnitPrice)*b.Multiplier + float64(b.PerUnitSurcharge)
	raw := (perUnit*float64(b.DurationUnits) + float64(b.PerStaySurcharge)) * float64(b.PartySize)
	total := math.Round(raw)
	// 2^63 is the first value int64 cannot hold
	if total < 0 || total >= maxTotal || math.IsNaN(total) {
		return Breakdown{}, &domain.ConfigError{
			ProductID: p.ID,
			Reason:    fmt.Sprintf("computed total %.0f is not a representable non-negative amount", total),
		}
	}
	b.Total = int64(total)
	return b, nil
}
