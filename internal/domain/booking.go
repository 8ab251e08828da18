package domain

import (
	"strings"
	"time"
)

type ContactFields struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Trimmed returns the fields without surrounding whitespace.
func (c ContactFields) Trimmed() ContactFields {
	return ContactFields{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
}

// BookingDraft is the mutable state of one configurator session.
type BookingDraft struct {
	ProductID string            `json:"product_id"`
	Choices   map[string]string `json:"choices"` // category id -> choice id
	PartySize int               `json:"party_size"`
	SlotID    string            `json:"slot_id,omitempty"`
	CheckIn   time.Time         `json:"check_in,omitempty"`
	CheckOut  time.Time         `json:"check_out,omitempty"`
	Contact   ContactFields     `json:"contact"`
}

func (d BookingDraft) Clone() BookingDraft {
	out := d
	out.Choices = make(map[string]string, len(d.Choices))
	for k, v := range d.Choices {
		out.Choices[k] = v
	}
	return out
}

// Nights counts calendar days between check-in and check-out.
func (d BookingDraft) Nights() int {
	if d.CheckIn.IsZero() || d.CheckOut.IsZero() {
		return 0
	}
	in := time.Date(d.CheckIn.Year(), d.CheckIn.Month(), d.CheckIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(d.CheckOut.Year(), d.CheckOut.Month(), d.CheckOut.Day(), 0, 0, 0, 0, time.UTC)
	return int(out.Sub(in).Hours() / 24)
}

type SelectedOption struct {
	CategoryID    string `json:"category_id"`
	CategoryLabel string `json:"category_label"`
	ChoiceID      string `json:"choice_id"`
	ChoiceLabel   string `json:"choice_label"`
}

// Booking is the immutable record produced by a successful submit.
type Booking struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	ProductName   string           `json:"product_name"`
	Kind          Kind             `json:"kind"`
	Options       []SelectedOption `json:"options"`
	PartySize     int              `json:"party_size"`
	Departure     *time.Time       `json:"departure,omitempty"`
	CheckIn       *time.Time       `json:"check_in,omitempty"`
	CheckOut      *time.Time       `json:"check_out,omitempty"`
	DurationUnits int              `json:"duration_units"`
	Total         int64            `json:"total"`
	Currency      string           `json:"currency"`
	Contact       ContactFields    `json:"contact"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Option returns the selection recorded for a category, if any.
func (b Booking) Option(categoryID string) (SelectedOption, bool) {
	for _, o := range b.Options {
		if o.CategoryID == categoryID {
			return o, true
		}
	}
	return SelectedOption{}, false
}

// FilterCriteria narrows the catalog. Attribute values equal to a sentinel
// ("" or "All ...") place no constraint on that attribute.
type FilterCriteria struct {
	Query      string            `json:"q,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	MaxPrice   *int64            `json:"max_price,omitempty"`
	MinRating  *float64          `json:"min_rating,omitempty"`
}
