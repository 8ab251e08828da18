// Package notify holds the confirmation message sent to guests and the
// log-only emitter used when no broker is configured.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"travel_booking/internal/domain"
)

// Confirmation is the guest-facing summary of a finalized booking.
type Confirmation struct {
	BookingID   string      `json:"booking_id"`
	SentTo      string      `json:"sent_to"`
	GuestName   string      `json:"guest_name"`
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Kind        domain.Kind `json:"kind"`
	Departure   *time.Time  `json:"departure,omitempty"`
	CheckIn     *time.Time  `json:"check_in,omitempty"`
	CheckOut    *time.Time  `json:"check_out,omitempty"`
	Room        string      `json:"room,omitempty"`
	PartySize   int         `json:"party_size"`
	Total       int64       `json:"total"`
	Currency    string      `json:"currency"`
	CreatedAt   time.Time   `json:"created_at"`
}

// room categories in the order they are looked up
var roomCategories = []string{"room", "cabin"}

func NewConfirmation(b domain.Booking) Confirmation {
	c := Confirmation{
		BookingID:   b.ID,
		SentTo:      b.Contact.Email,
		GuestName:   b.Contact.Name,
		ProductID:   b.ProductID,
		ProductName: b.ProductName,
		Kind:        b.Kind,
		Departure:   b.Departure,
		CheckIn:     b.CheckIn,
		CheckOut:    b.CheckOut,
		PartySize:   b.PartySize,
		Total:       b.Total,
		Currency:    b.Currency,
		CreatedAt:   b.CreatedAt,
	}
	for _, id := range roomCategories {
		if o, ok := b.Option(id); ok {
			c.Room = o.ChoiceLabel
			break
		}
	}
	return c
}

// LogEmitter writes confirmations to the log instead of delivering them.
type LogEmitter struct{ l zerolog.Logger }

func NewLogEmitter(l zerolog.Logger) *LogEmitter { return &LogEmitter{l: l} }

func (e *LogEmitter) Name() string { return "log" }

func (e *LogEmitter) Notify(ctx context.Context, b domain.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := NewConfirmation(b)
	e.l.Info().
		Str("booking", c.BookingID).
		Str("to", c.SentTo).
		Str("product", c.ProductName).
		Str("room", c.Room).
		Int64("total", c.Total).
		Str("currency", c.Currency).
		Msg("booking confirmation")
	return nil
}
