package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"travel_booking/internal/adapters/notify"
	"travel_booking/internal/domain"
)

func booking() domain.Booking {
	dep := time.Date(2026, 12, 5, 0, 0, 0, 0, time.UTC)
	return domain.Booking{
		ID:          "b-1",
		ProductID:   "cr-goa-lakshadweep",
		ProductName: "Lakshadweep Explorer",
		Kind:        domain.KindCruise,
		Options: []domain.SelectedOption{
			{CategoryID: "cabin", ChoiceID: "balcony", ChoiceLabel: "Balcony"},
			{CategoryID: "meal-plan", ChoiceID: "basic-plus", ChoiceLabel: "Basic Plus"},
		},
		PartySize: 2,
		Departure: &dep,
		Total:     14700000,
		Currency:  "INR",
		Contact:   domain.ContactFields{Name: "Asha Rao", Email: "asha@example.in"},
	}
}

func TestNewConfirmation(t *testing.T) {
	c := notify.NewConfirmation(booking())

	if c.SentTo != "asha@example.in" || c.GuestName != "Asha Rao" {
		t.Fatalf("recipient = %s/%s", c.SentTo, c.GuestName)
	}
	if c.Room != "Balcony" || c.Total != 14700000 || c.Departure == nil || c.CheckIn != nil {
		t.Fatalf("unexpected confirmation: %+v", c)
	}
}

func TestLogEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := notify.NewLogEmitter(zerolog.New(&buf))

	if err := e.Notify(context.Background(), booking()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line: %v", err)
	}
	if line["booking"] != "b-1" || line["to"] != "asha@example.in" || line["room"] != "Balcony" {
		t.Fatalf("unexpected log line: %v", line)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Notify(ctx, booking()); err == nil {
		t.Fatalf("expected cancelled context to fail")
	}
}
