package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"travel_booking/internal/app"
	"travel_booking/internal/domain"
	"travel_booking/internal/wizard"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingEmitter struct {
	mu    sync.Mutex
	sent  []domain.Booking
	err   error
	block bool
}

func (e *recordingEmitter) Notify(ctx context.Context, b domain.Booking) error {
	if e.block {
		<-ctx.Done()
		return ctx.Err()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, b)
	return e.err
}

func (e *recordingEmitter) Name() string { return "recording" }

func newService(t *testing.T, e domain.ConfirmationEmitter) (*app.BookingService, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC)}
	svc := app.NewBookingService(loadCatalog(t), e, 30*time.Minute, 50*time.Millisecond,
		app.WithSessionClock(clk.Now))
	return svc, clk
}

var guest = domain.ContactFields{
	Name:    "Asha Rao",
	Email:   "asha@example.in",
	Phone:   "98765 43210",
	Address: "12 Marine Drive, Mumbai",
}

func TestBookingService_HotelHappyPath(t *testing.T) {
	em := &recordingEmitter{}
	svc, _ := newService(t, em)
	ctx := context.Background()

	v, err := svc.Open(ctx, "ht-goa-beach")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if v.State != wizard.Selection || v.Quote.Total != 3200000 {
		t.Fatalf("unexpected defaults: %s %d", v.State, v.Quote.Total)
	}
	if !v.ExpiresAt.Equal(time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("expires at %s", v.ExpiresAt)
	}

	if v, err = svc.ChooseOption(ctx, v.ID, "room", "premium"); err != nil || v.Quote.Total != 4480000 {
		t.Fatalf("choose: %d %v", v.Quote.Total, err)
	}
	if _, err = svc.Next(ctx, v.ID); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err = svc.UpdateContact(ctx, v.ID, guest); err != nil {
		t.Fatalf("contact: %v", err)
	}

	rc, err := svc.Submit(ctx, v.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rc.Booking.Total != 4480000 || rc.Notice != "" || rc.Booking.CheckIn == nil {
		t.Fatalf("unexpected receipt: %+v", rc)
	}
	if len(em.sent) != 1 || em.sent[0].ID != rc.Booking.ID {
		t.Fatalf("expected one confirmation, got %d", len(em.sent))
	}
	if _, err := svc.Get(ctx, v.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("finalized session should be gone, got %v", err)
	}
}

func TestBookingService_InvalidContactKeepsSessionOpen(t *testing.T) {
	svc, _ := newService(t, &recordingEmitter{})
	ctx := context.Background()
	v, _ := svc.Open(ctx, "cr-goa-lakshadweep")
	_, _ = svc.Next(ctx, v.ID)
	bad := guest
	bad.Email = "bad-email"
	_, _ = svc.UpdateContact(ctx, v.ID, bad)

	_, err := svc.Submit(ctx, v.ID)

	var fe domain.FieldErrors
	if !errors.As(err, &fe) || !fe.Has("email", domain.InvalidFormat) {
		t.Fatalf("expected email field error, got %v", err)
	}
	got, err := svc.Get(ctx, v.ID)
	if err != nil || got.State != wizard.Details {
		t.Fatalf("session should stay in details: %+v %v", got.State, err)
	}
}

func TestBookingService_NotificationFailureStillBooks(t *testing.T) {
	for name, em := range map[string]*recordingEmitter{
		"error":   {err: errors.New("smtp down")},
		"timeout": {block: true},
	} {
		t.Run(name, func(t *testing.T) {
			svc, _ := newService(t, em)
			ctx := context.Background()
			v, _ := svc.Open(ctx, "cr-goa-lakshadweep")
			_, _ = svc.Next(ctx, v.ID)
			_, _ = svc.UpdateContact(ctx, v.ID, guest)

			rc, err := svc.Submit(ctx, v.ID)

			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if rc.Notice == "" || rc.NotifyErr == nil || rc.Booking.Total != 9300000 {
				t.Fatalf("unexpected receipt: %+v", rc)
			}
		})
	}
}

func TestBookingService_CancelDiscards(t *testing.T) {
	em := &recordingEmitter{}
	svc, _ := newService(t, em)
	ctx := context.Background()
	v, _ := svc.Open(ctx, "ht-jaipur-fort")

	if err := svc.Cancel(ctx, v.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := svc.Cancel(ctx, v.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second cancel should miss, got %v", err)
	}
	if len(em.sent) != 0 {
		t.Fatalf("cancel must not emit")
	}
}

func TestBookingService_IdleSessionsExpire(t *testing.T) {
	svc, clk := newService(t, nil)
	ctx := context.Background()
	a, _ := svc.Open(ctx, "ht-jaipur-fort")
	b, _ := svc.Open(ctx, "ht-taj-mumbai")

	clk.Advance(20 * time.Minute)
	if _, err := svc.Get(ctx, b.ID); err != nil {
		t.Fatalf("touching b: %v", err)
	}
	clk.Advance(15 * time.Minute)

	if n := svc.Sweep(); n != 1 {
		t.Fatalf("expected one expired session, got %d", n)
	}
	if _, err := svc.Get(ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("a should be gone, got %v", err)
	}
	if _, err := svc.Get(ctx, b.ID); err != nil {
		t.Fatalf("b should still be open: %v", err)
	}
}

func TestBookingService_Errors(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	if _, err := svc.Open(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	v, _ := svc.Open(ctx, "cr-chennai-singapore")
	if _, err := svc.SetPartySize(ctx, v.ID, 9); !errors.Is(err, wizard.ErrPartySize) {
		t.Fatalf("expected ErrPartySize, got %v", err)
	}
	if _, err := svc.SetStay(ctx, v.ID, time.Now(), time.Now().AddDate(0, 0, 2)); !errors.Is(err, wizard.ErrScheduleModel) {
		t.Fatalf("expected ErrScheduleModel, got %v", err)
	}
	if _, err := svc.Submit(ctx, v.ID); !errors.Is(err, wizard.ErrWrongState) {
		t.Fatalf("expected ErrWrongState, got %v", err)
	}
	if _, err := svc.Back(ctx, v.ID); !errors.Is(err, wizard.ErrWrongState) {
		t.Fatalf("expected ErrWrongState, got %v", err)
	}
	got, err := svc.SelectSlot(ctx, v.ID, "2027-03-02")
	if err != nil || got.Draft.SlotID != "2027-03-02" {
		t.Fatalf("select slot: %+v %v", got.Draft, err)
	}
}

func TestBookingService_ConcurrentEdits(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	v, _ := svc.Open(ctx, "cr-goa-lakshadweep")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			choice := []string{"interior", "balcony"}[i%2]
			if _, err := svc.ChooseOption(ctx, v.ID, "cabin", choice); err != nil {
				t.Errorf("choose: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := svc.Get(ctx, v.ID)
	if c := got.Draft.Choices["cabin"]; c != "interior" && c != "balcony" {
		t.Fatalf("unexpected cabin %q", c)
	}
}
