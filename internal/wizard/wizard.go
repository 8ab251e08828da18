// Package wizard drives one booking configurator session from option
// selection through contact details to a finalized booking.
//
// A Wizard is owned by a single caller and is not safe for concurrent use.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"travel_booking/internal/domain"
	"travel_booking/internal/pricing"
	"travel_booking/internal/validation"
)

type State string

const (
	Selection State = "selection"
	Details   State = "details"
	Finalized State = "finalized"
	Cancelled State = "cancelled"
)

func (s State) Terminal() bool { return s == Finalized || s == Cancelled }

var (
	ErrClosed          = errors.New("wizard is closed")
	ErrWrongState      = errors.New("action not allowed in current step")
	ErrUnknownCategory = errors.New("unknown option category")
	ErrUnknownChoice   = errors.New("unknown choice")
	ErrUnknownSlot     = errors.New("unknown schedule slot")
	ErrPartySize       = errors.New("party size outside capacity")
	ErrStayRange       = errors.New("invalid check-in/check-out range")
	ErrScheduleModel   = errors.New("not supported by product schedule")
)

const notifyDelayedNotice = "Your booking succeeded but confirmation may be delayed."

// Snapshot is the draft plus its live price after an interaction.
type Snapshot struct {
	State State               `json:"state"`
	Draft domain.BookingDraft `json:"draft"`
	Quote pricing.Breakdown   `json:"quote"`
}

// Receipt is the outcome of a successful submit. NotifyErr is set when the
// booking stands but the confirmation could not be delivered.
type Receipt struct {
	Booking   domain.Booking `json:"booking"`
	Notice    string         `json:"notice,omitempty"`
	NotifyErr error          `json:"-"`
}

type Wizard struct {
	product domain.Product
	draft   domain.BookingDraft
	state   State
	quote   pricing.Breakdown

	emitter domain.ConfirmationEmitter
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
}

type Option func(*Wizard)

func WithEmitter(e domain.ConfirmationEmitter) Option { return func(w *Wizard) { w.emitter = e } }
func WithClock(now func() time.Time) Option           { return func(w *Wizard) { w.now = now } }
func WithIDs(f func() string) Option                  { return func(w *Wizard) { w.newID = f } }
func WithLogger(l zerolog.Logger) Option              { return func(w *Wizard) { w.log = l } }

// New opens a wizard in Selection with a default for every option.
func New(p domain.Product, opts ...Option) (*Wizard, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	w := &Wizard{
		product: p,
		state:   Selection,
		now:     time.Now,
		newID:   uuid.NewString,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(w)
	}
	w.draft = defaultDraft(p, w.now())
	if err := w.reprice(); err != nil {
		return nil, err
	}
	return w, nil
}

func defaultDraft(p domain.Product, now time.Time) domain.BookingDraft {
	d := domain.BookingDraft{
		ProductID: p.ID,
		Choices:   make(map[string]string, len(p.Options)),
		PartySize: p.Capacity.Min,
	}
	for _, c := range p.Options {
		d.Choices[c.ID] = c.Choices[0].ID
	}
	switch {
	case p.DefaultPartySize > 0 && p.Capacity.Contains(p.DefaultPartySize):
		d.PartySize = p.DefaultPartySize
	case p.Capacity.Contains(2):
		d.PartySize = 2
	}
	switch p.Schedule {
	case domain.ScheduleSlot:
		d.SlotID = p.Slots[0].ID
	case domain.ScheduleRange:
		today := startOfDay(now)
		d.CheckIn = today.AddDate(0, 0, 7)
		d.CheckOut = today.AddDate(0, 0, 9)
	}
	return d
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (w *Wizard) State() State            { return w.state }
func (w *Wizard) Product() domain.Product { return w.product }

func (w *Wizard) Snapshot() Snapshot {
	return Snapshot{State: w.state, Draft: w.draft.Clone(), Quote: w.quote}
}

func (w *Wizard) reprice() error {
	q, err := pricing.Quote(w.product, w.draft)
	if err != nil {
		w.log.Error().Err(err).Str("product", w.product.ID).Msg("pricing failed")
		return err
	}
	w.quote = q
	return nil
}

// mutate applies fn to the draft and rolls it back if fn or repricing fails.
func (w *Wizard) mutate(allowed State, fn func(d *domain.BookingDraft) error) (Snapshot, error) {
	if w.state.Terminal() {
		return Snapshot{}, ErrClosed
	}
	if w.state != allowed {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrWrongState, w.state)
	}
	prev := w.draft.Clone()
	if err := fn(&w.draft); err != nil {
		w.draft = prev
		return Snapshot{}, err
	}
	if err := w.reprice(); err != nil {
		w.draft = prev
		return Snapshot{}, err
	}
	return w.Snapshot(), nil
}

func (w *Wizard) ChooseOption(categoryID, choiceID string) (Snapshot, error) {
	return w.mutate(Selection, func(d *domain.BookingDraft) error {
		c, ok := w.product.Category(categoryID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
		}
		if _, ok := c.Choice(choiceID); !ok {
			return fmt.Errorf("%w: %s/%s", ErrUnknownChoice, categoryID, choiceID)
		}
		d.Choices[categoryID] = choiceID
		return nil
	})
}

func (w *Wizard) SetPartySize(n int) (Snapshot, error) {
	return w.mutate(Selection, func(d *domain.BookingDraft) error {
		if !w.product.Capacity.Contains(n) {
			return fmt.Errorf("%w: %d not in %d..%d", ErrPartySize, n, w.product.Capacity.Min, w.product.Capacity.Max)
		}
		d.PartySize = n
		return nil
	})
}

func (w *Wizard) SelectSlot(slotID string) (Snapshot, error) {
	return w.mutate(Selection, func(d *domain.BookingDraft) error {
		if w.product.Schedule != domain.ScheduleSlot {
			return fmt.Errorf("select slot: %w", ErrScheduleModel)
		}
		if _, ok := w.product.Slot(slotID); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
		}
		d.SlotID = slotID
		return nil
	})
}

// SetStay sets the check-in/check-out range. Check-in may not be in the past and
// check-out must fall on a later day.
func (w *Wizard) SetStay(checkIn, checkOut time.Time) (Snapshot, error) {
	return w.mutate(Selection, func(d *domain.BookingDraft) error {
		if w.product.Schedule != domain.ScheduleRange {
			return fmt.Errorf("set stay: %w", ErrScheduleModel)
		}
		in, out := startOfDay(checkIn), startOfDay(checkOut)
		if err := w.checkStay(in, out); err != nil {
			return err
		}
		d.CheckIn, d.CheckOut = in, out
		return nil
	})
}

func (w *Wizard) checkStay(in, out time.Time) error {
	if in.Before(startOfDay(w.now())) {
		return fmt.Errorf("%w: check-in before today", ErrStayRange)
	}
	if !out.After(in) {
		return fmt.Errorf("%w: check-out must be after check-in", ErrStayRange)
	}
	return nil
}

func (w *Wizard) Next() error {
	return w.transition(Selection, Details)
}

// Back returns to Selection keeping every option chosen so far.
func (w *Wizard) Back() error {
	return w.transition(Details, Selection)
}

func (w *Wizard) transition(from, to State) error {
	if w.state.Terminal() {
		return ErrClosed
	}
	if w.state != from {
		return fmt.Errorf("%w: %s", ErrWrongState, w.state)
	}
	w.state = to
	return nil
}

func (w *Wizard) UpdateContact(c domain.ContactFields) (Snapshot, error) {
	return w.mutate(Details, func(d *domain.BookingDraft) error {
		d.Contact = c
		return nil
	})
}

// Cancel discards the draft. No booking is produced and nothing is emitted.
func (w *Wizard) Cancel() error {
	if w.state.Terminal() {
		return ErrClosed
	}
	w.state = Cancelled
	w.draft = domain.BookingDraft{}
	w.quote = pricing.Breakdown{}
	return nil
}

// Submit validates contact details and finalizes the booking.
//
// Field violations come back as domain.FieldErrors and leave the wizard in
// Details, as does a stay whose check-in is now in the past. A pricing defect aborts the submit. Once the booking exists the
// wizard is Finalized, and a failing emitter only adds a notice to the receipt.
func (w *Wizard) Submit(ctx context.Context) (Receipt, error) {
	if w.state.Terminal() {
		return Receipt{}, ErrClosed
	}
	if w.state != Details {
		return Receipt{}, fmt.Errorf("%w: %s", ErrWrongState, w.state)
	}
	if errs := validation.Contact(w.draft.Contact); len(errs) > 0 {
		return Receipt{}, errs
	}
	// a stay chosen earlier in the session may have slipped into the past
	if w.product.Schedule == domain.ScheduleRange {
		if err := w.checkStay(w.draft.CheckIn, w.draft.CheckOut); err != nil {
			return Receipt{}, fmt.Errorf("submit: %w", err)
		}
	}
	if err := w.reprice(); err != nil {
		return Receipt{}, fmt.Errorf("submit: %w", err)
	}

	b := w.buildBooking()
	w.state = Finalized
	w.log.Info().
		Str("booking", b.ID).
		Str("product", b.ProductID).
		Int64("total", b.Total).
		Msg("booking finalized")

	rc := Receipt{Booking: b}
	if w.emitter != nil {
		if err := w.emitter.Notify(ctx, b); err != nil {
			w.log.Warn().Err(err).Str("booking", b.ID).Msg("confirmation delivery failed")
			rc.Notice = notifyDelayedNotice
			rc.NotifyErr = err
		}
	}
	return rc, nil
}

func (w *Wizard) buildBooking() domain.Booking {
	p, d := w.product, w.draft
	b := domain.Booking{
		ID:            w.newID(),
		ProductID:     p.ID,
		ProductName:   p.Name,
		Kind:          p.Kind,
		PartySize:     d.PartySize,
		DurationUnits: w.quote.DurationUnits,
		Total:         w.quote.Total,
		Currency:      p.Currency,
		Contact:       d.Contact.Trimmed(),
		CreatedAt:     w.now().UTC(),
	}
	for _, c := range p.Options {
		ch, ok := c.Choice(d.Choices[c.ID])
		if !ok {
			continue
		}
		b.Options = append(b.Options, domain.SelectedOption{
			CategoryID:    c.ID,
			CategoryLabel: c.Label,
			ChoiceID:      ch.ID,
			ChoiceLabel:   ch.Label,
		})
	}
	switch p.Schedule {
	case domain.ScheduleSlot:
		if s, ok := p.Slot(d.SlotID); ok {
			dep := s.Date
			b.Departure = &dep
		}
	case domain.ScheduleRange:
		in, out := d.CheckIn, d.CheckOut
		b.CheckIn, b.CheckOut = &in, &out
	}
	return b
}
