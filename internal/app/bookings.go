package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"travel_booking/internal/adapters/observability"
	"travel_booking/internal/catalog"
	"travel_booking/internal/domain"
	"travel_booking/internal/wizard"
)

// SessionView is what clients see of an open configurator session.
type SessionView struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	wizard.Snapshot
}

type session struct {
	mu      sync.Mutex
	wiz     *wizard.Wizard
	kind    string
	touched atomic.Int64 // unix nanos of last interaction
}

func (ss *session) touch(t time.Time)    { ss.touched.Store(t.UnixNano()) }
func (ss *session) lastTouch() time.Time { return time.Unix(0, ss.touched.Load()) }

// BookingService keeps one wizard per session id. A session lives until it is
// finalized, cancelled or left idle for longer than the session TTL.
type BookingService struct {
	catalog       *catalog.Catalog
	emitter       domain.ConfirmationEmitter
	ttl           time.Duration
	notifyTimeout time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type BookingOption func(*BookingService)

func WithSessionClock(now func() time.Time) BookingOption {
	return func(s *BookingService) { s.now = now }
}

func NewBookingService(c *catalog.Catalog, e domain.ConfirmationEmitter, ttl, notifyTimeout time.Duration, opts ...BookingOption) *BookingService {
	s := &BookingService{
		catalog:       c,
		ttl:           ttl,
		notifyTimeout: notifyTimeout,
		now:           time.Now,
		sessions:      map[string]*session{},
	}
	if e != nil {
		s.emitter = observedEmitter{inner: e}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open starts a session for a catalog product with every option defaulted.
func (s *BookingService) Open(ctx context.Context, productID string) (SessionView, error) {
	p, err := s.catalog.Get(productID)
	if err != nil {
		return SessionView{}, err
	}
	id := uuid.NewString()
	opts := []wizard.Option{
		wizard.WithClock(s.now),
		wizard.WithLogger(log.Logger.With().Str("session", id).Logger()),
	}
	if s.emitter != nil {
		opts = append(opts, wizard.WithEmitter(s.emitter))
	}
	w, err := wizard.New(p, opts...)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			observability.ObserveBooking(string(p.Kind), "config_defect")
		}
		return SessionView{}, err
	}

	ss := &session{wiz: w, kind: string(p.Kind)}
	ss.touch(s.now())
	s.mu.Lock()
	s.sessions[id] = ss
	s.mu.Unlock()

	observability.ObserveBooking(ss.kind, "opened")
	log.Info().Str("session", id).Str("product", p.ID).Msg("booking session opened")
	return s.view(id, ss, w.Snapshot()), nil
}

func (s *BookingService) Get(ctx context.Context, sid string) (SessionView, error) {
	return s.apply(sid, func(w *wizard.Wizard) (wizard.Snapshot, error) { return w.Snapshot(), nil })
}

func (s *BookingService) ChooseOption(ctx context.Context, sid, categoryID, choiceID string) (SessionView, error) {
	return s.apply(sid, func(w *wizard.Wizard) (wizard.Snapshot, error) { return w.ChooseOption(categoryID, choiceID) })
}

func (s *BookingService) SetPartySize(ctx context.Context, sid string, n int) (SessionView, error) {
	return s.apply(sid, func(w *wizard.Wizard) (wizard.Snapshot, error) { return w.SetPartySize(n) })
}

func (s *BookingService) SelectSlot(ctx context.Context, sid, slotID string) (SessionView, error) {
	return s.apply(sid, func(w *wizard.Wizard) (wizard.Snapshot, error) { return w.SelectSlot(slotID) })
}

func (s *BookingService) SetStay(ctx context.Context, sid string, checkIn, checkOut time.Time) (SessionView, error) {
	return s.apply(sid, func(w *wizard.Wizard) (wizard.Snapshot, error) { return w.SetStay(checkIn, checkOut) })
}

func (s *BookingService) Next(ctx context.Context, sid string) (SessionView, error) {
	return s.apply(sid, func(w *wizard.Wizard) (wizard.Snapshot, error) {
		if err := w.Next(); err != nil {
			return wizard.Snapshot{}, err
		}
		return w.Snapshot(), nil
	})
}

func (s *BookingService) Back(ctx context.Context, sid string) (SessionView, error) {
	return s.apply(sid, func(w *wizard.Wizard) (wizard.Snapshot, error) {
		if err := w.Back(); err != nil {
			return wizard.Snapshot{}, err
		}
		return w.Snapshot(), nil
	})
}

func (s *BookingService) UpdateContact(ctx context.Context, sid string, c domain.ContactFields) (SessionView, error) {
	return s.apply(sid, func(w *wizard.Wizard) (wizard.Snapshot, error) { return w.UpdateContact(c) })
}

// Submit finalizes the session's booking. Field violations leave the session
// open in Details; any other outcome that produces a booking closes it.
func (s *BookingService) Submit(ctx context.Context, sid string) (wizard.Receipt, error) {
	ss, err := s.lookup(sid)
	if err != nil {
		return wizard.Receipt{}, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if s.notifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.notifyTimeout)
		defer cancel()
	}
	rc, err := ss.wiz.Submit(ctx)
	if err != nil {
		var fe domain.FieldErrors
		switch {
		case errors.As(err, &fe):
			observability.ObserveBooking(ss.kind, "validation_failed")
		case errors.Is(err, domain.ErrConfiguration):
			observability.ObserveBooking(ss.kind, "config_defect")
		}
		ss.touch(s.now())
		return wizard.Receipt{}, err
	}

	s.drop(sid)
	observability.ObserveBooking(ss.kind, "finalized")
	return rc, nil
}

// Cancel discards the session. Nothing is emitted.
func (s *BookingService) Cancel(ctx context.Context, sid string) error {
	ss, err := s.lookup(sid)
	if err != nil {
		return err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if err := ss.wiz.Cancel(); err != nil {
		return err
	}
	s.drop(sid)
	observability.ObserveBooking(ss.kind, "cancelled")
	return nil
}

// Sweep drops sessions idle past the TTL and reports how many went.
func (s *BookingService) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, ss := range s.sessions {
		if s.expired(ss, now) {
			delete(s.sessions, id)
			observability.ObserveBooking(ss.kind, "expired")
			n++
		}
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (s *BookingService) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("expired", n).Msg("booking sessions swept")
			}
		}
	}
}

func (s *BookingService) apply(sid string, fn func(w *wizard.Wizard) (wizard.Snapshot, error)) (SessionView, error) {
	ss, err := s.lookup(sid)
	if err != nil {
		return SessionView{}, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	snap, err := fn(ss.wiz)
	ss.touch(s.now())
	if err != nil {
		return SessionView{}, err
	}
	return s.view(sid, ss, snap), nil
}

func (s *BookingService) lookup(sid string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sid, domain.ErrNotFound)
	}
	if s.expired(ss, s.now()) {
		delete(s.sessions, sid)
		observability.ObserveBooking(ss.kind, "expired")
		return nil, fmt.Errorf("session %s expired: %w", sid, domain.ErrNotFound)
	}
	return ss, nil
}

func (s *BookingService) drop(sid string) {
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
}

func (s *BookingService) expired(ss *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(ss.lastTouch()) > s.ttl
}

func (s *BookingService) view(sid string, ss *session, snap wizard.Snapshot) SessionView {
	v := SessionView{ID: sid, Snapshot: snap}
	if s.ttl > 0 {
		v.ExpiresAt = ss.lastTouch().Add(s.ttl).UTC()
	}
	return v
}

// observedEmitter counts deliveries per emitter.
type observedEmitter struct{ inner domain.ConfirmationEmitter }

func (o observedEmitter) Notify(ctx context.Context, b domain.Booking) error {
	err := o.inner.Notify(ctx, b)
	observability.ObserveNotification(emitterName(o.inner), err)
	return err
}

func emitterName(e domain.ConfirmationEmitter) string {
	if n, ok := e.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", e)
}
