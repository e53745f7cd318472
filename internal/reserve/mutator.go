package reserve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"appliance-reserve-backend/internal/notify"
	"appliance-reserve-backend/internal/status"
	"appliance-reserve-backend/internal/store"
	"appliance-reserve-backend/internal/timesrc"
)

var (
	// ErrNotFound means the appliance id is unknown.
	ErrNotFound = errors.New("appliance not found")
	// ErrInvalidDuration means the requested duration is outside [1, max].
	ErrInvalidDuration = errors.New("invalid reservation duration")
)

// Mutator validates and applies reservation changes. It holds no state of
// its own: the store's single-row update is the only isolation between
// racing callers, and overriding a live reservation is allowed on purpose
// so a user can always correct a mis-set timer.
type Mutator struct {
	store      store.Store
	clock      timesrc.Clock
	pub        notify.Publisher
	origin     string
	maxMinutes int
}

// NewMutator wires a mutator. maxMinutes is the facility ceiling for a
// single reservation.
func NewMutator(s store.Store, clock timesrc.Clock, pub notify.Publisher, origin string, maxMinutes int) *Mutator {
	return &Mutator{
		store:      s,
		clock:      clock,
		pub:        pub,
		origin:     origin,
		maxMinutes: maxMinutes,
	}
}

// Reserve claims the appliance until now + durationMinutes. A second call
// before expiry wins entirely; no conflict is reported.
func (m *Mutator) Reserve(ctx context.Context, id int64, durationMinutes int) (status.Derived, error) {
	if durationMinutes < 1 || durationMinutes > m.maxMinutes {
		return status.Derived{}, fmt.Errorf("%w: %d minutes (allowed 1-%d)", ErrInvalidDuration, durationMinutes, m.maxMinutes)
	}

	now := m.clock()
	end := now.Add(time.Duration(durationMinutes) * time.Minute)

	rec, err := m.store.ApplyReservation(ctx, id, end, now)
	if err != nil {
		return status.Derived{}, err
	}
	if rec == nil {
		return status.Derived{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	st := status.Derive(*rec, now)
	m.pub.Publish(status.NewEvent(status.EventReserved, st, m.origin, now))
	return st, nil
}

// Release clears the reservation. Releasing an already-available appliance
// is a no-op on the record but still emits the event.
func (m *Mutator) Release(ctx context.Context, id int64) (status.Derived, error) {
	now := m.clock()

	rec, err := m.store.ClearReservation(ctx, id, now)
	if err != nil {
		return status.Derived{}, err
	}
	if rec == nil {
		return status.Derived{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	st := status.Derive(*rec, now)
	m.pub.Publish(status.NewEvent(status.EventReleased, st, m.origin, now))
	return st, nil
}
