package sweeper

import (
	"context"
	"log"
	"time"

	"appliance-reserve-backend/internal/notify"
	"appliance-reserve-backend/internal/status"
	"appliance-reserve-backend/internal/store"
	"appliance-reserve-backend/internal/timesrc"
)

// Service clears reservations whose end has passed and announces each one
// as Expired. Because availability is derived, the sweeper carries no
// resume logic: the first sweep after a restart reconciles everything that
// drifted while the process was down.
type Service struct {
	store    store.Store
	clock    timesrc.Clock
	pub      notify.Publisher
	origin   string
	interval time.Duration
}

// New wires a sweeper service.
func New(s store.Store, clock timesrc.Clock, pub notify.Publisher, origin string, interval time.Duration) *Service {
	return &Service{
		store:    s,
		clock:    clock,
		pub:      pub,
		origin:   origin,
		interval: interval,
	}
}

// Run sweeps once immediately, then on every interval until the context is
// cancelled. Ticks never overlap: the next one is armed only after the
// current sweep returns. A failed sweep is logged and the schedule
// continues; the next tick is the retry.
func (s *Service) Run(ctx context.Context) {
	log.Println("Starting expiration sweeper...")

	s.sweepAndLog(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Expiration sweeper shutting down.")
			return
		case <-timer.C:
			s.sweepAndLog(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Service) sweepAndLog(ctx context.Context) {
	cleared, err := s.SweepOnce(ctx)
	if err != nil {
		log.Printf("Sweep failed (will retry next tick): %v", err)
		return
	}
	if cleared > 0 {
		log.Printf("Sweep cleared %d expired reservation(s)", cleared)
	}
}

// SweepOnce performs a single sweep: one read for expired records, one
// batched clear, one Expired event per cleared record. A sweep that finds
// nothing performs no writes and emits nothing.
func (s *Service) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock()

	expired, err := s.store.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(expired))
	for i, rec := range expired {
		ids[i] = rec.ID
	}

	if _, err := s.store.BulkClearExpired(ctx, ids, now); err != nil {
		return 0, err
	}

	for _, rec := range expired {
		rec.ReservationEnd = nil
		rec.UpdatedAt = now
		st := status.Derive(rec, now)
		s.pub.Publish(status.NewEvent(status.EventExpired, st, s.origin, now))
	}
	return len(expired), nil
}
