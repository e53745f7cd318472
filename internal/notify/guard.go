package notify

import (
	"encoding/json"
	"log"
	"sync"

	"appliance-reserve-backend/internal/status"
)

// SyncGuard filters events arriving off a shared medium before an
// observer applies them to its local view. It suppresses the observer's
// own broadcasts and anything at or before the last accepted instant, so
// interleaved writes from slower producers cannot roll the view backward.
// The result is last-accepted-wins per observer, not a global order.
type SyncGuard struct {
	origin string

	mu             sync.Mutex
	lastAcceptedAt int64
}

// NewSyncGuard creates a guard for the observer with the given origin id.
func NewSyncGuard(origin string) *SyncGuard {
	return &SyncGuard{origin: origin}
}

// Accept decodes a raw payload from the medium and decides whether the
// observer should apply it. Malformed payloads are logged and dropped,
// never surfaced as errors: bad data from a peer must not crash us.
func (g *SyncGuard) Accept(raw []byte) (status.Event, bool) {
	var ev status.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		log.Printf("syncguard: dropping undecodable event: %v", err)
		return status.Event{}, false
	}
	if !ev.Valid() {
		log.Printf("syncguard: dropping malformed event for record %d", ev.RecordID)
		return status.Event{}, false
	}
	if ev.OriginID == g.origin {
		return status.Event{}, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if ev.EmittedAt <= g.lastAcceptedAt {
		return status.Event{}, false
	}
	g.lastAcceptedAt = ev.EmittedAt
	return ev, true
}

// LastAcceptedAt returns the emission instant of the newest accepted
// event, in epoch milliseconds.
func (g *SyncGuard) LastAcceptedAt() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastAcceptedAt
}
