package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appliance-reserve-backend/internal/status"
)

// tab models one observer on the shared medium: its own origin, guard and
// local view of appliance statuses.
type tab struct {
	origin string
	guard  *SyncGuard

	mu   sync.Mutex
	view map[int64]status.Derived
}

func newTab(origin string) *tab {
	return &tab{
		origin: origin,
		guard:  NewSyncGuard(origin),
		view:   make(map[int64]status.Derived),
	}
}

func (tb *tab) apply(ev status.Event) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.view[ev.RecordID] = ev.Status
}

func (tb *tab) status(id int64) (status.Derived, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	st, ok := tb.view[id]
	return st, ok
}

func TestSharedBroadcaster_RetractsAfterWrite(t *testing.T) {
	medium := NewMemoryMedium()
	b := NewSharedBroadcaster(medium, "")

	b.Publish(testEvent(1, "origin-a", 100))

	_, present := medium.Peek(DefaultBroadcastKey)
	assert.False(t, present, "the slot must be cleared after broadcasting")
}

func TestSharedBroadcaster_DeliversToPeers(t *testing.T) {
	medium := NewMemoryMedium()
	b := NewSharedBroadcaster(medium, "")

	peer := newTab("origin-peer")
	stop, err := b.Listen(context.Background(), peer.guard, peer.apply)
	require.NoError(t, err)
	defer stop()

	b.Publish(testEvent(5, "origin-a", 100))

	st, ok := peer.status(5)
	require.True(t, ok, "the peer should have applied the event")
	assert.Equal(t, int64(5), st.ID)
}

// Two tabs reserve the same appliance within the same second. Each must
// ignore its own broadcast, and both views converge on whichever write the
// medium delivered last.
func TestSharedBroadcaster_TwoTabsConverge(t *testing.T) {
	medium := NewMemoryMedium()

	tabA := newTab("origin-a")
	tabB := newTab("origin-b")

	broadcast := NewSharedBroadcaster(medium, "")
	stopA, err := broadcast.Listen(context.Background(), tabA.guard, tabA.apply)
	require.NoError(t, err)
	defer stopA()
	stopB, err := broadcast.Listen(context.Background(), tabB.guard, tabB.apply)
	require.NoError(t, err)
	defer stopB()

	now := time.Unix(3000, 0).UTC()
	remainingA := int64(10 * 60 * 1000)
	remainingB := int64(10 * 60 * 1000)

	evA := status.Event{
		Kind:      status.EventReserved,
		RecordID:  1,
		Status:    status.Derived{ID: 1, Name: "Washer 1", State: status.StateInUse, RemainingMs: &remainingA},
		EmittedAt: now.UnixMilli(),
		OriginID:  "origin-a",
	}
	evB := status.Event{
		Kind:      status.EventReserved,
		RecordID:  1,
		Status:    status.Derived{ID: 1, Name: "Washer 1", State: status.StateInUse, RemainingMs: &remainingB},
		EmittedAt: now.UnixMilli() + 1,
		OriginID:  "origin-b",
	}

	// Tab A applies its own reservation locally, then broadcasts; same for
	// tab B a moment later.
	tabA.apply(evA)
	broadcast.Publish(evA)
	tabB.apply(evB)
	broadcast.Publish(evB)

	// Tab A accepted B's later event, tab B accepted A's and then overwrote
	// it with its own reservation; neither applied its own broadcast.
	stA, _ := tabA.status(1)
	stB, _ := tabB.status(1)
	assert.Equal(t, stB, stA, "both tabs converge on the last delivered write")
	assert.Equal(t, evB.EmittedAt, tabA.guard.LastAcceptedAt())
	assert.Equal(t, evA.EmittedAt, tabB.guard.LastAcceptedAt(), "tab B's only foreign event was A's")
}
