package notify

import (
	"context"
	"encoding/json"
	"log"

	"appliance-reserve-backend/internal/status"
)

// DefaultBroadcastKey is the shared slot events are written through.
const DefaultBroadcastKey = "appliance_change_event"

// SharedBroadcaster is the shared-storage transport: it serializes each
// event into the medium's slot and retracts it right after, leaving the
// medium's change notification to carry the payload to other contexts.
type SharedBroadcaster struct {
	medium SharedMedium
	key    string
}

// NewSharedBroadcaster creates a broadcaster over the given medium. An
// empty key selects DefaultBroadcastKey.
func NewSharedBroadcaster(medium SharedMedium, key string) *SharedBroadcaster {
	if key == "" {
		key = DefaultBroadcastKey
	}
	return &SharedBroadcaster{medium: medium, key: key}
}

// Publish broadcasts one event. Errors are logged and swallowed: a failed
// broadcast means a delayed update for remote observers, which the next
// sweep or fetch corrects.
func (b *SharedBroadcaster) Publish(ev status.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("broadcast: failed to encode event for record %d: %v", ev.RecordID, err)
		return
	}

	ctx := context.Background()
	if err := b.medium.Write(ctx, b.key, payload); err != nil {
		log.Printf("broadcast: write failed: %v", err)
		return
	}
	// The write was the signal; clear the slot so concurrent broadcasts
	// do not collide in it. Our own write being briefly visible is fine.
	if err := b.medium.Erase(ctx, b.key); err != nil {
		log.Printf("broadcast: retract failed: %v", err)
	}
}

// Listen subscribes to the medium and forwards every event the guard
// accepts to apply. The returned function cancels the subscription.
func (b *SharedBroadcaster) Listen(ctx context.Context, guard *SyncGuard, apply func(status.Event)) (func(), error) {
	return b.medium.Subscribe(ctx, func(raw []byte) {
		if ev, ok := guard.Accept(raw); ok {
			apply(ev)
		}
	})
}
