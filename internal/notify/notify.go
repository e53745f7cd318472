// Package notify fans out reservation change events to observers.
//
// Two transports share the same event contract: the Hub pushes to
// long-lived observer channels (served over SSE), and the
// SharedBroadcaster writes through a SharedMedium whose native change
// notification reaches other execution contexts. SyncGuard sits on the
// receiving side of the shared-medium transport and filters stale and
// self-originated events.
package notify

import (
	"github.com/google/uuid"

	"appliance-reserve-backend/internal/status"
)

// Publisher delivers one change event to all current observers of a
// transport. Delivery is fire-and-forget; a slow or dead observer must
// never block the producer.
type Publisher interface {
	Publish(ev status.Event)
}

// NewOriginID mints the identity of this process or tab, attached to every
// event it produces so observers can suppress self-echo.
func NewOriginID() string {
	return uuid.NewString()
}

// Fanout publishes each event to every wrapped publisher.
type Fanout []Publisher

func (f Fanout) Publish(ev status.Event) {
	for _, p := range f {
		p.Publish(ev)
	}
}
