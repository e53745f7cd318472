package status

import "time"

// EventKind identifies what changed about a reservation.
type EventKind string

const (
	EventReserved EventKind = "Reserved"
	EventReleased EventKind = "Released"
	EventExpired  EventKind = "Expired"
)

// Event is the change notification fanned out to observers. EmittedAt is
// epoch milliseconds; OriginID identifies the producing process or tab so
// observers can suppress their own echo.
type Event struct {
	Kind      EventKind `json:"kind"`
	RecordID  int64     `json:"recordId"`
	Status    Derived   `json:"status"`
	EmittedAt int64     `json:"emittedAt"`
	OriginID  string    `json:"originId"`
}

// NewEvent builds an event stamped with the given origin and instant.
func NewEvent(kind EventKind, st Derived, origin string, now time.Time) Event {
	return Event{
		Kind:      kind,
		RecordID:  st.ID,
		Status:    st,
		EmittedAt: now.UnixMilli(),
		OriginID:  origin,
	}
}

// Valid reports whether the event has a known kind, a positive record id
// and well-formed status fields. Transports hand events from untrusted
// media to SyncGuard, which drops invalid ones instead of crashing.
func (e Event) Valid() bool {
	switch e.Kind {
	case EventReserved, EventReleased, EventExpired:
	default:
		return false
	}
	if e.RecordID <= 0 || e.Status.ID != e.RecordID {
		return false
	}
	switch e.Status.State {
	case StateAvailable:
		return e.Status.RemainingMs == nil
	case StateInUse:
		return e.Status.RemainingMs != nil && *e.Status.RemainingMs >= 0
	}
	return false
}
