package status

import (
	"time"

	"appliance-reserve-backend/internal/model"
)

// State is the derived availability of an appliance.
type State string

const (
	StateAvailable State = "available"
	StateInUse     State = "in-use"
)

// Derived is the computed status of an appliance at one instant. It is
// never persisted; every reader recomputes it with Derive so there is
// exactly one notion of "available".
type Derived struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	State       State  `json:"status"`
	RemainingMs *int64 `json:"remainingMs,omitempty"`
}

// Available reports whether the derived state is available.
func (d Derived) Available() bool {
	return d.State == StateAvailable
}

// Derive maps an appliance record and an instant to its status. The
// mapping is total: a reservation end at or before now means available,
// strictly after now means in use with the remaining duration.
func Derive(rec model.Appliance, now time.Time) Derived {
	d := Derived{
		ID:    rec.ID,
		Name:  rec.Name,
		State: StateAvailable,
	}
	if rec.ReservationEnd != nil && rec.ReservationEnd.After(now) {
		remaining := rec.ReservationEnd.Sub(now).Milliseconds()
		d.State = StateInUse
		d.RemainingMs = &remaining
	}
	return d
}

// DeriveAll derives the status of every record at the same instant.
func DeriveAll(recs []model.Appliance, now time.Time) []Derived {
	out := make([]Derived, len(recs))
	for i, rec := range recs {
		out[i] = Derive(rec, now)
	}
	return out
}
