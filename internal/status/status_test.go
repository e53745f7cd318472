package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"appliance-reserve-backend/internal/model"
)

func TestDerive(t *testing.T) {
	now := time.Unix(1000, 0).UTC()

	testCases := []struct {
		name          string
		end           *time.Time
		wantState     State
		wantRemaining *int64
	}{
		{
			name:      "no reservation end means available",
			end:       nil,
			wantState: StateAvailable,
		},
		{
			name:      "end in the past means available",
			end:       timePtr(now.Add(-time.Minute)),
			wantState: StateAvailable,
		},
		{
			name:      "end exactly now means available (boundary is exclusive)",
			end:       timePtr(now),
			wantState: StateAvailable,
		},
		{
			name:          "end in the future means in use",
			end:           timePtr(now.Add(90 * time.Second)),
			wantState:     StateInUse,
			wantRemaining: int64Ptr(90_000),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := model.Appliance{ID: 1, Name: "Washer 1", ReservationEnd: tc.end}
			d := Derive(rec, now)

			assert.Equal(t, int64(1), d.ID)
			assert.Equal(t, "Washer 1", d.Name)
			assert.Equal(t, tc.wantState, d.State)
			if tc.wantRemaining == nil {
				assert.Nil(t, d.RemainingMs)
			} else {
				assert.NotNil(t, d.RemainingMs)
				assert.Equal(t, *tc.wantRemaining, *d.RemainingMs)
			}
		})
	}
}

// A 30 minute reservation made at t=1000 reads as in-use with ~100s left
// at t=2700, and available at exactly t=2800.
func TestDerive_ReservationLifecycle(t *testing.T) {
	reservedAt := time.Unix(1000, 0).UTC()
	end := reservedAt.Add(30 * time.Minute)
	rec := model.Appliance{ID: 7, Name: "Dryer 2", ReservationEnd: &end}

	nearEnd := Derive(rec, reservedAt.Add(1700*time.Second))
	assert.Equal(t, StateInUse, nearEnd.State)
	assert.NotNil(t, nearEnd.RemainingMs)
	assert.Equal(t, int64(100_000), *nearEnd.RemainingMs)

	atEnd := Derive(rec, reservedAt.Add(1800*time.Second))
	assert.Equal(t, StateAvailable, atEnd.State)
	assert.Nil(t, atEnd.RemainingMs)
}

func TestDeriveAll(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(time.Hour)
	recs := []model.Appliance{
		{ID: 1, Name: "Washer 1"},
		{ID: 2, Name: "Washer 2", ReservationEnd: &end},
	}

	derived := DeriveAll(recs, now)
	assert.Len(t, derived, 2)
	assert.True(t, derived[0].Available())
	assert.False(t, derived[1].Available())
}

func TestEventValid(t *testing.T) {
	now := time.Now().UTC()
	available := Derived{ID: 3, Name: "Washer 3", State: StateAvailable}

	ev := NewEvent(EventReleased, available, "origin-a", now)
	assert.True(t, ev.Valid())
	assert.Equal(t, int64(3), ev.RecordID)
	assert.Equal(t, now.UnixMilli(), ev.EmittedAt)

	testCases := []struct {
		name   string
		mutate func(*Event)
	}{
		{"unknown kind", func(e *Event) { e.Kind = "Vanished" }},
		{"non-positive record id", func(e *Event) { e.RecordID = 0; e.Status.ID = 0 }},
		{"record id mismatch", func(e *Event) { e.RecordID = 99 }},
		{"available with remaining", func(e *Event) { r := int64(5); e.Status.RemainingMs = &r }},
		{"in-use without remaining", func(e *Event) { e.Status.State = StateInUse }},
		{"negative remaining", func(e *Event) {
			r := int64(-1)
			e.Status.State = StateInUse
			e.Status.RemainingMs = &r
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bad := NewEvent(EventReleased, available, "origin-a", now)
			tc.mutate(&bad)
			assert.False(t, bad.Valid())
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
func int64Ptr(n int64) *int64        { return &n }
