package model

import "time"

// Appliance represents a shared machine (washer or dryer).
//
// Availability is never stored: only the reservation end timestamp is
// persisted, and status is derived from it on every read. A ReservationEnd
// in the past is a valid transient state until the next sweep clears it.
type Appliance struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Name           string     `gorm:"uniqueIndex;size:100;not null" json:"name"`
	ReservationEnd *time.Time `gorm:"index" json:"reservationEnd,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updatedAt"`
}
