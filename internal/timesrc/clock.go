package timesrc

import "time"

// Clock supplies the current instant. Everything that needs "now" takes
// one of these so tests can freeze time.
type Clock func() time.Time

// System returns the wall clock in UTC.
func System() Clock {
	return func() time.Time { return time.Now().UTC() }
}

// Frozen returns a Clock pinned to the given instant.
func Frozen(t time.Time) Clock {
	return func() time.Time { return t }
}
