package license

import "time"

// Clock supplies the current time. All expiry arithmetic in this package
// is done in UTC, so implementations must return UTC timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by the wall clock.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
