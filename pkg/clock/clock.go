package clock

import "time"

// Clocker returns the current time. Services take one so tests can move time.
type Clocker interface {
	Now() time.Time
}

// UTC is the wall clock, always in UTC.
type UTC struct{}

// New returns the wall clock
func New() UTC {
	return UTC{}
}

func (UTC) Now() time.Time {
	return time.Now().UTC()
}
