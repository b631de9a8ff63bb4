// Package clock lets time dependent code run against a fake clock in tests.
package clock

import "time"

// Clock reads the current time.
type Clock interface {
	// Now returns the current local time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
}

type wallClock struct{}

// New returns the wall clock.
func New() Clock {
	return wallClock{}
}

func (wallClock) Now() time.Time {
	return time.Now()
}

func (wallClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
