// Package clock abstracts "now" so the lifecycle and billing logic can be
// exercised against fixed timestamps in tests.
package clock

import (
	"time"

	"motel/shared/timezone"
)

type Clock interface {
	Now() time.Time
}

type appClock struct{}

func (appClock) Now() time.Time {
	return timezone.Now()
}

// New returns the production clock, pinned to the application timezone.
func New() Clock {
	return appClock{}
}

// Fixed is a Clock frozen at T. Advance moves it forward in place.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time {
	return f.T
}

func (f *Fixed) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}
