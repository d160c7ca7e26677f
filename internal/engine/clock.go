package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// The Generator reads it once per run; everything downstream receives an
// explicit "today".
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant. Used by the prompt dry run
// and tests to reproduce a given day.
type FixedClock struct {
	Time time.Time
}

func (c FixedClock) Now() time.Time {
	return c.Time
}
