// internal/game/turnclock.go
package game

import "time"

// TurnClock is the running state of a timed turn loop over Length players.
type TurnClock struct {
	Index     int
	Length    int
	StartedAt time.Time
	Period    time.Duration
}

// Advance moves the clock forward by every whole period that has elapsed
// since StartedAt and returns the number of turns consumed. StartedAt is
// moved by exactly steps*Period, never set to now, so repeated polling does
// not accumulate drift.
func (c TurnClock) Advance(now time.Time) (TurnClock, int) {
	if c.Length <= 0 || c.Period <= 0 || c.StartedAt.IsZero() {
		return c, 0
	}
	elapsed := now.Sub(c.StartedAt)
	if elapsed < c.Period {
		return c, 0
	}
	steps := int(elapsed / c.Period)
	c.Index = (c.Index + steps) % c.Length
	c.StartedAt = c.StartedAt.Add(time.Duration(steps) * c.Period)
	return c, steps
}

// ClampIndex forces idx into [0, length) by moving it to the nearest bound.
// It reports whether a repair was needed.
func ClampIndex(idx, length int) (int, bool) {
	if length <= 0 {
		return 0, idx != 0
	}
	clamped := max(0, min(idx, length-1))
	return clamped, clamped != idx
}
