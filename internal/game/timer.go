package game

import "time"

// Timer holds the per-turn timer settings of a session or room. Seconds is
// meaningful only when Enabled.
type Timer struct {
	Enabled bool
	Seconds int
}

// NewTimer validates settings supplied at creation. A missing duration
// selects DefaultTurnSeconds; an out-of-range one is rejected.
func NewTimer(enabled bool, seconds *int) (Timer, error) {
	if !enabled {
		return Timer{}, nil
	}
	if seconds == nil {
		return Timer{Enabled: true, Seconds: DefaultTurnSeconds}, nil
	}
	if *seconds < MinTurnSeconds || *seconds > MaxTurnSeconds {
		return Timer{}, InvalidConfiguration("turn time must be between %d and %d seconds", MinTurnSeconds, MaxTurnSeconds)
	}
	return Timer{Enabled: true, Seconds: *seconds}, nil
}

// Repair resets an enabled timer with an out-of-range duration to the default.
// It reports whether anything changed.
func (t Timer) Repair() (Timer, bool) {
	if !t.Enabled {
		if t.Seconds != 0 {
			return Timer{}, true
		}
		return t, false
	}
	if t.Seconds < MinTurnSeconds || t.Seconds > MaxTurnSeconds {
		return Timer{Enabled: true, Seconds: DefaultTurnSeconds}, true
	}
	return t, false
}

// Period is the turn duration, zero when disabled.
func (t Timer) Period() time.Duration {
	if !t.Enabled {
		return 0
	}
	return time.Duration(t.Seconds) * time.Second
}

// SecondsPtr is the JSON view of the duration: nil when disabled.
func (t Timer) SecondsPtr() *int {
	if !t.Enabled {
		return nil
	}
	s := t.Seconds
	return &s
}
