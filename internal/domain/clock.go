package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock backs the "now" timestamp fallback and report generation times.
// Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the engine time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current engine time.
func Now() time.Time {
	return clock.Now()
}
