package domain

import "github.com/jonboulle/clockwork"

// clock is the time source for Analysis.GeneratedAt. Production code uses the
// real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used by Analyze. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
