package domain

import "github.com/jonboulle/clockwork"

// clock stamps query responses. Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the response time source. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
