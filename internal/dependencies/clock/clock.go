package clock

import (
	"github.com/jonboulle/clockwork"
)

// Clock provides time operations that can be mocked for testing.
// Tickers are part of the interface so server-driven timers can be
// advanced deterministically in tests.
type Clock = clockwork.Clock

// Ticker is a clock-driven ticker
type Ticker = clockwork.Ticker

// New creates a Clock backed by the system clock
func New() Clock {
	return clockwork.NewRealClock()
}
