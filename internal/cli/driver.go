package cli

import (
	"time"

	"github.com/mcoot/studyroom/internal/dependencies/clock"
	"github.com/mcoot/studyroom/internal/protocol"
)

// driver counts a running timer down locally on behalf of the room when
// this client holds the driver role. At most one ticker is live at a time.
type driver struct {
	clock     clock.Clock
	interval  time.Duration
	ticker    clock.Ticker
	remaining int
}

func newDriver(clk clock.Clock, interval time.Duration) *driver {
	return &driver{clock: clk, interval: interval}
}

// start replaces any live ticker with one counting down from remaining
func (d *driver) start(remaining int) {
	d.stop()
	d.remaining = remaining
	d.ticker = d.clock.NewTicker(d.interval)
}

func (d *driver) stop() {
	if d.ticker != nil {
		d.ticker.Stop()
		d.ticker = nil
	}
}

func (d *driver) active() bool {
	return d.ticker != nil
}

// C is nil while stopped, so selecting on it blocks
func (d *driver) C() <-chan time.Time {
	if d.ticker == nil {
		return nil
	}
	return d.ticker.Chan()
}

// tick advances the local countdown by one second. The ticker stops once
// zero has been reached.
func (d *driver) tick() (remaining int, done bool) {
	d.remaining--
	if d.remaining <= 0 {
		d.remaining = 0
		d.stop()
		return 0, true
	}
	return d.remaining, false
}

// reconcile aligns the local countdown with timer state confirmed by the
// server. authoritative is true for events that set the countdown (start,
// resume, reset); plain updates only hand the role over or take it away.
func (d *driver) reconcile(userID string, t protocol.TimerState, authoritative bool) {
	if !t.IsRunning || t.DriverID != userID || t.RemainingSeconds <= 0 {
		d.stop()
		return
	}
	if authoritative || !d.active() {
		d.start(t.RemainingSeconds)
	}
}
