package model

import "time"

// Default phase durations
const (
	DefaultWorkSeconds  = 30 * 60
	DefaultBreakSeconds = 5 * 60

	// MaxTimerSeconds bounds a single phase
	MaxTimerSeconds = 24 * 60 * 60
)

// TimerPhaseState is the state of a room's shared countdown
type TimerPhaseState string

const (
	TimerIdle     TimerPhaseState = "idle"
	TimerRunning  TimerPhaseState = "running"
	TimerPaused   TimerPhaseState = "paused"
	TimerFinished TimerPhaseState = "finished"
)

// TimerState is the single shared countdown of a room.
// Invariant: 0 <= RemainingSeconds <= TotalDurationSeconds.
type TimerState struct {
	State                TimerPhaseState
	IsRunning            bool
	IsWorkSession        bool
	TotalDurationSeconds int
	RemainingSeconds     int
	DriverID             ParticipantID // member whose ticks are authoritative
	StartedBy            string
	UpdatedAt            time.Time
}

// DefaultTimerState returns an idle work-phase timer with the default duration
func DefaultTimerState() TimerState {
	return TimerState{
		State:                TimerIdle,
		IsRunning:            false,
		IsWorkSession:        true,
		TotalDurationSeconds: DefaultWorkSeconds,
		RemainingSeconds:     DefaultWorkSeconds,
	}
}

// DefaultDuration returns the phase-appropriate default duration
func DefaultDuration(isWorkSession bool) int {
	if isWorkSession {
		return DefaultWorkSeconds
	}
	return DefaultBreakSeconds
}

// Start begins a new phase. A zero duration selects the phase default.
func (t *TimerState) Start(duration int, isWorkSession bool, driver ParticipantID, startedBy string, now time.Time) error {
	if duration < 0 || duration > MaxTimerSeconds {
		return ErrInvalidDuration
	}
	if duration == 0 {
		duration = DefaultDuration(isWorkSession)
	}
	t.State = TimerRunning
	t.IsRunning = true
	t.IsWorkSession = isWorkSession
	t.TotalDurationSeconds = duration
	t.RemainingSeconds = duration
	t.DriverID = driver
	t.StartedBy = startedBy
	t.UpdatedAt = now
	return nil
}

// Pause stops the countdown, leaving the remaining time untouched
func (t *TimerState) Pause(now time.Time) {
	if t.State == TimerRunning {
		t.State = TimerPaused
	}
	t.IsRunning = false
	t.UpdatedAt = now
}

// Resume continues a paused countdown
func (t *TimerState) Resume(driver ParticipantID, now time.Time) error {
	if t.State != TimerPaused || t.RemainingSeconds <= 0 {
		return ErrTimerNotPaused
	}
	t.State = TimerRunning
	t.IsRunning = true
	t.DriverID = driver
	t.UpdatedAt = now
	return nil
}

// Reset returns the timer to idle with the full duration of the current phase
func (t *TimerState) Reset(now time.Time) {
	t.State = TimerIdle
	t.IsRunning = false
	t.RemainingSeconds = t.TotalDurationSeconds
	t.UpdatedAt = now
}

// Tick overwrites the remaining time with a reported value, clamped to the
// valid range. It returns the number of seconds that elapsed (never negative)
// and whether the phase finished.
func (t *TimerState) Tick(remaining int, now time.Time) (elapsed int, finished bool, err error) {
	if !t.IsRunning {
		return 0, false, ErrTimerNotRunning
	}
	if remaining < 0 {
		remaining = 0
	}
	if remaining > t.TotalDurationSeconds {
		remaining = t.TotalDurationSeconds
	}
	if remaining < t.RemainingSeconds {
		elapsed = t.RemainingSeconds - remaining
	}
	t.RemainingSeconds = remaining
	t.UpdatedAt = now
	if remaining == 0 {
		t.State = TimerFinished
		t.IsRunning = false
		return elapsed, true, nil
	}
	return elapsed, false, nil
}
