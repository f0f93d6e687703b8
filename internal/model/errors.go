package model

import "errors"

// Common errors used across the application
var (
	// Participant errors
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotRegistered       = errors.New("connection has not registered an identity")
	ErrInvalidStatus       = errors.New("invalid presence status")

	// Room errors
	ErrRoomNotFound        = errors.New("room not found")
	ErrInvalidInviteCode   = errors.New("invalid invite code")
	ErrNotInRoom           = errors.New("participant is not in a room")
	ErrInviteCodeExhausted = errors.New("could not allocate a unique invite code")

	// Timer errors
	ErrInvalidDuration   = errors.New("invalid timer duration")
	ErrTimerNotRunning   = errors.New("timer is not running")
	ErrTimerNotPaused    = errors.New("timer is not paused")
	ErrNotTimerDriver    = errors.New("participant is not the timer driver")
	ErrServerDrivenTimer = errors.New("timer is driven by the server")
)
