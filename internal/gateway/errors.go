package gateway

import (
	"errors"

	"github.com/mcoot/studyroom/internal/model"
	"github.com/mcoot/studyroom/internal/protocol"
)

var errUnknownEvent = errors.New("unknown event")

// Messages sent in error events
const (
	msgInvalidMessage      = "Invalid message"
	msgUnknownEvent        = "Unknown event"
	msgInvalidInviteCode   = "Invalid invite code"
	msgNotInRoom           = "Not in a room"
	msgNotRegistered       = "Not registered"
	msgTimerNotRunning     = "Timer is not running"
	msgTimerNotPaused      = "Timer is not paused"
	msgNotTimerDriver      = "Only the timer driver can report ticks"
	msgServerDrivenTimer   = "Timer is driven by the server"
	msgInvalidStatus       = "Invalid status"
	msgInvalidDuration     = "Invalid duration"
	msgInviteCodeExhausted = "No invite codes available, try again"
	msgInternal            = "Internal error"
)

// errorMessage converts an error to the text shown to clients
func errorMessage(err error) string {
	switch {
	case errors.Is(err, protocol.ErrMalformedMessage):
		return msgInvalidMessage
	case errors.Is(err, errUnknownEvent):
		return msgUnknownEvent
	case errors.Is(err, model.ErrInvalidInviteCode):
		return msgInvalidInviteCode
	case errors.Is(err, model.ErrNotInRoom), errors.Is(err, model.ErrRoomNotFound):
		return msgNotInRoom
	case errors.Is(err, model.ErrNotRegistered), errors.Is(err, model.ErrParticipantNotFound):
		return msgNotRegistered
	case errors.Is(err, model.ErrTimerNotRunning):
		return msgTimerNotRunning
	case errors.Is(err, model.ErrTimerNotPaused):
		return msgTimerNotPaused
	case errors.Is(err, model.ErrNotTimerDriver):
		return msgNotTimerDriver
	case errors.Is(err, model.ErrServerDrivenTimer):
		return msgServerDrivenTimer
	case errors.Is(err, model.ErrInvalidStatus):
		return msgInvalidStatus
	case errors.Is(err, model.ErrInvalidDuration):
		return msgInvalidDuration
	case errors.Is(err, model.ErrInviteCodeExhausted):
		return msgInviteCodeExhausted
	default:
		return msgInternal
	}
}
