package model

import "time"

// ParticipantID identifies a participant across reconnects
type ParticipantID string

// ConnectionID identifies a single transport connection
type ConnectionID string

// PresenceStatus is what a participant is currently doing
type PresenceStatus string

const (
	StatusIdle     PresenceStatus = "idle"
	StatusStudying PresenceStatus = "studying"
	StatusBreaking PresenceStatus = "breaking"
)

// Valid reports whether s is one of the known presence statuses
func (s PresenceStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusStudying, StatusBreaking:
		return true
	}
	return false
}

// Participant is a registered identity. It may outlive a single connection
// when the client reconnects with the same identifier.
type Participant struct {
	ID           ParticipantID
	Name         string
	CurrentRoom  *RoomID // nil when not in a room
	Status       PresenceStatus
	FocusSeconds int // best-effort, not authoritative
	ConnectionID ConnectionID
	Connected    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InRoom reports whether the participant is currently a member of a room
func (p *Participant) InRoom() bool {
	return p.CurrentRoom != nil
}

// Clone returns a deep copy of the participant
func (p *Participant) Clone() *Participant {
	c := *p
	if p.CurrentRoom != nil {
		roomID := *p.CurrentRoom
		c.CurrentRoom = &roomID
	}
	return &c
}
