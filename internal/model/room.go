package model

import (
	"strings"
	"time"
)

// RoomID uniquely identifies a room
type RoomID string

// InviteCode is a short human-enterable code resolving to a live room
type InviteCode string

// NormalizeInviteCode trims and upper-cases user input so lookups are case-insensitive
func NormalizeInviteCode(code string) InviteCode {
	return InviteCode(strings.ToUpper(strings.TrimSpace(code)))
}

// Member is a participant's view within a specific room
type Member struct {
	ID           ParticipantID
	Name         string
	Status       PresenceStatus
	FocusSeconds int
	ConnectionID ConnectionID // empty when no live connection is bound
	JoinedAt     time.Time
}

// Room is a named, invite-coded group of participants sharing one timer
type Room struct {
	ID          RoomID
	Name        string
	CreatorID   ParticipantID
	CreatorName string
	InviteCode  InviteCode
	Members     []Member // ordered by join time
	Timer       TimerState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoomSummary is the directory view of a room
type RoomSummary struct {
	ID            RoomID
	Name          string
	InviteCode    InviteCode
	CreatorName   string
	MemberCount   int
	IsRunning     bool
	IsWorkSession bool
	CreatedAt     time.Time
}

// GetMember returns the member with the given ID, or nil if not found
func (r *Room) GetMember(id ParticipantID) *Member {
	for i := range r.Members {
		if r.Members[i].ID == id {
			return &r.Members[i]
		}
	}
	return nil
}

// RemoveMember drops the member with the given ID and reports whether it was present
func (r *Room) RemoveMember(id ParticipantID) bool {
	for i := range r.Members {
		if r.Members[i].ID == id {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return true
		}
	}
	return false
}

// IsEmpty reports whether the room has no members left
func (r *Room) IsEmpty() bool {
	return len(r.Members) == 0
}

// Summary returns the directory view of the room
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:            r.ID,
		Name:          r.Name,
		InviteCode:    r.InviteCode,
		CreatorName:   r.CreatorName,
		MemberCount:   len(r.Members),
		IsRunning:     r.Timer.IsRunning,
		IsWorkSession: r.Timer.IsWorkSession,
		CreatedAt:     r.CreatedAt,
	}
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.Members = make([]Member, len(r.Members))
	copy(c.Members, r.Members)
	return &c
}
