package response

import (
	"time"

	"github.com/mcoot/studyroom/internal/model"
)

// Health is the response for the health endpoint
type Health struct {
	Status string `json:"status"`
}

// Member represents a room member
type Member struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	FocusSeconds int       `json:"focus_seconds"`
	Connected    bool      `json:"connected"`
	JoinedAt     time.Time `json:"joined_at"`
}

// MemberFromModel converts model.Member
func MemberFromModel(m model.Member) Member {
	return Member{
		ID:           string(m.ID),
		Name:         m.Name,
		Status:       string(m.Status),
		FocusSeconds: m.FocusSeconds,
		Connected:    m.ConnectionID != "",
		JoinedAt:     m.JoinedAt,
	}
}

// Timer represents a room's shared timer
type Timer struct {
	State                string `json:"state"`
	IsRunning            bool   `json:"is_running"`
	IsWorkSession        bool   `json:"is_work_session"`
	TotalDurationSeconds int    `json:"total_duration_seconds"`
	RemainingSeconds     int    `json:"remaining_seconds"`
	StartedBy            string `json:"started_by,omitempty"`
}

// TimerFromModel converts model.TimerState
func TimerFromModel(t model.TimerState) Timer {
	return Timer{
		State:                string(t.State),
		IsRunning:            t.IsRunning,
		IsWorkSession:        t.IsWorkSession,
		TotalDurationSeconds: t.TotalDurationSeconds,
		RemainingSeconds:     t.RemainingSeconds,
		StartedBy:            t.StartedBy,
	}
}

// Room represents a room in API responses
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	InviteCode  string    `json:"invite_code"`
	CreatorName string    `json:"creator_name"`
	Members     []Member  `json:"members"`
	Timer       Timer     `json:"timer"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomFromModel converts model.Room
func RoomFromModel(r *model.Room) Room {
	members := make([]Member, len(r.Members))
	for i, m := range r.Members {
		members[i] = MemberFromModel(m)
	}

	return Room{
		ID:          string(r.ID),
		Name:        r.Name,
		InviteCode:  string(r.InviteCode),
		CreatorName: r.CreatorName,
		Members:     members,
		Timer:       TimerFromModel(r.Timer),
		CreatedAt:   r.CreatedAt,
	}
}

// RoomSummary is a room directory entry
type RoomSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	InviteCode    string    `json:"invite_code"`
	CreatorName   string    `json:"creator_name"`
	MemberCount   int       `json:"member_count"`
	IsRunning     bool      `json:"is_running"`
	IsWorkSession bool      `json:"is_work_session"`
	CreatedAt     time.Time `json:"created_at"`
}

// RoomSummaryFromModel converts model.RoomSummary
func RoomSummaryFromModel(s model.RoomSummary) RoomSummary {
	return RoomSummary{
		ID:            string(s.ID),
		Name:          s.Name,
		InviteCode:    string(s.InviteCode),
		CreatorName:   s.CreatorName,
		MemberCount:   s.MemberCount,
		IsRunning:     s.IsRunning,
		IsWorkSession: s.IsWorkSession,
		CreatedAt:     s.CreatedAt,
	}
}

// RoomList is the response for the room directory
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// RoomListFromModel converts a directory listing
func RoomListFromModel(summaries []model.RoomSummary) RoomList {
	rooms := make([]RoomSummary, len(summaries))
	for i, s := range summaries {
		rooms[i] = RoomSummaryFromModel(s)
	}
	return RoomList{Rooms: rooms}
}

// Stats is the response for the stats endpoint
type Stats struct {
	Connections   int    `json:"connections"`
	Rooms         int    `json:"rooms"`
	Members       int    `json:"members"`
	RunningTimers int    `json:"running_timers"`
	TickAuthority string `json:"tick_authority"`
}
