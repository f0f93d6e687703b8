package protocol

import (
	"time"

	"github.com/mcoot/studyroom/internal/model"
)

// Inbound payloads

type UserInit struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name"`
}

type RoomCreate struct {
	RoomName string `json:"roomName"`
}

type RoomJoin struct {
	InviteCode string `json:"inviteCode"`
}

type StatusUpdate struct {
	Status string `json:"status"`
}

// TimerStart leaves Duration and IsWorkSession nil to take the defaults
type TimerStart struct {
	Duration      *int  `json:"duration,omitempty"`
	IsWorkSession *bool `json:"isWorkSession,omitempty"`
}

type TimerTick struct {
	TimeRemaining *int `json:"timeRemaining"`
}

// Outbound payloads

// UserReady confirms the identity. A returning participant also gets the
// focus time credited so far and the room it is still a member of.
type UserReady struct {
	UserID       string `json:"userId"`
	FocusSeconds int    `json:"focusSeconds,omitempty"`
	RoomID       string `json:"roomId,omitempty"`
}

type RoomCreated struct {
	RoomID     string `json:"roomId"`
	InviteCode string `json:"inviteCode"`
	Room       Room   `json:"room"`
}

type RoomJoined struct {
	RoomID string `json:"roomId"`
	Room   Room   `json:"room"`
}

type RoomLeft struct {
	RoomID string `json:"roomId"`
}

type MemberJoined struct {
	RoomID  string   `json:"roomId"`
	Member  Member   `json:"member"`
	Members []Member `json:"members"`
}

type MemberLeft struct {
	UserID  string   `json:"userId"`
	Members []Member `json:"members"`
}

type MemberStatus struct {
	UserID  string   `json:"userId"`
	Status  string   `json:"status"`
	Members []Member `json:"members"`
}

type TimerStarted struct {
	TimerState TimerState `json:"timerState"`
	StartedBy  string     `json:"startedBy"`
}

type TimerResumed struct {
	TimerState TimerState `json:"timerState"`
	ResumedBy  string     `json:"resumedBy"`
}

// TimerChanged carries timer:paused, timer:update, timer:finished and timer:reset
type TimerChanged struct {
	TimerState TimerState `json:"timerState"`
}

type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

type Error struct {
	Message string `json:"message"`
}

// Views

type Member struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	FocusTime    int       `json:"focusTime"`
	ConnectionID string    `json:"connectionId,omitempty"`
	JoinedAt     time.Time `json:"joinedAt"`
}

type TimerState struct {
	State                string `json:"state"`
	IsRunning            bool   `json:"isRunning"`
	IsWorkSession        bool   `json:"isWorkSession"`
	TotalDurationSeconds int    `json:"totalDurationSeconds"`
	RemainingSeconds     int    `json:"remainingSeconds"`
	DriverID             string `json:"driverId,omitempty"`
	StartedBy            string `json:"startedBy,omitempty"`
}

type Room struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	InviteCode  string     `json:"inviteCode"`
	CreatorID   string     `json:"creatorId"`
	CreatorName string     `json:"creatorName"`
	Members     []Member   `json:"members"`
	TimerState  TimerState `json:"timerState"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type RoomSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	InviteCode    string    `json:"inviteCode"`
	CreatorName   string    `json:"creatorName"`
	MemberCount   int       `json:"memberCount"`
	IsRunning     bool      `json:"isRunning"`
	IsWorkSession bool      `json:"isWorkSession"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MemberFromModel converts a model.Member
func MemberFromModel(m model.Member) Member {
	return Member{
		ID:           string(m.ID),
		Name:         m.Name,
		Status:       string(m.Status),
		FocusTime:    m.FocusSeconds,
		ConnectionID: string(m.ConnectionID),
		JoinedAt:     m.JoinedAt,
	}
}

// MembersFromModel converts a room's member list, preserving join order
func MembersFromModel(members []model.Member) []Member {
	out := make([]Member, len(members))
	for i, m := range members {
		out[i] = MemberFromModel(m)
	}
	return out
}

// TimerStateFromModel converts a model.TimerState
func TimerStateFromModel(t model.TimerState) TimerState {
	return TimerState{
		State:                string(t.State),
		IsRunning:            t.IsRunning,
		IsWorkSession:        t.IsWorkSession,
		TotalDurationSeconds: t.TotalDurationSeconds,
		RemainingSeconds:     t.RemainingSeconds,
		DriverID:             string(t.DriverID),
		StartedBy:            t.StartedBy,
	}
}

// RoomFromModel converts a model.Room
func RoomFromModel(r *model.Room) Room {
	return Room{
		ID:          string(r.ID),
		Name:        r.Name,
		InviteCode:  string(r.InviteCode),
		CreatorID:   string(r.CreatorID),
		CreatorName: r.CreatorName,
		Members:     MembersFromModel(r.Members),
		TimerState:  TimerStateFromModel(r.Timer),
		CreatedAt:   r.CreatedAt,
	}
}

// RoomSummaryFromModel converts a model.RoomSummary
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

// RoomSummariesFromModel converts a directory listing
func RoomSummariesFromModel(summaries []model.RoomSummary) []RoomSummary {
	out := make([]RoomSummary, len(summaries))
	for i, s := range summaries {
		out[i] = RoomSummaryFromModel(s)
	}
	return out
}
