package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcoot/studyroom/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errOut, string(data))
	} else {
		fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.out, string(data))
	} else {
		fmt.Fprintln(o.out, msg)
	}
}

// PrintEvent outputs a frame received from the realtime socket. JSON output
// emits one envelope per line.
func (o *Output) PrintEvent(env protocol.Envelope) {
	if o.format == "json" {
		data, _ := json.Marshal(env)
		fmt.Fprintln(o.out, string(data))
		return
	}
	fmt.Fprintf(o.out, "[%s] %s\n", env.Event, describeEvent(env))
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case RoomList:
		o.printRoomList(v)
	case Room:
		o.printRoom(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// RoomSummary response type (matches API)
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

// RoomList response type
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Room response type
type Room struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	InviteCode  string   `json:"invite_code"`
	CreatorName string   `json:"creator_name"`
	Members     []Member `json:"members"`
	Timer       Timer    `json:"timer"`
}

// Member response type
type Member struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	FocusSeconds int    `json:"focus_seconds"`
	Connected    bool   `json:"connected"`
}

// Timer response type
type Timer struct {
	State                string `json:"state"`
	IsRunning            bool   `json:"is_running"`
	IsWorkSession        bool   `json:"is_work_session"`
	TotalDurationSeconds int    `json:"total_duration_seconds"`
	RemainingSeconds     int    `json:"remaining_seconds"`
	StartedBy            string `json:"started_by,omitempty"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.out, "Status: %s\n", h.Status)
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Fprintln(o.out, "No rooms")
		return
	}
	for _, r := range l.Rooms {
		fmt.Fprintf(o.out, "%s  %-24s %d member(s), %s\n",
			r.InviteCode, r.Name, r.MemberCount, phaseLabel(r.IsRunning, r.IsWorkSession))
	}
}

func (o *Output) printRoom(r Room) {
	fmt.Fprintf(o.out, "Room: %s (%s)\n", r.Name, r.InviteCode)
	fmt.Fprintf(o.out, "Created by: %s\n", r.CreatorName)
	fmt.Fprintf(o.out, "Timer: %s %s of %s\n",
		r.Timer.State, formatSeconds(r.Timer.RemainingSeconds), formatSeconds(r.Timer.TotalDurationSeconds))
	fmt.Fprintf(o.out, "Members (%d):\n", len(r.Members))
	for _, m := range r.Members {
		offline := ""
		if !m.Connected {
			offline = " [offline]"
		}
		fmt.Fprintf(o.out, "  - %s (%s) - %s, focus %s%s\n",
			m.Name, m.ID, m.Status, formatSeconds(m.FocusSeconds), offline)
	}
}

func phaseLabel(running, work bool) string {
	phase := "break"
	if work {
		phase = "work"
	}
	if running {
		return phase + " running"
	}
	return phase + " idle"
}

// formatSeconds renders a duration as mm:ss, or h:mm:ss past an hour
func formatSeconds(s int) string {
	if s < 0 {
		s = 0
	}
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func describeTimer(t protocol.TimerState) string {
	phase := "break"
	if t.IsWorkSession {
		phase = "work"
	}
	return fmt.Sprintf("%s %s %s/%s", phase, t.State,
		formatSeconds(t.RemainingSeconds), formatSeconds(t.TotalDurationSeconds))
}

func describeMembers(members []protocol.Member) string {
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = fmt.Sprintf("%s (%s)", m.Name, m.Status)
	}
	return strings.Join(parts, ", ")
}

// describeEvent renders a one-line summary of a server event. Payloads
// that fail to decode fall back to the raw JSON.
func describeEvent(env protocol.Envelope) string {
	raw := string(env.Data)

	switch env.Event {
	case protocol.EventUserReady:
		if d, err := protocol.DecodeData[protocol.UserReady](env); err == nil {
			line := "registered as " + d.UserID
			if d.FocusSeconds > 0 {
				line += ", focused " + formatSeconds(d.FocusSeconds)
			}
			return line
		}
	case protocol.EventRoomCreated:
		if d, err := protocol.DecodeData[protocol.RoomCreated](env); err == nil {
			return fmt.Sprintf("created %q, invite code %s", d.Room.Name, d.InviteCode)
		}
	case protocol.EventRoomJoined:
		if d, err := protocol.DecodeData[protocol.RoomJoined](env); err == nil {
			return fmt.Sprintf("joined %q (%s), members: %s, timer: %s",
				d.Room.Name, d.Room.InviteCode, describeMembers(d.Room.Members), describeTimer(d.Room.TimerState))
		}
	case protocol.EventRoomLeft:
		if d, err := protocol.DecodeData[protocol.RoomLeft](env); err == nil {
			return "left room " + d.RoomID
		}
	case protocol.EventMemberJoined:
		if d, err := protocol.DecodeData[protocol.MemberJoined](env); err == nil {
			return fmt.Sprintf("%s joined, members: %s", d.Member.Name, describeMembers(d.Members))
		}
	case protocol.EventMemberLeft:
		if d, err := protocol.DecodeData[protocol.MemberLeft](env); err == nil {
			return fmt.Sprintf("%s left, members: %s", d.UserID, describeMembers(d.Members))
		}
	case protocol.EventMemberStatus:
		if d, err := protocol.DecodeData[protocol.MemberStatus](env); err == nil {
			return fmt.Sprintf("%s is %s", d.UserID, d.Status)
		}
	case protocol.EventTimerStarted:
		if d, err := protocol.DecodeData[protocol.TimerStarted](env); err == nil {
			return fmt.Sprintf("started by %s: %s", d.StartedBy, describeTimer(d.TimerState))
		}
	case protocol.EventTimerResumed:
		if d, err := protocol.DecodeData[protocol.TimerResumed](env); err == nil {
			return fmt.Sprintf("resumed by %s: %s", d.ResumedBy, describeTimer(d.TimerState))
		}
	case protocol.EventTimerPaused, protocol.EventTimerUpdate, protocol.EventTimerFinished, protocol.EventTimerReset:
		if d, err := protocol.DecodeData[protocol.TimerChanged](env); err == nil {
			return describeTimer(d.TimerState)
		}
	case protocol.EventRoomList, protocol.EventRoomListUpdated:
		if d, err := protocol.DecodeData[protocol.RoomList](env); err == nil {
			if len(d.Rooms) == 0 {
				return "no rooms"
			}
			parts := make([]string, len(d.Rooms))
			for i, r := range d.Rooms {
				parts[i] = fmt.Sprintf("%s %q (%d)", r.InviteCode, r.Name, r.MemberCount)
			}
			return strings.Join(parts, ", ")
		}
	case protocol.EventError:
		if d, err := protocol.DecodeData[protocol.Error](env); err == nil {
			return d.Message
		}
	}
	return raw
}
