package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/studyroom/internal/model"
	"github.com/mcoot/studyroom/internal/protocol"
)

// handleMessage decodes and routes one inbound frame. A failing or
// panicking handler only produces an error event for the sender.
func (g *Gateway) handleMessage(ctx context.Context, c *Client, frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("panic handling message",
				slog.String("connection_id", string(c.id)),
				slog.Any("panic", rec))
			g.send(c, protocol.EventError, protocol.Error{Message: msgInternal})
		}
	}()

	env, err := protocol.Decode(frame)
	if err != nil {
		g.sendError(c, err)
		return
	}

	g.logger.Debug("message received",
		slog.String("connection_id", string(c.id)),
		slog.String("event", env.Event))

	if err := g.route(ctx, c, env); err != nil {
		g.sendError(c, err)
	}
}

func (g *Gateway) route(ctx context.Context, c *Client, env protocol.Envelope) error {
	switch env.Event {
	case protocol.EventUserInit:
		return g.handleUserInit(ctx, c, env)
	case protocol.EventRoomCreate:
		return g.handleRoomCreate(ctx, c, env)
	case protocol.EventRoomJoin:
		return g.handleRoomJoin(ctx, c, env)
	case protocol.EventRoomLeave:
		return g.handleRoomLeave(ctx, c)
	case protocol.EventRoomList:
		return g.handleRoomList(ctx, c)
	case protocol.EventStatusUpdate:
		return g.handleStatusUpdate(ctx, c, env)
	case protocol.EventTimerStart:
		return g.handleTimerStart(ctx, c, env)
	case protocol.EventTimerPause:
		return g.handleTimerPause(ctx, c)
	case protocol.EventTimerResume:
		return g.handleTimerResume(ctx, c)
	case protocol.EventTimerReset:
		return g.handleTimerReset(ctx, c)
	case protocol.EventTimerTick:
		return g.handleTimerTick(ctx, c, env)
	default:
		return fmt.Errorf("%w: %s", errUnknownEvent, env.Event)
	}
}

// Identity

func (g *Gateway) handleUserInit(ctx context.Context, c *Client, env protocol.Envelope) error {
	data, err := protocol.DecodeData[protocol.UserInit](env)
	if err != nil {
		return err
	}

	participant, err := g.registry.Register(ctx, data.UserID, data.Name, c.id)
	if err != nil {
		return err
	}

	// Switching identity on a live connection gives up the old membership
	// and the old registry entry
	if previous := c.participantID; previous != "" && previous != participant.ID {
		if c.roomID != "" {
			g.leaveRoom(ctx, c, true)
		}
		if _, err := g.registry.Remove(ctx, previous, c.id); err != nil {
			g.logger.Error("failed to remove previous identity",
				slog.String("participant_id", string(previous)),
				slog.String("error", err.Error()))
		}
	}
	c.participantID = participant.ID

	if c.roomID != "" {
		// Re-init keeps membership and refreshes the name shown to the room
		roomID := c.roomID
		if _, err := g.rooms.AddMember(ctx, roomID, participant.ID, participant.Name, c.id); err != nil {
			return err
		}
		if err := g.registry.SetCurrentRoom(ctx, participant.ID, &roomID); err != nil {
			return err
		}
		participant.CurrentRoom = &roomID
	}

	ready := protocol.UserReady{
		UserID:       string(participant.ID),
		FocusSeconds: participant.FocusSeconds,
	}
	if participant.InRoom() {
		ready.RoomID = string(*participant.CurrentRoom)
	}
	g.send(c, protocol.EventUserReady, ready)
	return nil
}

// Rooms

func (g *Gateway) handleRoomCreate(ctx context.Context, c *Client, env protocol.Envelope) error {
	data, err := protocol.DecodeData[protocol.RoomCreate](env)
	if err != nil {
		return err
	}

	participant, err := g.participant(ctx, c)
	if err != nil {
		return err
	}

	if c.roomID != "" {
		g.leaveRoom(ctx, c, true)
	}

	r, err := g.rooms.Create(ctx, data.RoomName, participant.ID, participant.Name, c.id)
	if err != nil {
		return err
	}

	g.enterRoom(ctx, c, r.ID)

	g.send(c, protocol.EventRoomCreated, protocol.RoomCreated{
		RoomID:     string(r.ID),
		InviteCode: string(r.InviteCode),
		Room:       protocol.RoomFromModel(r),
	})
	g.broadcastRoomList(ctx)
	return nil
}

func (g *Gateway) handleRoomJoin(ctx context.Context, c *Client, env protocol.Envelope) error {
	data, err := protocol.DecodeData[protocol.RoomJoin](env)
	if err != nil {
		return err
	}

	participant, err := g.participant(ctx, c)
	if err != nil {
		return err
	}

	target, err := g.rooms.FindByCode(ctx, data.InviteCode)
	if err != nil {
		return err
	}

	if c.roomID != "" && c.roomID != target.ID {
		g.leaveRoom(ctx, c, true)
	}

	// The membership moves to this connection, so an older one leaves the group
	if existing := target.GetMember(participant.ID); existing != nil && existing.ConnectionID != c.id {
		g.detachConnection(target.ID, existing.ConnectionID)
	}

	r, err := g.rooms.AddMember(ctx, target.ID, participant.ID, participant.Name, c.id)
	if err != nil {
		return err
	}

	g.enterRoom(ctx, c, r.ID)

	g.send(c, protocol.EventRoomJoined, protocol.RoomJoined{
		RoomID: string(r.ID),
		Room:   protocol.RoomFromModel(r),
	})
	g.broadcast(r.ID, protocol.EventMemberJoined, protocol.MemberJoined{
		RoomID:  string(r.ID),
		Member:  protocol.MemberFromModel(*r.GetMember(participant.ID)),
		Members: protocol.MembersFromModel(r.Members),
	})
	return nil
}

func (g *Gateway) handleRoomLeave(ctx context.Context, c *Client) error {
	if _, _, err := g.membership(c); err != nil {
		return err
	}

	g.leaveRoom(ctx, c, true)
	return nil
}

func (g *Gateway) handleRoomList(ctx context.Context, c *Client) error {
	summaries, err := g.rooms.List(ctx)
	if err != nil {
		return err
	}

	g.send(c, protocol.EventRoomList, protocol.RoomList{Rooms: protocol.RoomSummariesFromModel(summaries)})
	return nil
}

// enterRoom binds the connection to a room it has just been added to
func (g *Gateway) enterRoom(ctx context.Context, c *Client, roomID model.RoomID) {
	c.roomID = roomID
	g.groups.Join(roomID, c)

	if err := g.registry.SetCurrentRoom(ctx, c.participantID, &roomID); err != nil {
		g.logger.Error("failed to record current room",
			slog.String("participant_id", string(c.participantID)),
			slog.String("error", err.Error()))
	}
}

// detachConnection drops a superseded connection from a room's group
// without touching the membership it used to hold
func (g *Gateway) detachConnection(roomID model.RoomID, connID model.ConnectionID) {
	old := g.groups.Find(roomID, connID)
	if old == nil {
		return
	}

	g.groups.Leave(roomID, old)
	old.roomID = ""
	g.send(old, protocol.EventRoomLeft, protocol.RoomLeft{RoomID: string(roomID)})

	g.logger.Info("connection superseded",
		slog.String("room_id", string(roomID)),
		slog.String("connection_id", string(connID)),
		slog.String("participant_id", string(old.participantID)))
}

// leaveRoom detaches the connection from its room and removes the member.
// explicit is false on disconnect, where the member is only removed if
// this connection is still the one bound to it.
func (g *Gateway) leaveRoom(ctx context.Context, c *Client, explicit bool) {
	roomID := c.roomID
	participantID := c.participantID

	g.groups.Leave(roomID, c)
	c.roomID = ""

	if explicit {
		g.send(c, protocol.EventRoomLeft, protocol.RoomLeft{RoomID: string(roomID)})
	}

	if participantID == "" {
		return
	}

	if !explicit {
		current, err := g.rooms.Get(ctx, roomID)
		if err != nil {
			return
		}
		member := current.GetMember(participantID)
		if member == nil || member.ConnectionID != c.id {
			// A newer connection for the same participant owns the membership
			return
		}
	}

	if err := g.registry.SetCurrentRoom(ctx, participantID, nil); err != nil {
		g.logger.Error("failed to clear current room",
			slog.String("participant_id", string(participantID)),
			slog.String("error", err.Error()))
	}

	var previousDriver model.ParticipantID
	if before, err := g.rooms.Get(ctx, roomID); err == nil {
		previousDriver = before.Timer.DriverID
	}

	r, deleted, err := g.rooms.RemoveMember(ctx, roomID, participantID)
	if err != nil {
		if !errors.Is(err, model.ErrNotInRoom) && !errors.Is(err, model.ErrRoomNotFound) {
			g.logger.Error("failed to remove member",
				slog.String("room_id", string(roomID)),
				slog.String("participant_id", string(participantID)),
				slog.String("error", err.Error()))
		}
		return
	}

	if deleted {
		g.stopTicking(roomID)
		g.broadcastRoomList(ctx)
		return
	}

	g.broadcast(roomID, protocol.EventMemberLeft, protocol.MemberLeft{
		UserID:  string(participantID),
		Members: protocol.MembersFromModel(r.Members),
	})

	// Tell the room who drives the countdown now
	if r.Timer.IsRunning && r.Timer.DriverID != previousDriver {
		g.broadcast(roomID, protocol.EventTimerUpdate, protocol.TimerChanged{
			TimerState: protocol.TimerStateFromModel(r.Timer),
		})
	}
}

func (g *Gateway) broadcastRoomList(ctx context.Context) {
	summaries, err := g.rooms.List(ctx)
	if err != nil {
		g.logger.Error("failed to list rooms", slog.String("error", err.Error()))
		return
	}
	g.broadcastAll(protocol.EventRoomListUpdated, protocol.RoomList{Rooms: protocol.RoomSummariesFromModel(summaries)})
}

// Presence

func (g *Gateway) handleStatusUpdate(ctx context.Context, c *Client, env protocol.Envelope) error {
	data, err := protocol.DecodeData[protocol.StatusUpdate](env)
	if err != nil {
		return err
	}

	if c.participantID == "" {
		return model.ErrNotRegistered
	}

	status := model.PresenceStatus(data.Status)
	if err := g.registry.SetStatus(ctx, c.participantID, status); err != nil {
		return err
	}

	if c.roomID == "" {
		return model.ErrNotInRoom
	}

	r, err := g.rooms.UpdateMemberStatus(ctx, c.roomID, c.participantID, status)
	if err != nil {
		return err
	}

	g.broadcast(r.ID, protocol.EventMemberStatus, protocol.MemberStatus{
		UserID:  string(c.participantID),
		Status:  string(status),
		Members: protocol.MembersFromModel(r.Members),
	})
	return nil
}

// Timer

func (g *Gateway) handleTimerStart(ctx context.Context, c *Client, env protocol.Envelope) error {
	data, err := protocol.DecodeData[protocol.TimerStart](env)
	if err != nil {
		return err
	}

	participantID, roomID, err := g.membership(c)
	if err != nil {
		return err
	}

	// Absent or zero falls back to the phase default
	duration := 0
	if data.Duration != nil {
		duration = *data.Duration
	}
	isWorkSession := true
	if data.IsWorkSession != nil {
		isWorkSession = *data.IsWorkSession
	}

	r, err := g.timers.Start(ctx, roomID, participantID, duration, isWorkSession)
	if err != nil {
		return err
	}

	g.startTicking(roomID)
	g.broadcast(roomID, protocol.EventTimerStarted, protocol.TimerStarted{
		TimerState: protocol.TimerStateFromModel(r.Timer),
		StartedBy:  r.Timer.StartedBy,
	})
	return nil
}

func (g *Gateway) handleTimerPause(ctx context.Context, c *Client) error {
	participantID, roomID, err := g.membership(c)
	if err != nil {
		return err
	}

	r, err := g.timers.Pause(ctx, roomID, participantID)
	if err != nil {
		return err
	}

	g.stopTicking(roomID)
	g.broadcast(roomID, protocol.EventTimerPaused, protocol.TimerChanged{
		TimerState: protocol.TimerStateFromModel(r.Timer),
	})
	return nil
}

func (g *Gateway) handleTimerResume(ctx context.Context, c *Client) error {
	participantID, roomID, err := g.membership(c)
	if err != nil {
		return err
	}

	r, err := g.timers.Resume(ctx, roomID, participantID)
	if err != nil {
		return err
	}

	resumedBy := ""
	if member := r.GetMember(participantID); member != nil {
		resumedBy = member.Name
	}

	g.startTicking(roomID)
	g.broadcast(roomID, protocol.EventTimerResumed, protocol.TimerResumed{
		TimerState: protocol.TimerStateFromModel(r.Timer),
		ResumedBy:  resumedBy,
	})
	return nil
}

func (g *Gateway) handleTimerReset(ctx context.Context, c *Client) error {
	participantID, roomID, err := g.membership(c)
	if err != nil {
		return err
	}

	r, err := g.timers.Reset(ctx, roomID, participantID)
	if err != nil {
		return err
	}

	g.stopTicking(roomID)
	g.broadcast(roomID, protocol.EventTimerReset, protocol.TimerChanged{
		TimerState: protocol.TimerStateFromModel(r.Timer),
	})
	return nil
}

func (g *Gateway) handleTimerTick(ctx context.Context, c *Client, env protocol.Envelope) error {
	data, err := protocol.DecodeData[protocol.TimerTick](env)
	if err != nil {
		return err
	}
	if data.TimeRemaining == nil {
		return fmt.Errorf("%w: missing timeRemaining", protocol.ErrMalformedMessage)
	}

	participantID, roomID, err := g.membership(c)
	if err != nil {
		return err
	}

	result, err := g.timers.Tick(ctx, roomID, participantID, *data.TimeRemaining)
	if err != nil {
		return err
	}

	g.broadcastTick(roomID, result)
	return nil
}

// Guards

// participant returns the identity bound to the connection
func (g *Gateway) participant(ctx context.Context, c *Client) (*model.Participant, error) {
	if c.participantID == "" {
		return nil, model.ErrNotRegistered
	}
	return g.registry.Get(ctx, c.participantID)
}

// membership returns the identity and room bound to the connection
func (g *Gateway) membership(c *Client) (model.ParticipantID, model.RoomID, error) {
	if c.participantID == "" {
		return "", "", model.ErrNotRegistered
	}
	if c.roomID == "" {
		return "", "", model.ErrNotInRoom
	}
	return c.participantID, c.roomID, nil
}
