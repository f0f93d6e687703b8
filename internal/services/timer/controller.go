package timer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/studyroom/internal/dependencies/clock"
	"github.com/mcoot/studyroom/internal/model"
	"github.com/mcoot/studyroom/internal/services/identity"
	"github.com/mcoot/studyroom/internal/storage"
)

// Authority decides who advances a running timer
type Authority string

const (
	// AuthorityClient lets the driving member report ticks
	AuthorityClient Authority = "client"
	// AuthorityServer makes the server decrement running timers itself
	AuthorityServer Authority = "server"
)

// ParseAuthority converts a configuration value into an Authority
func ParseAuthority(s string) (Authority, error) {
	switch Authority(s) {
	case AuthorityClient, "":
		return AuthorityClient, nil
	case AuthorityServer:
		return AuthorityServer, nil
	}
	return "", fmt.Errorf("unknown tick authority %q", s)
}

// TickResult is the outcome of an accepted tick
type TickResult struct {
	Room     *model.Room
	Finished bool
	// Elapsed is the number of seconds credited to studying members
	Elapsed int
}

// Controller applies timer commands to a room's shared timer
type Controller struct {
	storage   storage.Storage
	registry  *identity.Registry
	clock     clock.Clock
	authority Authority
	logger    *slog.Logger
}

// NewController creates a new timer Controller
func NewController(
	storage storage.Storage,
	registry *identity.Registry,
	clock clock.Clock,
	authority Authority,
	logger *slog.Logger,
) *Controller {
	if authority == "" {
		authority = AuthorityClient
	}
	return &Controller{
		storage:   storage,
		registry:  registry,
		clock:     clock,
		authority: authority,
		logger:    logger.With(slog.String("component", "timer")),
	}
}

// Authority returns the configured tick authority
func (c *Controller) Authority() Authority {
	return c.authority
}

// Start begins a new phase. Any member may start; the starter becomes the driver.
// A zero duration selects the default for the phase.
func (c *Controller) Start(
	ctx context.Context,
	roomID model.RoomID,
	participantID model.ParticipantID,
	duration int,
	isWorkSession bool,
) (*model.Room, error) {
	room, member, err := c.loadMember(ctx, roomID, participantID)
	if err != nil {
		return nil, err
	}

	if err := room.Timer.Start(duration, isWorkSession, member.ID, member.Name, c.clock.Now()); err != nil {
		return nil, err
	}

	return c.save(ctx, room)
}

// Pause stops the countdown. Pausing a timer that is not running is accepted.
func (c *Controller) Pause(ctx context.Context, roomID model.RoomID, participantID model.ParticipantID) (*model.Room, error) {
	room, _, err := c.loadMember(ctx, roomID, participantID)
	if err != nil {
		return nil, err
	}

	room.Timer.Pause(c.clock.Now())
	return c.save(ctx, room)
}

// Resume continues a paused countdown; the resuming member becomes the driver
func (c *Controller) Resume(ctx context.Context, roomID model.RoomID, participantID model.ParticipantID) (*model.Room, error) {
	room, member, err := c.loadMember(ctx, roomID, participantID)
	if err != nil {
		return nil, err
	}

	if err := room.Timer.Resume(member.ID, c.clock.Now()); err != nil {
		return nil, err
	}
	return c.save(ctx, room)
}

// Reset returns the timer to idle with the full phase duration
func (c *Controller) Reset(ctx context.Context, roomID model.RoomID, participantID model.ParticipantID) (*model.Room, error) {
	room, _, err := c.loadMember(ctx, roomID, participantID)
	if err != nil {
		return nil, err
	}

	room.Timer.Reset(c.clock.Now())
	return c.save(ctx, room)
}

// Tick applies a remaining-time report from a client. Only the driver's
// reports are accepted, and none at all when the server owns the countdown.
func (c *Controller) Tick(
	ctx context.Context,
	roomID model.RoomID,
	participantID model.ParticipantID,
	remaining int,
) (*TickResult, error) {
	if c.authority == AuthorityServer {
		return nil, model.ErrServerDrivenTimer
	}

	room, _, err := c.loadMember(ctx, roomID, participantID)
	if err != nil {
		return nil, err
	}

	if !room.Timer.IsRunning {
		return nil, model.ErrTimerNotRunning
	}
	if room.Timer.DriverID != "" && room.Timer.DriverID != participantID {
		return nil, model.ErrNotTimerDriver
	}

	return c.applyTick(ctx, room, remaining)
}

// ServerTick advances a running timer by one second on behalf of the server
func (c *Controller) ServerTick(ctx context.Context, roomID model.RoomID) (*TickResult, error) {
	room, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.Timer.IsRunning {
		return nil, model.ErrTimerNotRunning
	}

	return c.applyTick(ctx, room, room.Timer.RemainingSeconds-1)
}

func (c *Controller) applyTick(ctx context.Context, room *model.Room, remaining int) (*TickResult, error) {
	wasWork := room.Timer.IsWorkSession

	elapsed, finished, err := room.Timer.Tick(remaining, c.clock.Now())
	if err != nil {
		return nil, err
	}

	var credited []model.ParticipantID
	if wasWork && elapsed > 0 {
		for i := range room.Members {
			if room.Members[i].Status == model.StatusStudying {
				room.Members[i].FocusSeconds += elapsed
				credited = append(credited, room.Members[i].ID)
			}
		}
	}

	saved, err := c.save(ctx, room)
	if err != nil {
		return nil, err
	}

	// The registry counter is best-effort
	for _, id := range credited {
		if err := c.registry.AddFocusSeconds(ctx, id, elapsed); err != nil {
			c.logger.Warn("failed to credit focus time",
				slog.String("participant_id", string(id)),
				slog.String("error", err.Error()),
			)
		}
	}

	if finished {
		c.logger.Info("timer finished",
			slog.String("room_id", string(room.ID)),
			slog.Bool("work_session", wasWork),
		)
	}

	return &TickResult{
		Room:     saved,
		Finished: finished,
		Elapsed:  elapsed,
	}, nil
}

// loadMember fetches a room and verifies the participant belongs to it
func (c *Controller) loadMember(ctx context.Context, roomID model.RoomID, participantID model.ParticipantID) (*model.Room, *model.Member, error) {
	room, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}

	member := room.GetMember(participantID)
	if member == nil {
		return nil, nil, model.ErrNotInRoom
	}

	return room, member, nil
}

func (c *Controller) save(ctx context.Context, room *model.Room) (*model.Room, error) {
	room.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}
