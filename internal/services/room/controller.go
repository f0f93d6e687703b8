package room

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mcoot/studyroom/internal/dependencies/clock"
	"github.com/mcoot/studyroom/internal/dependencies/random"
	"github.com/mcoot/studyroom/internal/model"
	"github.com/mcoot/studyroom/internal/storage"
)

const (
	// InviteCodeLength is the length of generated invite codes
	InviteCodeLength = 6
	// InviteCodeAlphabet is the characters used in invite codes (avoid confusing chars)
	InviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// MaxInviteCodeAttempts bounds regeneration on collision
	MaxInviteCodeAttempts = 32
)

// Controller manages room lifecycle and membership
type Controller struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewController creates a new room Controller
func NewController(
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "room")),
	}
}

// Create creates a new room with the creator as its first member
func (c *Controller) Create(
	ctx context.Context,
	name string,
	creatorID model.ParticipantID,
	creatorName string,
	connID model.ConnectionID,
) (*model.Room, error) {
	now := c.clock.Now()

	code, err := c.allocateInviteCode(ctx)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = creatorName + "'s room"
	}

	room := &model.Room{
		ID:          model.RoomID(c.random.UUID()),
		Name:        name,
		CreatorID:   creatorID,
		CreatorName: creatorName,
		InviteCode:  code,
		Members: []model.Member{
			{
				ID:           creatorID,
				Name:         creatorName,
				Status:       model.StatusIdle,
				ConnectionID: connID,
				JoinedAt:     now,
			},
		},
		Timer:     model.DefaultTimerState(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	c.logger.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("invite_code", string(room.InviteCode)),
	)

	return room, nil
}

// allocateInviteCode generates a code not used by any live room
func (c *Controller) allocateInviteCode(ctx context.Context) (model.InviteCode, error) {
	for attempt := 0; attempt < MaxInviteCodeAttempts; attempt++ {
		code := model.InviteCode(c.random.String(InviteCodeLength, InviteCodeAlphabet))
		if len(code) != InviteCodeLength {
			continue
		}
		exists, err := c.storage.InviteCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", model.ErrInviteCodeExhausted
}

// Get retrieves a room by ID
func (c *Controller) Get(ctx context.Context, roomID model.RoomID) (*model.Room, error) {
	return c.storage.GetRoom(ctx, roomID)
}

// FindByCode resolves an invite code to a live room. Matching ignores case
// and surrounding whitespace.
func (c *Controller) FindByCode(ctx context.Context, code string) (*model.Room, error) {
	normalized := model.NormalizeInviteCode(code)
	if len(normalized) != InviteCodeLength {
		return nil, model.ErrInvalidInviteCode
	}

	room, err := c.storage.GetRoomByInviteCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil, model.ErrInvalidInviteCode
		}
		return nil, err
	}
	return room, nil
}

// AddMember adds a participant to a room. Adding an existing member only
// refreshes its name and connection.
func (c *Controller) AddMember(
	ctx context.Context,
	roomID model.RoomID,
	participantID model.ParticipantID,
	name string,
	connID model.ConnectionID,
) (*model.Room, error) {
	room, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	if member := room.GetMember(participantID); member != nil {
		member.Name = name
		member.ConnectionID = connID
	} else {
		room.Members = append(room.Members, model.Member{
			ID:           participantID,
			Name:         name,
			Status:       model.StatusIdle,
			ConnectionID: connID,
			JoinedAt:     now,
		})
	}
	room.UpdatedAt = now

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// RemoveMember removes a participant from a room. The room is deleted as
// soon as it is empty; deleted reports whether that happened. If the timer
// driver leaves, the earliest remaining joiner takes over.
func (c *Controller) RemoveMember(
	ctx context.Context,
	roomID model.RoomID,
	participantID model.ParticipantID,
) (room *model.Room, deleted bool, err error) {
	room, err = c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, false, err
	}

	if !room.RemoveMember(participantID) {
		return nil, false, model.ErrNotInRoom
	}

	if room.IsEmpty() {
		if err := c.storage.DeleteRoom(ctx, roomID); err != nil {
			return nil, false, err
		}
		c.logger.Info("room deleted",
			slog.String("room_id", string(room.ID)),
			slog.String("invite_code", string(room.InviteCode)),
		)
		return room, true, nil
	}

	if room.Timer.DriverID == participantID {
		room.Timer.DriverID = room.Members[0].ID
	}
	room.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, false, err
	}
	return room, false, nil
}

// UpdateMemberStatus sets a member's presence within a room
func (c *Controller) UpdateMemberStatus(
	ctx context.Context,
	roomID model.RoomID,
	participantID model.ParticipantID,
	status model.PresenceStatus,
) (*model.Room, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	room, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	member := room.GetMember(participantID)
	if member == nil {
		return nil, model.ErrNotInRoom
	}

	member.Status = status
	room.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// List returns summaries of all live rooms in creation order
func (c *Controller) List(ctx context.Context) ([]model.RoomSummary, error) {
	rooms, err := c.storage.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.RoomSummary, len(rooms))
	for i, r := range rooms {
		summaries[i] = r.Summary()
	}
	return summaries, nil
}

// Interface for dependency injection
type ControllerInterface interface {
	Create(ctx context.Context, name string, creatorID model.ParticipantID, creatorName string, connID model.ConnectionID) (*model.Room, error)
	Get(ctx context.Context, roomID model.RoomID) (*model.Room, error)
	FindByCode(ctx context.Context, code string) (*model.Room, error)
	AddMember(ctx context.Context, roomID model.RoomID, participantID model.ParticipantID, name string, connID model.ConnectionID) (*model.Room, error)
	RemoveMember(ctx context.Context, roomID model.RoomID, participantID model.ParticipantID) (*model.Room, bool, error)
	UpdateMemberStatus(ctx context.Context, roomID model.RoomID, participantID model.ParticipantID, status model.PresenceStatus) (*model.Room, error)
	List(ctx context.Context) ([]model.RoomSummary, error)
}

var _ ControllerInterface = (*Controller)(nil)
