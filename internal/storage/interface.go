package storage

import (
	"context"

	"github.com/mcoot/studyroom/internal/model"
)

// Storage defines the interface for process-lifetime state.
// Implementations store and return copies; callers must save after mutating.
type Storage interface {
	// Participant operations
	SaveParticipant(ctx context.Context, participant *model.Participant) error
	GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error)
	DeleteParticipant(ctx context.Context, id model.ParticipantID) error

	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	GetRoomByInviteCode(ctx context.Context, code model.InviteCode) (*model.Room, error)
	InviteCodeExists(ctx context.Context, code model.InviteCode) (bool, error)
	DeleteRoom(ctx context.Context, id model.RoomID) error
	// ListRooms returns live rooms in creation order
	ListRooms(ctx context.Context) ([]*model.Room, error)

	// Reset discards all state
	Reset(ctx context.Context) error
}
