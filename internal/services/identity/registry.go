package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/mcoot/studyroom/internal/dependencies/clock"
	"github.com/mcoot/studyroom/internal/dependencies/random"
	"github.com/mcoot/studyroom/internal/model"
	"github.com/mcoot/studyroom/internal/storage"
)

// DefaultName is used when a participant registers without a name
const DefaultName = "Anonymous"

// maxNameLength bounds display names
const maxNameLength = 64

// validID accepts UUIDs and similar opaque client-chosen identifiers
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Registry maps participant identifiers to their profile and live connection
type Registry struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
}

// NewRegistry creates a new identity Registry
func NewRegistry(storage storage.Storage, clock clock.Clock, random random.Random) *Registry {
	return &Registry{
		storage: storage,
		clock:   clock,
		random:  random,
	}
}

// ValidID reports whether a client-supplied identifier is acceptable
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// Register binds a connection to an identity. A known supplied ID is reused
// and its name refreshed; an unknown but well-formed one is adopted; an
// absent or malformed one is replaced by a fresh UUID.
func (r *Registry) Register(ctx context.Context, suppliedID string, name string, connID model.ConnectionID) (*model.Participant, error) {
	now := r.clock.Now()
	name = normalizeName(name)

	suppliedID = strings.TrimSpace(suppliedID)
	if suppliedID != "" && ValidID(suppliedID) {
		existing, err := r.storage.GetParticipant(ctx, model.ParticipantID(suppliedID))
		if err == nil {
			existing.Name = name
			existing.ConnectionID = connID
			existing.Connected = true
			existing.UpdatedAt = now
			if err := r.storage.SaveParticipant(ctx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		}
		if !errors.Is(err, model.ErrParticipantNotFound) {
			return nil, err
		}
	} else {
		suppliedID = r.random.UUID()
	}

	participant := &model.Participant{
		ID:           model.ParticipantID(suppliedID),
		Name:         name,
		Status:       model.StatusIdle,
		ConnectionID: connID,
		Connected:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := r.storage.SaveParticipant(ctx, participant); err != nil {
		return nil, err
	}

	return participant, nil
}

// Get returns the participant with the given ID
func (r *Registry) Get(ctx context.Context, id model.ParticipantID) (*model.Participant, error) {
	return r.storage.GetParticipant(ctx, id)
}

// SetStatus updates a participant's presence. Unknown participants are ignored.
func (r *Registry) SetStatus(ctx context.Context, id model.ParticipantID, status model.PresenceStatus) error {
	if !status.Valid() {
		return model.ErrInvalidStatus
	}
	return r.update(ctx, id, func(p *model.Participant) {
		p.Status = status
	})
}

// SetCurrentRoom records the room the participant is in, or clears it when roomID is nil
func (r *Registry) SetCurrentRoom(ctx context.Context, id model.ParticipantID, roomID *model.RoomID) error {
	return r.update(ctx, id, func(p *model.Participant) {
		if roomID == nil {
			p.CurrentRoom = nil
			return
		}
		current := *roomID
		p.CurrentRoom = &current
	})
}

// AddFocusSeconds credits studied time to a participant
func (r *Registry) AddFocusSeconds(ctx context.Context, id model.ParticipantID, seconds int) error {
	if seconds <= 0 {
		return nil
	}
	return r.update(ctx, id, func(p *model.Participant) {
		p.FocusSeconds += seconds
	})
}

// Remove drops the participant when connID is still the bound connection.
// It reports whether the entry was removed. Room membership is untouched.
func (r *Registry) Remove(ctx context.Context, id model.ParticipantID, connID model.ConnectionID) (bool, error) {
	participant, err := r.storage.GetParticipant(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrParticipantNotFound) {
			return false, nil
		}
		return false, err
	}

	if participant.ConnectionID != connID {
		// A newer connection owns this identity
		return false, nil
	}

	if err := r.storage.DeleteParticipant(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// update applies fn to a stored participant, ignoring unknown IDs
func (r *Registry) update(ctx context.Context, id model.ParticipantID, fn func(p *model.Participant)) error {
	participant, err := r.storage.GetParticipant(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrParticipantNotFound) {
			return nil
		}
		return err
	}

	fn(participant)
	participant.UpdatedAt = r.clock.Now()

	return r.storage.SaveParticipant(ctx, participant)
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength])
	}
	return name
}
