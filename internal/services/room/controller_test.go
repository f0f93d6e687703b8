package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/studyroom/internal/dependencies/mocks"
	"github.com/mcoot/studyroom/internal/model"
	"github.com/mcoot/studyroom/internal/storage/memory"
	"github.com/mcoot/studyroom/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.controller = NewController(s.storage, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ControllerSuite) createRoom(code string) *model.Room {
	s.random.QueueString(code)
	room, err := s.controller.Create(s.ctx, "Exam Cram", "alice", "Alice", "conn-alice")
	s.Require().NoError(err)
	return room
}

// Create tests

func (s *ControllerSuite) TestCreateSucceeds() {
	s.random.QueueString("ABC123")
	s.random.QueueUUID("room-1")

	room, err := s.controller.Create(s.ctx, "Exam Cram", "alice", "Alice", "conn-alice")
	s.Require().NoError(err)

	s.Equal(model.RoomID("room-1"), room.ID)
	s.Equal("Exam Cram", room.Name)
	s.Equal(model.InviteCode("ABC123"), room.InviteCode)
	s.Equal(model.ParticipantID("alice"), room.CreatorID)
	s.Equal("Alice", room.CreatorName)
	s.Require().Len(room.Members, 1)
	s.Equal(model.ParticipantID("alice"), room.Members[0].ID)
	s.Equal(model.StatusIdle, room.Members[0].Status)
	s.Equal(model.ConnectionID("conn-alice"), room.Members[0].ConnectionID)
}

func (s *ControllerSuite) TestCreateUsesDefaultTimer() {
	room := s.createRoom("ABC123")

	s.Equal(model.TimerIdle, room.Timer.State)
	s.False(room.Timer.IsRunning)
	s.True(room.Timer.IsWorkSession)
	s.Equal(1800, room.Timer.TotalDurationSeconds)
	s.Equal(1800, room.Timer.RemainingSeconds)
}

func (s *ControllerSuite) TestCreateDefaultsEmptyName() {
	s.random.QueueString("ABC123")

	room, err := s.controller.Create(s.ctx, "  ", "alice", "Alice", "conn-alice")
	s.Require().NoError(err)
	s.Equal("Alice's room", room.Name)
}

func (s *ControllerSuite) TestCreateIsPersisted() {
	room := s.createRoom("ABC123")

	stored, err := s.storage.GetRoom(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(room.Name, stored.Name)
}

func (s *ControllerSuite) TestCreateRegeneratesCollidingCode() {
	s.createRoom("ABC123")

	s.random.QueueString("ABC123", "XYZ789")
	room, err := s.controller.Create(s.ctx, "Second", "bob", "Bob", "conn-bob")
	s.Require().NoError(err)
	s.Equal(model.InviteCode("XYZ789"), room.InviteCode)
}

func (s *ControllerSuite) TestCreateFailsWhenCodesExhausted() {
	s.createRoom("ABC123")

	for i := 0; i < MaxInviteCodeAttempts; i++ {
		s.random.QueueString("ABC123")
	}
	_, err := s.controller.Create(s.ctx, "Second", "bob", "Bob", "conn-bob")
	s.ErrorIs(err, model.ErrInviteCodeExhausted)
}

// FindByCode tests

func (s *ControllerSuite) TestFindByCodeIsCaseInsensitive() {
	created := s.createRoom("ABC123")

	room, err := s.controller.FindByCode(s.ctx, "  abc123 ")
	s.Require().NoError(err)
	s.Equal(created.ID, room.ID)
}

func (s *ControllerSuite) TestFindByCodeUnknown() {
	s.createRoom("ABC123")

	_, err := s.controller.FindByCode(s.ctx, "ZZZZZZ")
	s.ErrorIs(err, model.ErrInvalidInviteCode)

	_, err = s.controller.FindByCode(s.ctx, "")
	s.ErrorIs(err, model.ErrInvalidInviteCode)
}

// AddMember tests

func (s *ControllerSuite) TestAddMemberAppendsInJoinOrder() {
	created := s.createRoom("ABC123")

	s.clock.Advance(time.Second)
	room, err := s.controller.AddMember(s.ctx, created.ID, "bob", "Bob", "conn-bob")
	s.Require().NoError(err)

	s.Require().Len(room.Members, 2)
	s.Equal(model.ParticipantID("alice"), room.Members[0].ID)
	s.Equal(model.ParticipantID("bob"), room.Members[1].ID)
	s.Equal(model.StatusIdle, room.Members[1].Status)
	s.True(room.Members[1].JoinedAt.After(room.Members[0].JoinedAt))
}

func (s *ControllerSuite) TestAddMemberIsIdempotent() {
	created := s.createRoom("ABC123")

	_, _ = s.controller.AddMember(s.ctx, created.ID, "bob", "Bob", "conn-bob")
	room, err := s.controller.AddMember(s.ctx, created.ID, "bob", "Bob", "conn-bob-2")
	s.Require().NoError(err)

	s.Len(room.Members, 2)
	s.Equal(model.ConnectionID("conn-bob-2"), room.GetMember("bob").ConnectionID)
}

func (s *ControllerSuite) TestAddMemberRoomNotFound() {
	_, err := s.controller.AddMember(s.ctx, "missing", "bob", "Bob", "conn-bob")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// RemoveMember tests

func (s *ControllerSuite) TestRemoveMemberKeepsRoomWhileOccupied() {
	created := s.createRoom("ABC123")
	_, _ = s.controller.AddMember(s.ctx, created.ID, "bob", "Bob", "conn-bob")

	room, deleted, err := s.controller.RemoveMember(s.ctx, created.ID, "bob")
	s.Require().NoError(err)
	s.False(deleted)
	s.Len(room.Members, 1)

	stored, _ := s.storage.GetRoom(s.ctx, created.ID)
	s.Len(stored.Members, 1)
}

func (s *ControllerSuite) TestRemoveLastMemberDeletesRoom() {
	created := s.createRoom("ABC123")

	_, deleted, err := s.controller.RemoveMember(s.ctx, created.ID, "alice")
	s.Require().NoError(err)
	s.True(deleted)

	_, err = s.controller.Get(s.ctx, created.ID)
	s.ErrorIs(err, model.ErrRoomNotFound)

	_, err = s.controller.FindByCode(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrInvalidInviteCode)

	summaries, _ := s.controller.List(s.ctx)
	s.Empty(summaries)
}

func (s *ControllerSuite) TestRemoveMemberNotInRoom() {
	created := s.createRoom("ABC123")

	_, _, err := s.controller.RemoveMember(s.ctx, created.ID, "ghost")
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *ControllerSuite) TestRemoveDriverHandsOffToEarliestJoiner() {
	created := s.createRoom("ABC123")
	_, _ = s.controller.AddMember(s.ctx, created.ID, "bob", "Bob", "conn-bob")
	_, _ = s.controller.AddMember(s.ctx, created.ID, "carol", "Carol", "conn-carol")

	stored, _ := s.storage.GetRoom(s.ctx, created.ID)
	s.Require().NoError(stored.Timer.Start(600, true, "alice", "Alice", s.clock.Now()))
	_ = s.storage.SaveRoom(s.ctx, stored)

	room, _, err := s.controller.RemoveMember(s.ctx, created.ID, "alice")
	s.Require().NoError(err)
	s.Equal(model.ParticipantID("bob"), room.Timer.DriverID)
	s.True(room.Timer.IsRunning)
}

func (s *ControllerSuite) TestInviteCodeReusableAfterDeletion() {
	created := s.createRoom("ABC123")
	_, _, _ = s.controller.RemoveMember(s.ctx, created.ID, "alice")

	room := s.createRoom("ABC123")
	s.Equal(model.InviteCode("ABC123"), room.InviteCode)
}

// UpdateMemberStatus tests

func (s *ControllerSuite) TestUpdateMemberStatus() {
	created := s.createRoom("ABC123")

	room, err := s.controller.UpdateMemberStatus(s.ctx, created.ID, "alice", model.StatusStudying)
	s.Require().NoError(err)
	s.Equal(model.StatusStudying, room.GetMember("alice").Status)
}

func (s *ControllerSuite) TestUpdateMemberStatusRejectsInvalid() {
	created := s.createRoom("ABC123")

	_, err := s.controller.UpdateMemberStatus(s.ctx, created.ID, "alice", "napping")
	s.ErrorIs(err, model.ErrInvalidStatus)
}

func (s *ControllerSuite) TestUpdateMemberStatusNotInRoom() {
	created := s.createRoom("ABC123")

	_, err := s.controller.UpdateMemberStatus(s.ctx, created.ID, "bob", model.StatusStudying)
	s.ErrorIs(err, model.ErrNotInRoom)
}

// List tests

func (s *ControllerSuite) TestListInCreationOrder() {
	s.random.QueueUUID("room-1")
	first := s.createRoom("AAAAAA")
	s.random.QueueUUID("room-2")
	s.random.QueueString("BBBBBB")
	second, _ := s.controller.Create(s.ctx, "Late Night", "bob", "Bob", "conn-bob")

	summaries, err := s.controller.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(summaries, 2)
	s.Equal(first.ID, summaries[0].ID)
	s.Equal(second.ID, summaries[1].ID)
	s.Equal(1, summaries[0].MemberCount)
	s.Equal("Alice", summaries[0].CreatorName)
}
