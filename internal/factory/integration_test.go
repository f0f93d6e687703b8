package factory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/studyroom/internal/model"
	"github.com/mcoot/studyroom/internal/services/timer"
	redisstorage "github.com/mcoot/studyroom/internal/storage/redis"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) register(id, name string) *model.Participant {
	p, err := s.app.Registry.Register(s.ctx, id, name, model.ConnectionID("conn-"+id))
	s.Require().NoError(err)
	return p
}

// Test: a full study session from room creation to the room disappearing
func (s *IntegrationSuite) TestCompleteStudySession() {
	s.app.MockRandom.QueueString("ABC123")
	s.app.MockRandom.QueueUUID("room-1")

	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")

	// Step 1: Alice creates a room
	r, err := s.app.Rooms.Create(s.ctx, "Exam Cram", alice.ID, alice.Name, alice.ConnectionID)
	s.Require().NoError(err)
	s.Equal(model.InviteCode("ABC123"), r.InviteCode)
	s.Require().NoError(s.app.Registry.SetCurrentRoom(s.ctx, alice.ID, &r.ID))

	// Step 2: Bob joins by code, in any case
	found, err := s.app.Rooms.FindByCode(s.ctx, " abc123 ")
	s.Require().NoError(err)
	r, err = s.app.Rooms.AddMember(s.ctx, found.ID, bob.ID, bob.Name, bob.ConnectionID)
	s.Require().NoError(err)
	s.Len(r.Members, 2)

	// Step 3: both study while Alice drives a work phase
	_, err = s.app.Rooms.UpdateMemberStatus(s.ctx, r.ID, alice.ID, model.StatusStudying)
	s.Require().NoError(err)
	_, err = s.app.Rooms.UpdateMemberStatus(s.ctx, r.ID, bob.ID, model.StatusStudying)
	s.Require().NoError(err)
	s.Require().NoError(s.app.Registry.SetStatus(s.ctx, alice.ID, model.StatusStudying))

	r, err = s.app.Timers.Start(s.ctx, r.ID, alice.ID, 1500, true)
	s.Require().NoError(err)
	s.Equal(1500, r.Timer.RemainingSeconds)
	s.Equal(alice.ID, r.Timer.DriverID)

	result, err := s.app.Timers.Tick(s.ctx, r.ID, alice.ID, 1440)
	s.Require().NoError(err)
	s.False(result.Finished)
	s.Equal(60, result.Elapsed)

	_, err = s.app.Timers.Tick(s.ctx, r.ID, bob.ID, 1000)
	s.ErrorIs(err, model.ErrNotTimerDriver)

	// Focus time is credited in the room and the registry
	r, err = s.app.Rooms.Get(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(60, r.GetMember(alice.ID).FocusSeconds)
	s.Equal(60, r.GetMember(bob.ID).FocusSeconds)
	p, err := s.app.Registry.Get(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(60, p.FocusSeconds)

	// Step 4: Alice leaves, Bob inherits the timer
	r, deleted, err := s.app.Rooms.RemoveMember(s.ctx, r.ID, alice.ID)
	s.Require().NoError(err)
	s.False(deleted)
	s.Equal(bob.ID, r.Timer.DriverID)

	result, err = s.app.Timers.Tick(s.ctx, r.ID, bob.ID, 0)
	s.Require().NoError(err)
	s.True(result.Finished)

	// Step 5: Bob leaves, the room and its code are gone
	_, deleted, err = s.app.Rooms.RemoveMember(s.ctx, r.ID, bob.ID)
	s.Require().NoError(err)
	s.True(deleted)

	_, err = s.app.Rooms.FindByCode(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrInvalidInviteCode)
	rooms, err := s.app.Rooms.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(rooms)
}

// Test: the server-driven variant rejects client ticks and counts down itself
func (s *IntegrationSuite) TestServerAuthority() {
	s.app = NewTestAppWith(s.app.Storage, timer.AuthorityServer)
	s.app.MockRandom.QueueString("SRV234")

	alice := s.register("alice", "Alice")
	r, err := s.app.Rooms.Create(s.ctx, "", alice.ID, alice.Name, alice.ConnectionID)
	s.Require().NoError(err)
	s.Equal("Alice's room", r.Name)

	_, err = s.app.Timers.Start(s.ctx, r.ID, alice.ID, 2, false)
	s.Require().NoError(err)

	_, err = s.app.Timers.Tick(s.ctx, r.ID, alice.ID, 1)
	s.ErrorIs(err, model.ErrServerDrivenTimer)

	result, err := s.app.Timers.ServerTick(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(1, result.Room.Timer.RemainingSeconds)

	result, err = s.app.Timers.ServerTick(s.ctx, r.ID)
	s.Require().NoError(err)
	s.True(result.Finished)
	s.Equal(1, result.Elapsed)

	// Break phases never count as focus time
	s.Equal(0, result.Room.GetMember(alice.ID).FocusSeconds)
}

func TestNew_MemoryDefaults(t *testing.T) {
	app, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Timers.Authority() != timer.AuthorityClient {
		t.Errorf("authority = %q, want %q", app.Timers.Authority(), timer.AuthorityClient)
	}
	if app.Gateway == nil || app.Registry == nil || app.Rooms == nil {
		t.Fatal("expected all services to be wired")
	}
}

func TestNew_InvalidStorage(t *testing.T) {
	if _, err := New(Config{StorageType: "postgres"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
	if _, err := New(Config{StorageType: StorageTypeRedis}); err == nil {
		t.Error("expected error when RedisConfig is missing")
	}
}

func TestNew_RedisResetsState(t *testing.T) {
	mini := miniredis.RunT(t)
	mini.Set("studyroom:room:stale", `{"ID":"stale"}`)
	mini.Set("unrelated", "keep")

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mini.Addr()

	app, err := New(Config{
		StorageType:   StorageTypeRedis,
		RedisConfig:   &redisCfg,
		TickAuthority: timer.AuthorityServer,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if mini.Exists("studyroom:room:stale") {
		t.Error("expected stale room to be flushed at startup")
	}
	if !mini.Exists("unrelated") {
		t.Error("expected keys outside the namespace to survive")
	}

	ctx := context.Background()
	p, err := app.Registry.Register(ctx, "alice", "Alice", "conn-1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	r, err := app.Rooms.Create(ctx, "Redis Room", p.ID, p.Name, p.ConnectionID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	found, err := app.Rooms.FindByCode(ctx, string(r.InviteCode))
	if err != nil {
		t.Fatalf("FindByCode() error = %v", err)
	}
	if found.ID != r.ID {
		t.Errorf("FindByCode() = %q, want %q", found.ID, r.ID)
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	mini := miniredis.RunT(t)
	addr := mini.Addr()
	mini.Close()

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + addr

	if _, err := New(Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg}); err == nil {
		t.Error("expected error when redis is unreachable")
	}
}
