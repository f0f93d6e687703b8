package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/studyroom/internal/api"
	"github.com/mcoot/studyroom/internal/dependencies/mocks"
	"github.com/mcoot/studyroom/internal/factory"
	"github.com/mcoot/studyroom/internal/protocol"
	"github.com/mcoot/studyroom/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe to read while a session writes to it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startServer(t *testing.T) (*factory.TestApp, *httptest.Server) {
	t.Helper()

	app := factory.NewTestApp()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Gateway.Run(ctx)
	}()

	srv := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:        testutil.NopLogger(),
		Rooms:         app.Rooms,
		Connections:   app.Gateway,
		WebSocket:     http.HandlerFunc(app.Gateway.ServeWS),
		TickAuthority: string(app.Timers.Authority()),
	}))

	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return app, srv
}

// runCLI executes the root command in-process and returns stdout
func runCLI(t *testing.T, serverURL string, in io.Reader, args ...string) (string, error) {
	t.Helper()

	fullArgs := append([]string{
		"--server", serverURL,
		"--user-id-file", filepath.Join(t.TempDir(), "user-id"),
		"--output", "json",
	}, args...)

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(fullArgs)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if in != nil {
		cmd.SetIn(in)
	}
	err := cmd.Execute()
	return stdout.String(), err
}

func eventuallyContains(t *testing.T, buf *syncBuffer, substr string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), substr)
	}, 2*time.Second, 10*time.Millisecond, "expected output to contain %q, got:\n%s", substr, buf.String())
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		event   string
		payload any
	}{
		{"pause", protocol.EventTimerPause, struct{}{}},
		{"  Resume ", protocol.EventTimerResume, struct{}{}},
		{"reset", protocol.EventTimerReset, struct{}{}},
		{"list", protocol.EventRoomList, struct{}{}},
		{"leave", protocol.EventRoomLeave, struct{}{}},
		{"status Studying", protocol.EventStatusUpdate, protocol.StatusUpdate{Status: "studying"}},
		{"join abc123", protocol.EventRoomJoin, protocol.RoomJoin{InviteCode: "abc123"}},
		{"create Exam Cram", protocol.EventRoomCreate, protocol.RoomCreate{RoomName: "Exam Cram"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := parseCommand(tt.line)
			require.NoError(t, err)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.event, cmd.event)
			assert.Equal(t, tt.payload, cmd.payload)
		})
	}
}

func TestParseCommand_Start(t *testing.T) {
	cmd, err := parseCommand("start")
	require.NoError(t, err)
	start := cmd.payload.(protocol.TimerStart)
	assert.Nil(t, start.Duration)
	assert.Nil(t, start.IsWorkSession)

	cmd, err = parseCommand("start 300 break")
	require.NoError(t, err)
	start = cmd.payload.(protocol.TimerStart)
	require.NotNil(t, start.Duration)
	require.NotNil(t, start.IsWorkSession)
	assert.Equal(t, 300, *start.Duration)
	assert.False(t, *start.IsWorkSession)

	_, err = parseCommand("start 0")
	assert.Error(t, err)
	_, err = parseCommand("start soon")
	assert.Error(t, err)
}

func TestParseCommand_Tick(t *testing.T) {
	cmd, err := parseCommand("tick 42")
	require.NoError(t, err)
	tick := cmd.payload.(protocol.TimerTick)
	require.NotNil(t, tick.TimeRemaining)
	assert.Equal(t, 42, *tick.TimeRemaining)

	_, err = parseCommand("tick")
	assert.Error(t, err)
	_, err = parseCommand("tick many")
	assert.Error(t, err)
}

func TestParseCommand_QuitBlankUnknown(t *testing.T) {
	_, err := parseCommand("quit")
	assert.ErrorIs(t, err, errQuit)
	_, err = parseCommand("exit")
	assert.ErrorIs(t, err, errQuit)

	cmd, err := parseCommand("   ")
	assert.NoError(t, err)
	assert.Nil(t, cmd)

	_, err = parseCommand("dance")
	assert.Error(t, err)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "25:00", formatSeconds(1500))
	assert.Equal(t, "00:09", formatSeconds(9))
	assert.Equal(t, "1:00:05", formatSeconds(3605))
	assert.Equal(t, "00:00", formatSeconds(-3))
}

func TestDescribeUserReady(t *testing.T) {
	env, err := protocol.Decode([]byte(`{"event":"user:ready","data":{"userId":"alice"}}`))
	require.NoError(t, err)
	assert.Equal(t, "registered as alice", describeEvent(env))

	env, err = protocol.Decode([]byte(`{"event":"user:ready","data":{"userId":"alice","focusSeconds":90}}`))
	require.NoError(t, err)
	assert.Equal(t, "registered as alice, focused 01:30", describeEvent(env))
}

func TestSocketURL(t *testing.T) {
	u, err := socketURL("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)

	u, err = socketURL("https://study.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "wss://study.example.com/ws", u)

	_, err = socketURL("ftp://example.com")
	assert.Error(t, err)
}

func TestDriver(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	d := newDriver(clk, time.Second)
	assert.Nil(t, d.C())

	running := protocol.TimerState{IsRunning: true, DriverID: "alice", RemainingSeconds: 2}

	// Someone else driving never starts the local countdown
	d.reconcile("bob", running, true)
	assert.False(t, d.active())

	d.reconcile("alice", running, true)
	require.True(t, d.active())

	// Echoed updates leave the local countdown alone
	echoed := running
	echoed.RemainingSeconds = 30
	d.reconcile("alice", echoed, false)
	remaining, done := d.tick()
	assert.Equal(t, 1, remaining)
	assert.False(t, done)

	remaining, done = d.tick()
	assert.Equal(t, 0, remaining)
	assert.True(t, done)
	assert.False(t, d.active())

	// Handoff starts counting from the confirmed state
	d.reconcile("alice", echoed, false)
	require.True(t, d.active())
	assert.Equal(t, 30, d.remaining)

	paused := echoed
	paused.IsRunning = false
	d.reconcile("alice", paused, false)
	assert.False(t, d.active())
}

func TestConfigUserID(t *testing.T) {
	c := &Config{UserIDFile: filepath.Join(t.TempDir(), "nested", "user-id")}

	id, err := c.LoadUserID()
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, c.SaveUserID("alice-1"))
	id, err = c.LoadUserID()
	require.NoError(t, err)
	assert.Equal(t, "alice-1", id)

	info, err := os.Stat(c.UserIDFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCLI_Health(t *testing.T) {
	_, srv := startServer(t)

	out, err := runCLI(t, srv.URL, nil, "health")
	require.NoError(t, err)

	var result HealthResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "ok", result.Status)
}

func TestCLI_Rooms(t *testing.T) {
	app, srv := startServer(t)
	app.MockRandom.QueueString("ABC123")
	_, err := app.Rooms.Create(context.Background(), "Exam Cram", "alice", "Alice", "conn-1")
	require.NoError(t, err)

	out, err := runCLI(t, srv.URL, nil, "rooms", "list")
	require.NoError(t, err)
	var list RoomList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, "ABC123", list.Rooms[0].InviteCode)

	out, err = runCLI(t, srv.URL, nil, "rooms", "get", "abc123")
	require.NoError(t, err)
	var room Room
	require.NoError(t, json.Unmarshal([]byte(out), &room))
	assert.Equal(t, "Exam Cram", room.Name)
	require.Len(t, room.Members, 1)
	assert.Equal(t, "Alice", room.Members[0].Name)

	_, err = runCLI(t, srv.URL, nil, "rooms", "get", "ZZZZZZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROOM_NOT_FOUND")
}

func TestCLI_RoomsTextOutput(t *testing.T) {
	_, srv := startServer(t)

	var stdout bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--server", srv.URL, "rooms", "list"})
	cmd.SetOut(&stdout)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "No rooms\n", stdout.String())
}

func TestCLI_JoinUnknownRoom(t *testing.T) {
	_, srv := startServer(t)
	inR, inW := io.Pipe()
	defer inW.Close()

	out := &syncBuffer{}
	errCh := make(chan error, 1)
	go func() {
		cmd := NewRootCmd()
		cmd.SetArgs([]string{
			"--server", srv.URL,
			"--user-id-file", filepath.Join(t.TempDir(), "user-id"),
			"--name", "Carol",
			"--output", "json",
			"join", "NOPE99",
		})
		cmd.SetOut(out)
		cmd.SetIn(inR)
		errCh <- cmd.Execute()
	}()

	eventuallyContains(t, out, `"event":"user:ready"`)
	eventuallyContains(t, out, `Invalid invite code`)

	_, err := io.WriteString(inW, "quit\n")
	require.NoError(t, err)
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not exit")
	}
}

func TestSession_CreateStartAndDrive(t *testing.T) {
	app, srv := startServer(t)
	app.MockRandom.QueueString("ABC123")

	c := NewClient(srv.URL)
	conn, err := c.Dial(context.Background())
	require.NoError(t, err)

	cliClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	var savedID string
	out := &syncBuffer{}
	session := NewSession(conn, NewOutput("json", out, io.Discard), SessionOptions{
		Name:    "Alice",
		UserID:  "alice",
		Initial: &command{protocol.EventRoomCreate, protocol.RoomCreate{RoomName: "Exam Cram"}},
		Drive:   true,
		Clock:   cliClock,
		OnReady: func(id string) error {
			savedID = id
			return nil
		},
	})

	inR, inW := io.Pipe()
	errCh := make(chan error, 1)
	go func() { errCh <- session.Run(context.Background(), inR) }()

	eventuallyContains(t, out, `"event":"room:created"`)
	eventuallyContains(t, out, `"inviteCode":"ABC123"`)

	_, err = io.WriteString(inW, "start 60\n")
	require.NoError(t, err)
	eventuallyContains(t, out, `"event":"timer:started"`)

	// The session is the driver, so advancing its clock reports a tick
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, cliClock.BlockUntilContext(ctx, 1))
	cliClock.Advance(time.Second)
	eventuallyContains(t, out, `"remainingSeconds":59`)

	r, err := app.Rooms.FindByCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 59, r.Timer.RemainingSeconds)

	_, err = io.WriteString(inW, "pause\n")
	require.NoError(t, err)
	eventuallyContains(t, out, `"event":"timer:paused"`)

	// End of input closes the session
	require.NoError(t, inW.Close())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not exit")
	}
	assert.Equal(t, "alice", savedID)
}
