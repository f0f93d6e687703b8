package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/studyroom/internal/api"
	"github.com/mcoot/studyroom/internal/api/apierr"
	"github.com/mcoot/studyroom/internal/api/response"
	"github.com/mcoot/studyroom/internal/factory"
	"github.com/mcoot/studyroom/internal/model"
	"github.com/mcoot/studyroom/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{
		Logger:        testutil.NopLogger(),
		Rooms:         app.Rooms,
		Connections:   app.Gateway,
		WebSocket:     http.HandlerFunc(app.Gateway.ServeWS),
		TickAuthority: string(app.Timers.Authority()),
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// createRoom sets up a room through the services, as the socket handlers would
func (ts *testServer) createRoom(t *testing.T, code, name string, members ...string) *model.Room {
	t.Helper()
	ctx := context.Background()
	ts.app.MockRandom.QueueString(code)

	creator := model.ParticipantID(members[0])
	r, err := ts.app.Rooms.Create(ctx, name, creator, members[0], model.ConnectionID("conn-"+members[0]))
	require.NoError(t, err)
	for _, m := range members[1:] {
		r, err = ts.app.Rooms.AddMember(ctx, r.ID, model.ParticipantID(m), m, model.ConnectionID("conn-"+m))
		require.NoError(t, err)
	}
	return r
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	resp := decode[response.Health](t, rr)
	assert.Equal(t, "ok", resp.Status)
}

func TestListRooms_Empty(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"rooms":[]}`, rr.Body.String())
}

func TestListRooms_CreationOrder(t *testing.T) {
	ts := newTestServer(t)
	ts.createRoom(t, "ABC123", "Exam Cram", "alice", "bob")
	ts.createRoom(t, "XYZ789", "", "carol")

	rr := ts.request(http.MethodGet, "/api/v1/rooms", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[response.RoomList](t, rr)
	require.Len(t, resp.Rooms, 2)
	assert.Equal(t, "Exam Cram", resp.Rooms[0].Name)
	assert.Equal(t, "ABC123", resp.Rooms[0].InviteCode)
	assert.Equal(t, 2, resp.Rooms[0].MemberCount)
	assert.Equal(t, "carol's room", resp.Rooms[1].Name)
	assert.Equal(t, 1, resp.Rooms[1].MemberCount)
}

func TestGetRoom(t *testing.T) {
	ts := newTestServer(t)
	ts.createRoom(t, "ABC123", "Exam Cram", "alice", "bob")

	rr := ts.request(http.MethodGet, "/api/v1/rooms/abc123", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[response.Room](t, rr)
	assert.Equal(t, "Exam Cram", resp.Name)
	assert.Equal(t, "alice", resp.CreatorName)
	require.Len(t, resp.Members, 2)
	assert.Equal(t, "alice", resp.Members[0].ID)
	assert.Equal(t, "idle", resp.Members[1].Status)
	assert.True(t, resp.Members[1].Connected)
	assert.Equal(t, "idle", resp.Timer.State)
	assert.Equal(t, model.DefaultWorkSeconds, resp.Timer.RemainingSeconds)
}

func TestGetRoom_NotFound(t *testing.T) {
	ts := newTestServer(t)

	for _, code := range []string{"ZZZZZZ", "short"} {
		rr := ts.request(http.MethodGet, "/api/v1/rooms/"+code, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, code)

		resp := decode[apierr.ErrorResponse](t, rr)
		assert.Equal(t, apierr.CodeRoomNotFound, resp.Error.Code, code)
	}
}

func TestGetRoom_DeletedRoomIsGone(t *testing.T) {
	ts := newTestServer(t)
	r := ts.createRoom(t, "ABC123", "Exam Cram", "alice")

	_, deleted, err := ts.app.Rooms.RemoveMember(context.Background(), r.ID, "alice")
	require.NoError(t, err)
	require.True(t, deleted)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/ABC123", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	r := ts.createRoom(t, "ABC123", "Exam Cram", "alice", "bob")
	ts.createRoom(t, "XYZ789", "Solo", "carol")

	_, err := ts.app.Timers.Start(context.Background(), r.ID, "alice", 1500, true)
	require.NoError(t, err)

	rr := ts.request(http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[response.Stats](t, rr)
	assert.Equal(t, 0, resp.Connections)
	assert.Equal(t, 2, resp.Rooms)
	assert.Equal(t, 3, resp.Members)
	assert.Equal(t, 1, resp.RunningTimers)
	assert.Equal(t, "client", resp.TickAuthority)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = ts.request(http.MethodOptions, "/api/v1/rooms", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": http.MethodGet,
	})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	app := factory.NewTestApp()
	handler := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		Rooms:          app.Rooms,
		AllowedOrigins: []string{"https://study.example.com"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/lobbies", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	resp := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, apierr.CodeNotFound, resp.Error.Code)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
