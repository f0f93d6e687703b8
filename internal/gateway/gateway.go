package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/studyroom/internal/dependencies/clock"
	"github.com/mcoot/studyroom/internal/dependencies/random"
	"github.com/mcoot/studyroom/internal/model"
	"github.com/mcoot/studyroom/internal/protocol"
	"github.com/mcoot/studyroom/internal/services/identity"
	"github.com/mcoot/studyroom/internal/services/room"
	"github.com/mcoot/studyroom/internal/services/timer"
)

// Config holds gateway settings
type Config struct {
	// EventBuffer is the capacity of the loop's inbound queue
	EventBuffer int
	// TickInterval is how often server-driven timers advance
	TickInterval time.Duration
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() Config {
	return Config{
		EventBuffer:  512,
		TickInterval: timer.DefaultTickInterval,
	}
}

type eventKind int

const (
	eventConnect eventKind = iota
	eventDisconnect
	eventMessage
	eventServerTick
)

type event struct {
	kind   eventKind
	client *Client
	frame  []byte
	roomID model.RoomID
	// generation identifies the ticker behind a server tick
	generation uint64
}

// Gateway relays protocol messages between connections and the room
// services. All state changes happen on the goroutine running Run, one
// event at a time, so a mutation and its broadcast are never interleaved
// with another event.
type Gateway struct {
	registry  *identity.Registry
	rooms     *room.Controller
	timers    *timer.Controller
	scheduler *timer.Scheduler
	groups    *Groups
	random    random.Random
	logger    *slog.Logger

	events chan event
	done   chan struct{}
}

// New creates a Gateway. Server-driven timers get a scheduler that feeds
// ticks back into the loop.
func New(
	registry *identity.Registry,
	rooms *room.Controller,
	timers *timer.Controller,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Gateway {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}

	logger = logger.With(slog.String("component", "gateway"))
	g := &Gateway{
		registry: registry,
		rooms:    rooms,
		timers:   timers,
		groups:   NewGroups(logger),
		random:   random,
		logger:   logger,
		events:   make(chan event, cfg.EventBuffer),
		done:     make(chan struct{}),
	}

	if timers.Authority() == timer.AuthorityServer {
		g.scheduler = timer.NewScheduler(clock, cfg.TickInterval, g.postServerTick)
	}

	return g
}

// Run processes events until ctx is cancelled, then drops every connection
func (g *Gateway) Run(ctx context.Context) {
	g.logger.Info("gateway started", slog.String("tick_authority", string(g.timers.Authority())))
	for {
		select {
		case ev := <-g.events:
			g.handle(ctx, ev)
		case <-ctx.Done():
			g.shutdown()
			return
		}
	}
}

func (g *Gateway) shutdown() {
	close(g.done)
	if g.scheduler != nil {
		g.scheduler.StopAll()
	}

	clients := g.groups.Clients()
	for _, c := range clients {
		g.groups.Remove(c)
		c.close()
	}
	g.logger.Info("gateway stopped", slog.Int("disconnected_clients", len(clients)))
}

// Register queues a new connection. It returns false once the gateway has stopped.
func (g *Gateway) Register(c *Client) bool {
	return g.post(event{kind: eventConnect, client: c})
}

// Unregister queues a disconnect
func (g *Gateway) Unregister(c *Client) {
	g.post(event{kind: eventDisconnect, client: c})
}

// Dispatch queues an inbound frame from a connection
func (g *Gateway) Dispatch(c *Client, frame []byte) bool {
	return g.post(event{kind: eventMessage, client: c, frame: frame})
}

// ConnectionCount returns the number of live connections
func (g *Gateway) ConnectionCount() int {
	return g.groups.Count()
}

func (g *Gateway) postServerTick(roomID model.RoomID, generation uint64) {
	g.post(event{kind: eventServerTick, roomID: roomID, generation: generation})
}

func (g *Gateway) post(ev event) bool {
	select {
	case <-g.done:
		return false
	default:
	}

	select {
	case g.events <- ev:
		return true
	case <-g.done:
		return false
	}
}

func (g *Gateway) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventConnect:
		g.groups.Add(ev.client)
		g.logger.Info("client connected",
			slog.String("connection_id", string(ev.client.id)),
			slog.Int("total_clients", g.groups.Count()))
	case eventDisconnect:
		g.handleDisconnect(ctx, ev.client)
	case eventMessage:
		g.handleMessage(ctx, ev.client, ev.frame)
	case eventServerTick:
		g.handleServerTick(ctx, ev.roomID, ev.generation)
	}
}

func (g *Gateway) handleDisconnect(ctx context.Context, c *Client) {
	if c.roomID != "" {
		g.leaveRoom(ctx, c, false)
	}

	if c.participantID != "" {
		if _, err := g.registry.Remove(ctx, c.participantID, c.id); err != nil {
			g.logger.Error("failed to remove participant",
				slog.String("participant_id", string(c.participantID)),
				slog.String("error", err.Error()))
		}
	}

	g.groups.Remove(c)
	c.close()

	g.logger.Info("client disconnected",
		slog.String("connection_id", string(c.id)),
		slog.String("participant_id", string(c.participantID)),
		slog.Duration("connection_duration", time.Since(c.connectedAt)),
		slog.Int("total_clients", g.groups.Count()))
}

func (g *Gateway) handleServerTick(ctx context.Context, roomID model.RoomID, generation uint64) {
	if g.scheduler == nil || !g.scheduler.Current(roomID, generation) {
		g.logger.Debug("stale server tick dropped",
			slog.String("room_id", string(roomID)),
			slog.Uint64("generation", generation))
		return
	}

	result, err := g.timers.ServerTick(ctx, roomID)
	if err != nil {
		g.stopTicking(roomID)
		if !errors.Is(err, model.ErrTimerNotRunning) && !errors.Is(err, model.ErrRoomNotFound) {
			g.logger.Error("server tick failed",
				slog.String("room_id", string(roomID)),
				slog.String("error", err.Error()))
		}
		return
	}

	g.broadcastTick(roomID, result)
}

func (g *Gateway) broadcastTick(roomID model.RoomID, result *timer.TickResult) {
	payload := protocol.TimerChanged{TimerState: protocol.TimerStateFromModel(result.Room.Timer)}
	if result.Finished {
		g.stopTicking(roomID)
		g.broadcast(roomID, protocol.EventTimerFinished, payload)
		return
	}
	g.broadcast(roomID, protocol.EventTimerUpdate, payload)
}

func (g *Gateway) startTicking(roomID model.RoomID) {
	if g.scheduler != nil {
		g.scheduler.Start(roomID)
	}
}

func (g *Gateway) stopTicking(roomID model.RoomID) {
	if g.scheduler != nil {
		g.scheduler.Stop(roomID)
	}
}

// Outbound helpers

func (g *Gateway) send(c *Client, eventName string, payload any) {
	frame, err := protocol.Encode(eventName, payload)
	if err != nil {
		g.logger.Error("failed to encode message", slog.String("event", eventName), slog.String("error", err.Error()))
		return
	}
	if !c.enqueue(frame) {
		g.logger.Warn("message dropped - client buffer full",
			slog.String("connection_id", string(c.id)),
			slog.String("event", eventName))
	}
}

func (g *Gateway) broadcast(roomID model.RoomID, eventName string, payload any) {
	frame, err := protocol.Encode(eventName, payload)
	if err != nil {
		g.logger.Error("failed to encode message", slog.String("event", eventName), slog.String("error", err.Error()))
		return
	}
	g.groups.Broadcast(roomID, frame)
}

func (g *Gateway) broadcastAll(eventName string, payload any) {
	frame, err := protocol.Encode(eventName, payload)
	if err != nil {
		g.logger.Error("failed to encode message", slog.String("event", eventName), slog.String("error", err.Error()))
		return
	}
	g.groups.BroadcastAll(frame)
}

func (g *Gateway) sendError(c *Client, err error) {
	message := errorMessage(err)
	if message == msgInternal {
		g.logger.Error("request failed",
			slog.String("connection_id", string(c.id)),
			slog.String("participant_id", string(c.participantID)),
			slog.String("error", err.Error()))
	}
	g.send(c, protocol.EventError, protocol.Error{Message: message})
}
