package gateway

import (
	"log/slog"
	"sync"

	"github.com/mcoot/studyroom/internal/model"
)

// Groups tracks every live connection and the per-room broadcast groups.
// Join and Leave are the only mutators of room membership.
type Groups struct {
	mu     sync.RWMutex
	all    map[*Client]struct{}
	rooms  map[model.RoomID]map[*Client]struct{}
	logger *slog.Logger
}

// NewGroups creates an empty set of groups
func NewGroups(logger *slog.Logger) *Groups {
	return &Groups{
		all:    make(map[*Client]struct{}),
		rooms:  make(map[model.RoomID]map[*Client]struct{}),
		logger: logger,
	}
}

// Add registers a connection in the global set
func (g *Groups) Add(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.all[c] = struct{}{}
}

// Remove drops a connection from the global set and from any room group
func (g *Groups) Remove(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.all, c)
	for roomID, members := range g.rooms {
		if _, ok := members[c]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(g.rooms, roomID)
			}
		}
	}
}

// Join adds a connection to a room's group
func (g *Groups) Join(roomID model.RoomID, c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	members, ok := g.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		g.rooms[roomID] = members
	}
	members[c] = struct{}{}
}

// Leave removes a connection from a room's group
func (g *Groups) Leave(roomID model.RoomID, c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	members, ok := g.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(g.rooms, roomID)
	}
}

// Find returns the connection with the given ID in a room's group, or nil
func (g *Groups) Find(roomID model.RoomID, connID model.ConnectionID) *Client {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for c := range g.rooms[roomID] {
		if c.id == connID {
			return c
		}
	}
	return nil
}

// Broadcast queues a frame for every connection in a room.
// Connections with a full buffer miss the frame.
func (g *Groups) Broadcast(roomID model.RoomID, message []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	g.fanOut(g.rooms[roomID], message, slog.String("room_id", string(roomID)))
}

// BroadcastAll queues a frame for every live connection
func (g *Groups) BroadcastAll(message []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	g.fanOut(g.all, message, slog.String("room_id", "*"))
}

func (g *Groups) fanOut(clients map[*Client]struct{}, message []byte, target slog.Attr) {
	dropped := 0
	for c := range clients {
		if !c.enqueue(message) {
			dropped++
			g.logger.Warn("message dropped - client buffer full",
				slog.String("connection_id", string(c.id)),
				slog.String("participant_id", string(c.participantID)))
		}
	}
	if dropped > 0 {
		g.logger.Warn("broadcast partial failure",
			target,
			slog.Int("sent", len(clients)-dropped),
			slog.Int("dropped", dropped))
	}
}

// Count returns the number of live connections
func (g *Groups) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.all)
}

// RoomSize returns the number of connections in a room's group
func (g *Groups) RoomSize(roomID model.RoomID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms[roomID])
}

// Clients returns a snapshot of every live connection
func (g *Groups) Clients() []*Client {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clients := make([]*Client, 0, len(g.all))
	for c := range g.all {
		clients = append(clients, c)
	}
	return clients
}
