package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/studyroom/internal/api/response"
	"github.com/mcoot/studyroom/internal/model"
)

// ConnectionCounter reports live connections
type ConnectionCounter interface {
	ConnectionCount() int
}

// RoomLister lists live rooms
type RoomLister interface {
	List(ctx context.Context) ([]model.RoomSummary, error)
}

// StatsHandler reports server occupancy
type StatsHandler struct {
	rooms         RoomLister
	connections   ConnectionCounter
	tickAuthority string
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(rooms RoomLister, connections ConnectionCounter, tickAuthority string) *StatsHandler {
	return &StatsHandler{
		rooms:         rooms,
		connections:   connections,
		tickAuthority: tickAuthority,
	}
}

// Get handles GET /api/v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.rooms.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	stats := response.Stats{
		Rooms:         len(summaries),
		TickAuthority: h.tickAuthority,
	}
	if h.connections != nil {
		stats.Connections = h.connections.ConnectionCount()
	}
	for _, s := range summaries {
		stats.Members += s.MemberCount
		if s.IsRunning {
			stats.RunningTimers++
		}
	}

	response.JSON(w, http.StatusOK, stats)
}
