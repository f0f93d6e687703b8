package timer

import (
	"sync"
	"time"

	"github.com/mcoot/studyroom/internal/dependencies/clock"
	"github.com/mcoot/studyroom/internal/model"
)

// DefaultTickInterval is how often server-driven timers advance
const DefaultTickInterval = time.Second

// Scheduler owns one ticker per server-driven room. Each tick calls post
// with the room and the generation of the ticker that fired; post is
// expected to hand both back to the single event loop. A tick whose
// generation is no longer current came from a ticker that has since been
// stopped or replaced and must be dropped.
type Scheduler struct {
	clock    clock.Clock
	interval time.Duration
	post     func(model.RoomID, uint64)

	mu         sync.Mutex
	rooms      map[model.RoomID]ticking
	generation uint64
	wg         sync.WaitGroup
}

type ticking struct {
	stop       chan struct{}
	generation uint64
}

// NewScheduler creates a Scheduler
func NewScheduler(clock clock.Clock, interval time.Duration, post func(model.RoomID, uint64)) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		clock:    clock,
		interval: interval,
		post:     post,
		rooms:    make(map[model.RoomID]ticking),
	}
}

// Start begins ticking a room, replacing any ticker it already has
func (s *Scheduler) Start(roomID model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.rooms[roomID]; ok {
		close(current.stop)
	}

	s.generation++
	t := ticking{stop: make(chan struct{}), generation: s.generation}
	s.rooms[roomID] = t

	ticker := s.clock.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.Chan():
				select {
				case <-t.stop:
					return
				default:
				}
				s.post(roomID, t.generation)
			}
		}
	}()
}

// Stop stops ticking a room. Stopping an idle room is a no-op.
func (s *Scheduler) Stop(roomID model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.rooms[roomID]; ok {
		close(current.stop)
		delete(s.rooms, roomID)
	}
}

// Running reports whether a room currently has a ticker
func (s *Scheduler) Running(roomID model.RoomID) bool {
	_, ok := s.Generation(roomID)
	return ok
}

// Generation returns the generation of a room's live ticker
func (s *Scheduler) Generation(roomID model.RoomID) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rooms[roomID]
	return t.generation, ok
}

// Current reports whether a tick posted with generation still belongs to
// the room's live ticker
func (s *Scheduler) Current(roomID model.RoomID, generation uint64) bool {
	live, ok := s.Generation(roomID)
	return ok && live == generation
}

// StopAll stops every ticker and waits for them to exit
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for roomID, t := range s.rooms {
		close(t.stop)
		delete(s.rooms, roomID)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
