// Package hub keeps track of the rooms served by this process and of the
// room events seen on the shared events channel.
package hub

import (
	"context"
	"ctchen222/nogo-server/internal/events"
	"ctchen222/nogo-server/internal/room"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
)

const maxRecentEvents = 200

var tracer = otel.Tracer("hub")

var (
	ErrDuplicatePort = errors.New("room already registered on port")
	ErrUnknownRoom   = errors.New("unknown room")
)

// Hub is a registry of rooms keyed by port.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int]*room.Room
	feed  *eventFeed
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[int]*room.Room),
		feed:  newEventFeed(maxRecentEvents),
	}
}

// Register adds r to the hub.
func (h *Hub) Register(r *room.Room) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[r.Port]; ok {
		return fmt.Errorf("%w %d", ErrDuplicatePort, r.Port)
	}
	h.rooms[r.Port] = r
	slog.Info("Room registered", "room.port", r.Port, "room.local", r.Local())
	return nil
}

// Room returns the room bound to port.
func (h *Hub) Room(port int) (*room.Room, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[port]
	if !ok {
		return nil, fmt.Errorf("%w on port %d", ErrUnknownRoom, port)
	}
	return r, nil
}

// Rooms returns every registered room ordered by port.
func (h *Hub) Rooms() []*room.Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]*room.Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Port < rooms[j].Port })
	return rooms
}

// Summaries snapshots every running room. Rooms that have shut down are
// skipped.
func (h *Hub) Summaries(ctx context.Context) ([]room.Summary, error) {
	var summaries []room.Summary
	for _, r := range h.Rooms() {
		s, err := r.Summary(ctx)
		if errors.Is(err, room.ErrClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// RecentEvents returns the events observed on the events channel, oldest
// first.
func (h *Hub) RecentEvents() []events.Event {
	return h.feed.All()
}
