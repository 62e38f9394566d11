package hub

import (
	"ctchen222/nogo-server/internal/events"
	"sync"
)

// eventFeed is a bounded, concurrency safe log of recent events.
type eventFeed struct {
	mu       sync.Mutex
	capacity int
	events   []events.Event
}

func newEventFeed(capacity int) *eventFeed {
	return &eventFeed{capacity: capacity}
}

func (f *eventFeed) Add(e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	if over := len(f.events) - f.capacity; over > 0 {
		f.events = append([]events.Event(nil), f.events[over:]...)
	}
}

func (f *eventFeed) All() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Event(nil), f.events...)
}
