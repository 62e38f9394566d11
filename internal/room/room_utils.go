package room

import (
	"context"
	"ctchen222/nogo-server/internal/events"
	"ctchen222/nogo-server/internal/player"
	"ctchen222/nogo-server/pkg/proto"
	"log/slog"
)

// recentMessages keeps the last capacity chat messages, oldest first.
type recentMessages struct {
	capacity int
	msgs     []proto.Message
}

func newRecentMessages(capacity int) *recentMessages {
	return &recentMessages{capacity: capacity, msgs: make([]proto.Message, 0, capacity)}
}

func (q *recentMessages) Push(msg proto.Message) {
	if len(q.msgs) == q.capacity {
		copy(q.msgs, q.msgs[1:])
		q.msgs = q.msgs[:len(q.msgs)-1]
	}
	q.msgs = append(q.msgs, msg)
}

func (q *recentMessages) All() []proto.Message {
	return append([]proto.Message(nil), q.msgs...)
}

func (q *recentMessages) Len() int {
	return len(q.msgs)
}

type sessionIdentifier interface {
	ID() string
}

func sessionID(p player.Participant) string {
	if s, ok := p.(sessionIdentifier); ok {
		return s.ID()
	}
	return ""
}

// join adds p to the broadcast set and replays the recent chat history.
func (r *Room) join(ctx context.Context, p player.Participant) {
	if _, ok := r.participants[p]; ok {
		return
	}
	r.participants[p] = struct{}{}
	for _, msg := range r.recent.All() {
		p.Deliver(msg)
	}
	r.metrics.sessionJoined(ctx)

	slog.InfoContext(ctx, "Participant joined", "room.port", r.Port, "participant.endpoint", p.Endpoint(), "session.id", sessionID(p))
	r.emit(ctx, events.ParticipantJoined, events.ParticipantPayload{SessionID: sessionID(p), Endpoint: p.Endpoint()})
}

// leave removes p from the broadcast set. The match is left as it is.
func (r *Room) leave(ctx context.Context, p player.Participant) {
	if _, ok := r.participants[p]; !ok {
		return
	}
	delete(r.participants, p)
	r.metrics.sessionLeft(ctx)

	slog.InfoContext(ctx, "Participant left", "room.port", r.Port, "participant.endpoint", p.Endpoint(), "session.id", sessionID(p))
	r.emit(ctx, events.ParticipantLeft, events.ParticipantPayload{SessionID: sessionID(p), Endpoint: p.Endpoint()})
}

// broadcast delivers msg to every participant except sender.
func (r *Room) broadcast(msg proto.Message, sender player.Participant) {
	for p := range r.participants {
		if p != sender {
			p.Deliver(msg)
		}
	}
}

// emit publishes a room event. Failures are logged and otherwise ignored.
func (r *Room) emit(ctx context.Context, typ events.Type, payload any) {
	event, err := events.New(r.Port, typ, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build event", "event.type", typ, "error", err)
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish event", "event.type", typ, "room.port", r.Port, "error", err)
	}
}
