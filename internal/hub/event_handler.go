package hub

import (
	"context"
	"ctchen222/nogo-server/internal/events"
	"encoding/json"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunEventSubscriber follows the redis events channel until ctx is done and
// records every room event in the hub's feed. Events of every server
// publishing on the channel show up, not only those of this process.
func (h *Hub) RunEventSubscriber(ctx context.Context, rdb *redis.Client, channel string) {
	if channel == "" {
		channel = events.EventsChannel
	}
	slog.InfoContext(ctx, "Event subscriber started", "channel", channel)
	pubsub := rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Event subscriber stopping", "channel", channel)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleEvent(ctx, channel, msg.Payload)
		}
	}
}

func (h *Hub) handleEvent(ctx context.Context, channel, payload string) {
	ctx, span := tracer.Start(ctx, "hub.handleEvent", trace.WithAttributes(
		attribute.String("event.channel", channel),
	))
	defer span.End()

	var event events.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.ErrorContext(ctx, "Could not unmarshal room event", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not unmarshal room event")
		return
	}
	span.SetAttributes(
		attribute.String("event.type", string(event.Type)),
		attribute.Int("room.port", event.Port),
	)

	switch event.Type {
	case events.MatchOver:
		var over events.MatchOverPayload
		if err := json.Unmarshal(event.Payload, &over); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal match_over payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal match_over payload")
			return
		}
		slog.InfoContext(ctx, "Observed finished match", "room.port", event.Port, "winner", over.Winner, "win.type", over.WinType)
	default:
		slog.DebugContext(ctx, "Observed room event", "room.port", event.Port, "event.type", event.Type)
	}
	h.feed.Add(event)
}
