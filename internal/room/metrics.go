package room

import (
	"context"
	"ctchen222/nogo-server/internal/match"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("room")

type metrics struct {
	moves    metric.Int64Counter
	finished metric.Int64Counter
	sessions metric.Int64UpDownCounter
	chats    metric.Int64Counter
}

func newMetrics() *metrics {
	m := &metrics{}
	var err error
	if m.moves, err = meter.Int64Counter("nogo.moves", metric.WithDescription("Stones placed")); err != nil {
		slog.Error("Failed to create moves counter", "error", err)
	}
	if m.finished, err = meter.Int64Counter("nogo.matches.finished", metric.WithDescription("Matches that reached GAME_OVER")); err != nil {
		slog.Error("Failed to create finished matches counter", "error", err)
	}
	if m.sessions, err = meter.Int64UpDownCounter("nogo.sessions.active", metric.WithDescription("Participants joined to a room")); err != nil {
		slog.Error("Failed to create sessions counter", "error", err)
	}
	if m.chats, err = meter.Int64Counter("nogo.chat.messages", metric.WithDescription("Chat messages relayed")); err != nil {
		slog.Error("Failed to create chat counter", "error", err)
	}
	return m
}

func (m *metrics) movePlayed(ctx context.Context, port int) {
	if m.moves != nil {
		m.moves.Add(ctx, 1, metric.WithAttributes(attribute.Int("room.port", port)))
	}
}

func (m *metrics) matchFinished(ctx context.Context, port int, kind match.WinKind) {
	if m.finished != nil {
		m.finished.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("room.port", port),
			attribute.String("win.type", kind.String()),
		))
	}
}

func (m *metrics) sessionJoined(ctx context.Context) {
	if m.sessions != nil {
		m.sessions.Add(ctx, 1)
	}
}

func (m *metrics) sessionLeft(ctx context.Context) {
	if m.sessions != nil {
		m.sessions.Add(ctx, -1)
	}
}

func (m *metrics) chatRelayed(ctx context.Context) {
	if m.chats != nil {
		m.chats.Add(ctx, 1)
	}
}
