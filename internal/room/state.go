package room

import (
	"context"
	"ctchen222/nogo-server/internal/events"
	"ctchen222/nogo-server/internal/game"
	"ctchen222/nogo-server/internal/match"
	"ctchen222/nogo-server/internal/player"
	"ctchen222/nogo-server/internal/uistate"
	"ctchen222/nogo-server/pkg/proto"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// armTurnTimer starts the clock for the player to move, replacing any
// running one.
func (r *Room) armTurnTimer(ctx context.Context) {
	r.stopTurnTimer()
	if r.match.Status() != match.OnGoing {
		return
	}
	mover, err := r.match.Player(r.match.Current().Turn, nil)
	if err != nil {
		slog.ErrorContext(ctx, "No player to time", "room.port", r.Port, "error", err)
		return
	}
	r.timedPlayer = mover
	r.turnTimer = time.NewTimer(r.turnTimeout)
	r.turnTimerC = r.turnTimer.C
}

// stopTurnTimer disarms the clock. A fire that has not been received yet is
// never observed because the channel is dropped with the timer.
func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
	}
	r.turnTimer = nil
	r.turnTimerC = nil
	r.timedPlayer = player.Player{}
}

// handleTurnTimeout ends the match against the player whose clock ran out.
func (r *Room) handleTurnTimeout(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "room.handleTurnTimeout", trace.WithAttributes(
		attribute.Int("room.port", r.Port),
	))
	defer span.End()

	timedOut := r.timedPlayer
	r.stopTurnTimer()

	if err := r.match.Timeout(timedOut); err != nil {
		slog.ErrorContext(ctx, "Turn timer fired on an illegal state", "room.port", r.Port, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Timeout rejected by match")
		return
	}

	slog.InfoContext(ctx, "Player timed out", "room.port", r.Port, "player.name", timedOut.Name, "player.role", timedOut.Role.String())
	if timedOut.Participant != nil {
		timedOut.Participant.Deliver(proto.NewMessage(proto.TimeoutEnd))
	}
	r.afterMutation(ctx, timedOut.Participant)
	r.matchOver(ctx)
}

// afterMutation pushes a fresh UI snapshot to local participants; remote
// participants learn about changes through relayed messages.
func (r *Room) afterMutation(ctx context.Context, p player.Participant) {
	if p == nil || !p.Local() {
		return
	}
	msg, err := uistate.Message(r.match, game.Black, r.turnTimeout, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to render ui state", "room.port", r.Port, "error", err)
		return
	}
	p.Deliver(msg)
}

func (r *Room) matchStarted(ctx context.Context) {
	payload := events.MatchStartedPayload{}
	if black, err := r.match.Player(game.Black, nil); err == nil {
		payload.Black = black.Name
	}
	if white, err := r.match.Player(game.White, nil); err == nil {
		payload.White = white.Name
	}
	slog.InfoContext(ctx, "Match started", "room.port", r.Port, "black", payload.Black, "white", payload.White)
	r.emit(ctx, events.MatchStarted, payload)
	r.armTurnTimer(ctx)
}

func (r *Room) matchOver(ctx context.Context) {
	result := r.match.Result()
	record := r.match.Encode()
	slog.InfoContext(ctx, "Match over", "room.port", r.Port, "winner", result.Winner.String(), "win.type", result.Kind.String(), "record", record)
	r.metrics.matchFinished(ctx, r.Port, result.Kind)
	r.emit(ctx, events.MatchOver, events.MatchOverPayload{
		Winner:  result.Winner.String(),
		WinType: result.Kind.String(),
		Record:  record,
	})
}

// resetForRematch clears a finished match so that a new one can be enrolled.
func (r *Room) resetForRematch(ctx context.Context) {
	if r.match.Status() != match.GameOver {
		return
	}
	r.match.Confirm()
	slog.InfoContext(ctx, "Resetting finished match", "room.port", r.Port, "record", r.match.Encode())
	r.match.Reset()
	r.stopTurnTimer()
}
