package room

import (
	"context"
	"ctchen222/nogo-server/internal/events"
	"ctchen222/nogo-server/internal/game"
	"ctchen222/nogo-server/internal/match"
	"ctchen222/nogo-server/internal/player"
	"ctchen222/nogo-server/pkg/proto"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// handleMessage dispatches one inbound message. A returned error means the
// sender broke the protocol or the match rules and must be disconnected; the
// match is left as it was before the message.
func (r *Room) handleMessage(ctx context.Context, p player.Participant, msg proto.Message) error {
	ctx, span := tracer.Start(ctx, "room.handleMessage", trace.WithAttributes(
		attribute.Int("room.port", r.Port),
		attribute.String("participant.endpoint", p.Endpoint()),
		attribute.String("message.op", msg.Op.String()),
	))
	defer span.End()

	var err error
	switch {
	case msg.Op.ServerOnly():
		err = fmt.Errorf("%w: %s is server-only", proto.ErrProtocolViolation, msg.Op)
	case msg.Op == proto.StartLocalGame:
		err = r.handleStartLocalGame(ctx, p)
	case msg.Op == proto.LocalGameTimeout:
		err = r.handleLocalGameTimeout(ctx, p, msg)
	case msg.Op == proto.Ready:
		err = r.handleReady(ctx, p, msg)
	case msg.Op == proto.Reject:
		err = r.handleReject(ctx, p, msg)
	case msg.Op == proto.Move:
		err = r.handleMove(ctx, p, msg)
	case msg.Op == proto.GiveUp:
		err = r.handleGiveUp(ctx, p, msg)
	case msg.Op == proto.Leave:
		slog.InfoContext(ctx, "Participant asked to leave", "room.port", r.Port, "participant.endpoint", p.Endpoint())
		r.leave(ctx, p)
		p.Stop()
	case msg.Op == proto.Chat:
		r.handleChat(ctx, p, msg)
	default:
		err = fmt.Errorf("%w: %s is not accepted from clients", proto.ErrProtocolViolation, msg.Op)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Message rejected")
	}
	return err
}

func (r *Room) handleStartLocalGame(ctx context.Context, p player.Participant) error {
	if !r.local || !p.Local() {
		return fmt.Errorf("%w: local game requested on a remote room", proto.ErrProtocolViolation)
	}

	r.resetForRematch(ctx)
	if _, err := r.match.Enroll(player.NewPlayer(p, game.Black.String(), game.Black, player.LocalHuman)); err != nil {
		return err
	}
	if _, err := r.match.Enroll(player.NewPlayer(p, game.White.String(), game.White, player.LocalHuman)); err != nil {
		return err
	}

	r.afterMutation(ctx, p)
	r.matchStarted(ctx)
	return nil
}

func (r *Room) handleLocalGameTimeout(ctx context.Context, p player.Participant, msg proto.Message) error {
	if !r.local || !p.Local() {
		return fmt.Errorf("%w: local timeout reported on a remote room", proto.ErrProtocolViolation)
	}

	timedOut, err := r.match.Player(game.ParseRole(msg.Data1), p)
	if err != nil {
		return err
	}
	if err := r.match.Timeout(timedOut); err != nil {
		return err
	}
	r.stopTurnTimer()

	slog.InfoContext(ctx, "Local player timed out", "room.port", r.Port, "player.role", timedOut.Role.String())
	r.afterMutation(ctx, p)
	r.matchOver(ctx)
	return nil
}

func (r *Room) handleReady(ctx context.Context, p player.Participant, msg proto.Message) error {
	if !player.IsValidName(msg.Data1) {
		return fmt.Errorf("%w: invalid player name %q", proto.ErrProtocolViolation, msg.Data1)
	}

	r.resetForRematch(ctx)
	kind := player.RemoteHuman
	if p.Local() {
		kind = player.LocalHuman
	} else if r.match.HasPlayer(game.None, p) {
		return fmt.Errorf("%w: %s is already enrolled", match.ErrRoster, p.Endpoint())
	}
	enrolled, err := r.match.Enroll(player.NewPlayer(p, msg.Data1, game.ParseRole(msg.Data2), kind))
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Player ready", "room.port", r.Port, "player.name", enrolled.Name, "player.role", enrolled.Role.String())

	r.broadcast(msg, p)
	r.afterMutation(ctx, p)
	if r.match.Status() == match.OnGoing {
		r.matchStarted(ctx)
	}
	return nil
}

func (r *Room) handleReject(ctx context.Context, p player.Participant, msg proto.Message) error {
	if err := r.match.Reject(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Match proposal rejected", "room.port", r.Port, "participant.endpoint", p.Endpoint())
	r.broadcast(msg, p)
	r.afterMutation(ctx, p)
	return nil
}

func (r *Room) handleMove(ctx context.Context, p player.Participant, msg proto.Message) error {
	ctx, span := tracer.Start(ctx, "room.handleMove", trace.WithAttributes(
		attribute.Int("room.port", r.Port),
		attribute.String("move.position", msg.Data1),
	))
	defer span.End()

	pos, err := game.ParsePosition(msg.Data1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad position")
		return fmt.Errorf("%w: %w", proto.ErrProtocolViolation, err)
	}
	elapsed, err := strconv.ParseUint(msg.Data2, 10, 64)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad elapsed time")
		return fmt.Errorf("%w: bad elapsed time %q", proto.ErrProtocolViolation, msg.Data2)
	}

	// A local participant holds both roles, so the mover is whoever's turn it is.
	role := game.None
	if p.Local() {
		role = r.match.Current().Turn
	}
	mover, err := r.match.Player(role, p)
	if err != nil {
		return err
	}
	if err := r.match.Play(mover, pos); err != nil {
		span.SetAttributes(attribute.Bool("move.valid", false))
		return err
	}
	span.SetAttributes(attribute.Bool("move.valid", true))
	r.stopTurnTimer()

	slog.InfoContext(ctx, "Move played", "room.port", r.Port, "player.name", mover.Name, "player.role", mover.Role.String(), "move.position", pos.String(), "move.elapsed_ms", elapsed)
	r.metrics.movePlayed(ctx, r.Port)
	r.broadcast(msg, p)
	r.afterMutation(ctx, p)
	r.emit(ctx, events.MovePlayed, events.MovePlayedPayload{
		Role:      mover.Role.String(),
		Position:  pos.String(),
		ElapsedMs: elapsed,
		Round:     r.match.Round(),
	})

	if r.match.Status() == match.GameOver {
		p.Deliver(proto.NewMessage(proto.SuicideEnd))
		r.matchOver(ctx)
		return nil
	}
	if r.match.ShouldGiveUp() {
		slog.InfoContext(ctx, "No legal move left for the next player", "room.port", r.Port, "player.role", r.match.Current().Turn.String())
	}
	r.armTurnTimer(ctx)
	return nil
}

func (r *Room) handleGiveUp(ctx context.Context, p player.Participant, msg proto.Message) error {
	role := game.ParseRole(msg.Data2)
	if role == game.None && p.Local() {
		role = r.match.Current().Turn
	}
	conceding, err := r.match.Player(role, p)
	if err != nil {
		return err
	}
	if err := r.match.Concede(conceding); err != nil {
		return err
	}
	r.stopTurnTimer()

	slog.InfoContext(ctx, "Player gave up", "room.port", r.Port, "player.name", conceding.Name, "player.role", conceding.Role.String())
	if opponent, err := r.match.Player(conceding.Role.Opponent(), nil); err == nil && !player.SameParticipant(opponent.Participant, p) {
		opponent.Participant.Deliver(proto.NewMessage(proto.GiveUpEnd))
	}
	r.afterMutation(ctx, p)
	r.matchOver(ctx)
	return nil
}

func (r *Room) handleChat(ctx context.Context, p player.Participant, msg proto.Message) {
	r.recent.Push(msg)
	r.broadcast(msg, p)
	r.metrics.chatRelayed(ctx)
	r.emit(ctx, events.ChatPosted, events.ChatPayload{Endpoint: p.Endpoint(), Text: msg.Data1})
}
