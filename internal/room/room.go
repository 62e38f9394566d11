package room

import (
	"context"
	"ctchen222/nogo-server/internal/events"
	"ctchen222/nogo-server/internal/match"
	"ctchen222/nogo-server/internal/player"
	"ctchen222/nogo-server/pkg/proto"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
)

const (
	maxRecentMessages  = 100
	DefaultTurnTimeout = 30 * time.Second
	inboundBuffer      = 64
)

var tracer = otel.Tracer("room")

var ErrClosed = errors.New("room closed")

// Config configures a Room.
type Config struct {
	Port        int
	Local       bool
	TurnTimeout time.Duration
	Publisher   events.Publisher
}

type envelope struct {
	from player.Participant
	msg  proto.Message
}

// Room hosts one match and its participants on one listening port. All room
// state is owned by the goroutine running Run; everything else talks to it
// through channels.
type Room struct {
	Port        int
	local       bool
	turnTimeout time.Duration
	publisher   events.Publisher
	metrics     *metrics

	match        *match.Match
	participants map[player.Participant]struct{}
	recent       *recentMessages

	turnTimer   *time.Timer
	turnTimerC  <-chan time.Time
	timedPlayer player.Player

	inbound chan envelope
	joins   chan player.Participant
	leaves  chan player.Participant
	queries chan func()
	done    chan struct{}
}

// New creates a room. Run must be called for it to process anything.
func New(cfg Config) *Room {
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultTurnTimeout
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	return &Room{
		Port:         cfg.Port,
		local:        cfg.Local,
		turnTimeout:  cfg.TurnTimeout,
		publisher:    cfg.Publisher,
		metrics:      newMetrics(),
		match:        match.New(),
		participants: make(map[player.Participant]struct{}),
		recent:       newRecentMessages(maxRecentMessages),
		inbound:      make(chan envelope, inboundBuffer),
		joins:        make(chan player.Participant),
		leaves:       make(chan player.Participant),
		queries:      make(chan func()),
		done:         make(chan struct{}),
	}
}

// Local reports whether the room runs in local mode.
func (r *Room) Local() bool {
	return r.local
}

// Done is closed once Run has returned.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Run is the main loop of the room. It returns when ctx is cancelled, after
// stopping every participant.
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	defer r.stopTurnTimer()

	slog.InfoContext(ctx, "Room started", "room.port", r.Port, "room.local", r.local)

	for {
		select {
		case <-ctx.Done():
			for p := range r.participants {
				p.Stop()
			}
			slog.Info("Room run goroutine stopping.", "room.port", r.Port)
			return

		case p := <-r.joins:
			r.join(ctx, p)

		case p := <-r.leaves:
			r.leave(ctx, p)

		case env := <-r.inbound:
			if _, ok := r.participants[env.from]; !ok {
				slog.DebugContext(ctx, "Ignoring message from departed participant", "room.port", r.Port, "participant.endpoint", env.from.Endpoint())
				continue
			}
			if err := r.handleMessage(ctx, env.from, env.msg); err != nil {
				slog.WarnContext(ctx, "Terminating participant", "room.port", r.Port, "participant.endpoint", env.from.Endpoint(), "message.op", env.msg.Op.String(), "error", err)
				r.leave(ctx, env.from)
				env.from.Stop()
			}

		case <-r.turnTimerC:
			r.handleTurnTimeout(ctx)

		case query := <-r.queries:
			query()
		}
	}
}

// Join registers p with the room.
func (r *Room) Join(ctx context.Context, p player.Participant) error {
	select {
	case r.joins <- p:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave removes p from the room. Leaving twice is harmless.
func (r *Room) Leave(p player.Participant) {
	select {
	case r.leaves <- p:
	case <-r.done:
	}
}

// Submit hands a decoded message from p to the room's dispatch.
func (r *Room) Submit(ctx context.Context, p player.Participant, msg proto.Message) error {
	select {
	case r.inbound <- envelope{from: p, msg: msg}:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Summary describes the room for observers.
type Summary struct {
	Port         int             `json:"port"`
	Mode         string          `json:"mode"`
	Participants int             `json:"participants"`
	Status       string          `json:"status"`
	Turn         string          `json:"turn"`
	Round        int             `json:"round"`
	Players      []PlayerSummary `json:"players"`
	Winner       string          `json:"winner,omitempty"`
	WinType      string          `json:"win_type,omitempty"`
	Record       string          `json:"record,omitempty"`
	RecentChats  int             `json:"recent_chats"`
}

type PlayerSummary struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Endpoint string `json:"endpoint"`
}

// Summary snapshots the room state from inside the run loop.
func (r *Room) Summary(ctx context.Context) (Summary, error) {
	result := make(chan Summary, 1)
	query := func() { result <- r.summary() }

	select {
	case r.queries <- query:
	case <-r.done:
		return Summary{}, ErrClosed
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
	return <-result, nil
}

func (r *Room) summary() Summary {
	mode := "remote"
	if r.local {
		mode = "local"
	}
	s := Summary{
		Port:         r.Port,
		Mode:         mode,
		Participants: len(r.participants),
		Status:       r.match.Status().String(),
		Turn:         r.match.Current().Turn.String(),
		Round:        r.match.Round(),
		RecentChats:  r.recent.Len(),
	}
	for _, p := range r.match.Players() {
		s.Players = append(s.Players, PlayerSummary{Name: p.Name, Role: p.Role.String(), Endpoint: p.Endpoint()})
	}
	if r.match.Status() == match.GameOver {
		result := r.match.Result()
		s.Winner = result.Winner.String()
		s.WinType = result.Kind.String()
		s.Record = r.match.Encode()
	}
	return s
}
