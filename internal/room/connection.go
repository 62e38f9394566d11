package room

import (
	"context"
	"ctchen222/nogo-server/internal/transport"
	"ctchen222/nogo-server/pkg/proto"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Session is one connected peer of a room. It owns the connection: a read
// pump feeds decoded lines to the room and a write pump drains the outbound
// queue in order.
type Session struct {
	id   string
	conn transport.Conn
	room *Room

	mu     sync.Mutex
	queue  []proto.Message
	wake   chan struct{}
	closed bool

	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
	done     chan struct{}
}

// NewSession binds conn to r. Start must be called to begin serving it.
func NewSession(conn transport.Conn, r *Room) *Session {
	return &Session{
		id:      uuid.NewString(),
		conn:    conn,
		room:    r,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ID is a unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) Endpoint() string {
	return s.conn.RemoteAddr()
}

func (s *Session) Local() bool {
	return s.room.Local()
}

// Start joins the room and starts both pumps.
func (s *Session) Start(ctx context.Context) error {
	if err := s.room.Join(ctx, s); err != nil {
		s.Stop()
		close(s.done)
		return err
	}

	s.wg.Add(2)
	go s.readPump(ctx)
	go s.writePump(ctx)
	go func() {
		s.wg.Wait()
		close(s.done)
	}()
	return nil
}

// Done is closed once both pumps have returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Deliver queues msg for sending. Messages delivered after Stop are dropped.
func (s *Session) Deliver(msg proto.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop closes the connection and releases both pumps.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()

		close(s.stopped)
		if err := s.conn.Close(); err != nil {
			slog.Debug("Error closing session connection", "session.id", s.id, "error", err)
		}
	})
}

// readPump pumps lines from the connection into the room.
func (s *Session) readPump(ctx context.Context) {
	defer s.wg.Done()
	ctx, span := tracer.Start(ctx, "session.readPump", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("participant.endpoint", s.Endpoint()),
		attribute.Int("room.port", s.room.Port),
	))
	defer span.End()

	defer func() {
		s.room.Leave(s)
		s.Stop()
		slog.InfoContext(ctx, "Session disconnected", "session.id", s.id, "participant.endpoint", s.Endpoint())
	}()

	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			if isClosed(err) {
				return
			}
			slog.WarnContext(ctx, "Session connection error", "session.id", s.id, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Session connection error")
			return
		}

		msg, err := proto.Decode(line)
		if err != nil {
			slog.WarnContext(ctx, "Dropping session after bad message", "session.id", s.id, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Protocol violation")
			return
		}

		if err := s.room.Submit(ctx, s, msg); err != nil {
			slog.DebugContext(ctx, "Room no longer accepts messages", "session.id", s.id, "error", err)
			return
		}
	}
}

// writePump sends queued messages in order until the session stops.
func (s *Session) writePump(ctx context.Context) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.stopped:
				return
			}
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		data, err := msg.Encode()
		if err != nil {
			slog.ErrorContext(ctx, "Failed to encode message", "session.id", s.id, "message.op", msg.Op.String(), "error", err)
			continue
		}
		if err := s.conn.WriteLine(data); err != nil {
			if !isClosed(err) {
				slog.WarnContext(ctx, "Failed to write to session", "session.id", s.id, "error", err)
			}
			s.Stop()
			return
		}
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
