package server

import (
	"context"
	"ctchen222/nogo-server/internal/room"
	"ctchen222/nogo-server/internal/transport"
	"errors"
	"log/slog"
	"net"
)

// Serve accepts line protocol connections on ln and serves each one as a
// session of r. It returns nil once ctx is done.
func Serve(ctx context.Context, ln net.Listener, r *room.Room, maxLine int) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.InfoContext(ctx, "Accepting connections", "room.port", r.Port, "listen.addr", ln.Addr().String(), "room.local", r.Local())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				slog.Info("Accept loop stopped", "room.port", r.Port)
				return nil
			}
			slog.ErrorContext(ctx, "Accept failed", "room.port", r.Port, "error", err)
			return err
		}

		session := room.NewSession(transport.NewTCP(conn, maxLine), r)
		if err := session.Start(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to start session", "room.port", r.Port, "remote.addr", conn.RemoteAddr().String(), "error", err)
			continue
		}
		slog.InfoContext(ctx, "Session started", "room.port", r.Port, "session.id", session.ID(), "participant.endpoint", session.Endpoint())
	}
}
