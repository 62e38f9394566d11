// Package server exposes rooms to clients: a line protocol listener per
// room, and an HTTP surface for status queries and websocket clients.
package server

import (
	"context"
	"ctchen222/nogo-server/internal/api/response"
	"ctchen222/nogo-server/internal/hub"
	"ctchen222/nogo-server/internal/room"
	"ctchen222/nogo-server/internal/transport"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

type roomURI struct {
	Port int `uri:"port" binding:"required,min=1,max=65535"`
}

// Server is the HTTP surface of the game server.
type Server struct {
	ctx      context.Context
	hub      *hub.Hub
	maxLine  int
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

// NewServer builds the HTTP surface over h. Websocket sessions live until
// ctx is done or the peer goes away.
func NewServer(ctx context.Context, h *hub.Hub, maxLine int) *Server {
	s := &Server{
		ctx:     ctx,
		hub:     h,
		maxLine: maxLine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), response.ErrorHandler())
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/events", s.handleEvents)
	engine.GET("/rooms", s.handleRooms)
	engine.GET("/rooms/:port", s.handleRoom)
	engine.GET("/rooms/:port/ws", s.handleWebSocket)
	s.engine = engine
	return s
}

// Engine returns the instrumented HTTP handler.
func (s *Server) Engine() http.Handler {
	return otelhttp.NewHandler(s.engine, "nogo-server")
}

func (s *Server) handleHealth(c *gin.Context) {
	response.SuccessResponseContent(c, "ok")
}

func (s *Server) handleEvents(c *gin.Context) {
	response.SuccessResponse(c, gin.H{"events": s.hub.RecentEvents()})
}

func (s *Server) handleRooms(c *gin.Context) {
	summaries, err := s.hub.Summaries(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.SuccessResponse(c, gin.H{"rooms": summaries})
}

func (s *Server) handleRoom(c *gin.Context) {
	r, ok := s.lookupRoom(c)
	if !ok {
		return
	}
	summary, err := r.Summary(c.Request.Context())
	if errors.Is(err, room.ErrClosed) {
		c.Error(response.NewError(false, http.StatusServiceUnavailable, err.Error()))
		return
	}
	if err != nil {
		c.Error(err)
		return
	}
	response.SuccessResponse(c, summary)
}

// handleWebSocket upgrades the connection and serves it as a session of the
// room on the requested port.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("http.method", c.Request.Method),
	))
	defer span.End()

	r, ok := s.lookupRoom(c)
	if !ok {
		span.SetStatus(codes.Error, "Unknown room")
		return
	}
	span.SetAttributes(attribute.Int("room.port", r.Port))

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	session := room.NewSession(transport.NewWebSocket(conn, s.maxLine), r)
	if err := session.Start(s.ctx); err != nil {
		slog.WarnContext(ctx, "Failed to start websocket session", "room.port", r.Port, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to start session")
		return
	}
	slog.InfoContext(ctx, "Websocket session started", "room.port", r.Port, "session.id", session.ID())
}

func (s *Server) lookupRoom(c *gin.Context) (*room.Room, bool) {
	var uri roomURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.Error(response.NewError(false, http.StatusBadRequest, fmt.Sprintf("invalid port %q", c.Param("port"))))
		return nil, false
	}
	r, err := s.hub.Room(uri.Port)
	if err != nil {
		c.Error(response.NewError(false, http.StatusNotFound, err.Error()))
		return nil, false
	}
	return r, true
}
