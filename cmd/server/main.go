package main

import (
	"context"
	"ctchen222/nogo-server/internal/config"
	"ctchen222/nogo-server/internal/db"
	"ctchen222/nogo-server/internal/events"
	"ctchen222/nogo-server/internal/hub"
	"ctchen222/nogo-server/internal/logger"
	"ctchen222/nogo-server/internal/room"
	"ctchen222/nogo-server/internal/server"
	"ctchen222/nogo-server/internal/telemetry"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

const eventQueueSize = 1024

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ApplyArgs(os.Args[1:]); err != nil {
		log.Fatalf("usage: %s [port...]: %v", os.Args[0], err)
	}

	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Telemetry.CollectorAddr)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server exiting")
}

func run(ctx context.Context, cfg *config.Config) error {
	h := hub.NewHub()

	// Event sinks
	var rdb *redis.Client
	var sinks events.Multi
	if cfg.Redis.Addr != "" {
		client, err := db.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		rdb = client
		defer rdb.Close()
		sinks = append(sinks, events.NewRedisPublisher(rdb, cfg.Redis.EventsChannel))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("failed to initialize kafka: %w", err)
		}
		sinks = append(sinks, kafka)
	}

	var publisher events.Publisher = events.Nop{}
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	var dispatcher *events.Dispatcher
	if len(sinks) > 0 {
		dispatcher = events.NewDispatcher(sinks, eventQueueSize)
		go dispatcher.Run(dispatchCtx)
		publisher = dispatcher
	}

	// Bind every port before serving anything so that a bad port fails fast.
	listeners := make([]net.Listener, 0, len(cfg.Game.Ports))
	for _, port := range cfg.Game.Ports {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			closeListeners(listeners)
			return fmt.Errorf("failed to listen on port %d: %w", port, err)
		}
		listeners = append(listeners, ln)
	}

	g, gctx := errgroup.WithContext(ctx)
	var rooms []*room.Room
	for i, ln := range listeners {
		r := room.New(room.Config{
			Port:        cfg.Game.Ports[i],
			Local:       i == 0,
			TurnTimeout: cfg.Game.TurnTimeout,
			Publisher:   publisher,
		})
		if err := h.Register(r); err != nil {
			closeListeners(listeners)
			return err
		}
		rooms = append(rooms, r)

		go r.Run(gctx)
		g.Go(func() error {
			return server.Serve(gctx, ln, r, cfg.Game.MaxLineBytes)
		})
	}

	if rdb != nil {
		go h.RunEventSubscriber(gctx, rdb, cfg.Redis.EventsChannel)
	}

	if cfg.HTTP.Enabled() {
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: server.NewServer(gctx, h, cfg.Game.MaxLineBytes).Engine(),
		}
		g.Go(func() error {
			slog.Info("http server started", "addr", cfg.HTTP.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ListenAndServe: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	slog.Info("Server started", "ports", cfg.Game.Ports, "local.port", cfg.Game.Ports[0], "turn.timeout", cfg.Game.TurnTimeout)
	<-gctx.Done()
	slog.Info("Shutting down server...")

	err := g.Wait()
	for _, r := range rooms {
		<-r.Done()
	}

	if dispatcher != nil {
		stopDispatch()
		<-dispatcher.Done()
		if cerr := dispatcher.Close(); cerr != nil {
			slog.Warn("Failed to close event publishers", "error", cerr)
		}
	}
	return err
}

func closeListeners(listeners []net.Listener) {
	for _, l := range listeners {
		if err := l.Close(); err != nil {
			slog.Warn("Failed to close listener", "addr", l.Addr().String(), "error", err)
		}
	}
}
