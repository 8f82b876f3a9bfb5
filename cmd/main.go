package main

import (
	"chat-relay/contract"
	"chat-relay/infrastructure/websocket"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns their lifecycle, so deferred cleanup
// (badger above all) runs before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Supervision, rooms and telemetry
	monitoring := observability.NewMonitoringManager(log)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewMonitoringWorker(log, config.MetricInterval, monitoring))

	histories := repositories.NewHistoryRepository(db, log)
	resolver := runtime.NewResolver(log,
		func(room string) contract.HistoryStore { return histories.ForRoom(room) },
		sup, monitoring,
		runtime.RoomConfig{
			HistoryLimit: config.HistoryLimit,
			MailboxSize:  config.MailboxSize,
			IdleTimeout:  config.RoomIdleTimeout,
		})
	sup.Add(workers.NewChannelCapacityWorker(log, resolver.Mailboxes, monitoring, config.MetricInterval))

	supCtx, cancelSup := context.WithCancel(ctx)
	defer cancelSup()
	resolver.Start(supCtx)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(supCtx)
	}()

	// 5. WebSocket front door
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	handler := websocket.NewHandler(log, resolver, websocket.HandlerConfig{
		WriteTimeout: config.WriteTimeout,
		ReadLimit:    config.ReadLimit,
	})
	server := websocket.NewServer(handler)

	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting WebSocket server", "address", address, "at", time.Now().UTC())
		if err := server.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()

	// 6. Optional debug server
	var debugServer *http.Server
	if config.DebugPort > 0 {
		debugServer = internal.NewDebugServer(config.DebugPort, histories, func() map[string]any {
			return internal.StatsMap(monitoring.GetLatest())
		})
		go func() {
			log.Info("Starting debug server", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
			if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("debug server error: %w", err)
			}
		}()
	}

	// 7. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Server failed, shutting down", "error", runErr)
	}

	// 8. Final Cleanup: stop accepting, say goodbye to every client, then stop the actors
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("WebSocket server shutdown incomplete", "error", err)
	}
	resolver.Shutdown(contract.CloseGoingAway, "server shutting down")
	if debugServer != nil {
		_ = debugServer.Shutdown(shutdownCtx)
	}

	cancelSup()
	select {
	case <-supDone:
	case <-shutdownCtx.Done():
		log.Warn("Workers did not stop in time")
	}
	log.Info("Program stopped cleanly", "rooms", len(resolver.Rooms()))
	return runErr
}
