package main

import (
	"chat-relay/internal"
	"chat-relay/repositories"
	"fmt"
	"log"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// The viewer serves the history inspector over a badger directory without
// running the relay, e.g. on a copy of a production database.
func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if config.DebugPort <= 0 {
		log.Fatalf("DEBUG_PORT must be set for the viewer")
	}

	// 2. Open Badger in Read-Only mode
	// BypassLockGuard allows opening while a running relay holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Serve the inspector only
	stats := func() map[string]any {
		return map[string]any{
			"status": "Viewer Mode (Read-Only)",
			"time":   time.Now().Format(time.RFC822),
		}
	}
	histories := repositories.NewHistoryRepository(db, logs.GetLoggerFromString(config.LogLevel))
	server := internal.NewDebugServer(config.DebugPort, histories, stats)

	fmt.Printf("Viewer started at http://localhost:%d/inspect\n", config.DebugPort)
	if err := server.ListenAndServe(); err != nil {
		log.Printf("Viewer stopped: %v", err)
	}
}
