package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitoringWorker_Refreshes_Stats_Until_Canceled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoringManager(log)
	worker := NewMonitoringWorker(log, 5*time.Millisecond, monitoring)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// When counters move between two ticks
	monitoring.IncrSessionsReaped()
	monitoring.IncrPersistFailures()

	// Then the snapshot eventually reflects them
	req.Eventually(func() bool {
		stats := monitoring.GetLatest()
		return stats.SessionsReaped == 1 && stats.PersistFailures == 1
	}, time.Second, 5*time.Millisecond)
	req.NotEmpty(monitoring.GetLatest().UpdatedAt)
	req.Positive(monitoring.GetLatest().Goroutines)

	// And the worker returns cleanly once canceled, so it is never restarted
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("monitoring worker did not stop")
	}
}
