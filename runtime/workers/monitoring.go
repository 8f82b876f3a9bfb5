package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

const DefaultMetricInterval = 5 * time.Second

// MonitoringWorker refreshes the monitoring snapshot at a fixed interval.
type MonitoringWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	monitoring     *observability.MonitoringManager
}

func NewMonitoringWorker(log *slog.Logger, metricInterval time.Duration,
	monitoring *observability.MonitoringManager) *MonitoringWorker {
	if metricInterval <= 0 {
		metricInterval = DefaultMetricInterval
	}
	return &MonitoringWorker{
		log:            log,
		metricInterval: metricInterval,
		monitoring:     monitoring,
	}
}

func (w *MonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	w.monitoring.UpdateStats()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping monitoring worker")
			return nil
		case <-ticker.C:
			w.monitoring.UpdateStats()
		}
	}
}
