package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

const DefaultCapacityWarnRatio = 0.8

// ChannelCapacityWorker periodically samples the fill level of buffered
// channels, the room mailboxes. Reading len and cap is non-blocking, so this
// won't interfere with the actors draining them.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	sample         func() []observability.ChannelCapacity
	monitoring     *observability.MonitoringManager
	metricInterval time.Duration
	warnRatio      float64
}

func NewChannelCapacityWorker(log *slog.Logger,
	sample func() []observability.ChannelCapacity, monitoring *observability.MonitoringManager,
	metricInterval time.Duration) *ChannelCapacityWorker {
	if metricInterval <= 0 {
		metricInterval = DefaultMetricInterval
	}
	return &ChannelCapacityWorker{
		log:            log,
		sample:         sample,
		monitoring:     monitoring,
		metricInterval: metricInterval,
		warnRatio:      DefaultCapacityWarnRatio,
	}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping capacity sampling")
			return nil
		case <-ticker.C:
			samples := w.sample()
			for _, sample := range samples {
				if sample.Capacity > 0 && float64(sample.Length) >= w.warnRatio*float64(sample.Capacity) {
					w.log.Warn("Mailbox almost full", "room", sample.Name,
						"length", sample.Length, "capacity", sample.Capacity)
				}
			}
			w.monitoring.RecordChannelCapacity(samples)
		}
	}
}
