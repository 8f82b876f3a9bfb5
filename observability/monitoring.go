package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// MonitoringStats aggregates the relay metrics exposed by the debug server.
type MonitoringStats struct {
	// --- RELAY METRICS ---
	ConnectionsAccepted uint64  `json:"connections_accepted"`
	ConnectionsClosed   uint64  `json:"connections_closed"`
	MessagesBroadcast   uint64  `json:"messages_broadcast"`
	MessagesPersisted   uint64  `json:"messages_persisted"`
	PersistFailures     uint64  `json:"persist_failures"`
	HistoryFailures     uint64  `json:"history_failures"`
	ValidationFailures  uint64  `json:"validation_failures"`
	SessionsReaped      uint64  `json:"sessions_reaped"`
	ActorStarts         uint64  `json:"actor_starts"`
	MessagesPerSecond   float64 `json:"messages_per_second"`

	// --- MAILBOX METRICS ---
	FullestMailbox         string `json:"fullest_mailbox"`
	FullestMailboxLength   int    `json:"fullest_mailbox_length"`
	FullestMailboxCapacity int    `json:"fullest_mailbox_capacity"`

	// --- SYSTEM METRICS ---
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
	RssBytes   uint64  `json:"rss_bytes"`
	CpuPercent float64 `json:"cpu_percent"`
	UpdatedAt  string  `json:"updated_at"`
}

// ChannelCapacity is one sample of a buffered channel fill level.
type ChannelCapacity struct {
	Name     string
	Length   int
	Capacity int
}

// MonitoringManager collects the relay telemetry in real time.
// Counters are updated atomically from any goroutine.
type MonitoringManager struct {
	log         *slog.Logger
	mu          sync.RWMutex
	latestStats MonitoringStats
	proc        *process.Process

	ConnectionsAccepted uint64
	ConnectionsClosed   uint64
	MessagesBroadcast   uint64
	MessagesPersisted   uint64
	PersistFailures     uint64
	HistoryFailures     uint64
	ValidationFailures  uint64
	SessionsReaped      uint64
	ActorStarts         uint64

	lastBroadcast uint64
	LastCheck     time.Time
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	mm := &MonitoringManager{log: log, LastCheck: time.Now()}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process metrics unavailable", "error", err)
	} else {
		mm.proc = p
	}
	return mm
}

func (mm *MonitoringManager) IncrConnectionsAccepted() { atomic.AddUint64(&mm.ConnectionsAccepted, 1) }
func (mm *MonitoringManager) IncrConnectionsClosed()   { atomic.AddUint64(&mm.ConnectionsClosed, 1) }
func (mm *MonitoringManager) IncrMessagesBroadcast()   { atomic.AddUint64(&mm.MessagesBroadcast, 1) }
func (mm *MonitoringManager) IncrMessagesPersisted()   { atomic.AddUint64(&mm.MessagesPersisted, 1) }
func (mm *MonitoringManager) IncrPersistFailures()     { atomic.AddUint64(&mm.PersistFailures, 1) }
func (mm *MonitoringManager) IncrHistoryFailures()     { atomic.AddUint64(&mm.HistoryFailures, 1) }
func (mm *MonitoringManager) IncrValidationFailures()  { atomic.AddUint64(&mm.ValidationFailures, 1) }
func (mm *MonitoringManager) IncrSessionsReaped()      { atomic.AddUint64(&mm.SessionsReaped, 1) }
func (mm *MonitoringManager) IncrActorStarts()         { atomic.AddUint64(&mm.ActorStarts, 1) }

// UpdateStats recomputes the snapshot returned by GetLatest.
func (mm *MonitoringManager) UpdateStats() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	now := time.Now()
	broadcast := atomic.LoadUint64(&mm.MessagesBroadcast)
	if duration := now.Sub(mm.LastCheck).Seconds(); duration > 0 {
		mm.latestStats.MessagesPerSecond = float64(broadcast-mm.lastBroadcast) / duration
	}
	mm.lastBroadcast = broadcast
	mm.LastCheck = now

	mm.latestStats.ConnectionsAccepted = atomic.LoadUint64(&mm.ConnectionsAccepted)
	mm.latestStats.ConnectionsClosed = atomic.LoadUint64(&mm.ConnectionsClosed)
	mm.latestStats.MessagesBroadcast = broadcast
	mm.latestStats.MessagesPersisted = atomic.LoadUint64(&mm.MessagesPersisted)
	mm.latestStats.PersistFailures = atomic.LoadUint64(&mm.PersistFailures)
	mm.latestStats.HistoryFailures = atomic.LoadUint64(&mm.HistoryFailures)
	mm.latestStats.ValidationFailures = atomic.LoadUint64(&mm.ValidationFailures)
	mm.latestStats.SessionsReaped = atomic.LoadUint64(&mm.SessionsReaped)
	mm.latestStats.ActorStarts = atomic.LoadUint64(&mm.ActorStarts)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.latestStats.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latestStats.NumGC = m.NumGC
	mm.latestStats.Goroutines = runtime.NumGoroutine()

	if mm.proc != nil {
		if memInfo, err := mm.proc.MemoryInfo(); err == nil {
			mm.latestStats.RssBytes = memInfo.RSS
		}
		if cpuPercent, err := mm.proc.CPUPercent(); err == nil {
			mm.latestStats.CpuPercent = cpuPercent
		}
	}
	mm.latestStats.UpdatedAt = now.UTC().Format(time.RFC3339)

	mm.log.Debug("Stats updated",
		"messages_broadcast", mm.latestStats.MessagesBroadcast,
		"persist_failures", mm.latestStats.PersistFailures,
		"sessions_reaped", mm.latestStats.SessionsReaped,
		"mem_mb", mm.latestStats.AllocMemMb,
	)
}

// RecordChannelCapacity keeps the fullest channel of the latest sampling round.
func (mm *MonitoringManager) RecordChannelCapacity(samples []ChannelCapacity) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	var fullest ChannelCapacity
	for _, sample := range samples {
		if sample.Length > fullest.Length || fullest.Name == "" {
			fullest = sample
		}
	}
	mm.latestStats.FullestMailbox = fullest.Name
	mm.latestStats.FullestMailboxLength = fullest.Length
	mm.latestStats.FullestMailboxCapacity = fullest.Capacity
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
