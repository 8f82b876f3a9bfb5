// Package runtime hosts the room actors and the directory resolving them.
// It orchestrates delivery and persistence without containing message rules.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// HistoryPartitioner returns the history store partition of a room.
type HistoryPartitioner func(room string) contract.HistoryStore

// Resolver is the process-wide directory of rooms: the same name always
// resolves to the same Room. Room actors run under the supervisor, which
// restarts them after a panic.
type Resolver struct {
	mu         sync.Mutex
	log        *slog.Logger
	ctx        context.Context
	histories  HistoryPartitioner
	supervisor contract.ISupervisor
	monitoring *observability.MonitoringManager
	config     RoomConfig
	rooms      map[string]*Room
}

func NewResolver(log *slog.Logger, histories HistoryPartitioner, supervisor contract.ISupervisor,
	monitoring *observability.MonitoringManager, config RoomConfig) *Resolver {
	return &Resolver{
		log:        log,
		histories:  histories,
		supervisor: supervisor,
		monitoring: monitoring,
		config:     config,
		rooms:      make(map[string]*Room),
	}
}

// Start binds the lifetime of every room actor to ctx.
func (r *Resolver) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
}

// Resolve returns the room named name, creating it if absent.
func (r *Resolver) Resolve(name string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx == nil {
		return nil, errors.ErrResolverNotStarted
	}
	if room, ok := r.rooms[name]; ok {
		return room, nil
	}
	ctx := r.ctx
	room := NewRoom(ctx, name, r.log, r.histories(name), r.monitoring, r.config, func(room *Room) {
		r.supervisor.Start(ctx, room)
	})
	r.rooms[name] = room
	r.log.Info(fmt.Sprintf("Room %s created", name))
	return room, nil
}

// Rooms lists the names of the rooms created so far.
func (r *Resolver) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mailboxes samples the mailbox of every room, sorted by room name.
func (r *Resolver) Mailboxes() []observability.ChannelCapacity {
	r.mu.Lock()
	defer r.mu.Unlock()
	samples := make([]observability.ChannelCapacity, 0, len(r.rooms))
	for name, room := range r.rooms {
		length, capacity := room.MailboxLoad()
		samples = append(samples, observability.ChannelCapacity{Name: name, Length: length, Capacity: capacity})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples
}

// Shutdown closes the open connections of every room.
func (r *Resolver) Shutdown(code int, reason string) {
	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	for _, room := range rooms {
		room.Shutdown(code, reason)
	}
}
