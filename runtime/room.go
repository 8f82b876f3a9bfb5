package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const DefaultHistoryLimit = 100

type RoomConfig struct {
	HistoryLimit int
	MailboxSize  int
	// IdleTimeout lets an actor without pending commands hibernate.
	// Zero keeps it running until shutdown.
	IdleTimeout time.Duration
}

type command func(ctx context.Context)

// Room is the actor of one room. Every membership change, inbound message
// and broadcast runs as a command on a single goroutine (Run), one at a
// time, so the session registry is never read and mutated concurrently.
//
// The mailbox, the connection pool and the key generator belong to the Room
// and survive the actor goroutine. The registry does not: each time Run
// starts (first start, restart after a panic, wake-up after hibernation) it
// is rebuilt from the pool and the identity attached to each connection.
type Room struct {
	name       string
	log        *slog.Logger
	lifetime   context.Context
	history    contract.HistoryStore
	pool       *ConnectionPool
	keys       *KeyGenerator
	monitoring *observability.MonitoringManager
	config     RoomConfig
	mailbox    chan command
	wake       func(*Room)

	mu      sync.Mutex
	running bool
	pending int
	seeded  bool

	// Owned by the actor goroutine
	registry *Registry
}

// NewRoom creates a room whose actor is started by wake whenever a command
// arrives while no actor goroutine is running.
func NewRoom(lifetime context.Context, name string, log *slog.Logger, history contract.HistoryStore,
	monitoring *observability.MonitoringManager, config RoomConfig, wake func(*Room)) *Room {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultHistoryLimit
	}
	return &Room{
		name:       name,
		log:        log.With("room", name),
		lifetime:   lifetime,
		history:    history,
		pool:       NewConnectionPool(),
		keys:       NewKeyGenerator(time.Now),
		monitoring: monitoring,
		config:     config,
		mailbox:    make(chan command, config.MailboxSize),
		wake:       wake,
	}
}

func (r *Room) Name() string { return r.name }

// Connections returns how many connections are open in the room.
func (r *Room) Connections() int { return r.pool.Len() }

// MailboxLoad reports how many commands are queued and the mailbox capacity.
func (r *Room) MailboxLoad() (int, int) { return len(r.mailbox), cap(r.mailbox) }

// Accept hands a freshly upgraded connection to the room.
func (r *Room) Accept(conn contract.Connection) {
	r.pool.Add(conn)
	r.monitoring.IncrConnectionsAccepted()
	r.enqueue(func(ctx context.Context) { r.join(ctx, conn) })
}

// Receive forwards one inbound frame of a connection.
func (r *Room) Receive(conn contract.Connection, raw []byte) {
	r.enqueue(func(ctx context.Context) { r.handleInbound(ctx, conn, raw) })
}

// Disconnect reports that a connection was closed by its peer.
func (r *Room) Disconnect(conn contract.Connection, code int, reason string) {
	r.monitoring.IncrConnectionsClosed()
	r.enqueue(func(ctx context.Context) { r.leave(ctx, conn, code, reason) })
}

// Shutdown closes every open connection of the room.
func (r *Room) Shutdown(code int, reason string) {
	for _, conn := range r.pool.Open() {
		_ = conn.Close(code, reason)
	}
}

func (r *Room) enqueue(cmd command) {
	if r.lifetime.Err() != nil {
		r.log.Debug("Room stopped, dropping command")
		return
	}
	r.mu.Lock()
	r.pending++
	if !r.running {
		r.running = true
		r.wake(r)
	}
	r.mu.Unlock()

	select {
	case r.mailbox <- cmd:
	case <-r.lifetime.Done():
		r.mu.Lock()
		r.pending--
		r.mu.Unlock()
		r.log.Debug("Room stopped, dropping command")
	}
}

// Run processes the mailbox until ctx is canceled, or until the room has
// been idle for config.IdleTimeout.
func (r *Room) Run(ctx context.Context) error {
	r.restore(ctx)

	var idle <-chan time.Time
	var timer *time.Timer
	if r.config.IdleTimeout > 0 {
		timer = time.NewTimer(r.config.IdleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Stopping room actor")
			return nil
		case cmd := <-r.mailbox:
			r.mu.Lock()
			r.pending--
			r.mu.Unlock()
			cmd(ctx)
			if timer != nil {
				timer.Reset(r.config.IdleTimeout)
			}
		case <-idle:
			if r.hibernate() {
				r.log.Info("Room actor hibernated", "open_connections", r.pool.Len())
				return nil
			}
			timer.Reset(r.config.IdleTimeout)
		}
	}
}

func (r *Room) hibernate() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending > 0 {
		return false
	}
	r.running = false
	r.registry = nil
	return true
}

// restore rebuilds the session registry from the connections still open.
func (r *Room) restore(ctx context.Context) {
	r.monitoring.IncrActorStarts()
	r.registry = NewRegistry()
	for _, conn := range r.pool.Open() {
		r.registry.Add(conn, attachedIdentity(conn))
	}
	r.seedKeys(ctx)
	r.log.Info("Room actor started", "sessions", r.registry.Len())
}

func (r *Room) seedKeys(ctx context.Context) {
	if r.seeded {
		return
	}
	entries, err := r.history.List(ctx, contract.ListOptions{Reverse: true, Limit: 1})
	if err != nil {
		r.log.Warn("Cannot read newest history key", "error", err)
		return
	}
	if len(entries) > 0 {
		if err := r.keys.Seed(entries[0].Key); err != nil {
			r.log.Warn("Ignoring unexpected history key", "key", entries[0].Key, "error", err)
		}
	}
	r.seeded = true
}

func attachedIdentity(conn contract.Connection) *domain.Identity {
	userName, ok := conn.Attachment(domain.AttachmentUserName)
	if !ok || userName == "" {
		return nil
	}
	return &domain.Identity{UserName: userName}
}

func (r *Room) join(ctx context.Context, conn contract.Connection) {
	r.registry.Add(conn, attachedIdentity(conn))
	r.log.Info("Session joined", "conn", conn.ID(), "sessions", r.registry.Len())
	r.broadcastMembershipCount(ctx)
	if r.registry.Contains(conn) {
		r.replayHistory(ctx, conn)
	}
}

func (r *Room) handleInbound(ctx context.Context, conn contract.Connection, raw []byte) {
	if !r.registry.Contains(conn) {
		r.log.Debug("Dropping frame of a closed session", "conn", conn.ID())
		return
	}

	message, err := domain.ParseChatMessage(raw)
	if err != nil {
		r.monitoring.IncrValidationFailures()
		reason := err.Error()
		var validationErr domain.ValidationError
		if errors.As(err, &validationErr) {
			reason = validationErr.Message
		}
		r.log.Debug("Invalid message", "conn", conn.ID(), "reason", reason)
		r.sendTo(ctx, conn, domain.ErrorNotice(reason))
		return
	}

	if r.registry.Identity(conn) == nil {
		conn.SetAttachment(domain.AttachmentUserName, message.UserName)
		r.registry.SetIdentity(conn, domain.Identity{UserName: message.UserName})
		r.log.Debug("Identity resolved", "conn", conn.ID(), "user", message.UserName)
	}

	if message.HasContent() {
		r.broadcast(ctx, message)
		r.persist(ctx, message)
	}
}

// leave leaves the connection in the pool until the actor handles it, so an
// actor restored in between still sees the session and announces its exit.
func (r *Room) leave(ctx context.Context, conn contract.Connection, code int, reason string) {
	r.pool.Remove(conn)
	if !r.registry.Remove(conn) {
		return
	}
	r.log.Info("Session left", "conn", conn.ID(), "code", code, "reason", reason, "sessions", r.registry.Len())
	r.broadcastMembershipCount(ctx)
}

// broadcastMembershipCount repeats until a pass completes without pruning,
// so that the surviving sessions end up with the corrected count.
func (r *Room) broadcastMembershipCount(ctx context.Context) {
	for {
		payload, err := domain.UserCountNotice(r.registry.Len()).Encode()
		if err != nil {
			r.log.Error("Cannot encode membership count", "error", err)
			return
		}
		if r.deliver(ctx, r.registry.Snapshot(), payload) == 0 {
			return
		}
	}
}

func (r *Room) broadcast(ctx context.Context, message domain.ChatMessage) {
	payload, err := message.Encode()
	if err != nil {
		r.log.Error("Cannot encode chat message", "error", err)
		return
	}
	r.monitoring.IncrMessagesBroadcast()
	if r.deliver(ctx, r.registry.Snapshot(), payload) > 0 {
		r.broadcastMembershipCount(ctx)
	}
}

func (r *Room) sendTo(ctx context.Context, conn contract.Connection, message domain.ChatMessage) {
	payload, err := message.Encode()
	if err != nil {
		r.log.Error("Cannot encode notice", "error", err)
		return
	}
	if r.deliver(ctx, []contract.Connection{conn}, payload) > 0 {
		r.broadcastMembershipCount(ctx)
	}
}

// deliver sends payload to every target concurrently and waits for all of
// them. Targets whose send failed are dropped from the room; deliver
// returns how many were dropped.
func (r *Room) deliver(ctx context.Context, targets []contract.Connection, payload []byte) int {
	failures := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, conn := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			failures[i] = conn.Send(ctx, payload)
		}()
	}
	wg.Wait()

	dropped := 0
	for i, err := range failures {
		if err == nil {
			continue
		}
		conn := targets[i]
		r.log.Warn("Delivery failed, dropping session", "conn", conn.ID(), "error", err)
		if r.drop(conn) {
			dropped++
		}
	}
	return dropped
}

func (r *Room) drop(conn contract.Connection) bool {
	if !r.registry.Remove(conn) {
		return false
	}
	r.pool.Remove(conn)
	r.monitoring.IncrSessionsReaped()
	_ = conn.Close(contract.CloseInternalError, "delivery failed")
	return true
}

// replayHistory sends the newest entries, oldest first, to conn only.
func (r *Room) replayHistory(ctx context.Context, conn contract.Connection) {
	entries, err := r.history.List(ctx, contract.ListOptions{Reverse: true, Limit: r.config.HistoryLimit})
	if err != nil {
		r.monitoring.IncrHistoryFailures()
		r.log.Warn("History unavailable, replaying an empty batch", "error", err)
		entries = nil
	}

	messages := make([]domain.ChatMessage, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		message, err := domain.ParseChatMessage(entries[i].Value)
		if err != nil {
			r.log.Warn("Skipping unreadable history entry", "key", entries[i].Key, "error", err)
			continue
		}
		messages = append(messages, message)
	}

	notice, err := domain.HistoryNotice(messages)
	if err != nil {
		r.log.Error("Cannot build history batch", "error", err)
		return
	}
	r.sendTo(ctx, conn, notice)
}

// persist appends the message under a fresh key. A failure degrades
// durability only: the message has already been delivered.
func (r *Room) persist(ctx context.Context, message domain.ChatMessage) {
	value, err := message.Encode()
	if err != nil {
		r.log.Error("Cannot encode message for history", "error", err)
		return
	}
	key := r.keys.Next()
	if err := r.history.Put(ctx, key, value); err != nil {
		r.monitoring.IncrPersistFailures()
		r.log.Warn("Message not persisted", "key", key, "error", err)
		return
	}
	r.monitoring.IncrMessagesPersisted()
}
