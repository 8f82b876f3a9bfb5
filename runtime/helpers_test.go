package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// fakeConn records what the room sends and can be switched to a dead peer.
type fakeConn struct {
	id          string
	mu          sync.Mutex
	received    [][]byte
	attachments map[string]string
	dead        bool
	closed      bool
	closeCode   int
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, attachments: make(map[string]string)}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(_ context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead || c.closed {
		return errors.ErrConnectionClosed
	}
	c.received = append(c.received, append([]byte{}, payload...))
	return nil
}

func (c *fakeConn) Close(code int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.closeCode = code
	}
	return nil
}

func (c *fakeConn) SetAttachment(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachments[key] = value
}

func (c *fakeConn) Attachment(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.attachments[key]
	return value, ok
}

func (c *fakeConn) kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// messages decodes everything received so far.
func (c *fakeConn) messages(t *testing.T) []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Map(c.received, func(payload []byte, _ int) domain.ChatMessage {
		var message domain.ChatMessage
		require.NoError(t, json.Unmarshal(payload, &message))
		return message
	})
}

// contents returns the message field of everything received so far.
func (c *fakeConn) contents(t *testing.T) []string {
	return lo.Map(c.messages(t), func(m domain.ChatMessage, _ int) string { return m.Content() })
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = nil
}

func toFakes(conns []contract.Connection) []*fakeConn {
	return lo.Map(conns, func(conn contract.Connection, _ int) *fakeConn { return conn.(*fakeConn) })
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func newHistory(t *testing.T, room string) *repositories.RoomHistory {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repositories.NewHistoryRepository(db, testLogger()).ForRoom(room)
}

// newStartedRoom returns a room whose registry is ready, driven directly by
// the test instead of an actor goroutine.
func newStartedRoom(t *testing.T, history contract.HistoryStore) (*Room, *observability.MonitoringManager) {
	log := testLogger()
	monitoring := observability.NewMonitoringManager(log)
	room := NewRoom(context.Background(), "lobby", log, history, monitoring, RoomConfig{}, func(*Room) {})
	room.restore(context.Background())
	return room, monitoring
}

// connect performs the join step of Accept synchronously.
func connect(room *Room, conn *fakeConn) {
	room.pool.Add(conn)
	room.join(context.Background(), conn)
}

func chat(userName, message string) []byte {
	payload, _ := json.Marshal(domain.NewChatMessage(userName, message))
	return payload
}
