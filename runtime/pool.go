package runtime

import (
	"chat-relay/contract"
	"sync"

	"github.com/samber/lo"
)

// ConnectionPool holds the open connections of a room. It belongs to the
// room, not to the actor goroutine, so a recreated actor rediscovers every
// connection that stayed open meanwhile.
type ConnectionPool struct {
	mu    sync.RWMutex
	conns map[contract.Connection]struct{}
}

func NewConnectionPool() *ConnectionPool {
	return &ConnectionPool{conns: make(map[contract.Connection]struct{})}
}

func (p *ConnectionPool) Add(conn contract.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[conn] = struct{}{}
}

func (p *ConnectionPool) Remove(conn contract.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conns, conn)
}

// Open returns a copy of the open connections.
func (p *ConnectionPool) Open() []contract.Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return lo.Keys(p.conns)
}

func (p *ConnectionPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}
