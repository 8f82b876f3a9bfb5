package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"

	"github.com/samber/lo"
)

// Registry is the session registry of one room: every live connection with
// its identity, nil until the first validated message resolves it.
//
// It is owned by the room actor goroutine and is not safe for concurrent use.
type Registry struct {
	sessions map[contract.Connection]*domain.Identity
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[contract.Connection]*domain.Identity)}
}

// Add registers a connection. An identity already known for it is kept.
func (r *Registry) Add(conn contract.Connection, identity *domain.Identity) {
	if current, ok := r.sessions[conn]; ok && current != nil {
		return
	}
	r.sessions[conn] = identity
}

// Remove reports whether the connection was registered.
func (r *Registry) Remove(conn contract.Connection) bool {
	if _, ok := r.sessions[conn]; !ok {
		return false
	}
	delete(r.sessions, conn)
	return true
}

func (r *Registry) Contains(conn contract.Connection) bool {
	_, ok := r.sessions[conn]
	return ok
}

func (r *Registry) Identity(conn contract.Connection) *domain.Identity {
	return r.sessions[conn]
}

// SetIdentity stores the identity of a registered connection
// unless one is already known. It reports whether it was stored.
func (r *Registry) SetIdentity(conn contract.Connection, identity domain.Identity) bool {
	current, ok := r.sessions[conn]
	if !ok || current != nil {
		return false
	}
	r.sessions[conn] = &identity
	return true
}

func (r *Registry) Len() int {
	return len(r.sessions)
}

// Snapshot copies the registered connections, so callers can iterate
// while removing dead sessions from the registry.
func (r *Registry) Snapshot() []contract.Connection {
	return lo.Keys(r.sessions)
}
