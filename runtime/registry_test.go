package runtime

import (
	"chat-relay/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Add_And_Remove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn1 := newFakeConn("c1")
	conn2 := newFakeConn("c2")

	// Given two sessions
	registry.Add(conn1, nil)
	registry.Add(conn2, &domain.Identity{UserName: "bob"})

	// Then both are registered
	req.Equal(2, registry.Len())
	req.ElementsMatch([]*fakeConn{conn1, conn2}, toFakes(registry.Snapshot()))
	req.Nil(registry.Identity(conn1))
	req.Equal("bob", registry.Identity(conn2).UserName)

	// When one leaves twice
	req.True(registry.Remove(conn1))
	req.False(registry.Remove(conn1))

	// Then only one session is left
	req.Equal(1, registry.Len())
	req.False(registry.Contains(conn1))
}

func TestRegistry_Identity_Is_Set_Once(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("c1")
	registry.Add(conn, nil)

	req.True(registry.SetIdentity(conn, domain.Identity{UserName: "alice"}))
	req.False(registry.SetIdentity(conn, domain.Identity{UserName: "mallory"}))
	req.Equal("alice", registry.Identity(conn).UserName)

	// Re-adding a known session keeps its identity
	registry.Add(conn, nil)
	req.Equal("alice", registry.Identity(conn).UserName)
}

func TestRegistry_SetIdentity_Unknown_Connection(t *testing.T) {
	registry := NewRegistry()
	require.False(t, registry.SetIdentity(newFakeConn("ghost"), domain.Identity{UserName: "alice"}))
	require.Zero(t, registry.Len())
}

func TestRegistry_Snapshot_Allows_Removal_While_Iterating(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	for _, id := range []string{"a", "b", "c", "d"} {
		registry.Add(newFakeConn(id), nil)
	}

	for _, conn := range registry.Snapshot() {
		registry.Remove(conn)
	}

	req.Zero(registry.Len())
}
