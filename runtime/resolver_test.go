package runtime

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/observability"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestResolver(t *testing.T, supervisor contract.ISupervisor) *Resolver {
	log := testLogger()
	return NewResolver(log, func(room string) contract.HistoryStore { return newHistory(t, room) },
		supervisor, observability.NewMonitoringManager(log), RoomConfig{MailboxSize: 4})
}

func TestResolver_Same_Name_Same_Room(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := newTestResolver(t, mocks.NewMockISupervisor(ctrl))
	resolver.Start(context.Background())

	first, err := resolver.Resolve("lobby")
	req.NoError(err)
	second, err := resolver.Resolve("lobby")
	req.NoError(err)
	other, err := resolver.Resolve("games")
	req.NoError(err)

	req.Same(first, second)
	req.NotSame(first, other)
	req.Equal("lobby", first.Name())
}

func TestResolver_Requires_Start(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := newTestResolver(t, mocks.NewMockISupervisor(ctrl))

	_, err := resolver.Resolve("lobby")

	req.ErrorIs(err, errors.ErrResolverNotStarted)
}

func TestResolver_Rooms_Are_Sorted(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := newTestResolver(t, mocks.NewMockISupervisor(ctrl))
	resolver.Start(context.Background())

	for _, name := range []string{"zoo", "default", "lobby"} {
		_, err := resolver.Resolve(name)
		req.NoError(err)
	}

	req.Equal([]string{"default", "lobby", "zoo"}, resolver.Rooms())
}

func TestResolver_Starts_Actor_On_First_Command(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	supervisor := mocks.NewMockISupervisor(ctrl)
	resolver := newTestResolver(t, supervisor)
	ctx := context.Background()
	resolver.Start(ctx)

	room, err := resolver.Resolve("lobby")
	req.NoError(err)

	// The actor is started exactly once for two queued commands
	supervisor.EXPECT().Start(ctx, room).Times(1)
	room.Accept(newFakeConn("a"))
	room.Accept(newFakeConn("b"))

	req.Equal(2, room.Connections())
}

func TestResolver_Shutdown_Closes_Every_Connection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	supervisor := mocks.NewMockISupervisor(ctrl)
	supervisor.EXPECT().Start(gomock.Any(), gomock.Any()).AnyTimes()
	resolver := newTestResolver(t, supervisor)
	resolver.Start(context.Background())

	lobby, err := resolver.Resolve("lobby")
	req.NoError(err)
	games, err := resolver.Resolve("games")
	req.NoError(err)
	a, b := newFakeConn("a"), newFakeConn("b")
	lobby.Accept(a)
	games.Accept(b)

	resolver.Shutdown(contract.CloseGoingAway, "server shutting down")

	for _, conn := range []*fakeConn{a, b} {
		req.True(conn.isClosed())
		req.Equal(contract.CloseGoingAway, conn.closeCode)
	}
}

func TestResolver_Mailboxes_Report_Queued_Commands(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	supervisor := mocks.NewMockISupervisor(ctrl)
	supervisor.EXPECT().Start(gomock.Any(), gomock.Any()).AnyTimes()
	resolver := newTestResolver(t, supervisor)
	resolver.Start(context.Background())

	// Given commands queued in a room whose actor never runs
	lobby, err := resolver.Resolve("lobby")
	req.NoError(err)
	_, err = resolver.Resolve("games")
	req.NoError(err)
	lobby.Accept(newFakeConn("a"))
	lobby.Receive(newFakeConn("a"), chat("alice", "queued"))

	// Then the samples show them
	req.Equal([]observability.ChannelCapacity{
		{Name: "games", Length: 0, Capacity: 4},
		{Name: "lobby", Length: 2, Capacity: 4},
	}, resolver.Mailboxes())
}
