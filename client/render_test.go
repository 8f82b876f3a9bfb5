package main

import (
	"chat-relay/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	history, err := domain.HistoryNotice([]domain.ChatMessage{
		domain.NewChatMessage("alice", "one"),
		domain.NewChatMessage("bob", "two"),
	})
	require.NoError(t, err)
	empty, err := domain.HistoryNotice(nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		message  domain.ChatMessage
		expected []string
	}{
		{"chat", domain.NewChatMessage("alice", "hi"), []string{"alice: hi"}},
		{"user count", domain.UserCountNotice(2), []string{"* 2 user(s) in the room"}},
		{"error", domain.ErrorNotice("message must be at least 1 character"), []string{"! message must be at least 1 character"}},
		{"history", history, []string{"--- 2 earlier message(s) ---", "alice: one", "bob: two", "--- live ---"}},
		{"empty history", empty, []string{"--- no earlier messages ---"}},
		{"other system notice", domain.NewChatMessage(domain.SystemUserName, "maintenance"), []string{"* maintenance"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, NewRenderer(false).Render(tt.message))
		})
	}
}

func TestRenderer_Colours_Do_Not_Lose_Text(t *testing.T) {
	req := require.New(t)

	lines := NewRenderer(true).Render(domain.NewChatMessage("alice", "hi"))

	req.Len(lines, 1)
	req.Contains(lines[0], "alice")
	req.Contains(lines[0], "hi")
}
