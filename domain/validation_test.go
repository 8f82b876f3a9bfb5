package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestParseChatMessage_Accepts(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected ChatMessage
	}{
		{"object", `{"userName":"bob","message":"hi"}`, NewChatMessage("bob", "hi")},
		{"json string", `"{\"userName\":\"bob\",\"message\":\"hi\"}"`, NewChatMessage("bob", "hi")},
		{"identity only", `{"userName":"Alice Smith-2_x"}`, ChatMessage{UserName: "Alice Smith-2_x"}},
		{"bounds", `{"userName":"` + strings.Repeat("a", 32) + `","message":"` + strings.Repeat("b", 255) + `"}`,
			NewChatMessage(strings.Repeat("a", 32), strings.Repeat("b", 255))},
		{"unknown field", `{"userName":"bob","message":"hi","color":"red"}`, NewChatMessage("bob", "hi")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message, err := ParseChatMessage([]byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.expected, message)
		})
	}
}

func TestChatMessage_Round_Trips_Through_Json(t *testing.T) {
	messageCharset := append(append([]rune{}, lo.AlphanumericCharset...), []rune(` "\\/{}:,éß€😀`)...)
	tests := []struct {
		name     string
		userName string
		message  string
	}{
		{"shortest", lo.RandomString(1, lo.LettersCharset), lo.RandomString(1, messageCharset)},
		{"medium", lo.RandomString(16, lo.LettersCharset), lo.RandomString(32, messageCharset)},
		{"longest", lo.RandomString(32, lo.LettersCharset), strings.Repeat("b", 255)},
		{"longest random", lo.RandomString(32, lo.LettersCharset), lo.RandomString(255, messageCharset)},
		{"identity only", lo.RandomString(32, lo.LettersCharset), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			// Given a valid message
			original := NewChatMessage(tt.userName, tt.message)
			if tt.message == "" {
				original = ChatMessage{UserName: tt.userName}
			}
			req.NoError(ValidateChatMessage(original))

			// When it is encoded then parsed back
			payload, err := original.Encode()
			req.NoError(err)
			decoded, err := ParseChatMessage(payload)

			// Then nothing is lost
			req.NoError(err)
			req.Equal(original, decoded)
		})
	}
}

func TestParseChatMessage_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		field   string
		message string
	}{
		{"empty name", `{"userName":"","message":"hi"}`, "userName", "userName must be at least 1 character"},
		{"missing name", `{"message":"hi"}`, "userName", "userName must be at least 1 character"},
		{"long name", `{"userName":"` + strings.Repeat("a", 33) + `"}`, "userName", "userName must be at most 32 characters"},
		{"name starting with digit", `{"userName":"1bob"}`, "userName",
			"userName must start with a letter and contain only letters, digits, dashes, underscores or spaces"},
		{"name with symbol", `{"userName":"bob!"}`, "userName",
			"userName must start with a letter and contain only letters, digits, dashes, underscores or spaces"},
		{"empty message", `{"userName":"a","message":""}`, "message", "message must be at least 1 character"},
		{"long message", `{"userName":"a","message":"` + strings.Repeat("b", 256) + `"}`, "message", "message must be at most 255 characters"},
		{"both invalid reports name first", `{"userName":"","message":""}`, "userName", "userName must be at least 1 character"},
		{"not json", `hello`, PayloadField, "invalid character 'h' looking for beginning of value"},
		{"truncated", `{"userName":`, PayloadField, "unexpected end of JSON input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			_, err := ParseChatMessage([]byte(tt.raw))

			var validationErr ValidationError
			req.True(errors.As(err, &validationErr))
			req.Equal(tt.field, validationErr.Field)
			req.Equal(tt.message, validationErr.Message)
		})
	}
}
