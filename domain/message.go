// Package domain contains core concepts of the chat relay.
// This file defines the ChatMessage payload and the system notices.
// Messages are immutable once validated.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SystemUserName is the author of every notice produced by the relay itself.
const SystemUserName = "system"

const (
	errorNoticePrefix     = "error:"
	userCountNoticePrefix = "user_count:"
	historyNoticePrefix   = "history:"
)

// ChatMessage is both the wire and the storage payload.
// A message without content only announces the sender identity.
type ChatMessage struct {
	UserName string  `json:"userName" validate:"min=1,max=32,username"`
	Message  *string `json:"message,omitempty" validate:"omitempty,min=1,max=255"`
}

// NewChatMessage builds a message carrying content.
func NewChatMessage(userName, message string) ChatMessage {
	return ChatMessage{UserName: userName, Message: &message}
}

// HasContent reports whether the message must be broadcast and persisted.
func (m ChatMessage) HasContent() bool {
	return m.Message != nil && *m.Message != ""
}

// Content returns the message body, empty for identity announcements.
func (m ChatMessage) Content() string {
	if m.Message == nil {
		return ""
	}
	return *m.Message
}

func (m ChatMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func systemNotice(message string) ChatMessage {
	return NewChatMessage(SystemUserName, message)
}

// ErrorNotice is sent to the offending sender only.
func ErrorNotice(reason string) ChatMessage {
	return systemNotice(errorNoticePrefix + reason)
}

// UserCountNotice carries the live membership count of a room.
func UserCountNotice(count int) ChatMessage {
	return systemNotice(userCountNoticePrefix + strconv.Itoa(count))
}

// HistoryNotice wraps a chronological batch of past messages.
func HistoryNotice(messages []ChatMessage) (ChatMessage, error) {
	if messages == nil {
		messages = []ChatMessage{}
	}
	batch, err := json.Marshal(messages)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("encoding history batch: %w", err)
	}
	return systemNotice(historyNoticePrefix + string(batch)), nil
}

// NoticeKind classifies a system notice for clients rendering it.
type NoticeKind string

const (
	NoticeNone      NoticeKind = ""
	NoticeError     NoticeKind = "error"
	NoticeUserCount NoticeKind = "user_count"
	NoticeHistory   NoticeKind = "history"
)

// ParseNotice splits a system notice into its kind and payload.
// Messages not authored by the system yield NoticeNone.
func ParseNotice(m ChatMessage) (NoticeKind, string) {
	if m.UserName != SystemUserName {
		return NoticeNone, ""
	}
	content := m.Content()
	for _, kind := range []NoticeKind{NoticeError, NoticeUserCount, NoticeHistory} {
		if payload, ok := strings.CutPrefix(content, string(kind)+":"); ok {
			return kind, payload
		}
	}
	return NoticeNone, content
}

// DecodeHistory reads the batch carried by a history notice payload.
func DecodeHistory(payload string) ([]ChatMessage, error) {
	var messages []ChatMessage
	if err := json.Unmarshal([]byte(payload), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
