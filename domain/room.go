package domain

import "strings"

// DefaultRoom is used when the request path names no room.
const DefaultRoom = "default"

// RoomName maps a request path to its room: the first segment, lowercased.
func RoomName(path string) string {
	segment, _, _ := strings.Cut(strings.TrimLeft(path, "/"), "/")
	name := strings.ToLower(strings.TrimSpace(segment))
	if name == "" {
		return DefaultRoom
	}
	return name
}
