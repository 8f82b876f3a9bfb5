// Package domain contains core concepts of the chat relay.
// This file defines the identity of a participant within a room.
// No runtime, network, or UI logic should be added here.
package domain

// AttachmentUserName is the connection attachment key mirroring the identity.
const AttachmentUserName = "userName"

// Identity is resolved from the first validated message of a connection
// and never changes afterwards.
type Identity struct {
	UserName string
}
