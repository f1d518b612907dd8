package domain

import "time"

// Connection is the registry's record of one live transport attachment.
// RoomID and CallID are empty when the connection is not in a room or call.
type Connection struct {
	ID          ConnID
	UserID      UserID
	DisplayName string
	LastSeenAt  time.Time
	RoomID      RoomID
	CallID      CallID
}
