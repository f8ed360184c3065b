package entity

import "time"

// UnreadState is the derived unread view of one user over all their rooms.
type UnreadState struct {
	UserID string          `json:"user_id"`
	Rooms  map[string]bool `json:"rooms"`
	Count  int             `json:"count"`
	// Latest incoming last-message time across all rooms, and which room carries it.
	LatestIncoming     time.Time `json:"latest_incoming"`
	LatestIncomingRoom string    `json:"latest_incoming_room,omitempty"`
	// IncomingAt holds each room's last-message time when it was sent by someone else.
	IncomingAt map[string]time.Time `json:"-"`
}
