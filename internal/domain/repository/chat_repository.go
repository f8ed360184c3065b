package repository

import (
	"context"

	"petadopt/internal/domain/entity"
)

// Subscription is a live listener registration. Unsubscribe is idempotent and
// stops further deliveries; a snapshot already being delivered may still finish.
type Subscription interface {
	Unsubscribe()
}

// NewMessage is a validated outbound message ready for a durable write.
// Participants, ParticipantDetails and Listing are only used when the write
// creates the room.
type NewMessage struct {
	RoomID             string
	SenderID           string
	Text               string
	Participants       []string
	ParticipantDetails map[string]entity.ParticipantInfo
	Listing            *entity.ListingDetails
}

type ChatRoomRepository interface {
	GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]*entity.ChatRoom, error)

	// AppendMessage writes the message with a store-assigned createdAt and
	// moves the room's lastMessage forward. It creates the room when missing.
	AppendMessage(ctx context.Context, msg NewMessage) (*entity.Message, error)

	// MarkRead advances readBy[userID] to store time when the room's last
	// message came from someone else. It reports whether a write happened.
	MarkRead(ctx context.Context, roomID, userID string) (bool, error)

	// SubscribeRoom delivers the current room (nil when missing), then one
	// snapshot per durable write.
	SubscribeRoom(ctx context.Context, roomID string, fn func(*entity.ChatRoom, error)) Subscription
	SubscribeUserRooms(ctx context.Context, userID string, fn func([]*entity.ChatRoom, error)) Subscription
}

// MessageLog is the append-only, time-ordered message sequence of a room.
type MessageLog interface {
	ListMessages(ctx context.Context, roomID string, limit int) ([]*entity.Message, error)
	SubscribeMessages(ctx context.Context, roomID string, fn func([]*entity.Message, error)) Subscription
}
