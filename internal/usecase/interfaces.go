package usecase

import (
	"context"

	"petadopt/internal/domain/entity"
)

// IdentityProvider is the authoritative source of user identity.
type IdentityProvider interface {
	GetUser(ctx context.Context, uid string) (*entity.Profile, error)
}

// BadgeSink renders the unread badge.
type BadgeSink interface {
	ShowBadge(state entity.UnreadState)
}

// CuePlayer plays the audible new-message cue. Failures are reported, never retried.
type CuePlayer interface {
	PlayCue(roomID string) error
}

// SessionListener receives the live views of a signed-in session.
type SessionListener interface {
	OnRoom(roomID string, room *entity.ChatRoom)
	OnMessages(roomID string, messages []*entity.Message)
	OnError(err error)
}

// MessageSender is the durable send path the composer submits through.
type MessageSender interface {
	SendMessage(ctx context.Context, roomID, senderID, text string) (*entity.Message, error)
}
