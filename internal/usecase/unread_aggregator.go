package usecase

import (
	"context"
	"time"

	"petadopt/internal/domain/entity"
	"petadopt/internal/domain/repository"
)

// IsUnread reports whether room has content userID has not seen: the last
// message came from someone else and is newer than the user's read receipt.
func IsUnread(room *entity.ChatRoom, userID string) bool {
	if room == nil || room.LastMessage == nil || !room.HasParticipant(userID) {
		return false
	}
	if room.LastMessage.SenderID == userID {
		return false
	}
	readAt, ok := room.ReadBy[userID]
	return !ok || readAt.Before(room.LastMessage.CreatedAt)
}

// Aggregate derives the unread view over rooms. Each unread room counts once
// regardless of how many messages it holds.
func Aggregate(userID string, rooms []*entity.ChatRoom) entity.UnreadState {
	state := entity.UnreadState{
		UserID:     userID,
		Rooms:      make(map[string]bool, len(rooms)),
		IncomingAt: make(map[string]time.Time),
	}

	for _, room := range rooms {
		if room == nil || !room.HasParticipant(userID) {
			continue
		}
		unread := IsUnread(room, userID)
		state.Rooms[room.ID] = unread
		if unread {
			state.Count++
		}

		lm := room.LastMessage
		if lm == nil || lm.SenderID == userID {
			continue
		}
		state.IncomingAt[room.ID] = lm.CreatedAt
		if lm.CreatedAt.After(state.LatestIncoming) {
			state.LatestIncoming = lm.CreatedAt
			state.LatestIncomingRoom = room.ID
		}
	}
	return state
}

type UnreadAggregator struct {
	rooms repository.ChatRoomRepository
}

func NewUnreadAggregator(rooms repository.ChatRoomRepository) *UnreadAggregator {
	return &UnreadAggregator{rooms: rooms}
}

// Subscribe recomputes the unread view on every snapshot of the user's rooms.
func (a *UnreadAggregator) Subscribe(ctx context.Context, userID string, fn func(entity.UnreadState, error)) repository.Subscription {
	return a.rooms.SubscribeUserRooms(ctx, userID, func(rooms []*entity.ChatRoom, err error) {
		if err != nil {
			fn(entity.UnreadState{UserID: userID}, err)
			return
		}
		fn(Aggregate(userID, rooms), nil)
	})
}
