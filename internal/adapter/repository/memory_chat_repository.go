package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"petadopt/internal/domain/entity"
	"petadopt/internal/domain/repository"
	"petadopt/pkg/errors"
)

// MemoryChatStore keeps rooms and message logs in process. It backs the
// "memory" store backend and the tests, and follows the same contracts as the
// Firestore repository: store-assigned timestamps, partial read-receipt
// updates, ordered snapshot delivery per subscription.
type MemoryChatStore struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	lastStamp time.Time

	rooms    map[string]*entity.ChatRoom
	messages map[string][]*entity.Message

	roomSubs map[string]map[*listener[*entity.ChatRoom]]struct{}
	userSubs map[string]map[*listener[[]*entity.ChatRoom]]struct{}
	logSubs  map[string]map[*listener[[]*entity.Message]]struct{}
}

var (
	_ repository.ChatRoomRepository = (*MemoryChatStore)(nil)
	_ repository.MessageLog         = (*MemoryChatStore)(nil)
)

func NewMemoryChatStore(clock clockwork.Clock) *MemoryChatStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryChatStore{
		clock:    clock,
		rooms:    make(map[string]*entity.ChatRoom),
		messages: make(map[string][]*entity.Message),
		roomSubs: make(map[string]map[*listener[*entity.ChatRoom]]struct{}),
		userSubs: make(map[string]map[*listener[[]*entity.ChatRoom]]struct{}),
		logSubs:  make(map[string]map[*listener[[]*entity.Message]]struct{}),
	}
}

// stamp plays the role of a server timestamp: strictly increasing per store.
func (s *MemoryChatStore) stamp() time.Time {
	t := s.clock.Now().UTC()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = t
	return t
}

func (s *MemoryChatStore) GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, errors.NotFound("Chat room", nil)
	}
	return room.Clone(), nil
}

func (s *MemoryChatStore) ListRoomsForUser(ctx context.Context, userID string) ([]*entity.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.roomsForLocked(userID), nil
}

func (s *MemoryChatStore) AppendMessage(ctx context.Context, msg repository.NewMessage) (*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.TransientIO("Send cancelled", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room, exists := s.rooms[msg.RoomID]
	if !exists {
		if len(msg.Participants) != 2 {
			return nil, errors.Validation("a new room needs exactly two participants")
		}
		room = &entity.ChatRoom{
			ID:                 msg.RoomID,
			Participants:       append([]string(nil), msg.Participants...),
			ParticipantDetails: make(map[string]entity.ParticipantInfo),
			ReadBy:             make(map[string]time.Time),
			CreatedAt:          s.clock.Now().UTC(),
		}
		for uid, info := range msg.ParticipantDetails {
			room.ParticipantDetails[uid] = info
		}
		if msg.Listing != nil {
			ld := *msg.Listing
			room.ListingDetails = &ld
		}
	}
	if !room.HasParticipant(msg.SenderID) {
		return nil, errors.NotAParticipant(msg.RoomID, msg.SenderID)
	}
	if !exists {
		s.rooms[msg.RoomID] = room
	}

	createdAt := s.stamp()
	room.MessageCount++
	message := &entity.Message{
		ID:        uuid.New().String(),
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		CreatedAt: createdAt,
		Seq:       room.MessageCount,
	}
	s.messages[msg.RoomID] = append(s.messages[msg.RoomID], message)
	s.notifyLogLocked(msg.RoomID)

	if room.LastMessage == nil || !createdAt.Before(room.LastMessage.CreatedAt) {
		room.LastMessage = &entity.LastMessage{
			Text:      message.Text,
			SenderID:  message.SenderID,
			CreatedAt: createdAt,
		}
	}
	if info, ok := msg.ParticipantDetails[msg.SenderID]; ok {
		if room.ParticipantDetails == nil {
			room.ParticipantDetails = make(map[string]entity.ParticipantInfo)
		}
		room.ParticipantDetails[msg.SenderID] = info
	}
	s.notifyRoomLocked(room)

	copied := *message
	return &copied, nil
}

func (s *MemoryChatStore) MarkRead(ctx context.Context, roomID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false, nil
	}
	if !room.HasParticipant(userID) {
		return false, errors.NotAParticipant(roomID, userID)
	}
	if room.LastMessage == nil || room.LastMessage.SenderID == userID {
		return false, nil
	}

	now := s.stamp()
	if room.ReadBy == nil {
		room.ReadBy = make(map[string]time.Time)
	}
	if prev, ok := room.ReadBy[userID]; ok && !now.After(prev) {
		return false, nil
	}
	room.ReadBy[userID] = now
	s.notifyRoomLocked(room)
	return true, nil
}

func (s *MemoryChatStore) ListMessages(ctx context.Context, roomID string, limit int) ([]*entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.snapshotLogLocked(roomID)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *MemoryChatStore) SubscribeRoom(ctx context.Context, roomID string, fn func(*entity.ChatRoom, error)) repository.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	var l *listener[*entity.ChatRoom]
	l = newListener("room:"+roomID, func(room *entity.ChatRoom) { fn(room, nil) }, func() {
		s.mu.Lock()
		delete(s.roomSubs[roomID], l)
		s.mu.Unlock()
	})
	if s.roomSubs[roomID] == nil {
		s.roomSubs[roomID] = make(map[*listener[*entity.ChatRoom]]struct{})
	}
	s.roomSubs[roomID][l] = struct{}{}

	var current *entity.ChatRoom
	if room, ok := s.rooms[roomID]; ok {
		current = room.Clone()
	}
	l.push(current)
	l.watch(ctx)
	return l
}

func (s *MemoryChatStore) SubscribeUserRooms(ctx context.Context, userID string, fn func([]*entity.ChatRoom, error)) repository.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	var l *listener[[]*entity.ChatRoom]
	l = newListener("user-rooms:"+userID, func(rooms []*entity.ChatRoom) { fn(rooms, nil) }, func() {
		s.mu.Lock()
		delete(s.userSubs[userID], l)
		s.mu.Unlock()
	})
	if s.userSubs[userID] == nil {
		s.userSubs[userID] = make(map[*listener[[]*entity.ChatRoom]]struct{})
	}
	s.userSubs[userID][l] = struct{}{}
	l.push(s.roomsForLocked(userID))
	l.watch(ctx)
	return l
}

func (s *MemoryChatStore) SubscribeMessages(ctx context.Context, roomID string, fn func([]*entity.Message, error)) repository.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	var l *listener[[]*entity.Message]
	l = newListener("messages:"+roomID, func(msgs []*entity.Message) { fn(msgs, nil) }, func() {
		s.mu.Lock()
		delete(s.logSubs[roomID], l)
		s.mu.Unlock()
	})
	if s.logSubs[roomID] == nil {
		s.logSubs[roomID] = make(map[*listener[[]*entity.Message]]struct{})
	}
	s.logSubs[roomID][l] = struct{}{}
	l.push(s.snapshotLogLocked(roomID))
	l.watch(ctx)
	return l
}

// SubscriberCount reports live subscriptions; tests use it to detect leaks.
func (s *MemoryChatStore) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, subs := range s.roomSubs {
		n += len(subs)
	}
	for _, subs := range s.userSubs {
		n += len(subs)
	}
	for _, subs := range s.logSubs {
		n += len(subs)
	}
	return n
}

func (s *MemoryChatStore) notifyRoomLocked(room *entity.ChatRoom) {
	for l := range s.roomSubs[room.ID] {
		l.push(room.Clone())
	}
	for _, uid := range room.Participants {
		subs := s.userSubs[uid]
		if len(subs) == 0 {
			continue
		}
		rooms := s.roomsForLocked(uid)
		for l := range subs {
			l.push(cloneRooms(rooms))
		}
	}
}

func (s *MemoryChatStore) notifyLogLocked(roomID string) {
	subs := s.logSubs[roomID]
	if len(subs) == 0 {
		return
	}
	for l := range subs {
		l.push(s.snapshotLogLocked(roomID))
	}
}

func (s *MemoryChatStore) snapshotLogLocked(roomID string) []*entity.Message {
	src := s.messages[roomID]
	out := make([]*entity.Message, len(src))
	for i, m := range src {
		copied := *m
		out[i] = &copied
	}
	entity.SortMessages(out)
	return out
}

// roomsForLocked lists the user's rooms, most recent activity first.
func (s *MemoryChatStore) roomsForLocked(userID string) []*entity.ChatRoom {
	var rooms []*entity.ChatRoom
	for _, room := range s.rooms {
		if room.HasParticipant(userID) {
			rooms = append(rooms, room.Clone())
		}
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		ti, tj := activityAt(rooms[i]), activityAt(rooms[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms
}

func activityAt(room *entity.ChatRoom) time.Time {
	if room.LastMessage != nil {
		return room.LastMessage.CreatedAt
	}
	return room.CreatedAt
}

func cloneRooms(rooms []*entity.ChatRoom) []*entity.ChatRoom {
	out := make([]*entity.ChatRoom, len(rooms))
	for i, r := range rooms {
		out[i] = r.Clone()
	}
	return out
}
