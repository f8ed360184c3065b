package usecase

import (
	"context"
	"sync"

	"petadopt/internal/domain/entity"
	"petadopt/internal/domain/repository"
	"petadopt/pkg/errors"
	"petadopt/pkg/logger"
)

// Session owns the live subscriptions of one signed-in viewer: the unread
// aggregate feeding the presenter, and the log and summary of the open room.
// Callbacks from an earlier sign-in or an earlier open room are dropped.
type Session struct {
	mu         sync.Mutex
	chat       *ChatUseCase
	aggregator *UnreadAggregator
	presenter  *NotificationPresenter
	listener   SessionListener

	ctx        context.Context
	cancel     context.CancelFunc
	userID     string
	generation uint64
	unreadSub  repository.Subscription

	activeRoom string
	roomGen    uint64
	roomSubs   []repository.Subscription
}

func NewSession(chat *ChatUseCase, aggregator *UnreadAggregator, presenter *NotificationPresenter, listener SessionListener) *Session {
	return &Session{
		chat:       chat,
		aggregator: aggregator,
		presenter:  presenter,
		listener:   listener,
	}
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) ActiveRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRoom
}

// SignIn subscribes to userID's rooms. Signing in as another user first signs
// the current one out.
func (s *Session) SignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.Validation("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == userID {
		return nil
	}
	s.signOutLocked()

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.userID = userID
	s.generation++
	gen := s.generation

	s.unreadSub = s.aggregator.Subscribe(s.ctx, userID, func(state entity.UnreadState, err error) {
		if !s.current(gen) {
			return
		}
		if err != nil {
			s.listener.OnError(err)
			return
		}
		s.presenter.Present(state)
	})
	logger.Debug("Session signed in as %s", userID)
	return nil
}

func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOutLocked()
}

// Close tears down every subscription held by the session.
func (s *Session) Close() {
	s.SignOut()
}

// OpenRoom shows roomID: its log and summary are streamed to the listener and
// the room is marked read whenever it has unread content.
func (s *Session) OpenRoom(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return errors.Unauthorized("sign in before opening a room", nil)
	}
	if err := s.chat.checkMembership(roomID, s.userID); err != nil {
		return err
	}
	if s.activeRoom == roomID {
		return nil
	}
	s.closeRoomLocked()

	s.activeRoom = roomID
	s.roomGen++
	gen, roomGen, userID, ctx := s.generation, s.roomGen, s.userID, s.ctx
	s.presenter.SetActiveRoom(roomID)

	logSub := s.chat.SubscribeMessages(ctx, roomID, func(messages []*entity.Message, err error) {
		if !s.currentRoom(gen, roomGen) {
			return
		}
		if err != nil {
			s.listener.OnError(err)
			return
		}
		s.listener.OnMessages(roomID, messages)
	})
	roomSub := s.chat.SubscribeRoom(ctx, roomID, func(room *entity.ChatRoom, err error) {
		if !s.currentRoom(gen, roomGen) {
			return
		}
		if err != nil {
			s.listener.OnError(err)
			return
		}
		s.listener.OnRoom(roomID, room)
		if IsUnread(room, userID) {
			if _, err := s.chat.MarkRead(ctx, roomID, userID); err != nil {
				logger.Warn("Auto mark-read of room %s for %s failed: %v", roomID, userID, err)
				s.listener.OnError(err)
			}
		}
	})
	s.roomSubs = []repository.Subscription{logSub, roomSub}
	return nil
}

func (s *Session) CloseRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeRoomLocked()
}

// MarkRead marks a room read on behalf of the signed-in user.
func (s *Session) MarkRead(ctx context.Context, roomID string) (bool, error) {
	userID := s.UserID()
	if userID == "" {
		return false, errors.Unauthorized("sign in before marking rooms read", nil)
	}
	return s.chat.MarkRead(ctx, roomID, userID)
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID != "" && s.generation == gen
}

func (s *Session) currentRoom(gen, roomGen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID != "" && s.generation == gen && s.roomGen == roomGen && s.activeRoom != ""
}

func (s *Session) closeRoomLocked() {
	for _, sub := range s.roomSubs {
		sub.Unsubscribe()
	}
	s.roomSubs = nil
	if s.activeRoom != "" {
		s.activeRoom = ""
		s.roomGen++
		s.presenter.SetActiveRoom("")
	}
}

func (s *Session) signOutLocked() {
	if s.userID == "" {
		return
	}
	s.closeRoomLocked()
	if s.unreadSub != nil {
		s.unreadSub.Unsubscribe()
		s.unreadSub = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	logger.Debug("Session signed out %s", s.userID)
	s.userID = ""
	s.generation++
	s.presenter.Reset()
}
