package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"petadopt/internal/domain/entity"
	"petadopt/internal/domain/repository"
	"petadopt/internal/infrastructure/ratelimit"
	"petadopt/pkg/errors"
	"petadopt/pkg/logger"
)

// ChatUseCase is the chat room store as seen by callers: room identity,
// sending, read receipts and live room/log subscriptions.
type ChatUseCase struct {
	rooms       repository.ChatRoomRepository
	messages    repository.MessageLog
	listings    repository.ListingRepository
	identity    *IdentityResolver
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	rooms repository.ChatRoomRepository,
	messages repository.MessageLog,
	listings repository.ListingRepository,
	identity *IdentityResolver,
	rateLimiter *ratelimit.RateLimiter,
) *ChatUseCase {
	return &ChatUseCase{
		rooms:       rooms,
		messages:    messages,
		listings:    listings,
		identity:    identity,
		rateLimiter: rateLimiter,
	}
}

type StartConversationInput struct {
	RecipientID string
	ListingID   string
	Text        string
}

type ConversationResult struct {
	Room    *RoomView       `json:"room"`
	Message *entity.Message `json:"message"`
}

// RoomView is a room together with the caller's unread flag.
type RoomView struct {
	*entity.ChatRoom
	OtherUserID string `json:"other_user_id"`
	Unread      bool   `json:"unread"`
}

// SanitizeText trims the text and caps it at MaxMessageLength runes.
func SanitizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.Validation("message text cannot be empty")
	}
	if utf8.RuneCountInString(text) > entity.MaxMessageLength {
		runes := []rune(text)
		text = string(runes[:entity.MaxMessageLength])
	}
	return text, nil
}

// GetOrCreateRoom resolves the room of a pair. The room document itself is
// created by the first send.
func (uc *ChatUseCase) GetOrCreateRoom(userA, userB string) (string, error) {
	return entity.RoomID(userA, userB)
}

func (uc *ChatUseCase) SendMessage(ctx context.Context, roomID, senderID, text string) (*entity.Message, error) {
	return uc.send(ctx, roomID, senderID, text, nil)
}

// StartConversation messages a user, usually a listing owner, creating the room
// with the listing as context when it does not exist yet.
func (uc *ChatUseCase) StartConversation(ctx context.Context, senderID string, input StartConversationInput) (*ConversationResult, error) {
	roomID, err := entity.RoomID(senderID, input.RecipientID)
	if err != nil {
		return nil, err
	}

	if _, err := uc.identity.Resolve(ctx, input.RecipientID); err != nil {
		logger.Info("StartConversation: recipient %s not resolvable: %v", input.RecipientID, err)
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.NotFound("Recipient", err)
		}
		return nil, err
	}

	var listing *entity.ListingDetails
	if input.ListingID != "" {
		l, err := uc.listings.GetByID(ctx, input.ListingID)
		if err != nil {
			return nil, err
		}
		listing = l.Details()
	}

	message, err := uc.send(ctx, roomID, senderID, input.Text, listing)
	if err != nil {
		return nil, err
	}

	room, err := uc.GetRoom(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}
	return &ConversationResult{Room: room, Message: message}, nil
}

func (uc *ChatUseCase) send(ctx context.Context, roomID, senderID, text string, listing *entity.ListingDetails) (*entity.Message, error) {
	text, err := SanitizeText(text)
	if err != nil {
		return nil, err
	}

	participants, err := entity.ParseRoomID(roomID)
	if err != nil {
		return nil, err
	}
	if participants[0] != senderID && participants[1] != senderID {
		return nil, errors.NotAParticipant(roomID, senderID)
	}

	if uc.rateLimiter != nil {
		allowed, waitTime := uc.rateLimiter.Allow(senderID, ratelimit.ActionSendMessage)
		if !allowed {
			logger.Info("SendMessage rate limited: user %s must wait %v", senderID, waitTime)
			return nil, errors.TooManyRequests(
				fmt.Sprintf("Rate limit exceeded. Try again in %v", waitTime.Round(time.Second)), nil)
		}
	}

	details := make(map[string]entity.ParticipantInfo, len(participants))
	for _, uid := range participants {
		details[uid] = uc.identity.Details(ctx, uid)
	}

	message, err := uc.rooms.AppendMessage(ctx, repository.NewMessage{
		RoomID:             roomID,
		SenderID:           senderID,
		Text:               text,
		Participants:       participants,
		ParticipantDetails: details,
		Listing:            listing,
	})
	if err != nil {
		logger.Error("SendMessage failed for room %s: %v", roomID, err)
		return nil, err
	}

	logger.Debug("Message %s stored in room %s (seq %d)", message.ID, roomID, message.Seq)
	return message, nil
}

// MarkRead records that userID has seen the room up to now.
func (uc *ChatUseCase) MarkRead(ctx context.Context, roomID, userID string) (bool, error) {
	if err := uc.checkMembership(roomID, userID); err != nil {
		return false, err
	}
	return uc.rooms.MarkRead(ctx, roomID, userID)
}

func (uc *ChatUseCase) GetRoom(ctx context.Context, roomID, userID string) (*RoomView, error) {
	if err := uc.checkMembership(roomID, userID); err != nil {
		return nil, err
	}
	room, err := uc.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, errors.NotAParticipant(roomID, userID)
	}
	return newRoomView(room, userID), nil
}

// ListRooms returns the user's rooms, most recent activity first.
func (uc *ChatUseCase) ListRooms(ctx context.Context, userID string) ([]*RoomView, error) {
	rooms, err := uc.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*RoomView, 0, len(rooms))
	for _, room := range rooms {
		if !room.HasParticipant(userID) {
			continue
		}
		views = append(views, newRoomView(room, userID))
	}
	return views, nil
}

func (uc *ChatUseCase) UnreadState(ctx context.Context, userID string) (entity.UnreadState, error) {
	rooms, err := uc.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		return entity.UnreadState{}, err
	}
	return Aggregate(userID, rooms), nil
}

func (uc *ChatUseCase) ListMessages(ctx context.Context, roomID, userID string, limit int) ([]*entity.Message, error) {
	if err := uc.checkMembership(roomID, userID); err != nil {
		return nil, err
	}
	return uc.messages.ListMessages(ctx, roomID, limit)
}

func (uc *ChatUseCase) SubscribeRoom(ctx context.Context, roomID string, fn func(*entity.ChatRoom, error)) repository.Subscription {
	return uc.rooms.SubscribeRoom(ctx, roomID, fn)
}

func (uc *ChatUseCase) SubscribeMessages(ctx context.Context, roomID string, fn func([]*entity.Message, error)) repository.Subscription {
	return uc.messages.SubscribeMessages(ctx, roomID, fn)
}

// checkMembership uses the participant pair encoded in the room id, which is
// fixed for the lifetime of the room.
func (uc *ChatUseCase) checkMembership(roomID, userID string) error {
	participants, err := entity.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	if participants[0] != userID && participants[1] != userID {
		return errors.NotAParticipant(roomID, userID)
	}
	return nil
}

func newRoomView(room *entity.ChatRoom, userID string) *RoomView {
	return &RoomView{
		ChatRoom:    room,
		OtherUserID: room.OtherParticipant(userID),
		Unread:      IsUnread(room, userID),
	}
}
