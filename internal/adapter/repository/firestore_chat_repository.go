package repository

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"petadopt/internal/domain/entity"
	"petadopt/internal/domain/repository"
	"petadopt/pkg/errors"
	"petadopt/pkg/logger"
)

const (
	roomsCollection    = "chatRooms"
	messagesCollection = "messages"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

// NewFirestoreChatRepository stores rooms at chatRooms/{roomId} and their
// message logs at chatRooms/{roomId}/messages/{messageId}.
func NewFirestoreChatRepository(client *firestore.Client) *firestoreChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

var (
	_ repository.ChatRoomRepository = (*firestoreChatRepository)(nil)
	_ repository.MessageLog         = (*firestoreChatRepository)(nil)
)

func (r *firestoreChatRepository) roomRef(roomID string) *firestore.DocumentRef {
	return r.client.Collection(roomsCollection).Doc(roomID)
}

func (r *firestoreChatRepository) GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error) {
	doc, err := r.roomRef(roomID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat room", err)
		}
		return nil, storeError("Failed to get chat room", err)
	}
	return decodeRoom(doc)
}

func (r *firestoreChatRepository) ListRoomsForUser(ctx context.Context, userID string) ([]*entity.ChatRoom, error) {
	iter := r.client.Collection(roomsCollection).Where("participants", "array-contains", userID).Documents(ctx)
	defer iter.Stop()

	var rooms []*entity.ChatRoom
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while listing rooms for user %s: %v", userID, err)
			return nil, storeError("Failed to list chat rooms", err)
		}
		room, err := decodeRoom(doc)
		if err != nil {
			logger.Warn("Skipping malformed room %s: %v", doc.Ref.ID, err)
			continue
		}
		rooms = append(rooms, room)
	}
	sortByActivity(rooms)
	return rooms, nil
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, msg repository.NewMessage) (*entity.Message, error) {
	roomRef := r.roomRef(msg.RoomID)
	msgRef := roomRef.Collection(messagesCollection).NewDoc()

	// Room updates go through one transaction per send: writes to the same room
	// serialize, so the commit-time createdAt never moves lastMessage backwards.
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(roomRef)
		exists := true
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
			exists = false
		}

		var seq int64 = 1
		if exists {
			room, err := decodeRoom(snap)
			if err != nil {
				return err
			}
			if !room.HasParticipant(msg.SenderID) {
				return errors.NotAParticipant(msg.RoomID, msg.SenderID)
			}
			seq = room.MessageCount + 1
		} else {
			if len(msg.Participants) != 2 {
				return errors.Validation("a new room needs exactly two participants")
			}
			if msg.Participants[0] != msg.SenderID && msg.Participants[1] != msg.SenderID {
				return errors.NotAParticipant(msg.RoomID, msg.SenderID)
			}
		}

		if err := tx.Create(msgRef, map[string]interface{}{
			"id":        msgRef.ID,
			"roomId":    msg.RoomID,
			"senderId":  msg.SenderID,
			"text":      msg.Text,
			"createdAt": firestore.ServerTimestamp,
			"seq":       seq,
		}); err != nil {
			return err
		}

		lastMessage := map[string]interface{}{
			"text":      msg.Text,
			"senderId":  msg.SenderID,
			"createdAt": firestore.ServerTimestamp,
		}

		if !exists {
			details := make(map[string]interface{}, len(msg.ParticipantDetails))
			for uid, info := range msg.ParticipantDetails {
				details[uid] = info
			}
			doc := map[string]interface{}{
				"id":                 msg.RoomID,
				"participants":       msg.Participants,
				"participantDetails": details,
				"readBy":             map[string]interface{}{},
				"lastMessage":        lastMessage,
				"messageCount":       seq,
				"createdAt":          firestore.ServerTimestamp,
			}
			if msg.Listing != nil {
				doc["listingDetails"] = msg.Listing
			}
			return tx.Create(roomRef, doc)
		}

		updates := []firestore.Update{
			{Path: "lastMessage", Value: lastMessage},
			{Path: "messageCount", Value: seq},
		}
		if info, ok := msg.ParticipantDetails[msg.SenderID]; ok {
			updates = append(updates, firestore.Update{
				FieldPath: firestore.FieldPath{"participantDetails", msg.SenderID},
				Value:     info,
			})
		}
		return tx.Update(roomRef, updates)
	})
	if err != nil {
		logger.Error("Firestore error while sending message to room %s: %v", msg.RoomID, err)
		return nil, storeError("Failed to send message", err)
	}

	doc, err := msgRef.Get(ctx)
	if err != nil {
		return nil, storeError("Failed to read back message", err)
	}
	return decodeMessage(doc)
}

func (r *firestoreChatRepository) MarkRead(ctx context.Context, roomID, userID string) (bool, error) {
	roomRef := r.roomRef(roomID)
	wrote := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		wrote = false
		snap, err := tx.Get(roomRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		room, err := decodeRoom(snap)
		if err != nil {
			return err
		}
		if !room.HasParticipant(userID) {
			return errors.NotAParticipant(roomID, userID)
		}
		if room.LastMessage == nil || room.LastMessage.SenderID == userID {
			return nil
		}

		// Field-path update touches only this user's receipt.
		wrote = true
		return tx.Update(roomRef, []firestore.Update{
			{FieldPath: firestore.FieldPath{"readBy", userID}, Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return false, storeError("Failed to mark room as read", err)
	}
	return wrote, nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, roomID string, limit int) ([]*entity.Message, error) {
	query := r.roomRef(roomID).Collection(messagesCollection).OrderBy("seq", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for room %s: %v", roomID, err)
			return nil, storeError("Failed to iterate messages", err)
		}
		message, err := decodeMessage(doc)
		if err != nil {
			logger.Warn("Skipping malformed message %s in room %s: %v", doc.Ref.ID, roomID, err)
			continue
		}
		messages = append(messages, message)
	}
	entity.SortMessages(messages)
	return messages, nil
}

func (r *firestoreChatRepository) SubscribeRoom(ctx context.Context, roomID string, fn func(*entity.ChatRoom, error)) repository.Subscription {
	ctx, cancel := context.WithCancel(ctx)
	it := r.roomRef(roomID).Snapshots(ctx)
	name := "room:" + roomID

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				logger.Error("Room subscription %s stopped: %v", roomID, err)
				safeCall(name, func() { fn(nil, storeError("Room subscription failed", err)) })
				return
			}
			if !snap.Exists() {
				safeCall(name, func() { fn(nil, nil) })
				continue
			}
			room, err := decodeRoom(snap)
			safeCall(name, func() { fn(room, err) })
		}
	}()

	return &cancelSubscription{cancel: cancel}
}

func (r *firestoreChatRepository) SubscribeUserRooms(ctx context.Context, userID string, fn func([]*entity.ChatRoom, error)) repository.Subscription {
	ctx, cancel := context.WithCancel(ctx)
	it := r.client.Collection(roomsCollection).Where("participants", "array-contains", userID).Snapshots(ctx)
	name := "user-rooms:" + userID

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				logger.Error("Room list subscription for %s stopped: %v", userID, err)
				safeCall(name, func() { fn(nil, storeError("Room list subscription failed", err)) })
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				safeCall(name, func() { fn(nil, storeError("Failed to read room list snapshot", err)) })
				continue
			}
			rooms := make([]*entity.ChatRoom, 0, len(docs))
			for _, doc := range docs {
				room, err := decodeRoom(doc)
				if err != nil {
					logger.Warn("Skipping malformed room %s: %v", doc.Ref.ID, err)
					continue
				}
				rooms = append(rooms, room)
			}
			sortByActivity(rooms)
			safeCall(name, func() { fn(rooms, nil) })
		}
	}()

	return &cancelSubscription{cancel: cancel}
}

func (r *firestoreChatRepository) SubscribeMessages(ctx context.Context, roomID string, fn func([]*entity.Message, error)) repository.Subscription {
	ctx, cancel := context.WithCancel(ctx)
	it := r.roomRef(roomID).Collection(messagesCollection).OrderBy("seq", firestore.Asc).Snapshots(ctx)
	name := "messages:" + roomID

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				logger.Error("Message subscription %s stopped: %v", roomID, err)
				safeCall(name, func() { fn(nil, storeError("Message subscription failed", err)) })
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				safeCall(name, func() { fn(nil, storeError("Failed to read message snapshot", err)) })
				continue
			}
			messages := make([]*entity.Message, 0, len(docs))
			for _, doc := range docs {
				message, err := decodeMessage(doc)
				if err != nil {
					logger.Warn("Skipping malformed message %s in room %s: %v", doc.Ref.ID, roomID, err)
					continue
				}
				messages = append(messages, message)
			}
			entity.SortMessages(messages)
			safeCall(name, func() { fn(messages, nil) })
		}
	}()

	return &cancelSubscription{cancel: cancel}
}

func decodeRoom(doc *firestore.DocumentSnapshot) (*entity.ChatRoom, error) {
	var room entity.ChatRoom
	if err := doc.DataTo(&room); err != nil {
		return nil, errors.Internal("Failed to parse chat room data", err)
	}
	if room.ID == "" {
		room.ID = doc.Ref.ID
	}
	if err := room.Validate(); err != nil {
		return nil, err
	}
	return &room, nil
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	if message.ID == "" {
		message.ID = doc.Ref.ID
	}
	if message.SenderID == "" || message.CreatedAt.IsZero() {
		return nil, errors.Validation("message " + message.ID + " is missing sender or timestamp")
	}
	return &message, nil
}

func sortByActivity(rooms []*entity.ChatRoom) {
	sort.SliceStable(rooms, func(i, j int) bool {
		ti, tj := activityAt(rooms[i]), activityAt(rooms[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return rooms[i].ID < rooms[j].ID
	})
}
