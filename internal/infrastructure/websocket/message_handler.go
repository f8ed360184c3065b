package websocket

import (
	"context"
	"encoding/json"

	"petadopt/internal/domain/entity"
	"petadopt/internal/usecase"
	"petadopt/pkg/errors"
	"petadopt/pkg/logger"
)

// Client frame types
const (
	MessageTypePing        = "ping"
	MessageTypeJoinRoom    = "join_room"
	MessageTypeLeaveRoom   = "leave_room"
	MessageTypeSendMessage = "send_message"
	MessageTypeMarkRead    = "mark_read"
)

// Server frame types
const (
	MessageTypePong            = "pong"
	MessageTypeUnread          = "unread"
	MessageTypeNotificationCue = "notification_cue"
	MessageTypeMessages        = "messages"
	MessageTypeRoom            = "room"
	MessageTypeSendResult      = "send_result"
	MessageTypeError           = "error"
)

// Frame is the envelope of every WebSocket message in both directions.
type Frame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	RoomID    string      `json:"room_id,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

type clientFrame struct {
	Type   string          `json:"type"`
	RoomID string          `json:"room_id"`
	Data   json.RawMessage `json:"data"`
}

type SendMessageData struct {
	TempID string `json:"temp_id"`
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
}

type RoomData struct {
	RoomID string `json:"room_id"`
}

type UnreadData struct {
	Count int             `json:"count"`
	Rooms map[string]bool `json:"rooms"`
}

type CueData struct {
	RoomID string `json:"room_id"`
}

type MessagesData struct {
	Messages []*entity.Message `json:"messages"`
}

type SendResultData struct {
	TempID    string             `json:"temp_id,omitempty"`
	Status    string             `json:"status"`
	Message   *entity.Message    `json:"message,omitempty"`
	Indicator *usecase.Indicator `json:"indicator,omitempty"`
	Draft     string             `json:"draft,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleClientMessage dispatches one frame received from the client.
func (c *Conversation) HandleClientMessage(ctx context.Context, raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		logger.Info("WebSocket: failed to unmarshal frame from %s: %v", c.client.UserID, err)
		c.sendError(errors.BadRequest("Invalid message format", err))
		return
	}

	logger.Debug("WebSocket: received '%s' from %s", frame.Type, c.client.UserID)

	switch frame.Type {
	case MessageTypePing:
		c.send(Frame{Type: MessageTypePong, Data: map[string]string{"status": "alive"}})

	case MessageTypeJoinRoom:
		c.handleJoinRoom(frame)

	case MessageTypeLeaveRoom:
		c.session.CloseRoom()
		c.composer.SetRoom("")

	case MessageTypeSendMessage:
		var data SendMessageData
		if err := decodeData(frame, &data); err != nil {
			c.sendError(err)
			return
		}
		go c.handleSendMessage(ctx, data)

	case MessageTypeMarkRead:
		var data RoomData
		if err := decodeData(frame, &data); err != nil {
			c.sendError(err)
			return
		}
		if _, err := c.session.MarkRead(ctx, data.RoomID); err != nil {
			c.sendError(err)
		}

	default:
		logger.Info("WebSocket: unknown frame type '%s' from %s", frame.Type, c.client.UserID)
		c.sendError(errors.BadRequest("Unknown message type", nil))
	}
}

func (c *Conversation) handleJoinRoom(frame clientFrame) {
	var data RoomData
	if err := decodeData(frame, &data); err != nil {
		c.sendError(err)
		return
	}
	if err := c.session.OpenRoom(data.RoomID); err != nil {
		c.sendError(err)
		return
	}
	c.composer.SetRoom(data.RoomID)
}

func (c *Conversation) handleSendMessage(ctx context.Context, data SendMessageData) {
	if data.RoomID != "" {
		c.composer.SetRoom(data.RoomID)
	}
	c.composer.SetDraft(data.Text)

	message, err := c.composer.Submit(ctx)
	result := SendResultData{
		TempID:    data.TempID,
		Status:    "sent",
		Message:   message,
		Indicator: c.composer.Indicator(),
	}
	if err != nil {
		result.Status = "failed"
		result.Draft = c.composer.Draft()
		if errors.Is(err, errors.CodeConflict) {
			result.Draft = data.Text
		}
	}
	c.send(Frame{Type: MessageTypeSendResult, RoomID: c.composer.RoomID(), Data: result})
	if err != nil {
		c.sendError(err)
	}
}

// decodeData reads the frame payload, accepting room_id at the envelope level.
func decodeData(frame clientFrame, v interface{}) error {
	if len(frame.Data) > 0 && string(frame.Data) != "null" {
		if err := json.Unmarshal(frame.Data, v); err != nil {
			return errors.BadRequest("Invalid "+frame.Type+" payload", err)
		}
	}
	if frame.RoomID == "" {
		return nil
	}
	switch d := v.(type) {
	case *RoomData:
		if d.RoomID == "" {
			d.RoomID = frame.RoomID
		}
	case *SendMessageData:
		if d.RoomID == "" {
			d.RoomID = frame.RoomID
		}
	}
	return nil
}
