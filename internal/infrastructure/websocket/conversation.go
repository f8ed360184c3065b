package websocket

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"petadopt/internal/domain/entity"
	"petadopt/internal/usecase"
	"petadopt/pkg/errors"
)

// Conversation binds one connection to a chat session and a composer. It is
// the viewer for the session: badge, cue and live room frames go to the client.
type Conversation struct {
	client   *Client
	clock    clockwork.Clock
	session  *usecase.Session
	composer *usecase.Composer
}

func NewConversation(
	client *Client,
	chat *usecase.ChatUseCase,
	aggregator *usecase.UnreadAggregator,
	clock clockwork.Clock,
	indicatorTTL time.Duration,
) *Conversation {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Conversation{
		client: client,
		clock:  clock,
	}
	presenter := usecase.NewNotificationPresenter(c, c)
	c.session = usecase.NewSession(chat, aggregator, presenter, c)
	c.composer = usecase.NewComposer(chat, client.UserID, clock, indicatorTTL)
	return c
}

// Start signs the connection's user in; ctx bounds every subscription.
func (c *Conversation) Start(ctx context.Context) error {
	return c.session.SignIn(ctx, c.client.UserID)
}

func (c *Conversation) Close() {
	c.session.Close()
}

func (c *Conversation) ShowBadge(state entity.UnreadState) {
	c.send(Frame{Type: MessageTypeUnread, Data: UnreadData{Count: state.Count, Rooms: state.Rooms}})
}

func (c *Conversation) PlayCue(roomID string) error {
	if !c.send(Frame{Type: MessageTypeNotificationCue, RoomID: roomID, Data: CueData{RoomID: roomID}}) {
		return fmt.Errorf("cue for room %s not delivered to client %s", roomID, c.client.ID)
	}
	return nil
}

func (c *Conversation) OnRoom(roomID string, room *entity.ChatRoom) {
	c.send(Frame{Type: MessageTypeRoom, RoomID: roomID, Data: room})
}

func (c *Conversation) OnMessages(roomID string, messages []*entity.Message) {
	c.send(Frame{Type: MessageTypeMessages, RoomID: roomID, Data: MessagesData{Messages: messages}})
}

func (c *Conversation) OnError(err error) {
	c.sendError(err)
}

func (c *Conversation) send(frame Frame) bool {
	frame.Timestamp = c.clock.Now().UTC().Format(time.RFC3339)
	return c.client.Send(frame)
}

func (c *Conversation) sendError(err error) {
	code := errors.Code(err)
	message := "Internal server error"
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
	}
	c.send(Frame{Type: MessageTypeError, Data: ErrorData{Code: code, Message: message}})
}
