package websocket

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterrepo "petadopt/internal/adapter/repository"
	"petadopt/internal/domain/entity"
	"petadopt/internal/usecase"
	"petadopt/pkg/logger"
)

type received struct {
	Type   string          `json:"type"`
	RoomID string          `json:"room_id"`
	Data   json.RawMessage `json:"data"`
}

type harness struct {
	store *adapterrepo.MemoryChatStore
	chat  *usecase.ChatUseCase
	agg   *usecase.UnreadAggregator
	clock clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	logger.SetOutput(io.Discard)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
	store := adapterrepo.NewMemoryChatStore(clock)
	users := adapterrepo.NewMemoryUserRepository()
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, users.Upsert(context.Background(), &entity.Profile{ID: id, DisplayName: id}))
	}
	identity := usecase.NewIdentityResolver(users, nil, nil)
	chat := usecase.NewChatUseCase(store, store, adapterrepo.NewMemoryListingRepository(), identity, nil)
	return &harness{store: store, chat: chat, agg: usecase.NewUnreadAggregator(store), clock: clock}
}

// frames reads what the server queued for one client, keeping frames of
// other types for later calls.
type frames struct {
	t       *testing.T
	client  *Client
	backlog []received
}

func (h *harness) connect(t *testing.T, userID string) (*Conversation, *frames) {
	client := NewClient(userID, nil)
	conv := NewConversation(client, h.chat, h.agg, h.clock, 3*time.Second)
	require.NoError(t, conv.Start(context.Background()))
	t.Cleanup(conv.Close)
	return conv, &frames{t: t, client: client}
}

func (r *frames) next(frameType string) received {
	r.t.Helper()
	for i, f := range r.backlog {
		if f.Type == frameType {
			r.backlog = append(r.backlog[:i], r.backlog[i+1:]...)
			return f
		}
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case payload := <-r.client.send:
			var f received
			require.NoError(r.t, json.Unmarshal(payload, &f))
			if f.Type == frameType {
				return f
			}
			r.backlog = append(r.backlog, f)
		case <-deadline:
			r.t.Fatalf("no %s frame received", frameType)
		}
	}
}

func TestConversationPingPong(t *testing.T) {
	h := newHarness(t)
	conv, client := h.connect(t, "alice")

	conv.HandleClientMessage(context.Background(), []byte(`{"type":"ping"}`))
	client.next(MessageTypePong)
}

func TestConversationRejectsBadFrames(t *testing.T) {
	h := newHarness(t)
	conv, client := h.connect(t, "alice")

	conv.HandleClientMessage(context.Background(), []byte(`not json`))
	f := client.next(MessageTypeError)
	assert.Contains(t, string(f.Data), "BAD_REQUEST")

	conv.HandleClientMessage(context.Background(), []byte(`{"type":"typing"}`))
	f = client.next(MessageTypeError)
	assert.Contains(t, string(f.Data), "Unknown message type")

	conv.HandleClientMessage(context.Background(), []byte(`{"type":"join_room","room_id":"bob_carol"}`))
	f = client.next(MessageTypeError)
	assert.Contains(t, string(f.Data), "NOT_A_PARTICIPANT")
}

func TestConversationDeliversUnreadAndCue(t *testing.T) {
	h := newHarness(t)
	_, bobClient := h.connect(t, "bob")

	f := bobClient.next(MessageTypeUnread)
	var unread UnreadData
	require.NoError(t, json.Unmarshal(f.Data, &unread))
	assert.Equal(t, 0, unread.Count)

	_, err := h.chat.SendMessage(context.Background(), "alice_bob", "alice", "Hi")
	require.NoError(t, err)

	f = bobClient.next(MessageTypeUnread)
	require.NoError(t, json.Unmarshal(f.Data, &unread))
	assert.Equal(t, 1, unread.Count)
	assert.True(t, unread.Rooms["alice_bob"])

	cue := bobClient.next(MessageTypeNotificationCue)
	assert.Equal(t, "alice_bob", cue.RoomID)
}

func TestConversationJoinAndSend(t *testing.T) {
	h := newHarness(t)
	conv, client := h.connect(t, "alice")
	ctx := context.Background()

	conv.HandleClientMessage(ctx, []byte(`{"type":"join_room","data":{"room_id":"alice_bob"}}`))
	f := client.next(MessageTypeMessages)
	assert.Equal(t, "alice_bob", f.RoomID)

	conv.HandleClientMessage(ctx, []byte(`{"type":"send_message","data":{"temp_id":"t1","room_id":"alice_bob","text":"  hello bob  "}}`))
	f = client.next(MessageTypeSendResult)
	var result SendResultData
	require.NoError(t, json.Unmarshal(f.Data, &result))
	assert.Equal(t, "sent", result.Status)
	assert.Equal(t, "t1", result.TempID)
	require.NotNil(t, result.Message)
	assert.Equal(t, "hello bob", result.Message.Text)

	f = client.next(MessageTypeMessages)
	var messages MessagesData
	require.NoError(t, json.Unmarshal(f.Data, &messages))
	require.Len(t, messages.Messages, 1)

	conv.HandleClientMessage(ctx, []byte(`{"type":"send_message","room_id":"alice_bob","data":{"text":"   "}}`))
	f = client.next(MessageTypeSendResult)
	require.NoError(t, json.Unmarshal(f.Data, &result))
	assert.Equal(t, "failed", result.Status)
	assert.Equal(t, "   ", result.Draft)
}

func TestManagerTracksConnections(t *testing.T) {
	m := NewManager()
	a1 := NewClient("alice", nil)
	a2 := NewClient("alice", nil)
	m.Register(a1)
	m.Register(a2)
	assert.Equal(t, 2, m.ConnectionCount())
	assert.True(t, m.IsOnline("alice"))

	m.Unregister(a1)
	assert.True(t, m.IsOnline("alice"))
	assert.False(t, a1.Send(Frame{Type: MessageTypePong}))

	m.Shutdown()
	assert.Equal(t, 0, m.ConnectionCount())
	assert.False(t, a2.Send(Frame{Type: MessageTypePong}))
}
