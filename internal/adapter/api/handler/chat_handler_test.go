package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petadopt/internal/adapter/api"
	"petadopt/internal/adapter/api/middleware"
	"petadopt/internal/adapter/repository"
	"petadopt/internal/domain/entity"
	"petadopt/internal/infrastructure/firebase"
	"petadopt/internal/infrastructure/ratelimit"
	"petadopt/internal/usecase"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type chatServer struct {
	e     *echo.Echo
	store *repository.MemoryChatStore
	clock clockwork.FakeClock
}

func newChatServer(t *testing.T) *chatServer {
	t.Helper()

	clock := clockwork.NewFakeClock()
	store := repository.NewMemoryChatStore(clock)
	users := repository.NewMemoryUserRepository()
	listings := repository.NewMemoryListingRepository()
	for _, p := range []*entity.Profile{
		{ID: "adopter", DisplayName: "Ada"},
		{ID: "shelter", DisplayName: "Happy Paws"},
		{ID: "stranger", DisplayName: "Sam"},
	} {
		require.NoError(t, users.Upsert(context.Background(), p))
	}
	listings.Put(entity.Listing{ID: "l1", OwnerID: "shelter", Title: "Biscuit, 2y beagle", Status: "available"})

	limiter := ratelimit.NewRateLimiter(clock, map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage: {Limit: 3, Window: time.Minute},
	})
	identity := usecase.NewIdentityResolver(users, nil, nil)
	chat := usecase.NewChatUseCase(store, store, listings, identity, limiter)

	e := echo.New()
	e.Validator = api.NewValidator()
	auth := middleware.NewAuthMiddleware(firebase.NewDevTokenVerifier(), nil)
	h := NewChatHandler(chat)

	g := e.Group("/v1/chats", auth.Authenticate)
	g.POST("", h.StartConversation)
	g.GET("", h.ListRooms)
	g.GET("/unread", h.GetUnread)
	g.GET("/:id", h.GetRoom)
	g.PUT("/:id/read", h.MarkRead)
	g.POST("/:id/messages", h.SendMessage)
	g.GET("/:id/messages", h.ListMessages)

	return &chatServer{e: e, store: store, clock: clock}
}

func (s *chatServer) do(t *testing.T, method, target, user, body string) (int, envelope) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+firebase.GenerateDevToken(user))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestStartConversationCreatesRoomWithListing(t *testing.T) {
	s := newChatServer(t)

	code, env := s.do(t, http.MethodPost, "/v1/chats", "adopter",
		`{"recipient_id":"shelter","listing_id":"l1","text":"  Is Biscuit still available?  "}`)
	require.Equal(t, http.StatusCreated, code)

	var result struct {
		Room    usecase.RoomView `json:"room"`
		Message entity.Message   `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "adopter_shelter", result.Room.ID)
	assert.Equal(t, "shelter", result.Room.OtherUserID)
	assert.False(t, result.Room.Unread)
	require.NotNil(t, result.Room.ListingDetails)
	assert.Equal(t, "l1", result.Room.ListingDetails.ListingID)
	assert.Equal(t, "Happy Paws", result.Room.ParticipantDetails["shelter"].DisplayName)
	assert.Equal(t, "Is Biscuit still available?", result.Message.Text)

	code, env = s.do(t, http.MethodGet, "/v1/chats/unread", "shelter", "")
	require.Equal(t, http.StatusOK, code)
	var unread unreadResponse
	require.NoError(t, json.Unmarshal(env.Data, &unread))
	assert.Equal(t, 1, unread.Count)
	assert.True(t, unread.Rooms["adopter_shelter"])
}

func TestStartConversationErrors(t *testing.T) {
	s := newChatServer(t)

	code, env := s.do(t, http.MethodPost, "/v1/chats", "adopter", `{"recipient_id":"ghost","text":"hi"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	code, env = s.do(t, http.MethodPost, "/v1/chats", "adopter", `{"recipient_id":"shelter"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, _ = s.do(t, http.MethodPost, "/v1/chats", "adopter", `{"recipient_id":"adopter","text":"me"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/v1/chats", "", `{"recipient_id":"shelter","text":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSendListAndMarkRead(t *testing.T) {
	s := newChatServer(t)

	code, _ := s.do(t, http.MethodPost, "/v1/chats/adopter_shelter/messages", "adopter", `{"text":"hello"}`)
	require.Equal(t, http.StatusCreated, code)
	s.clock.Advance(time.Second)
	code, _ = s.do(t, http.MethodPost, "/v1/chats/adopter_shelter/messages", "shelter", `{"text":"hi there"}`)
	require.Equal(t, http.StatusCreated, code)

	code, env := s.do(t, http.MethodGet, "/v1/chats/adopter_shelter/messages?limit=500", "adopter", "")
	require.Equal(t, http.StatusOK, code)
	var messages []entity.Message
	require.NoError(t, json.Unmarshal(env.Data, &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Text)
	assert.Equal(t, "hi there", messages[1].Text)

	code, env = s.do(t, http.MethodGet, "/v1/chats", "adopter", "")
	require.Equal(t, http.StatusOK, code)
	var rooms []usecase.RoomView
	require.NoError(t, json.Unmarshal(env.Data, &rooms))
	require.Len(t, rooms, 1)
	assert.True(t, rooms[0].Unread)

	code, env = s.do(t, http.MethodPut, "/v1/chats/adopter_shelter/read", "adopter", "")
	require.Equal(t, http.StatusOK, code)
	var marked markReadResponse
	require.NoError(t, json.Unmarshal(env.Data, &marked))
	assert.True(t, marked.Updated)

	code, env = s.do(t, http.MethodGet, "/v1/chats/adopter_shelter", "adopter", "")
	require.Equal(t, http.StatusOK, code)
	var room usecase.RoomView
	require.NoError(t, json.Unmarshal(env.Data, &room))
	assert.False(t, room.Unread)
}

func TestOutsidersAreRejected(t *testing.T) {
	s := newChatServer(t)

	code, _ := s.do(t, http.MethodPost, "/v1/chats/adopter_shelter/messages", "adopter", `{"text":"hello"}`)
	require.Equal(t, http.StatusCreated, code)

	for _, tc := range []struct {
		method, target, body string
	}{
		{http.MethodGet, "/v1/chats/adopter_shelter", ""},
		{http.MethodGet, "/v1/chats/adopter_shelter/messages", ""},
		{http.MethodPost, "/v1/chats/adopter_shelter/messages", `{"text":"let me in"}`},
		{http.MethodPut, "/v1/chats/adopter_shelter/read", ""},
	} {
		code, env := s.do(t, tc.method, tc.target, "stranger", tc.body)
		assert.Equal(t, http.StatusForbidden, code, tc.target)
		assert.Equal(t, "NOT_A_PARTICIPANT", env.Error.Code, tc.target)
	}
}

func TestSendMessageRejectsBlankAndRateLimits(t *testing.T) {
	s := newChatServer(t)

	code, env := s.do(t, http.MethodPost, "/v1/chats/adopter_shelter/messages", "adopter", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	for i := 0; i < 3; i++ {
		code, _ = s.do(t, http.MethodPost, "/v1/chats/adopter_shelter/messages", "adopter", `{"text":"ping"}`)
		require.Equal(t, http.StatusCreated, code)
	}
	code, env = s.do(t, http.MethodPost, "/v1/chats/adopter_shelter/messages", "adopter", `{"text":"ping"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)
}
