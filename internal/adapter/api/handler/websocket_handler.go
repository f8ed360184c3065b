package handler

import (
	"context"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	ws "petadopt/internal/infrastructure/websocket"
	"petadopt/internal/usecase"
	"petadopt/pkg/errors"
	"petadopt/pkg/logger"
	"petadopt/pkg/response"
)

type WebSocketHandler struct {
	wsManager    *ws.Manager
	chatUseCase  *usecase.ChatUseCase
	aggregator   *usecase.UnreadAggregator
	clock        clockwork.Clock
	indicatorTTL time.Duration
	upgrader     gorillaws.Upgrader
}

func NewWebSocketHandler(
	wsManager *ws.Manager,
	chatUseCase *usecase.ChatUseCase,
	aggregator *usecase.UnreadAggregator,
	clock clockwork.Clock,
	indicatorTTL time.Duration,
	allowedOrigins []string,
) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:    wsManager,
		chatUseCase:  chatUseCase,
		aggregator:   aggregator,
		clock:        clock,
		indicatorTTL: indicatorTTL,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes. Every subscription of the connection ends with it.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID, ok := c.Get("uid").(string)
	if !ok || userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed for %s: %v", userID, err)
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	client := ws.NewClient(userID, conn)
	h.wsManager.Register(client)

	conversation := ws.NewConversation(client, h.chatUseCase, h.aggregator, h.clock, h.indicatorTTL)
	defer conversation.Close()

	go client.WritePump()
	if err := conversation.Start(ctx); err != nil {
		logger.Error("WebSocket session start failed for %s: %v", userID, err)
		h.wsManager.Unregister(client)
		return nil
	}

	client.ReadPump(h.wsManager, func(frame []byte) {
		conversation.HandleClientMessage(ctx, frame)
	})
	return nil
}

// originChecker allows any origin when none are configured or "*" is listed.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	if len(set) == 0 {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
