package router

import (
	"github.com/labstack/echo/v4"

	"petadopt/internal/adapter/api/handler"
	"petadopt/internal/adapter/api/middleware"
	"petadopt/internal/infrastructure/ratelimit"
)

// SetupChatRouter mounts the chat REST endpoints. The live views are served
// over the WebSocket route.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware, requestLimiter *ratelimit.RateLimiter) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)
	if requestLimiter != nil {
		chatGroup.Use(middleware.RequestRateLimit(requestLimiter))
	}

	// Rooms
	chatGroup.POST("", chatHandler.StartConversation)
	chatGroup.GET("", chatHandler.ListRooms)
	chatGroup.GET("/unread", chatHandler.GetUnread)
	chatGroup.GET("/:id", chatHandler.GetRoom)
	chatGroup.PUT("/:id/read", chatHandler.MarkRead)

	// Messages
	chatGroup.POST("/:id/messages", chatHandler.SendMessage)
	chatGroup.GET("/:id/messages", chatHandler.ListMessages)
}
