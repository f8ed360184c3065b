package router

import (
	"github.com/labstack/echo/v4"

	"petadopt/internal/adapter/api/handler"
	"petadopt/internal/adapter/api/middleware"
	"petadopt/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, handlers *handler.Handlers, authMiddleware *middleware.AuthMiddleware, requestLimiter *ratelimit.RateLimiter) {
	SetupChatRouter(e, handlers.Chat, authMiddleware, requestLimiter)
	SetupWebSocketRouter(e, handlers.WebSocket, authMiddleware)
	SetupHealthRouter(e, handlers.Health)
	SetupDevRouter(e, handlers.Dev)
}
