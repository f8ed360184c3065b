package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	ws "petadopt/internal/infrastructure/websocket"
)

type HealthHandler struct {
	wsManager    *ws.Manager
	storeBackend string
}

func NewHealthHandler(wsManager *ws.Manager, storeBackend string) *HealthHandler {
	return &HealthHandler{
		wsManager:    wsManager,
		storeBackend: storeBackend,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "Server is running",
		"time":        time.Now().Format(time.RFC3339),
		"store":       h.storeBackend,
		"connections": h.wsManager.ConnectionCount(),
	})
}
