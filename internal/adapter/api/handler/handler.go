package handler

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
	Health    *HealthHandler

	// Dev is nil unless the service runs on the in-memory store.
	Dev *DevTokenHandler
}
