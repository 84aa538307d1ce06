package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pcanellas/jornada-sync/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The agent serves its own table's browser over the local
	// network; origin gating lives in the CORS layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub    *notify.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *notify.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeWs upgrades the connection and attaches the UI client to the
// push hub.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	notify.NewClient(h.hub, conn).Register()
}
