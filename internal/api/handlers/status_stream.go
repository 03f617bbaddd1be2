package handlers

import (
	"net/http"
	"time"

	"github.com/bhandras/avatarctl/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const statusWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	// The server only listens on loopback.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StatusEvent is pushed to status stream clients.
type StatusEvent struct {
	Type string              `json:"type"`
	Data ModelStatusResponse `json:"data"`
}

// StatusStream handles GET /v1/model/status/stream. It upgrades to a
// websocket and pushes the model status on connect and after every change.
// Rapid changes may be coalesced; the last one is always delivered.
func (h *Handler) StatusStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[stream] websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.session.Subscribe()
	defer cancel()

	// Inbound messages are ignored; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debugf("[stream] read error: %v", err)
				}
				return
			}
		}
	}()

	send := func(resp ModelStatusResponse) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
		if err := conn.WriteJSON(StatusEvent{Type: "status", Data: resp}); err != nil {
			logger.Debugf("[stream] write error: %v", err)
			return false
		}
		return true
	}

	logger.Debugf("[stream] client connected")
	if !send(statusResponse(h.session.Snapshot())) {
		return
	}

	for {
		select {
		case snap := <-updates:
			if !send(statusResponse(snap)) {
				return
			}
		case <-closed:
			logger.Debugf("[stream] client disconnected")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
