// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"

	"notesaas-service/internal/middleware"
	ws "notesaas-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is the CORS middleware's concern
	},
}

type WebSocketHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// HandleConnection upgrades an authenticated request and streams session
// change events for the caller's subject. The token rides the `token` query
// param since browsers cannot set headers on websocket handshakes.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	subject := middleware.MustGetSubject(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed",
			zap.String("subject", subject), zap.Error(err))
		return
	}

	ws.NewClient(h.hub, conn, subject, h.logger).Start()
}
