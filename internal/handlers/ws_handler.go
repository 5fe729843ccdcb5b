package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"visaradar/internal/realtime"
)

// WSHandler апгрейдит соединение и держит его до закрытия клиентом.
// Поток только серверный: клиент ничего не присылает.
type WSHandler struct {
	Hub *realtime.StatusHub
}

func NewWSHandler(hub *realtime.StatusHub) *WSHandler {
	return &WSHandler{Hub: hub}
}

func (h *WSHandler) Status(c *gin.Context) {
	conn, err := realtime.Upgrade(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "WebSocket upgrade failed"})
		return
	}

	h.Hub.Register(conn)
	log.Printf("[ws][status] client connected, total=%d", h.Hub.ClientCount())

	// блокируемся на чтении, чтобы поймать закрытие со стороны клиента
	for {
		var discard any
		if err := conn.ReadJSON(&discard); err != nil {
			break
		}
	}
	h.Hub.Unregister(conn)
	log.Printf("[ws][status] client disconnected, total=%d", h.Hub.ClientCount())
}
