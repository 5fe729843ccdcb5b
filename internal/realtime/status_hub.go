package realtime

import (
	"sync"

	"visaradar/internal/models"
)

// StatusHub раздаёт подключённым операторским дашбордам живые обновления
// сессий сканирования и уведомления.
type StatusHub struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{
		conns: make(map[*Conn]struct{}),
	}
}

func (h *StatusHub) Register(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *StatusHub) Unregister(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	_ = conn.Close()
}

type statusEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// BroadcastSession рассылает снимок сессии всем подключённым.
// Мёртвые соединения снимаются с учёта по ошибке записи.
func (h *StatusHub) BroadcastSession(session models.CountrySession) {
	h.broadcast(statusEvent{Event: "session_update", Payload: session})
}

func (h *StatusHub) BroadcastNotification(n models.Notification) {
	h.broadcast(statusEvent{Event: "notification", Payload: n})
}

func (h *StatusHub) broadcast(event statusEvent) {
	h.mu.RLock()
	var dead []*Conn
	for conn := range h.conns {
		if err := conn.WriteJSON(event); err != nil {
			dead = append(dead, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range dead {
		h.Unregister(conn)
	}
}

func (h *StatusHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
