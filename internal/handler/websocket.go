package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"eventchat/internal/model"
)

// createUpgrader creates a WebSocket upgrader with the given allowed origins.
// Requests without an Origin header come from non-browser clients and pass.
func createUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedMap[origin]
		},
	}
}

// HandleWebSocket handles GET /chat/{eventId}/ws
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	lg := logger(r)
	eventID, ok := pathID(r, "eventId")
	if !ok {
		http.NotFound(w, r)
		return
	}

	upgrader := createUpgrader(h.Config.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		lg.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	h.ClientMu.Lock()
	h.Clients[conn] = eventID
	totalClients := len(h.Clients)
	h.ClientMu.Unlock()

	lg.Info().Msgf("[WebSocket] New connection for event %d. Total clients: %d", eventID, totalClients)

	// クライアントからのメッセージを受信（キープアライブ用）
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.ClientMu.Lock()
			delete(h.Clients, conn)
			remainingClients := len(h.Clients)
			h.ClientMu.Unlock()
			lg.Info().Msgf("[WebSocket] Client disconnected. Total clients: %d", remainingClients)
			break
		}
	}
}

// notify queues a change for broadcasting without blocking the request.
func (h *Handler) notify(ev model.ChangeEvent) {
	select {
	case h.Broadcast <- ev:
		log.Debug().Msgf("[WebSocket] 📢 Queued %s event for message: %s", ev.Type, ev.ID)
	default:
		log.Warn().Msgf("[WebSocket] Broadcast queue full, dropping %s event for message: %s", ev.Type, ev.ID)
	}
}

// HandleBroadcast sends change events to the clients watching the same event.
// It returns when the Broadcast channel is closed.
func (h *Handler) HandleBroadcast() {
	for event := range h.Broadcast {
		// clients マップをスナップショットしてからロックを外すことで、
		// range 中に delete して "concurrent map iteration and map write"
		// が発生するのを防ぐ
		h.ClientMu.RLock()
		clientsSnapshot := make([]*websocket.Conn, 0, len(h.Clients))
		for client, eventID := range h.Clients {
			if eventID == event.EventID {
				clientsSnapshot = append(clientsSnapshot, client)
			}
		}
		h.ClientMu.RUnlock()

		for _, client := range clientsSnapshot {
			if err := client.WriteJSON(event); err != nil {
				client.Close()
				h.ClientMu.Lock()
				delete(h.Clients, client)
				h.ClientMu.Unlock()
			}
		}
	}
}
