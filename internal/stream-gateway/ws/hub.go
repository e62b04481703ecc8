package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/caseclash/platform/internal/broadcast"
)

// Hub gerencia conexões WebSocket e assinaturas por canal lógico de jogo.
// subs: mapeia canal (game:crash, game:roulette, battle:<id>, ...) para o
// conjunto de conexões inscritas.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*websocket.Conn]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*websocket.Conn]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Permite subscribe/unsubscribe em canais e responde a pings
// Cada cliente pode se inscrever em múltiplos canais
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[msg.Channel]; !ok {
				h.subs[msg.Channel] = make(map[*websocket.Conn]struct{})
			}
			h.subs[msg.Channel][conn] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[msg.Channel]; ok {
				delete(m, conn)
				if len(m) == 0 {
					delete(h.subs, msg.Channel)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		}
	}
	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for _, set := range h.subs {
		delete(set, conn)
	}
	h.mu.Unlock()
}

// Broadcast entrega o envelope para todos os clientes inscritos no canal
func (h *Hub) Broadcast(msg broadcast.Message) {
	h.mu.RLock()
	conns := h.subs[msg.Channel]
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(msg)
	for c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}
