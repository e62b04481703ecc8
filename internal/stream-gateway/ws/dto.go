package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Channel: obrigatório em subscribe/unsubscribe (ex: game:crash, battle:<id>)
type ClientMsg struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}
