package broadcast

import (
	"context"
	"time"
)

// Publisher é o primitivo de fan-out consumido pelos orquestradores:
// fire-and-forget, at-least-once, sem ack. O stream-gateway assina o outro
// lado e repassa para os clientes WebSocket.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// Message é o envelope publicado no Pub/Sub
type Message struct {
	Channel  string `json:"channel"`
	Event    string `json:"event"`
	Payload  any    `json:"payload"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}

func newMessage(channel, event string, payload any) Message {
	return Message{
		Channel:  channel,
		Event:    event,
		Payload:  payload,
		TsUnixMs: time.Now().UnixMilli(),
	}
}
