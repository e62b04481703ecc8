package broadcast

import (
	"context"
	"sync"
)

// Recorder guarda as mensagens publicadas; usado em testes dos orquestradores
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, channel, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, newMessage(channel, event, payload))
	return nil
}

// Events retorna, em ordem, os nomes de evento publicados num canal
func (r *Recorder) Events(channel string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.Messages {
		if m.Channel == channel {
			out = append(out, m.Event)
		}
	}
	return out
}
