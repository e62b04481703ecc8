package store

import (
	"context"
	"sync"
	"time"
)

// Memory implementa o Store em memória; usado em testes e execução local
type Memory struct {
	mu      sync.Mutex
	active  map[string]*SeedPair
	history map[string][]SeedPair
}

func NewMemory() *Memory {
	return &Memory{
		active:  make(map[string]*SeedPair),
		history: make(map[string][]SeedPair),
	}
}

func (m *Memory) Active(_ context.Context, userID string) (SeedPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.active[userID]
	if !ok {
		fresh := freshPair(userID, "")
		p = &fresh
		m.active[userID] = p
	}
	return *p, nil
}

func (m *Memory) Rotate(_ context.Context, userID, newClientSeed string) (SeedPair, SeedPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.active[userID]
	if !ok {
		return SeedPair{}, SeedPair{}, ErrNotFound
	}

	now := time.Now()
	p.Active = false
	p.RevealedAt = &now
	m.history[userID] = append([]SeedPair{*p}, m.history[userID]...)

	fresh := freshPair(userID, newClientSeed)
	m.active[userID] = &fresh
	return *p, fresh, nil
}

func (m *Memory) SetClientSeed(_ context.Context, userID, clientSeed string) error {
	if clientSeed == "" {
		return ErrEmptyClientSeed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.active[userID]
	if !ok {
		return ErrNotFound
	}
	p.ClientSeed = clientSeed
	return nil
}

func (m *Memory) NextNonce(_ context.Context, userID string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.active[userID]
	if !ok {
		return 0, ErrNotFound
	}
	p.Nonce++
	return p.Nonce, nil
}

func (m *Memory) History(_ context.Context, userID string) ([]SeedPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SeedPair, len(m.history[userID]))
	copy(out, m.history[userID])
	return out, nil
}
