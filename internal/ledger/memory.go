package ledger

import (
	"context"
	"sync"
)

// Memory implementa o Gateway em memória com a mesma semântica do Postgres:
// Settle é tudo-ou-nada e nenhum saldo fica negativo. Usado em testes e em
// execução local sem banco.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64
	reserved map[string]bool // reference_id já reservado (idempotência)
	History  []Entry
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]int64),
		reserved: make(map[string]bool),
	}
}

func (m *Memory) Reserve(_ context.Context, userID string, amountCents int64, externalRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userID + ":" + externalRef
	if m.reserved[key] {
		return nil
	}
	if m.balances[userID] < amountCents {
		return ErrInsufficientFunds
	}
	m.balances[userID] -= amountCents
	m.reserved[key] = true
	m.History = append(m.History, Entry{UserID: userID, DeltaCents: -amountCents, ReasonCode: ReasonBet, ReferenceID: externalRef})
	return nil
}

func (m *Memory) Settle(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// valida o lote inteiro antes de aplicar qualquer delta
	next := make(map[string]int64, len(entries))
	for _, e := range entries {
		if _, ok := next[e.UserID]; !ok {
			next[e.UserID] = m.balances[e.UserID]
		}
		next[e.UserID] += e.DeltaCents
		if next[e.UserID] < 0 {
			return ErrNegativeBalance
		}
	}
	for u, b := range next {
		m.balances[u] = b
	}
	m.History = append(m.History, entries...)
	return nil
}

func (m *Memory) Balance(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *Memory) Deposit(_ context.Context, userID string, amountCents int64, externalRef string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amountCents
	m.History = append(m.History, Entry{UserID: userID, DeltaCents: amountCents, ReasonCode: ReasonDeposit, ReferenceID: externalRef})
	return m.balances[userID], nil
}
