package ledger

import (
	"context"
	"testing"
)

func TestMemoryReserve(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Deposit(ctx, "u1", 1000, "seed"); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := m.Reserve(ctx, "u1", 400, "bet-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if b, _ := m.Balance(ctx, "u1"); b != 600 {
		t.Fatalf("balance after reserve = %d, want 600", b)
	}

	// idempotente: mesma referência não debita de novo
	if err := m.Reserve(ctx, "u1", 400, "bet-1"); err != nil {
		t.Fatalf("repeated reserve: %v", err)
	}
	if b, _ := m.Balance(ctx, "u1"); b != 600 {
		t.Fatalf("repeated reserve debited again: %d", b)
	}

	if err := m.Reserve(ctx, "u1", 700, "bet-2"); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if b, _ := m.Balance(ctx, "u1"); b != 600 {
		t.Fatalf("failed reserve touched balance: %d", b)
	}
}

func TestMemorySettleAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, _ = m.Deposit(ctx, "u1", 100, "seed")
	_, _ = m.Deposit(ctx, "u2", 100, "seed")

	// lote inválido: o segundo delta deixaria u2 negativo, nada é aplicado
	err := m.Settle(ctx, []Entry{
		{UserID: "u1", DeltaCents: 50, ReasonCode: ReasonWin, ReferenceID: "r1"},
		{UserID: "u2", DeltaCents: -500, ReasonCode: ReasonWin, ReferenceID: "r1"},
	})
	if err != ErrNegativeBalance {
		t.Fatalf("expected ErrNegativeBalance, got %v", err)
	}
	if b, _ := m.Balance(ctx, "u1"); b != 100 {
		t.Fatalf("partial settle observable: u1=%d", b)
	}
	if b, _ := m.Balance(ctx, "u2"); b != 100 {
		t.Fatalf("partial settle observable: u2=%d", b)
	}

	// lote válido aplica tudo
	err = m.Settle(ctx, []Entry{
		{UserID: "u1", DeltaCents: 50, ReasonCode: ReasonWin, ReferenceID: "r2"},
		{UserID: "u2", DeltaCents: -100, ReasonCode: ReasonWin, ReferenceID: "r2"},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if b, _ := m.Balance(ctx, "u1"); b != 150 {
		t.Fatalf("u1=%d, want 150", b)
	}
	if b, _ := m.Balance(ctx, "u2"); b != 0 {
		t.Fatalf("u2=%d, want 0", b)
	}
}

func TestMemorySettleSameUserTwiceInBatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, _ = m.Deposit(ctx, "u1", 100, "seed")

	err := m.Settle(ctx, []Entry{
		{UserID: "u1", DeltaCents: -80, ReasonCode: ReasonWin, ReferenceID: "r1"},
		{UserID: "u1", DeltaCents: -80, ReasonCode: ReasonWin, ReferenceID: "r1"},
	})
	if err != ErrNegativeBalance {
		t.Fatalf("expected ErrNegativeBalance across same-user entries, got %v", err)
	}
	if b, _ := m.Balance(ctx, "u1"); b != 100 {
		t.Fatalf("balance touched on aborted batch: %d", b)
	}
}

func TestMemoryEmptySettle(t *testing.T) {
	m := NewMemory()
	if err := m.Settle(context.Background(), nil); err != nil {
		t.Fatalf("empty settle: %v", err)
	}
}
