package ledger

import (
	"context"
	"errors"
)

var (
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrNotFound          = errors.New("wallet_not_found")
	ErrNegativeBalance   = errors.New("negative_balance")
)

// Códigos de razão gravados no ledger; estáveis, consumidos por clientes e auditoria
const (
	ReasonBet          = "bet"
	ReasonWin          = "win"
	ReasonRefund       = "refund"
	ReasonBattleWin    = "battle_win"
	ReasonBattleRefund = "battle_refund"
	ReasonDuelWin      = "duel_win"
	ReasonDuelRefund   = "duel_refund"
	ReasonDeposit      = "deposit"
)

// Entry é um delta de saldo a ser aplicado dentro de um Settle atômico
type Entry struct {
	UserID      string
	DeltaCents  int64
	ReasonCode  string
	ReferenceID string // roundID/battleID/duelID que originou o delta
}

// Gateway é a única porta de mutação de saldos da plataforma.
// Reserve debita a aposta no momento do bet; Settle aplica os deltas de
// resolução de forma tudo-ou-nada (espelha uma única transação no banco):
// aplicação parcial nunca é observável. Orquestradores nunca mutam saldo
// por outro caminho.
type Gateway interface {
	Reserve(ctx context.Context, userID string, amountCents int64, externalRef string) error
	Settle(ctx context.Context, entries []Entry) error
	Balance(ctx context.Context, userID string) (int64, error)
	Deposit(ctx context.Context, userID string, amountCents int64, externalRef string) (int64, error)
}
