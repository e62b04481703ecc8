package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Postgres implementa o Gateway sobre as tabelas wallets e wallet_ledger
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// getOrCreateWallet retorna o walletId de um usuário, criando a carteira
// zerada se não existir. Deve rodar dentro da transação do chamador.
func getOrCreateWallet(ctx context.Context, tx *sql.Tx, userID string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&id)
	if err == sql.ErrNoRows {
		id = uuid.New().String()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,0,1)`,
			id, userID); err != nil {
			return "", err
		}
		return id, nil
	}
	return id, err
}

// Reserve debita a aposta do saldo do jogador e grava a operação no ledger.
// Lock pessimista na linha da carteira; idempotente por (wallet_id, reference_id).
func (p *Postgres) Reserve(ctx context.Context, userID string, amountCents int64, externalRef string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	walletID, err := getOrCreateWallet(ctx, tx, userID)
	if err != nil {
		return err
	}

	// Idempotência: reserva repetida para a mesma referência não debita de novo
	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM wallet_ledger WHERE wallet_id=$1 AND reference_id=$2 AND operation_type='RESERVE'`,
		walletID, externalRef).Scan(&exists)
	if err == nil {
		return tx.Commit()
	} else if err != sql.ErrNoRows {
		return err
	}

	var balance int64
	if err = tx.QueryRowContext(ctx, `SELECT balance_cents FROM wallets WHERE id=$1`, walletID).Scan(&balance); err != nil {
		return err
	}
	if balance < amountCents {
		return ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents - $1, version = version + 1 WHERE id=$2`,
		amountCents, walletID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, reason_code, reference_id)
		 VALUES($1,'RESERVE',$2,$3,$4)`,
		walletID, amountCents, ReasonBet, externalRef); err != nil {
		return err
	}

	return tx.Commit()
}

// Settle aplica todos os deltas em uma única transação: ou todos entram, ou
// nenhum. Carteiras são travadas em ordem de usuário para evitar deadlock
// entre settles concorrentes. Qualquer saldo que ficaria negativo aborta o
// lote inteiro.
func (p *Postgres) Settle(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	users := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			users = append(users, e.UserID)
		}
	}
	sort.Strings(users)

	walletByUser := make(map[string]string, len(users))
	for _, u := range users {
		id, err := getOrCreateWallet(ctx, tx, u)
		if err != nil {
			return fmt.Errorf("lock wallet %s: %w", u, err)
		}
		walletByUser[u] = id
	}

	for _, e := range entries {
		walletID := walletByUser[e.UserID]

		var balance int64
		if err = tx.QueryRowContext(ctx,
			`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2
			 RETURNING balance_cents`,
			e.DeltaCents, walletID).Scan(&balance); err != nil {
			return err
		}
		if balance < 0 {
			return ErrNegativeBalance
		}

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, reason_code, reference_id)
			 VALUES($1,'SETTLE',$2,$3,$4)`,
			walletID, e.DeltaCents, e.ReasonCode, e.ReferenceID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Balance retorna o saldo atual do usuário (carteira criada sob demanda)
func (p *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := p.db.QueryRowContext(ctx,
		`SELECT balance_cents FROM wallets WHERE user_id=$1`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// Deposit incrementa o saldo da carteira e registra a operação no ledger
func (p *Postgres) Deposit(ctx context.Context, userID string, amountCents int64, externalRef string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	walletID, err := getOrCreateWallet(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	var newBalance int64
	if err = tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2
		 RETURNING balance_cents`,
		amountCents, walletID).Scan(&newBalance); err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, reason_code, reference_id)
		 VALUES($1,'CREDIT',$2,$3,$4)`,
		walletID, amountCents, ReasonDeposit, externalRef); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}
