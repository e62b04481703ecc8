package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/caseclash/platform/pkg/fair"
)

// Postgres persiste os seed pairs na tabela seed_pairs
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func scanPair(row interface{ Scan(...any) error }) (SeedPair, error) {
	var p SeedPair
	var revealed sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.ServerSeed, &p.ServerSeedHash, &p.ClientSeed, &p.Nonce, &p.Active, &p.CreatedAt, &revealed)
	if revealed.Valid {
		p.RevealedAt = &revealed.Time
	}
	return p, err
}

const pairColumns = `id, user_id, server_seed, server_seed_hash, client_seed, nonce, active, created_at, revealed_at`

// Active retorna o par ativo do usuário, criando um na primeira utilização
func (p *Postgres) Active(ctx context.Context, userID string) (SeedPair, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return SeedPair{}, err
	}
	defer tx.Rollback()

	pair, err := scanPair(tx.QueryRowContext(ctx,
		`SELECT `+pairColumns+` FROM seed_pairs WHERE user_id=$1 AND active=true`, userID))
	if err == sql.ErrNoRows {
		pair = freshPair(userID, "")
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO seed_pairs(`+pairColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,NULL)`,
			pair.ID, pair.UserID, pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed, pair.Nonce, pair.Active, pair.CreatedAt); err != nil {
			return SeedPair{}, err
		}
	} else if err != nil {
		return SeedPair{}, err
	}

	if err = tx.Commit(); err != nil {
		return SeedPair{}, err
	}
	return pair, nil
}

// Rotate desativa o par corrente revelando o server seed e cria um novo
// par com nonce zerado, tudo em uma transação.
func (p *Postgres) Rotate(ctx context.Context, userID, newClientSeed string) (SeedPair, SeedPair, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return SeedPair{}, SeedPair{}, err
	}
	defer tx.Rollback()

	old, err := scanPair(tx.QueryRowContext(ctx,
		`SELECT `+pairColumns+` FROM seed_pairs WHERE user_id=$1 AND active=true FOR UPDATE`, userID))
	if err == sql.ErrNoRows {
		return SeedPair{}, SeedPair{}, ErrNotFound
	} else if err != nil {
		return SeedPair{}, SeedPair{}, err
	}

	now := time.Now()
	if _, err = tx.ExecContext(ctx,
		`UPDATE seed_pairs SET active=false, revealed_at=$1 WHERE id=$2`, now, old.ID); err != nil {
		return SeedPair{}, SeedPair{}, err
	}
	old.Active = false
	old.RevealedAt = &now

	fresh := freshPair(userID, newClientSeed)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO seed_pairs(`+pairColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,NULL)`,
		fresh.ID, fresh.UserID, fresh.ServerSeed, fresh.ServerSeedHash, fresh.ClientSeed, fresh.Nonce, fresh.Active, fresh.CreatedAt); err != nil {
		return SeedPair{}, SeedPair{}, err
	}

	if err = tx.Commit(); err != nil {
		return SeedPair{}, SeedPair{}, err
	}
	return old, fresh, nil
}

func (p *Postgres) SetClientSeed(ctx context.Context, userID, clientSeed string) error {
	if clientSeed == "" {
		return ErrEmptyClientSeed
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE seed_pairs SET client_seed=$1 WHERE user_id=$2 AND active=true`, clientSeed, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextNonce incrementa e retorna o nonce usado na rolagem corrente
func (p *Postgres) NextNonce(ctx context.Context, userID string) (uint64, error) {
	var nonce uint64
	err := p.db.QueryRowContext(ctx,
		`UPDATE seed_pairs SET nonce = nonce + 1 WHERE user_id=$1 AND active=true RETURNING nonce`,
		userID).Scan(&nonce)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return nonce, err
}

// History lista os pares já rotacionados (revelados) do usuário
func (p *Postgres) History(ctx context.Context, userID string) ([]SeedPair, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+pairColumns+` FROM seed_pairs WHERE user_id=$1 AND active=false ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeedPair
	for rows.Next() {
		pair, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}

func freshPair(userID, clientSeed string) SeedPair {
	if clientSeed == "" {
		// default estável até o jogador escolher o próprio seed
		clientSeed = uuid.NewString()
	}
	serverSeed := fair.GenerateServerSeed()
	return SeedPair{
		ID:             uuid.NewString(),
		UserID:         userID,
		ServerSeed:     serverSeed,
		ServerSeedHash: fair.HashCommitment(serverSeed),
		ClientSeed:     clientSeed,
		Nonce:          0,
		Active:         true,
		CreatedAt:      time.Now(),
	}
}
