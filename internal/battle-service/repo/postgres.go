package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/caseclash/platform/internal/battle-service/engine"
)

// Postgres persiste snapshots de batalha na tabela battles. O documento
// completo vai em JSONB; colunas soltas só para o que as consultas filtram.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Save(ctx context.Context, b engine.Battle) error {
	state, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal battle: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO battles (id, status, mode, creator_id, cost_cents, winner_user_id, server_seed_hash, state, created_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			winner_user_id = EXCLUDED.winner_user_id,
			state = EXCLUDED.state,
			resolved_at = EXCLUDED.resolved_at`,
		b.ID, string(b.Status), string(b.Mode), b.CreatorID, b.CostCents,
		nullIfEmpty(b.WinnerUserID), b.ServerSeedHash, state, b.CreatedAt, b.ResolvedAt,
	)
	return err
}

// Find carrega o snapshot persistido de uma batalha
func (p *Postgres) Find(ctx context.Context, id string) (engine.Battle, error) {
	var state []byte
	err := p.db.QueryRowContext(ctx, `SELECT state FROM battles WHERE id=$1`, id).Scan(&state)
	if err == sql.ErrNoRows {
		return engine.Battle{}, engine.ErrBattleNotFound
	}
	if err != nil {
		return engine.Battle{}, err
	}
	var b engine.Battle
	if err := json.Unmarshal(state, &b); err != nil {
		return engine.Battle{}, fmt.Errorf("unmarshal battle: %w", err)
	}
	return b, nil
}

// Recent lista os snapshots terminais mais recentes para o histórico
func (p *Postgres) Recent(ctx context.Context, limit int) ([]engine.Battle, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT state FROM battles
		WHERE status IN ('finished','cancelled')
		ORDER BY resolved_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Battle
	for rows.Next() {
		var state []byte
		if err := rows.Scan(&state); err != nil {
			return nil, err
		}
		var b engine.Battle
		if err := json.Unmarshal(state, &b); err != nil {
			return nil, fmt.Errorf("unmarshal battle: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
