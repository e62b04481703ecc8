package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("seed_pair_not_found")
	ErrEmptyClientSeed = errors.New("empty_client_seed")
)

// SeedPair é o par de seeds provably-fair de um jogador. Invariantes:
// o hash é público desde a criação; o ServerSeed só é exposto depois da
// rotação (RevealedAt preenchido). Um único par ativo por usuário.
type SeedPair struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	ServerSeed     string     `json:"server_seed,omitempty"` // vazio enquanto ativo
	ServerSeedHash string     `json:"server_seed_hash"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          uint64     `json:"nonce"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty"`
}

// Store gerencia o ciclo de vida dos SeedPairs.
// Active cria o par na primeira utilização; Rotate desativa o par corrente
// (revelando o server seed) e cria um novo com nonce zerado; pares
// arquivados ficam legíveis para sempre.
type Store interface {
	Active(ctx context.Context, userID string) (SeedPair, error)
	Rotate(ctx context.Context, userID, newClientSeed string) (revealed SeedPair, fresh SeedPair, err error)
	SetClientSeed(ctx context.Context, userID, clientSeed string) error
	NextNonce(ctx context.Context, userID string) (uint64, error)
	History(ctx context.Context, userID string) ([]SeedPair, error)
}

// Public retorna a visão publicável do par: nunca vaza o server seed de um
// par ainda ativo.
func Public(p SeedPair) SeedPair {
	if p.Active {
		p.ServerSeed = ""
	}
	return p
}
