package engine

import (
	"errors"
	"time"
)

// Status de um duelo: open até o segundo jogador entrar, então a resolução é
// imediata. Cancelled só a partir de open. Errored é terminal: a liquidação
// falhou com as duas entradas já debitadas e o duelo congela para
// reconciliação manual.
type Status string

const (
	StatusOpen      Status = "open"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
	StatusErrored   Status = "errored"
)

// Códigos de rejeição estáveis devolvidos ao cliente
var (
	ErrDuelNotFound = errors.New("duel_not_found")
	ErrNotOpen      = errors.New("duel_not_open")
	ErrSelfJoin     = errors.New("cannot_join_own_duel")
	ErrNotCreator   = errors.New("not_the_creator")
	ErrInvalidStake = errors.New("invalid_stake")
)

// Duel é um cara-ou-coroa 1v1: roll < 0.5 dá a vitória ao criador.
type Duel struct {
	ID             string     `json:"id"`
	Status         Status     `json:"status"`
	CreatorID      string     `json:"creator_id"`
	OpponentID     string     `json:"opponent_id,omitempty"`
	StakeCents     int64      `json:"stake_cents"`
	ServerSeed     string     `json:"server_seed,omitempty"` // revelado só em estado terminal
	ServerSeedHash string     `json:"server_seed_hash"`
	PublicSeed     string     `json:"public_seed,omitempty"`
	RollValue      float64    `json:"roll_value,omitempty"`
	WinnerUserID   string     `json:"winner_user_id,omitempty"`
	PotCents       int64      `json:"pot_cents,omitempty"`
	HouseCutCents  int64      `json:"house_cut_cents,omitempty"`
	PayoutCents    int64      `json:"payout_cents,omitempty"`
	SettleError    string     `json:"settle_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	resolving bool // join em andamento: bloqueia cancel concorrente
}

func (d *Duel) terminal() bool {
	return d.Status == StatusFinished || d.Status == StatusCancelled || d.Status == StatusErrored
}

func (d *Duel) snapshot() Duel {
	cp := *d
	cp.resolving = false
	if !d.terminal() {
		cp.ServerSeed = ""
	}
	return cp
}
