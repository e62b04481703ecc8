package engine

import (
	"errors"
	"math"
	"time"
)

// Status de uma rodada de crash. Transições estritamente para frente:
// betting -> running -> crashed.
type Status string

const (
	StatusBetting Status = "betting"
	StatusRunning Status = "running"
	StatusCrashed Status = "crashed"
)

// Códigos de rejeição estáveis devolvidos ao cliente
var (
	ErrNoRound          = errors.New("no_active_round")
	ErrRoundNotFound    = errors.New("round_not_found")
	ErrBettingClosed    = errors.New("betting_closed")
	ErrAlreadyBet       = errors.New("already_bet")
	ErrInvalidBet       = errors.New("invalid_bet")
	ErrNoBet            = errors.New("no_bet_in_round")
	ErrAlreadyCashedOut = errors.New("already_cashed_out")
	ErrNotRunning       = errors.New("round_not_running")
	ErrCrashedFirst     = errors.New("crashed_before_cashout")
)

type Bet struct {
	UserID      string  `json:"user_id"`
	AmountCents int64   `json:"amount_cents"`
	AutoCashout float64 `json:"auto_cashout,omitempty"` // 0 = manual

	CashedOut   bool    `json:"cashed_out"`
	CashoutAt   float64 `json:"cashout_at,omitempty"`
	PayoutCents int64   `json:"payout_cents,omitempty"`
}

// Round é o estado de uma rodada de crash. O multiplicador de crash é
// derivado do serverSeed antes da janela de apostas fechar, mas nunca sai do
// processo até o estado crashed.
type Round struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	ServerSeed     string    `json:"server_seed,omitempty"` // revelado só em crashed
	ServerSeedHash string    `json:"server_seed_hash"`
	PublicSeed     string    `json:"public_seed,omitempty"`
	Multiplier     float64   `json:"multiplier"`
	CrashPoint     float64   `json:"crash_point,omitempty"` // idem serverSeed
	Bets           []Bet     `json:"bets"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	crashPoint float64
	bets       map[string]*Bet
	pending    map[string]bool // reserva em voo: segunda aposta do mesmo usuário é rejeitada
	order      []string        // ordem de chegada das apostas
	startedAt  time.Time
}

// MultiplierAt é a curva exponencial do multiplicador, truncada em duas
// casas. Tem de ser idêntica no servidor e em qualquer verificador.
func MultiplierAt(elapsed time.Duration) float64 {
	ms := float64(elapsed.Milliseconds())
	return math.Floor(100*math.Exp(0.00006*ms)) / 100
}

// snapshot devolve uma cópia publicável: crash point e server seed só
// aparecem depois da rodada crashar
func (r *Round) snapshot() Round {
	cp := *r
	cp.Bets = make([]Bet, 0, len(r.order))
	for _, u := range r.order {
		cp.Bets = append(cp.Bets, *r.bets[u])
	}
	cp.bets = nil
	cp.pending = nil
	cp.order = nil
	if r.Status != StatusCrashed {
		cp.ServerSeed = ""
		cp.CrashPoint = 0
	}
	return cp
}
