package engine

import (
	"errors"
	"math"
	"time"
)

// Status de uma rodada de roleta. Transições estritamente para frente:
// betting -> spinning -> settled. O resultado é fixado na transição para
// spinning; o giro é só apresentação.
type Status string

const (
	StatusBetting  Status = "betting"
	StatusSpinning Status = "spinning"
	StatusSettled  Status = "settled"
)

// Cores da roda de 15 casas: a casa 0 é verde, 1-7 vermelhas, 8-14 pretas
type Color string

const (
	ColorGreen Color = "green"
	ColorRed   Color = "red"
	ColorBlack Color = "black"
)

const Pockets = 15

// Códigos de rejeição estáveis devolvidos ao cliente
var (
	ErrNoRound       = errors.New("no_active_round")
	ErrBettingClosed = errors.New("betting_closed")
	ErrAlreadyBet    = errors.New("already_bet_color")
	ErrInvalidBet    = errors.New("invalid_bet")
)

// ColorOf mapeia a casa sorteada para a cor paga
func ColorOf(pocket int) Color {
	switch {
	case pocket == 0:
		return ColorGreen
	case pocket <= 7:
		return ColorRed
	default:
		return ColorBlack
	}
}

// Multiplier é o pagamento de cada cor: 14x no verde, 2x nas demais
func Multiplier(c Color) int64 {
	if c == ColorGreen {
		return 14
	}
	return 2
}

// PocketFor converte um roll em [0,1] na casa da roda
func PocketFor(roll float64) int {
	p := int(math.Floor(roll * Pockets))
	if p >= Pockets {
		p = Pockets - 1
	}
	return p
}

type Bet struct {
	UserID      string `json:"user_id"`
	Color       Color  `json:"color"`
	AmountCents int64  `json:"amount_cents"`
	WonCents    int64  `json:"won_cents,omitempty"`
}

// Round é o estado de uma rodada. Pocket e Color existem internamente desde
// o fim das apostas, mas só são publicados no settle.
type Round struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	ServerSeed     string    `json:"server_seed,omitempty"` // revelado só em settled
	ServerSeedHash string    `json:"server_seed_hash"`
	PublicSeed     string    `json:"public_seed,omitempty"`
	Pocket         int       `json:"pocket"`
	Color          Color     `json:"color,omitempty"`
	RollValue      float64   `json:"roll_value,omitempty"`
	Bets           []Bet     `json:"bets"`
	CreatedAt      time.Time `json:"created_at"`

	pocket  int
	roll    float64
	bets    map[string]*Bet // chave user:color
	pending map[string]bool // reserva em voo por user:color
	order   []string
}

func (r *Round) snapshot() Round {
	cp := *r
	cp.Bets = make([]Bet, 0, len(r.order))
	for _, k := range r.order {
		cp.Bets = append(cp.Bets, *r.bets[k])
	}
	cp.bets = nil
	cp.pending = nil
	cp.order = nil
	if r.Status != StatusSettled {
		cp.ServerSeed = ""
		cp.Pocket = 0
		cp.Color = ""
		cp.RollValue = 0
	}
	return cp
}
