package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/broadcast"
	"github.com/caseclash/platform/internal/entropy"
	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/pkg/contracts/channels"
	"github.com/caseclash/platform/pkg/contracts/events"
	"github.com/caseclash/platform/pkg/fair"
)

// SettledPublisher publica o evento de liquidação da rodada no Kafka
type SettledPublisher interface {
	PublishRoundSettled(ctx context.Context, e events.RoundSettled) error
}

type Deps struct {
	Log       *zap.Logger
	Ledger    ledger.Gateway
	Broadcast broadcast.Publisher
	Entropy   entropy.Source
	Settled   SettledPublisher

	OnRoundSettled func(color string) // métrica
}

// Game é a máquina de estados da roleta. O Scheduler chama as transições;
// as apostas chegam de handlers concorrentes e o mutex serializa tudo.
type Game struct {
	deps Deps

	mu      sync.Mutex
	current *Round
}

func NewGame(deps Deps) *Game {
	return &Game{deps: deps}
}

// BeginRound abre a janela de apostas publicando o compromisso antes
func (g *Game) BeginRound(ctx context.Context) Round {
	serverSeed := fair.GenerateServerSeed()
	r := &Round{
		ID:             uuid.NewString(),
		Status:         StatusBetting,
		ServerSeed:     serverSeed,
		ServerSeedHash: fair.HashCommitment(serverSeed),
		CreatedAt:      time.Now(),
		bets:           make(map[string]*Bet),
		pending:        make(map[string]bool),
	}

	g.mu.Lock()
	g.current = r
	snap := r.snapshot()
	g.mu.Unlock()

	g.publish(ctx, "roulette_betting", snap)
	return snap
}

// PlaceBet aposta numa cor durante a janela. Um jogador pode cobrir mais de
// uma cor, mas não repetir a mesma.
func (g *Game) PlaceBet(ctx context.Context, userID string, color Color, amountCents int64) error {
	if userID == "" || amountCents <= 0 {
		return ErrInvalidBet
	}
	if color != ColorGreen && color != ColorRed && color != ColorBlack {
		return ErrInvalidBet
	}

	key := userID + ":" + string(color)

	g.mu.Lock()
	r := g.current
	if r == nil {
		g.mu.Unlock()
		return ErrNoRound
	}
	if r.Status != StatusBetting {
		g.mu.Unlock()
		return ErrBettingClosed
	}
	if _, dup := r.bets[key]; dup || r.pending[key] {
		g.mu.Unlock()
		return ErrAlreadyBet
	}
	// marca a reserva em voo: repetir a mesma cor é rejeitado aqui, nunca
	// depois de tocar o ledger
	r.pending[key] = true
	roundID := r.ID
	g.mu.Unlock()

	if err := g.deps.Ledger.Reserve(ctx, userID, amountCents, roundID+":"+key); err != nil {
		g.mu.Lock()
		if g.current != nil && g.current.ID == roundID {
			delete(g.current.pending, key)
		}
		g.mu.Unlock()
		return err
	}

	g.mu.Lock()
	if g.current == nil || g.current.ID != roundID || g.current.Status != StatusBetting {
		if g.current != nil && g.current.ID == roundID {
			delete(g.current.pending, key)
		}
		g.mu.Unlock()
		if err := g.deps.Ledger.Settle(ctx, []ledger.Entry{{
			UserID: userID, DeltaCents: amountCents,
			ReasonCode: ledger.ReasonRefund, ReferenceID: roundID,
		}}); err != nil {
			g.deps.Log.Error("late bet refund failed",
				zap.String("roundId", roundID), zap.String("userId", userID), zap.Error(err))
		}
		return ErrBettingClosed
	}
	delete(g.current.pending, key)
	g.current.bets[key] = &Bet{UserID: userID, Color: color, AmountCents: amountCents}
	g.current.order = append(g.current.order, key)
	snap := g.current.snapshot()
	g.mu.Unlock()

	g.publish(ctx, "roulette_bet", snap)
	return nil
}

// CloseBetting fecha a janela e fixa o resultado. O roll usa nonce 0 com o
// id da rodada como client seed; a casa sorteada fica em memória até o
// settle; o broadcast de spinning não a carrega.
func (g *Game) CloseBetting(ctx context.Context) {
	seed := g.deps.Entropy.FetchPublicSeed(ctx)
	if seed.Fallback {
		g.deps.Log.Warn("entropy beacon unavailable, public seed derived locally")
	}

	g.mu.Lock()
	r := g.current
	if r == nil || r.Status != StatusBetting {
		g.mu.Unlock()
		return
	}
	r.Status = StatusSpinning
	r.PublicSeed = seed.Value

	roll, err := fair.GenerateRoll(r.ServerSeed, r.PublicSeed, r.ID, 0)
	if err != nil {
		// seeds gerados internamente nunca são vazios; logar e abortar a rodada
		g.mu.Unlock()
		g.deps.Log.Error("roll generation failed", zap.String("roundId", r.ID), zap.Error(err))
		return
	}
	r.roll = roll.Value
	r.pocket = PocketFor(roll.Value)
	snap := r.snapshot()
	g.mu.Unlock()

	g.publish(ctx, "roulette_spinning", snap)
}

// Settle revela o resultado e paga todos os vencedores em um único settle
// atômico no ledger
func (g *Game) Settle(ctx context.Context) {
	g.mu.Lock()
	r := g.current
	if r == nil || r.Status != StatusSpinning {
		g.mu.Unlock()
		return
	}

	r.Status = StatusSettled
	r.Pocket = r.pocket
	r.Color = ColorOf(r.pocket)
	r.RollValue = r.roll

	var entries []ledger.Entry
	var pot, payout int64
	for _, k := range r.order {
		b := r.bets[k]
		pot += b.AmountCents
		if b.Color != r.Color {
			continue
		}
		b.WonCents = b.AmountCents * Multiplier(b.Color)
		payout += b.WonCents
		entries = append(entries, ledger.Entry{
			UserID:      b.UserID,
			DeltaCents:  b.WonCents,
			ReasonCode:  ledger.ReasonWin,
			ReferenceID: r.ID,
		})
	}
	snap := r.snapshot()
	g.mu.Unlock()

	if len(entries) > 0 {
		if err := g.deps.Ledger.Settle(ctx, entries); err != nil {
			g.deps.Log.Error("roulette payout settle failed",
				zap.String("roundId", snap.ID), zap.Error(err))
		}
	}

	g.publish(ctx, "roulette_settled", snap)

	if g.deps.Settled != nil {
		err := g.deps.Settled.PublishRoundSettled(ctx, events.RoundSettled{
			GameCode:       "roulette",
			RoundID:        snap.ID,
			ServerSeed:     snap.ServerSeed,
			ServerSeedHash: snap.ServerSeedHash,
			PublicSeed:     snap.PublicSeed,
			Result:         string(snap.Color),
			TotalBets:      len(snap.Bets),
			TotalPotCents:  pot,
			PayoutCents:    payout,
			TsUnixMs:       time.Now().UnixMilli(),
		})
		if err != nil {
			g.deps.Log.Warn("round_settled publish failed", zap.String("roundId", snap.ID), zap.Error(err))
		}
	}
	if g.deps.OnRoundSettled != nil {
		g.deps.OnRoundSettled(string(snap.Color))
	}
}

// Current retorna o snapshot da rodada corrente
func (g *Game) Current() (Round, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return Round{}, ErrNoRound
	}
	return g.current.snapshot(), nil
}

func (g *Game) publish(ctx context.Context, event string, payload any) {
	if err := g.deps.Broadcast.Publish(ctx, channels.Roulette, event, payload); err != nil {
		g.deps.Log.Warn("roulette broadcast failed", zap.Error(err))
	}
}
