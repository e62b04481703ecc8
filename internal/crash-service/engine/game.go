package engine

import (
	"context"
	"math"
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

	OnRoundCrashed func(crashPoint float64) // métrica
}

type payoutDue struct {
	userID string
	at     float64
	cents  int64
}

// Game é a máquina de estados do crash. O Scheduler é o único chamador das
// transições (BeginRound/StartRun/Tick); apostas e cashouts chegam de
// handlers HTTP concorrentes e são serializados pelo mutex; a validação de
// um cashout acontece dentro da mesma seção crítica que o consumaria.
type Game struct {
	deps Deps

	mu      sync.Mutex
	current *Round
	history []Round // rodadas crashadas recentes, seed já revelado
}

// historyCap limita a janela de rodadas consultáveis em memória; o histórico
// completo vive no banco via history-worker
const historyCap = 64

func NewGame(deps Deps) *Game {
	return &Game{deps: deps}
}

// BeginRound abre a janela de apostas de uma nova rodada e publica o
// compromisso (hash do server seed) antes de qualquer aposta
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

	g.publish(ctx, "crash_betting", snap)
	return snap
}

// PlaceBet entra na rodada corrente durante a janela de apostas. A reserva
// no ledger acontece antes do registro: sem saldo, sem aposta.
func (g *Game) PlaceBet(ctx context.Context, userID string, amountCents int64, autoCashout float64) error {
	if userID == "" || amountCents <= 0 || (autoCashout != 0 && autoCashout < fair.MinMultiplier) {
		return ErrInvalidBet
	}

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
	if _, dup := r.bets[userID]; dup || r.pending[userID] {
		g.mu.Unlock()
		return ErrAlreadyBet
	}
	// marca a reserva em voo: uma segunda tentativa do mesmo usuário é
	// rejeitada aqui, nunca depois de tocar o ledger
	r.pending[userID] = true
	roundID := r.ID
	g.mu.Unlock()

	if err := g.deps.Ledger.Reserve(ctx, userID, amountCents, roundID+":"+userID); err != nil {
		g.mu.Lock()
		if g.current != nil && g.current.ID == roundID {
			delete(g.current.pending, userID)
		}
		g.mu.Unlock()
		return err
	}

	g.mu.Lock()
	// a janela pode ter fechado durante a reserva; estorna em vez de aceitar
	if g.current == nil || g.current.ID != roundID || g.current.Status != StatusBetting {
		if g.current != nil && g.current.ID == roundID {
			delete(g.current.pending, userID)
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
	delete(g.current.pending, userID)
	g.current.bets[userID] = &Bet{UserID: userID, AmountCents: amountCents, AutoCashout: autoCashout}
	g.current.order = append(g.current.order, userID)
	snap := g.current.snapshot()
	g.mu.Unlock()

	g.publish(ctx, "crash_bet", snap)
	return nil
}

// StartRun fecha as apostas e inicia a subida. O crash point fica fixado
// aqui, derivado apenas do server seed e do id da rodada; o public seed é
// registrado para o histórico auditável.
func (g *Game) StartRun(ctx context.Context, now time.Time) {
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
	r.Status = StatusRunning
	r.PublicSeed = seed.Value
	r.Multiplier = fair.MinMultiplier
	r.startedAt = now
	r.StartedAt = now
	r.crashPoint, _ = fair.CrashPoint(r.ServerSeed, r.ID)
	snap := r.snapshot()
	g.mu.Unlock()

	g.publish(ctx, "crash_running", snap)
}

// Tick avança o multiplicador para o instante now. Auto-cashouts cujo alvo
// foi alcançado e ainda está abaixo do crash point são consumados ao valor
// do alvo, não ao multiplicador corrente. Retorna true quando a rodada
// crashou neste tick.
func (g *Game) Tick(ctx context.Context, now time.Time) bool {
	g.mu.Lock()
	r := g.current
	if r == nil || r.Status != StatusRunning {
		g.mu.Unlock()
		return false
	}

	m := MultiplierAt(now.Sub(r.startedAt))
	if m >= r.crashPoint {
		// alvos de auto-cashout abaixo do crash point venceram a corrida,
		// ainda que nenhum tick tenha caído entre o alvo e o crash
		var due []payoutDue
		for _, u := range r.order {
			b := r.bets[u]
			if b.CashedOut || b.AutoCashout == 0 || b.AutoCashout >= r.crashPoint {
				continue
			}
			b.CashedOut = true
			b.CashoutAt = b.AutoCashout
			b.PayoutCents = payoutCents(b.AmountCents, b.AutoCashout)
			due = append(due, payoutDue{userID: u, at: b.AutoCashout, cents: b.PayoutCents})
		}
		roundID := r.ID
		g.crashLocked(ctx, r)
		for _, d := range due {
			g.settleWin(ctx, roundID, d.userID, d.cents, d.at)
		}
		return true
	}
	r.Multiplier = m

	var due []payoutDue
	for _, u := range r.order {
		b := r.bets[u]
		if b.CashedOut || b.AutoCashout == 0 || m < b.AutoCashout {
			continue
		}
		b.CashedOut = true
		b.CashoutAt = b.AutoCashout
		b.PayoutCents = payoutCents(b.AmountCents, b.AutoCashout)
		due = append(due, payoutDue{userID: u, at: b.AutoCashout, cents: b.PayoutCents})
	}
	roundID := r.ID
	g.mu.Unlock()

	for _, d := range due {
		g.settleWin(ctx, roundID, d.userID, d.cents, d.at)
	}
	g.publish(ctx, "crash_tick", map[string]any{"round_id": roundID, "multiplier": m})
	return false
}

// Cashout consuma o saque manual de um jogador. Revalidação no commit: o
// multiplicador é recalculado dentro da seção crítica: se o crash point já
// foi alcançado, o saque perde a corrida e é rejeitado.
func (g *Game) Cashout(ctx context.Context, userID string, now time.Time) (float64, int64, error) {
	g.mu.Lock()
	r := g.current
	if r == nil {
		g.mu.Unlock()
		return 0, 0, ErrNoRound
	}
	if r.Status != StatusRunning {
		g.mu.Unlock()
		return 0, 0, ErrNotRunning
	}
	b, ok := r.bets[userID]
	if !ok {
		g.mu.Unlock()
		return 0, 0, ErrNoBet
	}
	if b.CashedOut {
		g.mu.Unlock()
		return 0, 0, ErrAlreadyCashedOut
	}

	m := MultiplierAt(now.Sub(r.startedAt))
	if m >= r.crashPoint {
		g.mu.Unlock()
		return 0, 0, ErrCrashedFirst
	}
	b.CashedOut = true
	b.CashoutAt = m
	b.PayoutCents = payoutCents(b.AmountCents, m)
	roundID, cents := r.ID, b.PayoutCents
	g.mu.Unlock()

	g.settleWin(ctx, roundID, userID, cents, m)
	return m, cents, nil
}

// Crash força o fim da rodada corrente (shutdown do Scheduler): jogadores
// que não sacaram perdem, como num crash normal
func (g *Game) Crash(ctx context.Context) {
	g.mu.Lock()
	r := g.current
	if r == nil || r.Status != StatusRunning {
		g.mu.Unlock()
		return
	}
	g.crashLocked(ctx, r)
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

// Round retorna o snapshot de uma rodada pelo id: a corrente ou uma das
// rodadas crashadas recentes (com seed revelado)
func (g *Game) Round(id string) (Round, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil && g.current.ID == id {
		return g.current.snapshot(), nil
	}
	for i := len(g.history) - 1; i >= 0; i-- {
		if g.history[i].ID == id {
			return g.history[i], nil
		}
	}
	return Round{}, ErrRoundNotFound
}

// crashLocked consuma o crash: revela o seed, publica e emite o evento de
// liquidação. Chamado com o mutex em posse; libera antes das publicações.
func (g *Game) crashLocked(ctx context.Context, r *Round) {
	r.Status = StatusCrashed
	r.Multiplier = r.crashPoint
	r.CrashPoint = r.crashPoint
	snap := r.snapshot()
	g.history = append(g.history, snap)
	if len(g.history) > historyCap {
		g.history = g.history[len(g.history)-historyCap:]
	}
	g.mu.Unlock()

	g.publish(ctx, "crash_crashed", snap)

	var totalBets int
	var pot, payout int64
	for _, b := range snap.Bets {
		totalBets++
		pot += b.AmountCents
		payout += b.PayoutCents
	}
	if g.deps.Settled != nil {
		err := g.deps.Settled.PublishRoundSettled(ctx, events.RoundSettled{
			GameCode:       "crash",
			RoundID:        snap.ID,
			ServerSeed:     snap.ServerSeed,
			ServerSeedHash: snap.ServerSeedHash,
			PublicSeed:     snap.PublicSeed,
			Result:         "",
			TotalBets:      totalBets,
			TotalPotCents:  pot,
			PayoutCents:    payout,
			CrashPoint:     snap.CrashPoint,
			TsUnixMs:       time.Now().UnixMilli(),
		})
		if err != nil {
			g.deps.Log.Warn("round_settled publish failed", zap.String("roundId", snap.ID), zap.Error(err))
		}
	}
	if g.deps.OnRoundCrashed != nil {
		g.deps.OnRoundCrashed(snap.CrashPoint)
	}
}

func (g *Game) settleWin(ctx context.Context, roundID, userID string, cents int64, at float64) {
	err := g.deps.Ledger.Settle(ctx, []ledger.Entry{{
		UserID:      userID,
		DeltaCents:  cents,
		ReasonCode:  ledger.ReasonWin,
		ReferenceID: roundID,
	}})
	if err != nil {
		g.deps.Log.Error("cashout settle failed",
			zap.String("roundId", roundID), zap.String("userId", userID), zap.Error(err))
		return
	}
	g.publish(ctx, "crash_cashout", map[string]any{
		"round_id":     roundID,
		"user_id":      userID,
		"multiplier":   at,
		"payout_cents": cents,
	})
}

func (g *Game) publish(ctx context.Context, event string, payload any) {
	if err := g.deps.Broadcast.Publish(ctx, channels.Crash, event, payload); err != nil {
		g.deps.Log.Warn("crash broadcast failed", zap.Error(err))
	}
}

// payoutCents trunca o ganho para baixo; a casa nunca paga a fração
func payoutCents(stake int64, multiplier float64) int64 {
	return int64(math.Floor(float64(stake) * multiplier))
}
