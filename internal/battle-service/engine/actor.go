package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/pkg/contracts/events"
	"github.com/caseclash/platform/pkg/fair"
)

// Comandos tipados consumidos pelo loop do ator; cada um carrega o canal de
// resposta do chamador. "Evento chegou" e "estado mutou" ficam desacoplados,
// e a ordenação é explícita.
type command interface{}

type joinCmd struct {
	ctx      context.Context
	userID   string
	position int
	reply    chan error
}

type leaveCmd struct {
	ctx    context.Context
	userID string
	reply  chan error
}

type cancelCmd struct {
	ctx    context.Context
	userID string
	reply  chan error
}

type actor struct {
	m    *Manager
	b    *Battle
	cmds chan command

	// snapshot publicado fora da goroutine do ator: leituras (Get/List)
	// nunca esperam uma batalha em andamento
	snapMu sync.RWMutex
	snap   Battle
}

// latest devolve o último snapshot publicado
func (a *actor) latest() Battle {
	a.snapMu.RLock()
	defer a.snapMu.RUnlock()
	return a.snap
}

// store republica o snapshot; sempre o último passo de cada mutação
func (a *actor) store() {
	a.snapMu.Lock()
	a.snap = a.b.snapshot()
	a.snapMu.Unlock()
}

// run é a única goroutine que muta o estado da batalha
func (a *actor) run() {
	for cmd := range a.cmds {
		switch c := cmd.(type) {
		case joinCmd:
			full := false
			err := a.join(c.ctx, c.userID, c.position)
			if err == nil {
				full = len(a.b.Participants) == a.b.MaxPlayers
			}
			c.reply <- err
			if full {
				// o contexto do request que completou a batalha morre quando o
				// handler retorna; a partida roda com um contexto próprio
				a.play(context.Background())
			}
		case leaveCmd:
			c.reply <- a.leave(c.ctx, c.userID)
		case cancelCmd:
			c.reply <- a.cancel(c.ctx, c.userID)
		}
	}
}

func (a *actor) join(ctx context.Context, userID string, position int) error {
	b := a.b
	if b.Status != StatusWaiting {
		return ErrNotJoinable
	}
	if position < 0 || position >= b.MaxPlayers {
		return ErrInvalidPosition
	}
	for _, p := range b.Participants {
		if p.UserID == userID {
			return ErrAlreadyJoined
		}
		if p.Position == position {
			return ErrPositionTaken
		}
	}

	if err := a.m.deps.Ledger.Reserve(ctx, userID, b.CostCents, b.ID+":"+userID); err != nil {
		return err
	}

	b.Participants = append(b.Participants, Participant{
		UserID:     userID,
		Position:   position,
		ClientSeed: a.m.clientSeed(ctx, userID),
	})
	// ordem de posição define a ordem de iteração das rodadas e do desempate
	for i := len(b.Participants) - 1; i > 0 && b.Participants[i].Position < b.Participants[i-1].Position; i-- {
		b.Participants[i], b.Participants[i-1] = b.Participants[i-1], b.Participants[i]
	}

	a.m.persist(ctx, b.snapshot())
	a.m.publish(ctx, b.ID, "battle_join", b.snapshot())
	a.store()
	return nil
}

func (a *actor) leave(ctx context.Context, userID string) error {
	b := a.b
	if b.Status != StatusWaiting {
		return ErrNotJoinable
	}
	if userID == b.CreatorID {
		// criador saindo cancela a batalha inteira
		return a.cancel(ctx, userID)
	}

	idx := -1
	for i, p := range b.Participants {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotParticipant
	}

	if err := a.m.deps.Ledger.Settle(ctx, []ledger.Entry{{
		UserID:      userID,
		DeltaCents:  b.CostCents,
		ReasonCode:  ledger.ReasonBattleRefund,
		ReferenceID: b.ID,
	}}); err != nil {
		return err
	}

	b.Participants = append(b.Participants[:idx], b.Participants[idx+1:]...)
	a.m.persist(ctx, b.snapshot())
	a.m.publish(ctx, b.ID, "battle_leave", b.snapshot())
	a.store()
	return nil
}

// cancel estorna todos os participantes em um único settle e marca o estado
// terminal cancelled. Só alcançável a partir de waiting.
func (a *actor) cancel(ctx context.Context, userID string) error {
	b := a.b
	if b.Status != StatusWaiting {
		return ErrNotJoinable
	}
	if userID != b.CreatorID {
		return ErrNotCreator
	}

	entries := make([]ledger.Entry, 0, len(b.Participants))
	for _, p := range b.Participants {
		entries = append(entries, ledger.Entry{
			UserID:      p.UserID,
			DeltaCents:  b.CostCents,
			ReasonCode:  ledger.ReasonBattleRefund,
			ReferenceID: b.ID,
		})
	}
	if err := a.m.deps.Ledger.Settle(ctx, entries); err != nil {
		return err
	}

	now := time.Now()
	b.Status = StatusCancelled
	b.ResolvedAt = &now
	a.m.persist(ctx, b.snapshot())
	a.m.publish(ctx, b.ID, "battle_cancelled", b.snapshot())
	a.publishSettled(ctx, "cancelled")
	if a.m.deps.OnSettled != nil {
		a.m.deps.OnSettled("cancelled")
	}
	a.store()
	return nil
}

// play conduz a batalha de starting até finished dentro da goroutine do
// ator. Rodada N é totalmente computada e transmitida antes da N+1.
func (a *actor) play(ctx context.Context) {
	b := a.b
	cfg := a.m.deps.Cfg
	log := a.m.deps.Log

	b.Status = StatusStarting
	seed := a.m.deps.Entropy.FetchPublicSeed(ctx)
	if seed.Fallback {
		log.Warn("entropy beacon unavailable, public seed derived locally",
			zap.String("battleId", b.ID))
	}
	b.PublicSeed = seed.Value
	b.PublicSeedFallback = seed.Fallback
	a.m.persist(ctx, b.snapshot())
	a.m.publish(ctx, b.ID, "battle_starting", map[string]any{
		"battle_id":    b.ID,
		"public_seed":  b.PublicSeed,
		"countdown_ms": cfg.Countdown.Milliseconds(),
	})
	a.store()
	time.Sleep(cfg.Countdown)

	b.Status = StatusInProgress
	a.m.persist(ctx, b.snapshot())
	a.store()

	delay := cfg.RoundDelay
	if b.FastMode {
		delay = cfg.FastDelay
	}

	participantCount := len(b.Participants)
	for r := 1; r <= len(b.rounds); r++ {
		roundCase := b.rounds[r-1]
		round := RoundResult{Round: r, CaseID: roundCase.ID}

		for i := range b.Participants {
			p := &b.Participants[i]
			nonce := NonceFor(r, p.Position, participantCount)

			roll, err := fair.GenerateRoll(b.ServerSeed, b.PublicSeed, p.ClientSeed, nonce)
			if err != nil {
				// seeds vazios indicam estado corrompido; aborta só esta batalha
				a.fail(ctx, "roll_generation_failed", err)
				return
			}
			item, err := fair.Select(roll.Value, roundCase.Items)
			if err != nil {
				a.fail(ctx, "prize_selection_failed", err)
				return
			}

			p.ScoreCents += item.PayoutCents
			round.Results = append(round.Results, PrizeResult{
				Round:       r,
				Position:    p.Position,
				UserID:      p.UserID,
				Nonce:       nonce,
				RollValue:   roll.Value,
				ItemID:      item.ID,
				PayoutCents: item.PayoutCents,
			})
		}

		b.Rounds = append(b.Rounds, round)
		a.m.persist(ctx, b.snapshot())
		a.m.publish(ctx, b.ID, "battle_round", round)
		a.store()

		if r < len(b.rounds) {
			time.Sleep(delay)
		}
	}

	winner := b.winner()
	b.PotCents = b.CostCents * int64(participantCount)
	b.HouseCutCents = b.PotCents * int64(cfg.HouseEdgeBps) / 10000
	b.PayoutCents = b.PotCents - b.HouseCutCents

	// um único settle atômico credita o vencedor e encerra as entradas
	if err := a.m.deps.Ledger.Settle(ctx, []ledger.Entry{{
		UserID:      winner.UserID,
		DeltaCents:  b.PayoutCents,
		ReasonCode:  ledger.ReasonBattleWin,
		ReferenceID: b.ID,
	}}); err != nil {
		a.fail(ctx, "payout_settle_failed", err)
		return
	}

	now := time.Now()
	b.Status = StatusFinished
	b.WinnerUserID = winner.UserID
	b.ResolvedAt = &now
	a.m.persist(ctx, b.snapshot())
	// estado terminal: o snapshot agora revela o server seed
	a.m.publish(ctx, b.ID, "battle_finished", b.snapshot())
	a.publishSettled(ctx, "finished")
	if a.m.deps.OnSettled != nil {
		a.m.deps.OnSettled("finished")
	}
	a.store()
}

// fail aborta o progresso desta batalha apenas: erro operacional logado e
// transmitido, sem retry (reaplicar um settle às cegas arrisca crédito em
// dobro; reconciliação manual).
func (a *actor) fail(ctx context.Context, reason string, err error) {
	b := a.b
	b.SettleError = reason
	a.m.deps.Log.Error("battle aborted",
		zap.String("battleId", b.ID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	a.m.persist(ctx, b.snapshot())
	a.m.publish(ctx, b.ID, "battle_error", map[string]string{
		"battle_id": b.ID,
		"reason":    reason,
	})
	a.store()
}

func (a *actor) publishSettled(ctx context.Context, status string) {
	if a.m.deps.Settled == nil {
		return
	}
	b := a.b
	e := events.BattleSettled{
		BattleID:       b.ID,
		Status:         status,
		Mode:           string(b.Mode),
		WinnerUserID:   b.WinnerUserID,
		Participants:   len(b.Participants),
		Rounds:         len(b.Rounds),
		PotCents:       b.PotCents,
		HouseCutCents:  b.HouseCutCents,
		PayoutCents:    b.PayoutCents,
		ServerSeed:     b.ServerSeed,
		ServerSeedHash: b.ServerSeedHash,
		PublicSeed:     b.PublicSeed,
		TsUnixMs:       time.Now().UnixMilli(),
	}
	if b.WinnerUserID != "" {
		if w := b.winner(); w != nil {
			e.WinnerScore = w.ScoreCents
		}
	}
	if err := a.m.deps.Settled.PublishBattleSettled(ctx, e); err != nil {
		a.m.deps.Log.Warn("battle_settled publish failed", zap.String("battleId", b.ID), zap.Error(err))
	}
}
