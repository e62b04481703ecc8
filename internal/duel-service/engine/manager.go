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

// SettledPublisher publica o evento terminal do duelo no Kafka
type SettledPublisher interface {
	PublishDuelSettled(ctx context.Context, e events.DuelSettled) error
}

type Config struct {
	HouseEdgeBps int
}

type Deps struct {
	Log       *zap.Logger
	Ledger    ledger.Gateway
	Broadcast broadcast.Publisher
	Entropy   entropy.Source
	Settled   SettledPublisher
	Cfg       Config

	OnSettled func(status string) // métrica
}

// Manager mantém os duelos abertos. Join resolve na hora: não existe fase de
// jogo, só a corrida entre join e cancel, decidida pelo flag resolving.
type Manager struct {
	deps Deps

	mu    sync.Mutex
	duels map[string]*Duel
}

func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps, duels: make(map[string]*Duel)}
}

// Create reserva a entrada do criador e abre o duelo
func (m *Manager) Create(ctx context.Context, creatorID string, stakeCents int64) (Duel, error) {
	if creatorID == "" || stakeCents <= 0 {
		return Duel{}, ErrInvalidStake
	}

	serverSeed := fair.GenerateServerSeed()
	d := &Duel{
		ID:             uuid.NewString(),
		Status:         StatusOpen,
		CreatorID:      creatorID,
		StakeCents:     stakeCents,
		ServerSeed:     serverSeed,
		ServerSeedHash: fair.HashCommitment(serverSeed),
		CreatedAt:      time.Now(),
	}

	if err := m.deps.Ledger.Reserve(ctx, creatorID, stakeCents, d.ID+":"+creatorID); err != nil {
		return Duel{}, err
	}

	m.mu.Lock()
	m.duels[d.ID] = d
	snap := d.snapshot()
	m.mu.Unlock()

	m.publish(ctx, "duel_created", snap)
	return snap, nil
}

// Join entra num duelo aberto e o resolve imediatamente: um único roll com
// nonce 0 decide, e um único settle atômico paga o vencedor
func (m *Manager) Join(ctx context.Context, duelID, userID string) (Duel, error) {
	m.mu.Lock()
	d, ok := m.duels[duelID]
	if !ok {
		m.mu.Unlock()
		return Duel{}, ErrDuelNotFound
	}
	if d.Status != StatusOpen || d.resolving {
		m.mu.Unlock()
		return Duel{}, ErrNotOpen
	}
	if userID == d.CreatorID {
		m.mu.Unlock()
		return Duel{}, ErrSelfJoin
	}
	d.resolving = true
	stake := d.StakeCents
	m.mu.Unlock()

	if err := m.deps.Ledger.Reserve(ctx, userID, stake, duelID+":"+userID); err != nil {
		m.mu.Lock()
		d.resolving = false
		m.mu.Unlock()
		return Duel{}, err
	}

	seed := m.deps.Entropy.FetchPublicSeed(ctx)
	if seed.Fallback {
		m.deps.Log.Warn("entropy beacon unavailable, public seed derived locally",
			zap.String("duelId", duelID))
	}

	m.mu.Lock()
	d.OpponentID = userID
	d.PublicSeed = seed.Value

	roll, err := fair.GenerateRoll(d.ServerSeed, d.PublicSeed, d.ID, 0)
	if err != nil {
		// seeds gerados internamente nunca são vazios
		d.resolving = false
		m.mu.Unlock()
		return Duel{}, err
	}
	d.RollValue = roll.Value
	if roll.Value < 0.5 {
		d.WinnerUserID = d.CreatorID
	} else {
		d.WinnerUserID = userID
	}
	d.PotCents = 2 * stake
	d.HouseCutCents = d.PotCents * int64(m.deps.Cfg.HouseEdgeBps) / 10000
	d.PayoutCents = d.PotCents - d.HouseCutCents
	winner, payout := d.WinnerUserID, d.PayoutCents
	m.mu.Unlock()

	if err := m.deps.Ledger.Settle(ctx, []ledger.Entry{{
		UserID:      winner,
		DeltaCents:  payout,
		ReasonCode:  ledger.ReasonDuelWin,
		ReferenceID: duelID,
	}}); err != nil {
		m.deps.Log.Error("duel payout settle failed",
			zap.String("duelId", duelID), zap.Error(err))
		// as duas entradas já foram debitadas e o vencedor já foi sorteado;
		// reabrir aqui poderia sortear outro vencedor. O duelo congela em
		// estado terminal e fica para reconciliação manual.
		now := time.Now()
		m.mu.Lock()
		d.Status = StatusErrored
		d.SettleError = "payout_settle_failed"
		d.ResolvedAt = &now
		snap := d.snapshot()
		m.mu.Unlock()
		m.publish(ctx, "duel_error", snap)
		if m.deps.OnSettled != nil {
			m.deps.OnSettled("errored")
		}
		return Duel{}, err
	}

	now := time.Now()
	m.mu.Lock()
	d.Status = StatusFinished
	d.ResolvedAt = &now
	snap := d.snapshot()
	m.mu.Unlock()

	m.publish(ctx, "duel_finished", snap)
	m.publishSettled(ctx, snap)
	if m.deps.OnSettled != nil {
		m.deps.OnSettled("finished")
	}
	return snap, nil
}

// Cancel estorna o criador e fecha um duelo ainda aberto
func (m *Manager) Cancel(ctx context.Context, duelID, userID string) error {
	m.mu.Lock()
	d, ok := m.duels[duelID]
	if !ok {
		m.mu.Unlock()
		return ErrDuelNotFound
	}
	if d.Status != StatusOpen || d.resolving {
		m.mu.Unlock()
		return ErrNotOpen
	}
	if userID != d.CreatorID {
		m.mu.Unlock()
		return ErrNotCreator
	}
	d.resolving = true
	stake := d.StakeCents
	m.mu.Unlock()

	if err := m.deps.Ledger.Settle(ctx, []ledger.Entry{{
		UserID:      userID,
		DeltaCents:  stake,
		ReasonCode:  ledger.ReasonDuelRefund,
		ReferenceID: duelID,
	}}); err != nil {
		m.mu.Lock()
		d.resolving = false
		m.mu.Unlock()
		return err
	}

	now := time.Now()
	m.mu.Lock()
	d.Status = StatusCancelled
	d.ResolvedAt = &now
	snap := d.snapshot()
	m.mu.Unlock()

	m.publish(ctx, "duel_cancelled", snap)
	m.publishSettled(ctx, snap)
	if m.deps.OnSettled != nil {
		m.deps.OnSettled("cancelled")
	}
	return nil
}

// Get retorna o snapshot de um duelo
func (m *Manager) Get(duelID string) (Duel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.duels[duelID]
	if !ok {
		return Duel{}, ErrDuelNotFound
	}
	return d.snapshot(), nil
}

// List retorna os duelos ainda abertos
func (m *Manager) List() []Duel {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Duel
	for _, d := range m.duels {
		if d.Status == StatusOpen {
			out = append(out, d.snapshot())
		}
	}
	return out
}

func (m *Manager) publish(ctx context.Context, event string, payload any) {
	if err := m.deps.Broadcast.Publish(ctx, channels.Duel, event, payload); err != nil {
		m.deps.Log.Warn("duel broadcast failed", zap.Error(err))
	}
}

func (m *Manager) publishSettled(ctx context.Context, d Duel) {
	if m.deps.Settled == nil {
		return
	}
	err := m.deps.Settled.PublishDuelSettled(ctx, events.DuelSettled{
		DuelID:         d.ID,
		Status:         string(d.Status),
		WinnerUserID:   d.WinnerUserID,
		StakeCents:     d.StakeCents,
		PayoutCents:    d.PayoutCents,
		RollValue:      d.RollValue,
		ServerSeed:     d.ServerSeed,
		ServerSeedHash: d.ServerSeedHash,
		PublicSeed:     d.PublicSeed,
		TsUnixMs:       time.Now().UnixMilli(),
	})
	if err != nil {
		m.deps.Log.Warn("duel_settled publish failed", zap.String("duelId", d.ID), zap.Error(err))
	}
}
