package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/battle-service/cases"
	"github.com/caseclash/platform/internal/broadcast"
	"github.com/caseclash/platform/internal/entropy"
	"github.com/caseclash/platform/internal/fair-service/store"
	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/pkg/contracts/channels"
	"github.com/caseclash/platform/pkg/contracts/events"
	"github.com/caseclash/platform/pkg/fair"
)

// Repo persiste snapshots de batalha a cada transição de estado
type Repo interface {
	Save(ctx context.Context, b Battle) error
}

// SnapshotCache guarda o snapshot mais recente num cache de leitura rápida
type SnapshotCache interface {
	Put(ctx context.Context, b Battle) error
}

// SettledPublisher publica o evento de liquidação no Kafka
type SettledPublisher interface {
	PublishBattleSettled(ctx context.Context, e events.BattleSettled) error
}

type Config struct {
	HouseEdgeBps int           // ex: 500 = 5% do pote
	Countdown    time.Duration // broadcast fixo antes de in_progress
	RoundDelay   time.Duration // espera entre rodadas
	FastDelay    time.Duration // espera entre rodadas em fast mode
	MinPlayers   int
	MaxPlayers   int
}

type Deps struct {
	Log       *zap.Logger
	Ledger    ledger.Gateway
	Broadcast broadcast.Publisher
	Entropy   entropy.Source
	Seeds     store.Store
	Catalog   *cases.Catalog
	Repo      Repo
	Cache     SnapshotCache
	Settled   SettledPublisher
	Cfg       Config

	OnSettled func(status string) // métrica
}

// Manager registra e roteia batalhas. Cada batalha é um ator: uma goroutine
// dona de todo o estado, alimentada por uma fila de comandos tipados. A
// mutação nunca acontece fora dela, então não há lock por batalha.
type Manager struct {
	deps Deps

	mu     sync.RWMutex
	actors map[string]*actor
}

func NewManager(deps Deps) *Manager {
	if deps.Cfg.MinPlayers == 0 {
		deps.Cfg.MinPlayers = 2
	}
	if deps.Cfg.MaxPlayers == 0 {
		deps.Cfg.MaxPlayers = 4
	}
	return &Manager{
		deps:   deps,
		actors: make(map[string]*actor),
	}
}

type CreateParams struct {
	CreatorID  string
	CaseIDs    []string
	MaxPlayers int
	Mode       Mode
	FastMode   bool
}

// Create valida a configuração, reserva a entrada do criador e registra o
// ator da batalha. A batalha não existe se a reserva falhar.
func (m *Manager) Create(ctx context.Context, p CreateParams) (Battle, error) {
	if p.CreatorID == "" || len(p.CaseIDs) == 0 {
		return Battle{}, ErrInvalidConfig
	}
	if p.MaxPlayers < m.deps.Cfg.MinPlayers || p.MaxPlayers > m.deps.Cfg.MaxPlayers {
		return Battle{}, ErrInvalidConfig
	}
	if p.Mode == "" {
		p.Mode = ModeNormal
	}
	if p.Mode != ModeNormal && p.Mode != ModeInverse {
		return Battle{}, ErrInvalidConfig
	}

	rounds, err := m.deps.Catalog.Resolve(p.CaseIDs)
	if err != nil {
		return Battle{}, err
	}
	var cost int64
	for _, c := range rounds {
		cost += c.PriceCents
	}

	serverSeed := fair.GenerateServerSeed()
	b := &Battle{
		ID:             uuid.NewString(),
		Status:         StatusWaiting,
		Mode:           p.Mode,
		FastMode:       p.FastMode,
		CreatorID:      p.CreatorID,
		MaxPlayers:     p.MaxPlayers,
		CaseIDs:        append([]string(nil), p.CaseIDs...),
		CostCents:      cost,
		ServerSeed:     serverSeed,
		ServerSeedHash: fair.HashCommitment(serverSeed),
		CreatedAt:      time.Now(),
		rounds:         rounds,
	}

	if err := m.deps.Ledger.Reserve(ctx, p.CreatorID, cost, b.ID+":"+p.CreatorID); err != nil {
		return Battle{}, err
	}
	b.Participants = []Participant{{
		UserID:     p.CreatorID,
		Position:   0,
		ClientSeed: m.clientSeed(ctx, p.CreatorID),
	}}

	a := &actor{m: m, b: b, cmds: make(chan command, 32)}
	a.store()
	snap := a.latest()

	m.mu.Lock()
	m.actors[b.ID] = a
	m.mu.Unlock()

	m.persist(ctx, snap)
	m.publish(ctx, b.ID, "battle_created", snap)
	// o ator só começa a consumir comandos depois do evento de criação: a
	// partir do go abaixo, todo acesso ao estado passa pela goroutine dele
	go a.run()
	return snap, nil
}

// Join entra numa batalha em waiting; ao completar, o ator inicia a partida
func (m *Manager) Join(ctx context.Context, battleID, userID string, position int) error {
	a, err := m.actor(battleID)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	a.cmds <- joinCmd{ctx: ctx, userID: userID, position: position, reply: reply}
	return <-reply
}

// Leave sai de uma batalha em waiting com estorno; o criador saindo cancela
func (m *Manager) Leave(ctx context.Context, battleID, userID string) error {
	a, err := m.actor(battleID)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	a.cmds <- leaveCmd{ctx: ctx, userID: userID, reply: reply}
	return <-reply
}

// Cancel cancela uma batalha em waiting (somente o criador), estornando
// todos os participantes em um único settle atômico
func (m *Manager) Cancel(ctx context.Context, battleID, userID string) error {
	a, err := m.actor(battleID)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	a.cmds <- cancelCmd{ctx: ctx, userID: userID, reply: reply}
	return <-reply
}

// Get retorna o snapshot corrente de uma batalha sem esperar o ator: uma
// batalha no meio de uma rodada continua legível
func (m *Manager) Get(battleID string) (Battle, error) {
	a, err := m.actor(battleID)
	if err != nil {
		return Battle{}, err
	}
	return a.latest(), nil
}

// List retorna snapshots das batalhas ainda abertas (waiting)
func (m *Manager) List() []Battle {
	m.mu.RLock()
	actors := make([]*actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.mu.RUnlock()

	var out []Battle
	for _, a := range actors {
		if b := a.latest(); b.Status == StatusWaiting {
			out = append(out, b)
		}
	}
	return out
}

func (m *Manager) actor(battleID string) (*actor, error) {
	m.mu.RLock()
	a, ok := m.actors[battleID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrBattleNotFound
	}
	return a, nil
}

func (m *Manager) clientSeed(ctx context.Context, userID string) string {
	pair, err := m.deps.Seeds.Active(ctx, userID)
	if err != nil || pair.ClientSeed == "" {
		// indisponibilidade do store de seeds não bloqueia o join
		m.deps.Log.Warn("seed store unavailable, using user id as client seed",
			zap.String("userId", userID), zap.Error(err))
		return userID
	}
	return pair.ClientSeed
}

func (m *Manager) persist(ctx context.Context, b Battle) {
	if m.deps.Repo != nil {
		if err := m.deps.Repo.Save(ctx, b); err != nil {
			m.deps.Log.Warn("battle persist failed", zap.String("battleId", b.ID), zap.Error(err))
		}
	}
	if m.deps.Cache != nil {
		if err := m.deps.Cache.Put(ctx, b); err != nil {
			m.deps.Log.Warn("battle snapshot cache failed", zap.String("battleId", b.ID), zap.Error(err))
		}
	}
}

func (m *Manager) publish(ctx context.Context, battleID, event string, payload any) {
	if err := m.deps.Broadcast.Publish(ctx, channels.Battle(battleID), event, payload); err != nil {
		m.deps.Log.Warn("battle broadcast failed", zap.String("battleId", battleID), zap.Error(err))
	}
}
