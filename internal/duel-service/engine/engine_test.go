package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/broadcast"
	"github.com/caseclash/platform/internal/entropy"
	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/pkg/contracts/channels"
	"github.com/caseclash/platform/pkg/contracts/events"
	"github.com/caseclash/platform/pkg/fair"
)

type settledRecorder struct {
	events []events.DuelSettled
}

func (s *settledRecorder) PublishDuelSettled(_ context.Context, e events.DuelSettled) error {
	s.events = append(s.events, e)
	return nil
}

type duelEnv struct {
	m       *Manager
	wallet  *ledger.Memory
	bus     *broadcast.Recorder
	settled *settledRecorder
}

func newDuelEnv() *duelEnv {
	env := &duelEnv{
		wallet:  ledger.NewMemory(),
		bus:     broadcast.NewRecorder(),
		settled: &settledRecorder{},
	}
	env.m = NewManager(Deps{
		Log:       zap.NewNop(),
		Ledger:    env.wallet,
		Broadcast: env.bus,
		Entropy:   entropy.Static{Seed: entropy.Seed{Value: "beacon-fixed", Timestamp: time.Now()}},
		Settled:   env.settled,
		Cfg:       Config{HouseEdgeBps: 500},
	})
	return env
}

func TestJoinResolvesInstantly(t *testing.T) {
	env := newDuelEnv()
	ctx := context.Background()
	env.wallet.Deposit(ctx, "alice", 1000, "t")
	env.wallet.Deposit(ctx, "bob", 1000, "t")

	d, err := env.m.Create(ctx, "alice", 200)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Status != StatusOpen || d.ServerSeed != "" || d.ServerSeedHash == "" {
		t.Fatalf("open duel malformed: %+v", d)
	}

	done, err := env.m.Join(ctx, d.ID, "bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if done.Status != StatusFinished {
		t.Fatalf("status = %s, want finished", done.Status)
	}
	if done.PotCents != 400 || done.HouseCutCents != 20 || done.PayoutCents != 380 {
		t.Fatalf("pot math wrong: %+v", done)
	}

	// roll < 0.5 dá ao criador; reproduzível a partir dos seeds revelados
	roll, err := fair.GenerateRoll(done.ServerSeed, done.PublicSeed, done.ID, 0)
	if err != nil {
		t.Fatalf("regenerate roll: %v", err)
	}
	if roll.Value != done.RollValue {
		t.Fatalf("roll not reproducible")
	}
	wantWinner := "bob"
	if roll.Value < 0.5 {
		wantWinner = "alice"
	}
	if done.WinnerUserID != wantWinner {
		t.Fatalf("winner = %s, want %s (roll %v)", done.WinnerUserID, wantWinner, roll.Value)
	}
	if fair.HashCommitment(done.ServerSeed) != done.ServerSeedHash {
		t.Fatalf("revealed seed does not match commitment")
	}

	loser := "alice"
	if wantWinner == "alice" {
		loser = "bob"
	}
	wb, _ := env.wallet.Balance(ctx, wantWinner)
	lb, _ := env.wallet.Balance(ctx, loser)
	if wb != 1000-200+380 || lb != 800 {
		t.Fatalf("balances: winner=%d loser=%d", wb, lb)
	}

	if len(env.settled.events) != 1 || env.settled.events[0].WinnerUserID != wantWinner {
		t.Fatalf("settled events = %+v", env.settled.events)
	}
}

func TestJoinRejections(t *testing.T) {
	env := newDuelEnv()
	ctx := context.Background()
	env.wallet.Deposit(ctx, "alice", 1000, "t")
	env.wallet.Deposit(ctx, "bob", 1000, "t")

	if _, err := env.m.Join(ctx, "ghost", "bob"); !errors.Is(err, ErrDuelNotFound) {
		t.Fatalf("join missing duel: err = %v", err)
	}

	d, _ := env.m.Create(ctx, "alice", 200)
	if _, err := env.m.Join(ctx, d.ID, "alice"); !errors.Is(err, ErrSelfJoin) {
		t.Fatalf("self join: err = %v", err)
	}
	if _, err := env.m.Join(ctx, d.ID, "broke"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("join without funds: err = %v", err)
	}
	// a falha da reserva não pode deixar o duelo travado
	if _, err := env.m.Join(ctx, d.ID, "bob"); err != nil {
		t.Fatalf("join after failed join: %v", err)
	}
	if _, err := env.m.Join(ctx, d.ID, "bob"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("join finished duel: err = %v", err)
	}
}

type failingSettleLedger struct {
	*ledger.Memory
	fail bool
}

func (l *failingSettleLedger) Settle(ctx context.Context, entries []ledger.Entry) error {
	if l.fail {
		return errors.New("wallet_unavailable")
	}
	return l.Memory.Settle(ctx, entries)
}

func TestJoinSettleFailureFreezesDuel(t *testing.T) {
	wallet := ledger.NewMemory()
	failing := &failingSettleLedger{Memory: wallet}
	bus := broadcast.NewRecorder()
	m := NewManager(Deps{
		Log:       zap.NewNop(),
		Ledger:    failing,
		Broadcast: bus,
		Entropy:   entropy.Static{Seed: entropy.Seed{Value: "beacon-fixed", Timestamp: time.Now()}},
		Cfg:       Config{HouseEdgeBps: 500},
	})
	ctx := context.Background()
	wallet.Deposit(ctx, "alice", 1000, "t")
	wallet.Deposit(ctx, "bob", 1000, "t")

	d, err := m.Create(ctx, "alice", 200)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	failing.fail = true
	if _, err := m.Join(ctx, d.ID, "bob"); err == nil {
		t.Fatalf("join must surface the settle failure")
	}

	// as duas entradas já foram debitadas; reabrir poderia sortear outro
	// vencedor, então o duelo congela em estado terminal
	got, err := m.Get(d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusErrored || got.SettleError == "" {
		t.Fatalf("duel after settle failure: %+v", got)
	}

	failing.fail = false
	if _, err := m.Join(ctx, d.ID, "carol"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("join errored duel: err = %v", err)
	}
	if err := m.Cancel(ctx, d.ID, "alice"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("cancel errored duel: err = %v", err)
	}
	if got := m.List(); len(got) != 0 {
		t.Fatalf("errored duel listed as open: %+v", got)
	}

	// entradas ficam debitadas até a reconciliação manual
	ab, _ := wallet.Balance(ctx, "alice")
	bb, _ := wallet.Balance(ctx, "bob")
	if ab != 800 || bb != 800 {
		t.Fatalf("balances: alice=%d bob=%d, want 800/800", ab, bb)
	}

	evts := bus.Events(channels.Duel)
	if len(evts) == 0 || evts[len(evts)-1] != "duel_error" {
		t.Fatalf("events = %v, want duel_error last", evts)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newDuelEnv()
	ctx := context.Background()

	if _, err := env.m.Create(ctx, "alice", 0); !errors.Is(err, ErrInvalidStake) {
		t.Fatalf("zero stake: err = %v", err)
	}
	if _, err := env.m.Create(ctx, "", 100); !errors.Is(err, ErrInvalidStake) {
		t.Fatalf("empty creator: err = %v", err)
	}
	if _, err := env.m.Create(ctx, "broke", 100); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("create without funds: err = %v", err)
	}
	if got := env.m.List(); len(got) != 0 {
		t.Fatalf("failed creates leaked duels: %d", len(got))
	}
}

func TestCancelRefundsCreator(t *testing.T) {
	env := newDuelEnv()
	ctx := context.Background()
	env.wallet.Deposit(ctx, "alice", 1000, "t")
	env.wallet.Deposit(ctx, "bob", 1000, "t")

	d, _ := env.m.Create(ctx, "alice", 200)
	if err := env.m.Cancel(ctx, d.ID, "bob"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("non creator cancel: err = %v", err)
	}
	if err := env.m.Cancel(ctx, d.ID, "alice"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	bal, _ := env.wallet.Balance(ctx, "alice")
	if bal != 1000 {
		t.Fatalf("alice balance = %d after cancel, want 1000", bal)
	}
	if _, err := env.m.Join(ctx, d.ID, "bob"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("join cancelled duel: err = %v", err)
	}
	if err := env.m.Cancel(ctx, d.ID, "alice"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("double cancel: err = %v", err)
	}
}

func TestListOnlyOpenDuels(t *testing.T) {
	env := newDuelEnv()
	ctx := context.Background()
	env.wallet.Deposit(ctx, "alice", 1000, "t")
	env.wallet.Deposit(ctx, "bob", 1000, "t")

	d1, _ := env.m.Create(ctx, "alice", 100)
	d2, _ := env.m.Create(ctx, "alice", 100)
	env.m.Join(ctx, d1.ID, "bob")

	open := env.m.List()
	if len(open) != 1 || open[0].ID != d2.ID {
		t.Fatalf("open duels = %+v", open)
	}
}
