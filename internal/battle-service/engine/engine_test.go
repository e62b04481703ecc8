package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/battle-service/cases"
	"github.com/caseclash/platform/internal/broadcast"
	"github.com/caseclash/platform/internal/entropy"
	"github.com/caseclash/platform/internal/fair-service/store"
	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/pkg/contracts/channels"
	"github.com/caseclash/platform/pkg/fair"
)

const testCatalogYAML = `
cases:
  - id: starter
    name: Starter Case
    price_cents: 250
    items:
      - id: scrap
        weight: 50
        payout_cents: 50
      - id: blade
        weight: 30
        payout_cents: 300
      - id: gold
        weight: 20
        payout_cents: 800
  - id: flat
    name: Flat Case
    price_cents: 100
    items:
      - id: only
        weight: 1
        payout_cents: 100
`

type testEnv struct {
	m       *Manager
	wallet  *ledger.Memory
	bus     *broadcast.Recorder
	seeds   *store.Memory
	settled []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cases.yaml")
	if err := os.WriteFile(path, []byte(testCatalogYAML), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := cases.LoadFile(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	env := &testEnv{
		wallet: ledger.NewMemory(),
		bus:    broadcast.NewRecorder(),
		seeds:  store.NewMemory(),
	}
	env.m = NewManager(Deps{
		Log:       zap.NewNop(),
		Ledger:    env.wallet,
		Broadcast: env.bus,
		Entropy:   entropy.Static{Seed: entropy.Seed{Value: "beacon-fixed", Timestamp: time.Now()}},
		Seeds:     env.seeds,
		Catalog:   cat,
		Cfg: Config{
			HouseEdgeBps: 500,
			Countdown:    0,
			RoundDelay:   0,
			FastDelay:    0,
		},
		OnSettled: func(status string) { env.settled = append(env.settled, status) },
	})
	return env
}

func (e *testEnv) fund(t *testing.T, userID string, cents int64) {
	t.Helper()
	if _, err := e.wallet.Deposit(context.Background(), userID, cents, "test"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

// waitTerminal espera a goroutine do ator concluir a partida
func (e *testEnv) waitTerminal(t *testing.T, battleID string) Battle {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b, err := e.m.Get(battleID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if b.Status == StatusFinished || b.Status == StatusCancelled {
			return b
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("battle %s never reached a terminal state", battleID)
	return Battle{}
}

func TestTwoPlayerBattlePaysPotMinusEdge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 1000)
	env.fund(t, "bob", 1000)

	b, err := env.m.Create(ctx, CreateParams{
		CreatorID:  "alice",
		CaseIDs:    []string{"starter"},
		MaxPlayers: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != StatusWaiting || b.CostCents != 250 {
		t.Fatalf("unexpected battle after create: %+v", b)
	}

	if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
		t.Fatalf("join: %v", err)
	}

	done := env.waitTerminal(t, b.ID)
	if done.Status != StatusFinished {
		t.Fatalf("status = %s, want finished", done.Status)
	}
	if done.PotCents != 500 || done.HouseCutCents != 25 || done.PayoutCents != 475 {
		t.Fatalf("pot math wrong: pot=%d cut=%d payout=%d", done.PotCents, done.HouseCutCents, done.PayoutCents)
	}

	// vencedor é quem tem a maior pontuação acumulada
	var winner, loser Participant
	for _, p := range done.Participants {
		if p.UserID == done.WinnerUserID {
			winner = p
		} else {
			loser = p
		}
	}
	if winner.ScoreCents < loser.ScoreCents {
		t.Fatalf("winner score %d below loser score %d", winner.ScoreCents, loser.ScoreCents)
	}

	wb, _ := env.wallet.Balance(ctx, winner.UserID)
	lb, _ := env.wallet.Balance(ctx, loser.UserID)
	if wb != 1000-250+475 {
		t.Fatalf("winner balance = %d, want %d", wb, 1000-250+475)
	}
	if lb != 1000-250 {
		t.Fatalf("loser balance = %d, want %d", lb, 1000-250)
	}
	// conservação: só o house cut sai do sistema
	if wb+lb != 2000-done.HouseCutCents {
		t.Fatalf("ledger not conserved: %d + %d", wb, lb)
	}
}

func TestInverseModeLowestScoreWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 1000)
	env.fund(t, "bob", 1000)

	b, err := env.m.Create(ctx, CreateParams{
		CreatorID:  "alice",
		CaseIDs:    []string{"starter", "starter"},
		MaxPlayers: 2,
		Mode:       ModeInverse,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
		t.Fatalf("join: %v", err)
	}

	done := env.waitTerminal(t, b.ID)
	var winner, loser Participant
	for _, p := range done.Participants {
		if p.UserID == done.WinnerUserID {
			winner = p
		} else {
			loser = p
		}
	}
	if winner.ScoreCents > loser.ScoreCents {
		t.Fatalf("inverse mode: winner score %d above loser score %d", winner.ScoreCents, loser.ScoreCents)
	}
}

func TestTieBreakGoesToLowestPosition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 1000)
	env.fund(t, "bob", 1000)

	// case de item único: todos os scores empatam de propósito
	b, err := env.m.Create(ctx, CreateParams{
		CreatorID:  "alice",
		CaseIDs:    []string{"flat"},
		MaxPlayers: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
		t.Fatalf("join: %v", err)
	}

	done := env.waitTerminal(t, b.ID)
	if done.WinnerUserID != "alice" {
		t.Fatalf("tie must resolve to position 0, got winner %s", done.WinnerUserID)
	}
}

func TestNoncesCoverEveryRoundPositionPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 1000)
	env.fund(t, "bob", 1000)

	b, err := env.m.Create(ctx, CreateParams{
		CreatorID:  "alice",
		CaseIDs:    []string{"starter", "flat", "starter"},
		MaxPlayers: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
		t.Fatalf("join: %v", err)
	}

	done := env.waitTerminal(t, b.ID)
	if len(done.Rounds) != 3 {
		t.Fatalf("rounds = %d, want 3", len(done.Rounds))
	}

	seen := map[uint64]bool{}
	for _, r := range done.Rounds {
		for _, res := range r.Results {
			if seen[res.Nonce] {
				t.Fatalf("nonce %d repeated", res.Nonce)
			}
			seen[res.Nonce] = true
		}
	}
	for n := uint64(0); n < 6; n++ {
		if !seen[n] {
			t.Fatalf("nonce %d never used", n)
		}
	}
}

func TestRollsAreReproducibleFromRevealedSeeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 1000)
	env.fund(t, "bob", 1000)

	b, err := env.m.Create(ctx, CreateParams{
		CreatorID:  "alice",
		CaseIDs:    []string{"starter"},
		MaxPlayers: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ServerSeed != "" {
		t.Fatalf("server seed leaked before resolution")
	}
	if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
		t.Fatalf("join: %v", err)
	}

	done := env.waitTerminal(t, b.ID)
	if done.ServerSeed == "" {
		t.Fatalf("server seed not revealed after finish")
	}
	if fair.HashCommitment(done.ServerSeed) != done.ServerSeedHash {
		t.Fatalf("revealed seed does not match the published hash")
	}

	seedByUser := map[string]string{}
	for _, p := range done.Participants {
		seedByUser[p.UserID] = p.ClientSeed
	}
	for _, r := range done.Rounds {
		for _, res := range r.Results {
			roll, err := fair.GenerateRoll(done.ServerSeed, done.PublicSeed, seedByUser[res.UserID], res.Nonce)
			if err != nil {
				t.Fatalf("regenerate roll: %v", err)
			}
			if roll.Value != res.RollValue {
				t.Fatalf("roll not reproducible: got %v, recorded %v", roll.Value, res.RollValue)
			}
		}
	}
}

func TestCancelRefundsEveryParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 500)
	env.fund(t, "bob", 500)

	b, err := env.m.Create(ctx, CreateParams{
		CreatorID:  "alice",
		CaseIDs:    []string{"starter"},
		MaxPlayers: 3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := env.m.Cancel(ctx, b.ID, "bob"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("non creator cancel: err = %v, want %v", err, ErrNotCreator)
	}
	if err := env.m.Cancel(ctx, b.ID, "alice"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	done := env.waitTerminal(t, b.ID)
	if done.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", done.Status)
	}
	for _, u := range []string{"alice", "bob"} {
		bal, _ := env.wallet.Balance(ctx, u)
		if bal != 500 {
			t.Fatalf("%s balance = %d after cancel, want 500", u, bal)
		}
	}

	if err := env.m.Join(ctx, b.ID, "carol", 2); !errors.Is(err, ErrNotJoinable) {
		t.Fatalf("join after cancel: err = %v, want %v", err, ErrNotJoinable)
	}
}

func TestJoinRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 500)
	env.fund(t, "bob", 500)

	b, err := env.m.Create(ctx, CreateParams{
		CreatorID:  "alice",
		CaseIDs:    []string{"starter"},
		MaxPlayers: 3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.m.Join(ctx, b.ID, "bob", 0); !errors.Is(err, ErrPositionTaken) {
		t.Fatalf("taken position: err = %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "bob", 5); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("out of range position: err = %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "alice", 1); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("rejoin: err = %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "broke", 1); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("no funds: err = %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
		t.Fatalf("valid join rejected: %v", err)
	}

	// rejeições não podem ter debitado ninguém além dos participantes
	aliceBal, _ := env.wallet.Balance(ctx, "alice")
	brokeBal, _ := env.wallet.Balance(ctx, "broke")
	if aliceBal != 250 || brokeBal != 0 {
		t.Fatalf("balances after rejections: alice=%d broke=%d", aliceBal, brokeBal)
	}
}

func TestLeaveRefundsAndCreatorLeaveCancels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 500)
	env.fund(t, "bob", 500)

	b, err := env.m.Create(ctx, CreateParams{
		CreatorID:  "alice",
		CaseIDs:    []string{"starter"},
		MaxPlayers: 3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := env.m.Leave(ctx, b.ID, "carol"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider leave: err = %v", err)
	}
	if err := env.m.Leave(ctx, b.ID, "bob"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	bal, _ := env.wallet.Balance(ctx, "bob")
	if bal != 500 {
		t.Fatalf("bob balance = %d after leave, want 500", bal)
	}

	// criador saindo cancela a batalha inteira
	if err := env.m.Leave(ctx, b.ID, "alice"); err != nil {
		t.Fatalf("creator leave: %v", err)
	}
	done := env.waitTerminal(t, b.ID)
	if done.Status != StatusCancelled {
		t.Fatalf("status = %s after creator leave, want cancelled", done.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 500)

	if _, err := env.m.Create(ctx, CreateParams{CreatorID: "alice", MaxPlayers: 2}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("no cases: err = %v", err)
	}
	if _, err := env.m.Create(ctx, CreateParams{CreatorID: "alice", CaseIDs: []string{"starter"}, MaxPlayers: 9}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("too many players: err = %v", err)
	}
	if _, err := env.m.Create(ctx, CreateParams{CreatorID: "alice", CaseIDs: []string{"ghost"}, MaxPlayers: 2}); err == nil {
		t.Fatalf("unknown case must fail create")
	}
	if _, err := env.m.Create(ctx, CreateParams{CreatorID: "broke", CaseIDs: []string{"starter"}, MaxPlayers: 2}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("create without funds: err = %v", err)
	}

	// nenhuma batalha pode ter ficado registrada pelas tentativas inválidas
	if got := env.m.List(); len(got) != 0 {
		t.Fatalf("invalid creates leaked battles: %d", len(got))
	}
}

func TestCreatedEventPrecedesRacingJoins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 100000)
	env.fund(t, "bob", 100000)

	// o join chega imediatamente depois do create; o snapshot devolvido e o
	// evento de criação têm de refletir o estado antes de qualquer join
	for i := 0; i < 20; i++ {
		b, err := env.m.Create(ctx, CreateParams{
			CreatorID:  "alice",
			CaseIDs:    []string{"flat"},
			MaxPlayers: 2,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if b.Status != StatusWaiting || len(b.Participants) != 1 {
			t.Fatalf("create snapshot already mutated: %+v", b)
		}
		if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
			t.Fatalf("join: %v", err)
		}
		env.waitTerminal(t, b.ID)

		events := env.bus.Events(channels.Battle(b.ID))
		if len(events) < 2 || events[0] != "battle_created" || events[1] != "battle_join" {
			t.Fatalf("event order = %v, want battle_created before battle_join", events)
		}
	}
}

func TestBroadcastSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 500)
	env.fund(t, "bob", 500)

	b, err := env.m.Create(ctx, CreateParams{
		CreatorID:  "alice",
		CaseIDs:    []string{"starter"},
		MaxPlayers: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.m.Join(ctx, b.ID, "bob", 1); err != nil {
		t.Fatalf("join: %v", err)
	}
	env.waitTerminal(t, b.ID)

	events := env.bus.Events(channels.Battle(b.ID))
	want := []string{"battle_created", "battle_join", "battle_starting", "battle_round", "battle_finished"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, events[i], want[i])
		}
	}
	if len(env.settled) != 1 || env.settled[0] != "finished" {
		t.Fatalf("settled hook = %v", env.settled)
	}
}
