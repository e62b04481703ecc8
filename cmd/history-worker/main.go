package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/shared/config"
	"github.com/caseclash/platform/internal/shared/db"
	"github.com/caseclash/platform/internal/shared/kafka"
	"github.com/caseclash/platform/internal/shared/logger"
	"github.com/caseclash/platform/internal/shared/metrics"
	ev "github.com/caseclash/platform/pkg/contracts/events"
)

// history-worker consome os eventos terminais dos três tópicos de
// liquidação e materializa o histórico auditável em game_rounds. Falhas de
// parse do round_settled vão para a DLQ em vez de travar a partição.
func main() {
	cfg := config.Load()

	log, err := logger.New("history-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	roundReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers, GroupID: "history-worker", Topic: cfg.TopicRoundSettled,
		MinBytes: 1, MaxBytes: 10e6,
	})
	defer roundReader.Close()
	battleReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers, GroupID: "history-worker", Topic: cfg.TopicBattleSettled,
		MinBytes: 1, MaxBytes: 10e6,
	})
	defer battleReader.Close()
	duelReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers, GroupID: "history-worker", Topic: cfg.TopicDuelSettled,
		MinBytes: 1, MaxBytes: 10e6,
	})
	defer duelReader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicRoundSettledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettledDLQ)
		defer dlqWriter.Close()
	}

	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "history_events_consumed_total",
		Help: "eventos de liquidação consumidos por jogo",
	}, []string{"game"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "history_events_failed_total",
		Help: "eventos que falharam no insert",
	})
	prometheus.MustRegister(consumed, failed)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("history-worker started",
		zap.String("rounds", cfg.TopicRoundSettled),
		zap.String("battles", cfg.TopicBattleSettled),
		zap.String("duels", cfg.TopicDuelSettled),
	)

	ctx := context.Background()

	go consumeBattles(ctx, log, pg, battleReader, consumed, failed)
	go consumeDuels(ctx, log, pg, duelReader, consumed, failed)
	consumeRounds(ctx, log, pg, roundReader, dlqWriter, consumed, failed)
}

func consumeRounds(ctx context.Context, log *zap.Logger, pg *sql.DB, r *kafkago.Reader, dlq *kafkago.Writer, consumed *prometheus.CounterVec, failed prometheus.Counter) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var e ev.RoundSettled
		if jerr := json.Unmarshal(msg.Value, &e); jerr != nil {
			log.Error("unmarshal round_settled", zap.Error(jerr))
			if dlq != nil {
				_ = kafka.WriteJSON(ctx, dlq, string(msg.Key), msg.Value)
			}
			continue
		}
		if err := insertRound(ctx, pg, insertParams{
			GameCode:   e.GameCode,
			RoundID:    e.RoundID,
			ServerSeed: e.ServerSeed, ServerSeedHash: e.ServerSeedHash, PublicSeed: e.PublicSeed,
			Result: e.Result, TotalBets: e.TotalBets,
			PotCents: e.TotalPotCents, PayoutCents: e.PayoutCents,
			CrashPoint: e.CrashPoint, TsUnixMs: e.TsUnixMs,
		}); err != nil {
			failed.Inc()
			log.Error("insert round", zap.String("roundId", e.RoundID), zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		consumed.WithLabelValues(e.GameCode).Inc()
	}
}

func consumeBattles(ctx context.Context, log *zap.Logger, pg *sql.DB, r *kafkago.Reader, consumed *prometheus.CounterVec, failed prometheus.Counter) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var e ev.BattleSettled
		if jerr := json.Unmarshal(msg.Value, &e); jerr != nil {
			log.Error("unmarshal battle_settled", zap.Error(jerr))
			continue
		}
		if err := insertRound(ctx, pg, insertParams{
			GameCode:   "battle",
			RoundID:    e.BattleID,
			ServerSeed: e.ServerSeed, ServerSeedHash: e.ServerSeedHash, PublicSeed: e.PublicSeed,
			Result: e.WinnerUserID, TotalBets: e.Participants,
			PotCents: e.PotCents, PayoutCents: e.PayoutCents,
			TsUnixMs: e.TsUnixMs,
		}); err != nil {
			failed.Inc()
			log.Error("insert battle", zap.String("battleId", e.BattleID), zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		consumed.WithLabelValues("battle").Inc()
	}
}

func consumeDuels(ctx context.Context, log *zap.Logger, pg *sql.DB, r *kafkago.Reader, consumed *prometheus.CounterVec, failed prometheus.Counter) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var e ev.DuelSettled
		if jerr := json.Unmarshal(msg.Value, &e); jerr != nil {
			log.Error("unmarshal duel_settled", zap.Error(jerr))
			continue
		}
		if err := insertRound(ctx, pg, insertParams{
			GameCode:   "duel",
			RoundID:    e.DuelID,
			ServerSeed: e.ServerSeed, ServerSeedHash: e.ServerSeedHash, PublicSeed: e.PublicSeed,
			Result: e.WinnerUserID, TotalBets: 2,
			PotCents: 2 * e.StakeCents, PayoutCents: e.PayoutCents,
			TsUnixMs: e.TsUnixMs,
		}); err != nil {
			failed.Inc()
			log.Error("insert duel", zap.String("duelId", e.DuelID), zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		consumed.WithLabelValues("duel").Inc()
	}
}

type insertParams struct {
	GameCode       string
	RoundID        string
	ServerSeed     string
	ServerSeedHash string
	PublicSeed     string
	Result         string
	TotalBets      int
	PotCents       int64
	PayoutCents    int64
	CrashPoint     float64
	TsUnixMs       int64
}

// insertRound é idempotente por (game_code, round_id): reprocessar uma
// partição não duplica histórico
func insertRound(ctx context.Context, pg *sql.DB, p insertParams) error {
	_, err := pg.ExecContext(ctx, `
		INSERT INTO game_rounds (game_code, round_id, server_seed, server_seed_hash, public_seed,
		                         result, total_bets, total_pot_cents, payout_cents, crash_point, settled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (game_code, round_id) DO NOTHING`,
		p.GameCode, p.RoundID, p.ServerSeed, p.ServerSeedHash, p.PublicSeed,
		p.Result, p.TotalBets, p.PotCents, p.PayoutCents, p.CrashPoint,
		time.UnixMilli(p.TsUnixMs))
	return err
}
