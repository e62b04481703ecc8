package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/battle-service/cases"
	"github.com/caseclash/platform/internal/battle-service/engine"
	bhttp "github.com/caseclash/platform/internal/battle-service/http"
	"github.com/caseclash/platform/internal/battle-service/publish"
	brepo "github.com/caseclash/platform/internal/battle-service/repo"
	"github.com/caseclash/platform/internal/broadcast"
	"github.com/caseclash/platform/internal/entropy"
	fstore "github.com/caseclash/platform/internal/fair-service/store"
	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/internal/shared/cache"
	"github.com/caseclash/platform/internal/shared/config"
	"github.com/caseclash/platform/internal/shared/db"
	"github.com/caseclash/platform/internal/shared/kafka"
	"github.com/caseclash/platform/internal/shared/logger"
	"github.com/caseclash/platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("battle-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "battle-service"), zap.String("env", cfg.Env))

	// Postgres: carteiras, seed pairs e snapshots de batalha
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: broadcast dos eventos de batalha para o stream-gateway
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka: evento terminal de cada batalha
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBattleSettled)
	defer settledWriter.Close()

	// Catálogo de cases com as tabelas de prêmio
	catalog, err := cases.LoadFile(cfg.CasesFile)
	if err != nil {
		log.Fatal("load cases", zap.String("file", cfg.CasesFile), zap.Error(err))
	}

	settledTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battle_settled_total",
		Help: "batalhas encerradas por status",
	}, []string{"status"})
	prometheus.MustRegister(settledTotal)

	mgr := engine.NewManager(engine.Deps{
		Log:       log,
		Ledger:    ledger.NewPostgres(pg),
		Broadcast: broadcast.NewRedisPublisher(redisClient),
		Entropy:   entropy.New(cfg.EntropyBeaconURL),
		Seeds:     fstore.NewPostgres(pg),
		Catalog:   catalog,
		Repo:      brepo.NewPostgres(pg),
		Cache:     brepo.NewRedisSnapshots(redisClient),
		Settled:   publish.NewKafka(settledWriter),
		Cfg: engine.Config{
			HouseEdgeBps: cfg.HouseEdgeBps,
			Countdown:    cfg.BattleCountdown,
			RoundDelay:   cfg.BattleRoundDelay,
			FastDelay:    cfg.BattleFastDelay,
		},
		OnSettled: func(status string) { settledTotal.WithLabelValues(status).Inc() },
	})

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	api := bhttp.NewServer(log, mgr, catalog)
	addr := ":" + cfg.HTTPPort
	log.Info("api listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, api.Router()); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
