package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/broadcast"
	"github.com/caseclash/platform/internal/duel-service/engine"
	dhttp "github.com/caseclash/platform/internal/duel-service/http"
	"github.com/caseclash/platform/internal/duel-service/publish"
	"github.com/caseclash/platform/internal/entropy"
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

	log, err := logger.New("duel-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "duel-service"), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDuelSettled)
	defer settledWriter.Close()

	settledTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "duel_settled_total",
		Help: "duelos encerrados por status",
	}, []string{"status"})
	prometheus.MustRegister(settledTotal)

	mgr := engine.NewManager(engine.Deps{
		Log:       log,
		Ledger:    ledger.NewPostgres(pg),
		Broadcast: broadcast.NewRedisPublisher(redisClient),
		Entropy:   entropy.New(cfg.EntropyBeaconURL),
		Settled:   publish.NewKafka(settledWriter),
		Cfg:       engine.Config{HouseEdgeBps: cfg.HouseEdgeBps},
		OnSettled: func(status string) { settledTotal.WithLabelValues(status).Inc() },
	})

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	api := dhttp.NewServer(log, mgr)
	addr := ":" + cfg.HTTPPort
	log.Info("api listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, api.Router()); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
