package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/broadcast"
	"github.com/caseclash/platform/internal/crash-service/engine"
	chttp "github.com/caseclash/platform/internal/crash-service/http"
	"github.com/caseclash/platform/internal/crash-service/publish"
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

	log, err := logger.New("crash-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "crash-service"), zap.String("env", cfg.Env))

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

	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer settledWriter.Close()

	roundsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crash_rounds_total",
		Help: "rodadas de crash encerradas",
	})
	crashPoints := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crash_point",
		Help:    "distribuição dos crash points",
		Buckets: []float64{1, 1.2, 1.5, 2, 3, 5, 10, 25, 100, 1000},
	})
	prometheus.MustRegister(roundsTotal, crashPoints)

	game := engine.NewGame(engine.Deps{
		Log:       log,
		Ledger:    ledger.NewPostgres(pg),
		Broadcast: broadcast.NewRedisPublisher(redisClient),
		Entropy:   entropy.New(cfg.EntropyBeaconURL),
		Settled:   publish.NewKafka(settledWriter),
		OnRoundCrashed: func(cp float64) {
			roundsTotal.Inc()
			crashPoints.Observe(cp)
		},
	})

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	// Ciclo contínuo de rodadas; para com SIGTERM crashando a rodada corrente
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sched := engine.NewScheduler(game, engine.SchedulerConfig{
		BettingWindow: cfg.CrashBettingWindow,
		TickInterval:  cfg.CrashTickInterval,
		Cooldown:      cfg.CrashCooldown,
	})
	go sched.Run(ctx)

	api := chttp.NewServer(log, game)
	addr := ":" + cfg.HTTPPort
	log.Info("api listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, api.Router()); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
