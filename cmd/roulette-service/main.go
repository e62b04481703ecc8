package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/broadcast"
	"github.com/caseclash/platform/internal/entropy"
	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/internal/roulette-service/engine"
	rhttp "github.com/caseclash/platform/internal/roulette-service/http"
	"github.com/caseclash/platform/internal/roulette-service/publish"
	"github.com/caseclash/platform/internal/shared/cache"
	"github.com/caseclash/platform/internal/shared/config"
	"github.com/caseclash/platform/internal/shared/db"
	"github.com/caseclash/platform/internal/shared/kafka"
	"github.com/caseclash/platform/internal/shared/logger"
	"github.com/caseclash/platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("roulette-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "roulette-service"), zap.String("env", cfg.Env))

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

	resultsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roulette_results_total",
		Help: "rodadas liquidadas por cor",
	}, []string{"color"})
	prometheus.MustRegister(resultsTotal)

	game := engine.NewGame(engine.Deps{
		Log:            log,
		Ledger:         ledger.NewPostgres(pg),
		Broadcast:      broadcast.NewRedisPublisher(redisClient),
		Entropy:        entropy.New(cfg.EntropyBeaconURL),
		Settled:        publish.NewKafka(settledWriter),
		OnRoundSettled: func(color string) { resultsTotal.WithLabelValues(color).Inc() },
	})

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sched := engine.NewScheduler(game, engine.SchedulerConfig{
		BetWindow: cfg.RouletteBetWindow,
		SpinTime:  cfg.RouletteSpinTime,
		Cooldown:  cfg.RouletteCooldown,
	})
	go sched.Run(ctx)

	api := rhttp.NewServer(log, game)
	addr := ":" + cfg.HTTPPort
	log.Info("api listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, api.Router()); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
