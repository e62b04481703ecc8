package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/shared/cache"
	"github.com/caseclash/platform/internal/shared/config"
	"github.com/caseclash/platform/internal/shared/logger"
	"github.com/caseclash/platform/internal/shared/metrics"
	"github.com/caseclash/platform/internal/stream-gateway/ws"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("stream-gateway", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "stream-gateway"), zap.String("env", cfg.Env))

	// Redis: única fonte dos envelopes publicados pelos serviços de jogo
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(func(r *http.Request) bool { return true }) // CORS liberado; auth fica no gateway
	ws.StartRedisSubscriber(ctx, log, redisClient, hub)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)

	addr := ":" + cfg.HTTPPort
	log.Info("ws listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Fatal("ws srv", zap.Error(err))
	}
}
