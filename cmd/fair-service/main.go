package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	fhttp "github.com/caseclash/platform/internal/fair-service/http"
	"github.com/caseclash/platform/internal/fair-service/store"
	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/internal/shared/config"
	"github.com/caseclash/platform/internal/shared/db"
	"github.com/caseclash/platform/internal/shared/logger"
	"github.com/caseclash/platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("fair-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "fair-service"), zap.String("env", cfg.Env))

	// Postgres: seed pairs por usuário e operações básicas de carteira
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	api := fhttp.NewServer(log, store.NewPostgres(pg), ledger.NewPostgres(pg))
	addr := ":" + cfg.HTTPPort
	log.Info("api listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, api.Router()); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
