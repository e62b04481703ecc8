package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/shared/config"
	"github.com/caseclash/platform/internal/shared/logger"
	"github.com/caseclash/platform/internal/shared/metrics"
)

// entropy-simulator simula o beacon público de entropia usado como public
// seed: um valor novo a cada intervalo, servido em /seed. Em produção esse
// papel é de uma fonte externa verificável (ex.: hash de bloco).
func main() {
	cfg := config.Load()

	log, err := logger.New("entropy-simulator", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	b := &beacon{interval: 10 * time.Second}
	b.rotate()

	metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })

	mux := http.NewServeMux()
	mux.HandleFunc("/seed", b.serve)

	addr := ":" + cfg.HTTPPort
	log.Info("beacon listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Fatal("beacon srv", zap.Error(err))
	}
}

type beacon struct {
	interval time.Duration

	mu        sync.Mutex
	value     string
	rotatedAt time.Time
}

func (b *beacon) rotate() {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	h := sha256.Sum256(buf)

	b.mu.Lock()
	b.value = hex.EncodeToString(h[:])
	b.rotatedAt = time.Now()
	b.mu.Unlock()
}

func (b *beacon) serve(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	stale := time.Since(b.rotatedAt) >= b.interval
	b.mu.Unlock()
	if stale {
		b.rotate()
	}

	b.mu.Lock()
	out := map[string]any{
		"value":     b.value,
		"timestamp": b.rotatedAt.UnixMilli(),
	}
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
