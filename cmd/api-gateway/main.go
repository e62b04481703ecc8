package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/shared/config"
	"github.com/caseclash/platform/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

func target(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// api-gateway é a única porta pública: roteia cada prefixo /api/* para o
// serviço de jogo correspondente e aplica o CORS uma única vez
func main() {
	cfg := config.Load()
	log, _ := logger.New("api-gateway", cfg.Env)
	defer log.Sync()

	battle := rp(target("BATTLE_URL", "http://localhost:8080"))
	crash := rp(target("CRASH_URL", "http://localhost:8081"))
	roulette := rp(target("ROULETTE_URL", "http://localhost:8082"))
	duel := rp(target("DUEL_URL", "http://localhost:8083"))
	fair := rp(target("FAIR_URL", "http://localhost:8084"))

	mux := http.NewServeMux()
	mux.Handle("/api/battles/", http.StripPrefix("/api/battles", battle))
	mux.Handle("/api/crash/", http.StripPrefix("/api/crash", crash))
	mux.Handle("/api/roulette/", http.StripPrefix("/api/roulette", roulette))
	mux.Handle("/api/duels/", http.StripPrefix("/api/duels", duel))
	mux.Handle("/api/fair/", http.StripPrefix("/api/fair", fair))

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
