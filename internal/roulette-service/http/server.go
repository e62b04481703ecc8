package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/internal/roulette-service/dto"
	"github.com/caseclash/platform/internal/roulette-service/engine"
)

// Server expõe a API REST da roleta: apostar e consultar a rodada corrente
type Server struct {
	log  *zap.Logger
	game *engine.Game
}

func NewServer(log *zap.Logger, game *engine.Game) *Server {
	return &Server{log: log, game: game}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/round", s.round) // GET rodada corrente
	mux.HandleFunc("/bets", s.placeBet) // POST
	return mux
}

func (s *Server) round(w http.ResponseWriter, r *http.Request) {
	snap, err := s.game.Current()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad_json"))
		return
	}
	if err := s.game.PlaceBet(r.Context(), req.UserID, engine.Color(req.Color), req.AmountCents); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoRound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrInvalidBet):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrBettingClosed), errors.Is(err, engine.ErrAlreadyBet):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
