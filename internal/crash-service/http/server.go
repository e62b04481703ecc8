package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/crash-service/dto"
	"github.com/caseclash/platform/internal/crash-service/engine"
	"github.com/caseclash/platform/internal/ledger"
)

// Server expõe a API REST do crash: apostar, sacar e consultar a rodada
// corrente. O ciclo de rodadas em si é do Scheduler.
type Server struct {
	log  *zap.Logger
	game *engine.Game
}

func NewServer(log *zap.Logger, game *engine.Game) *Server {
	return &Server{log: log, game: game}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/round", s.round)          // GET rodada corrente
	mux.HandleFunc("/rounds/get", s.roundByID) // GET ?id= (revelada após o crash)
	mux.HandleFunc("/bets", s.placeBet)        // POST
	mux.HandleFunc("/cashout", s.cashout)      // POST
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

func (s *Server) roundByID(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("id required"))
		return
	}
	snap, err := s.game.Round(id)
	if err != nil {
		writeError(w, statusFor(err), err)
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
	if err := s.game.PlaceBet(r.Context(), req.UserID, req.AmountCents, req.AutoCashout); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

func (s *Server) cashout(w http.ResponseWriter, r *http.Request) {
	var req dto.CashoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}
	m, payout, err := s.game.Cashout(r.Context(), req.UserID, time.Now())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CashoutResponse{Multiplier: m, PayoutCents: payout})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoRound), errors.Is(err, engine.ErrRoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrInvalidBet):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrBettingClosed),
		errors.Is(err, engine.ErrAlreadyBet),
		errors.Is(err, engine.ErrNoBet),
		errors.Is(err, engine.ErrAlreadyCashedOut),
		errors.Is(err, engine.ErrNotRunning),
		errors.Is(err, engine.ErrCrashedFirst):
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
