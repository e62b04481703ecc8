package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/duel-service/dto"
	"github.com/caseclash/platform/internal/duel-service/engine"
	"github.com/caseclash/platform/internal/ledger"
)

// Server expõe a API REST de duelos
type Server struct {
	log   *zap.Logger
	duels *engine.Manager
}

func NewServer(log *zap.Logger, duels *engine.Manager) *Server {
	return &Server{log: log, duels: duels}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/duels", s.duelsRoot)       // POST cria, GET lista os abertos
	mux.HandleFunc("/duels/get", s.get)         // GET ?id=
	mux.HandleFunc("/duels/join", s.join)       // POST ?id=
	mux.HandleFunc("/duels/cancel", s.cancel)   // POST ?id=
	return mux
}

func (s *Server) duelsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.create(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.duels.List())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad_json"))
		return
	}
	d, err := s.duels.Create(r.Context(), req.UserID, req.StakeCents)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.log.Info("duel created", zap.String("duelId", d.ID), zap.Int64("stakeCents", d.StakeCents))
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("id required"))
		return
	}
	d, err := s.duels.Get(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) join(w http.ResponseWriter, r *http.Request) {
	var req dto.JoinDuelRequest
	id := r.URL.Query().Get("id")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || id == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}
	d, err := s.duels.Join(r.Context(), id, req.UserID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelDuelRequest
	id := r.URL.Query().Get("id")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || id == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}
	if err := s.duels.Cancel(r.Context(), id, req.UserID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrDuelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrInvalidStake):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotOpen),
		errors.Is(err, engine.ErrSelfJoin),
		errors.Is(err, engine.ErrNotCreator):
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
