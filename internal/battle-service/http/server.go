package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/battle-service/cases"
	"github.com/caseclash/platform/internal/battle-service/dto"
	"github.com/caseclash/platform/internal/battle-service/engine"
	"github.com/caseclash/platform/internal/ledger"
)

// Server expõe a API REST de batalhas. O estado vive nos atores do Manager;
// os handlers só traduzem HTTP <-> comandos.
type Server struct {
	log     *zap.Logger
	battles *engine.Manager
	catalog *cases.Catalog
}

func NewServer(log *zap.Logger, battles *engine.Manager, catalog *cases.Catalog) *Server {
	return &Server{log: log, battles: battles, catalog: catalog}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/battles", s.battlesRoot)           // POST cria, GET lista as abertas
	mux.HandleFunc("/battles/get", s.get)               // GET ?id=
	mux.HandleFunc("/battles/join", s.join)             // POST
	mux.HandleFunc("/battles/leave", s.leave)           // POST
	mux.HandleFunc("/battles/cancel", s.cancel)         // POST
	mux.HandleFunc("/cases", s.listCases)               // GET
	return mux
}

func (s *Server) battlesRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.create(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.battles.List())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad_json"))
		return
	}
	if req.UserID == "" || len(req.CaseIDs) == 0 {
		writeError(w, http.StatusBadRequest, engine.ErrInvalidConfig)
		return
	}

	b, err := s.battles.Create(r.Context(), engine.CreateParams{
		CreatorID:  req.UserID,
		CaseIDs:    req.CaseIDs,
		MaxPlayers: req.MaxPlayers,
		Mode:       engine.Mode(req.Mode),
		FastMode:   req.FastMode,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.log.Info("battle created",
		zap.String("battleId", b.ID),
		zap.String("creator", req.UserID),
		zap.Int64("costCents", b.CostCents),
	)
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("id required"))
		return
	}
	b, err := s.battles.Get(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) join(w http.ResponseWriter, r *http.Request) {
	var req dto.JoinBattleRequest
	id := r.URL.Query().Get("id")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || id == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}
	if err := s.battles.Join(r.Context(), id, req.UserID, req.Position); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

func (s *Server) leave(w http.ResponseWriter, r *http.Request) {
	var req dto.LeaveBattleRequest
	id := r.URL.Query().Get("id")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || id == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}
	if err := s.battles.Leave(r.Context(), id, req.UserID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelBattleRequest
	id := r.URL.Query().Get("id")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || id == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}
	if err := s.battles.Cancel(r.Context(), id, req.UserID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

func (s *Server) listCases(w http.ResponseWriter, r *http.Request) {
	list := s.catalog.List()
	out := make([]dto.CaseResponse, 0, len(list))
	for _, c := range list {
		cr := dto.CaseResponse{ID: c.ID, Name: c.Name, PriceCents: c.PriceCents}
		for _, it := range c.Items {
			cr.Items = append(cr.Items, dto.CaseItemResponse{
				ID:          it.ID,
				Probability: it.Probability,
				PayoutCents: it.PayoutCents,
			})
		}
		out = append(out, cr)
	}
	writeJSON(w, http.StatusOK, out)
}

// statusFor mapeia os códigos de rejeição do engine para HTTP. A mensagem de
// erro em si é o código estável que o cliente programa contra.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrBattleNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrInvalidConfig),
		errors.Is(err, engine.ErrInvalidPosition),
		errors.Is(err, cases.ErrCaseNotFound):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotJoinable),
		errors.Is(err, engine.ErrPositionTaken),
		errors.Is(err, engine.ErrAlreadyJoined),
		errors.Is(err, engine.ErrNotParticipant),
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
