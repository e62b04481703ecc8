package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/fair-service/dto"
	"github.com/caseclash/platform/internal/fair-service/store"
	"github.com/caseclash/platform/internal/ledger"
	"github.com/caseclash/platform/pkg/fair"
)

// Server expõe a API de seeds provably-fair, a verificação pública de rolls
// (sem auth: qualquer um pode auditar) e operações básicas de carteira.
type Server struct {
	log    *zap.Logger
	seeds  store.Store
	wallet ledger.Gateway
}

func NewServer(log *zap.Logger, seeds store.Store, wallet ledger.Gateway) *Server {
	return &Server{log: log, seeds: seeds, wallet: wallet}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/seeds/active", s.activeSeed)   // GET ?userId=
	mux.HandleFunc("/seeds/rotate", s.rotate)       // POST
	mux.HandleFunc("/seeds/client", s.setClient)    // POST
	mux.HandleFunc("/seeds/history", s.history)     // GET ?userId=
	mux.HandleFunc("/verify", s.verify)             // GET público
	mux.HandleFunc("/verify/crash", s.verifyCrash)  // GET público
	mux.HandleFunc("/wallet/balance", s.balance)    // GET ?userId=
	mux.HandleFunc("/wallet/deposit", s.deposit)    // POST
	return mux
}

func (s *Server) activeSeed(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	p, err := s.seeds.Active(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// nunca devolve o server seed de um par ativo, só o compromisso
	writeJSON(w, dto.ActiveSeedResponse{
		UserID:         userID,
		ServerSeedHash: p.ServerSeedHash,
		ClientSeed:     p.ClientSeed,
		Nonce:          p.Nonce,
	})
}

func (s *Server) rotate(w http.ResponseWriter, r *http.Request) {
	var req dto.RotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// garante que o par exista antes de rotacionar (primeira utilização)
	if _, err := s.seeds.Active(r.Context(), req.UserID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	old, fresh, err := s.seeds.Rotate(r.Context(), req.UserID, req.ClientSeed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, dto.RotateResponse{
		RevealedServerSeed: old.ServerSeed,
		RevealedHash:       old.ServerSeedHash,
		NewServerSeedHash:  fresh.ServerSeedHash,
		NewClientSeed:      fresh.ClientSeed,
	})
}

func (s *Server) setClient(w http.ResponseWriter, r *http.Request) {
	var req dto.ClientSeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ClientSeed == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if _, err := s.seeds.Active(r.Context(), req.UserID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.seeds.SetClientSeed(r.Context(), req.UserID, req.ClientSeed); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	pairs, err := s.seeds.History(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, pairs)
}

// verify recomputa um roll a partir dos seeds revelados; endpoint público,
// precisa bater exatamente com o gerador usado nas rodadas
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nonce, err := strconv.ParseUint(q.Get("nonce"), 10, 64)
	if err != nil {
		http.Error(w, "invalid nonce", http.StatusBadRequest)
		return
	}
	roll, err := fair.GenerateRoll(q.Get("serverSeed"), q.Get("publicSeed"), q.Get("clientSeed"), nonce)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, dto.VerifyResponse{RollValue: roll.Value, Digest: roll.Digest})
}

func (s *Server) verifyCrash(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serverSeed, roundID := q.Get("serverSeed"), q.Get("roundId")
	if serverSeed == "" || roundID == "" {
		http.Error(w, "serverSeed and roundId required", http.StatusBadRequest)
		return
	}
	point, digest := fair.CrashPoint(serverSeed, roundID)
	writeJSON(w, dto.VerifyCrashResponse{CrashPoint: point, Digest: digest})
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	bal, err := s.wallet.Balance(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.BalanceResponse{UserID: userID, BalanceCents: bal})
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	newBal, err := s.wallet.Deposit(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.BalanceResponse{UserID: req.UserID, BalanceCents: newBal})
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
