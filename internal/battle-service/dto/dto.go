package dto

// CreateBattleRequest é o payload de criação de batalha
type CreateBattleRequest struct {
	UserID     string   `json:"user_id"`
	CaseIDs    []string `json:"case_ids"`
	MaxPlayers int      `json:"max_players"`
	Mode       string   `json:"mode,omitempty"` // normal (default) ou inverse
	FastMode   bool     `json:"fast_mode,omitempty"`
}

type JoinBattleRequest struct {
	UserID   string `json:"user_id"`
	Position int    `json:"position"`
}

type LeaveBattleRequest struct {
	UserID string `json:"user_id"`
}

type CancelBattleRequest struct {
	UserID string `json:"user_id"`
}

// ErrorResponse devolve o código de rejeição estável ao cliente
type ErrorResponse struct {
	Error string `json:"error"`
}

type CaseResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	PriceCents int64              `json:"price_cents"`
	Items      []CaseItemResponse `json:"items"`
}

type CaseItemResponse struct {
	ID          string  `json:"id"`
	Probability float64 `json:"probability"`
	PayoutCents int64   `json:"payout_cents"`
}
