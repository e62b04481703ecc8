package dto

type PlaceBetRequest struct {
	UserID      string  `json:"user_id"`
	AmountCents int64   `json:"amount_cents"`
	AutoCashout float64 `json:"auto_cashout,omitempty"`
}

type CashoutRequest struct {
	UserID string `json:"user_id"`
}

type CashoutResponse struct {
	Multiplier  float64 `json:"multiplier"`
	PayoutCents int64   `json:"payout_cents"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
