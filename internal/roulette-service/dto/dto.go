package dto

type PlaceBetRequest struct {
	UserID      string `json:"user_id"`
	Color       string `json:"color"` // green, red ou black
	AmountCents int64  `json:"amount_cents"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
