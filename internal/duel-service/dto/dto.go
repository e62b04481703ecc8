package dto

type CreateDuelRequest struct {
	UserID     string `json:"user_id"`
	StakeCents int64  `json:"stake_cents"`
}

type JoinDuelRequest struct {
	UserID string `json:"user_id"`
}

type CancelDuelRequest struct {
	UserID string `json:"user_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
