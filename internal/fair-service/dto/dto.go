package dto

type ActiveSeedResponse struct {
	UserID         string `json:"userId"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
}

type RotateRequest struct {
	UserID     string `json:"userId"`
	ClientSeed string `json:"client_seed,omitempty"` // opcional: novo client seed
}

type RotateResponse struct {
	RevealedServerSeed string `json:"revealed_server_seed"`
	RevealedHash       string `json:"revealed_hash"`
	NewServerSeedHash  string `json:"new_server_seed_hash"`
	NewClientSeed      string `json:"new_client_seed"`
}

type ClientSeedRequest struct {
	UserID     string `json:"userId"`
	ClientSeed string `json:"client_seed"`
}

type VerifyResponse struct {
	RollValue float64 `json:"roll_value"`
	Digest    string  `json:"digest"`
}

type VerifyCrashResponse struct {
	CrashPoint float64 `json:"crash_point"`
	Digest     string  `json:"digest"`
}

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"` // opcional p/ idempotência simples
}

type BalanceResponse struct {
	UserID       string `json:"userId"`
	BalanceCents int64  `json:"balance_cents"`
}
