package events

// Evento publicado pelo battle-service ao encerrar (ou cancelar) uma batalha
type BattleSettled struct {
	BattleID       string `json:"battle_id"`
	Status         string `json:"status"` // "finished" | "cancelled"
	Mode           string `json:"mode"`   // "normal" | "inverse"
	WinnerUserID   string `json:"winner_user_id,omitempty"`
	Participants   int    `json:"participants"`
	Rounds         int    `json:"rounds"`
	PotCents       int64  `json:"pot_cents"`
	HouseCutCents  int64  `json:"house_cut_cents"`
	PayoutCents    int64  `json:"payout_cents"`
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	PublicSeed     string `json:"public_seed"`
	WinnerScore    int64  `json:"winner_score_cents"`
	TsUnixMs       int64  `json:"ts_unix_ms"`
}

// Evento publicado pelo duel-service ao resolver um duelo instantâneo
type DuelSettled struct {
	DuelID         string  `json:"duel_id"`
	Status         string  `json:"status"` // "finished" | "cancelled"
	WinnerUserID   string  `json:"winner_user_id,omitempty"`
	StakeCents     int64   `json:"stake_cents"`
	PayoutCents    int64   `json:"payout_cents"`
	RollValue      float64 `json:"roll_value"`
	ServerSeed     string  `json:"server_seed"`
	ServerSeedHash string  `json:"server_seed_hash"`
	PublicSeed     string  `json:"public_seed"`
	TsUnixMs       int64   `json:"ts_unix_ms"`
}
