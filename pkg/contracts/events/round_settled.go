package events

// Evento publicado pelos schedulers contínuos (crash, roleta) ao liquidar
// uma rodada. Os seeds são incluídos para trilha de auditoria: neste ponto o
// serverSeed já foi revelado.
type RoundSettled struct {
	GameCode       string  `json:"game_code"` // "crash" | "roulette"
	RoundID        string  `json:"round_id"`
	ServerSeed     string  `json:"server_seed"`
	ServerSeedHash string  `json:"server_seed_hash"`
	PublicSeed     string  `json:"public_seed"`
	Result         string  `json:"result"` // ex: "2.37x" ou "pocket=7 color=red"
	TotalBets      int     `json:"total_bets"`
	TotalPotCents  int64   `json:"total_pot_cents"`
	PayoutCents    int64   `json:"payout_cents"`
	CrashPoint     float64 `json:"crash_point,omitempty"`
	TsUnixMs       int64   `json:"ts_unix_ms"`
}
