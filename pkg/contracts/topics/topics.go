package topics

const (
	// Liquidações (consumidas pelo history-worker)
	RoundSettled  = "round_settled"
	BattleSettled = "battle_settled"
	DuelSettled   = "duel_settled"

	// DLQs
	RoundSettledDLQ = "round_settled_dlq"
)
