package channels

// Canais lógicos de broadcast consumidos pelo stream-gateway. O transporte
// físico (um único canal Redis Pub/Sub) fica em internal/broadcast; aqui
// ficam só os nomes que os clientes assinam.
const (
	Crash    = "game:crash"
	Roulette = "game:roulette"
	Duel     = "game:duel"
)

// Battle é o canal de uma batalha específica
func Battle(battleID string) string {
	return "battle:" + battleID
}
