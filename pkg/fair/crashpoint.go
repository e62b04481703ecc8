package fair

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

const (
	MinMultiplier = 1.00
	MaxMultiplier = 1000000.00

	// Fração fixa de rodadas que crasham no multiplicador mínimo (house edge)
	InstantCrashEdge = 0.01
)

// CrashPoint deriva o multiplicador de crash de uma rodada a partir do
// serverSeed apenas: nenhum seed de jogador entra na fórmula, então nenhum
// cliente consegue influenciar o resultado. HMAC-SHA256(serverSeed, "crash:"+roundID).
// InstantCrashEdge das saídas resolve em 1.00; o restante segue distribuição
// com cauda longa truncada em MaxMultiplier.
func CrashPoint(serverSeed, roundID string) (float64, string) {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte("crash:" + roundID))
	digest := mac.Sum(nil)

	// 8 bytes -> f em [0,1)
	u := binary.BigEndian.Uint64(digest[:8])
	f := float64(u>>11) / float64(1<<53)

	if f < InstantCrashEdge {
		return MinMultiplier, hex.EncodeToString(digest)
	}

	point := math.Floor(100*(1-InstantCrashEdge)/(1-f)) / 100
	if point < MinMultiplier {
		point = MinMultiplier
	}
	if point > MaxMultiplier {
		point = MaxMultiplier
	}
	return point, hex.EncodeToString(digest)
}

// VerifyCrashPoint rederiva o crash point e aceita com tolerância de 1 centavo
func VerifyCrashPoint(serverSeed, roundID string, claimed float64) bool {
	point, _ := CrashPoint(serverSeed, roundID)
	return math.Abs(point-claimed) < 0.01
}
