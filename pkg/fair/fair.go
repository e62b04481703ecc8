package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
)

// Tolerância usada na verificação de rolls (ponto flutuante, nunca igualdade exata)
const VerifyEpsilon = 1e-9

var ErrEmptySeed = errors.New("empty_seed")

// Roll é o resultado determinístico de uma rolagem provably-fair.
// Digest é o HMAC completo em hex; Value fica em [0,1].
type Roll struct {
	Digest string  `json:"digest"`
	Value  float64 `json:"value"`
}

// GenerateServerSeed gera um server seed com 32 bytes de entropia (hex)
func GenerateServerSeed() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// HashCommitment retorna o compromisso público (SHA-256 hex) de um server seed.
// Publicado antes da resolução; o seed em si só é revelado depois.
func HashCommitment(serverSeed string) string {
	h := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(h[:])
}

// GenerateRoll deriva um roll determinístico a partir da tripla de seeds + nonce.
// HMAC-SHA256 com chave serverSeed sobre "publicSeed:clientSeed:nonce";
// os 4 primeiros bytes viram um uint32 dividido por 2^32-1.
// Função pura: entradas iguais sempre produzem o mesmo resultado.
// Erro apenas se algum seed vier vazio; não há retry.
func GenerateRoll(serverSeed, publicSeed, clientSeed string, nonce uint64) (Roll, error) {
	if serverSeed == "" || publicSeed == "" || clientSeed == "" {
		return Roll{}, ErrEmptySeed
	}

	msg := fmt.Sprintf("%s:%s:%d", publicSeed, clientSeed, nonce)
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(msg))
	digest := mac.Sum(nil)

	n := binary.BigEndian.Uint32(digest[:4])
	value := float64(n) / float64(math.MaxUint32)

	return Roll{
		Digest: hex.EncodeToString(digest),
		Value:  value,
	}, nil
}

// Verify rederiva o roll e aceita se a diferença absoluta for menor que o epsilon
func Verify(serverSeed, publicSeed, clientSeed string, nonce uint64, expected float64) bool {
	r, err := GenerateRoll(serverSeed, publicSeed, clientSeed, nonce)
	if err != nil {
		return false
	}
	return math.Abs(r.Value-expected) < VerifyEpsilon
}
