package entropy

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Source fornece o public seed das rodadas. Implementações devem ter
// fallback local determinístico de disponibilidade: a indisponibilidade do
// beacon externo nunca pode travar o ciclo de rodadas.
type Source interface {
	FetchPublicSeed(ctx context.Context) Seed
}

// Seed é o valor de entropia pública fixado em uma rodada/batalha.
// Fallback indica que o beacon externo estava fora e o valor foi derivado
// localmente (disponibilidade acima de verificabilidade externa estrita,
// só para aquela rodada).
type Seed struct {
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Fallback  bool      `json:"fallback"`
}

// Client busca o public seed de um beacon HTTP externo (ex.: hash de bloco)
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

type beaconResponse struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// FetchPublicSeed consulta o beacon; em qualquer falha retorna o fallback
// local; o chamador decide logar, nunca aborta a rodada por isso.
func (c *Client) FetchPublicSeed(ctx context.Context) Seed {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return localFallback()
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return localFallback()
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return localFallback()
	}

	var out beaconResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil || out.Value == "" {
		return localFallback()
	}

	return Seed{
		Value:     out.Value,
		Timestamp: time.UnixMilli(out.Timestamp),
		Fallback:  false,
	}
}

// localFallback deriva um valor pseudo-aleatório local: sha256 sobre bytes
// do crypto/rand + relógio. Não é verificável externamente, mas mantém a
// rodada viva.
func localFallback() Seed {
	now := time.Now()

	b := make([]byte, 32)
	_, _ = rand.Read(b)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(now.UnixNano()))

	h := sha256.Sum256(append(b, ts[:]...))
	return Seed{
		Value:     fmt.Sprintf("local:%s", hex.EncodeToString(h[:])),
		Timestamp: now,
		Fallback:  true,
	}
}

// Static devolve sempre o mesmo seed; usado em testes dos orquestradores
type Static struct {
	Seed Seed
}

func (s Static) FetchPublicSeed(context.Context) Seed { return s.Seed }
