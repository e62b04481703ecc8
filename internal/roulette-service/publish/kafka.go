package publish

import (
	"context"
	"encoding/json"

	"github.com/caseclash/platform/internal/shared/kafka"
	"github.com/caseclash/platform/pkg/contracts/events"
)

// Kafka publica o evento de liquidação de cada rodada no tópico round_settled
type Kafka struct{ w *kafka.Writer }

func NewKafka(w *kafka.Writer) *Kafka { return &Kafka{w: w} }

func (k *Kafka) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, k.w, e.RoundID, payload)
}
