package publish

import (
	"context"
	"encoding/json"

	"github.com/caseclash/platform/internal/shared/kafka"
	"github.com/caseclash/platform/pkg/contracts/events"
)

// Kafka publica o evento terminal de cada batalha no tópico de liquidação
type Kafka struct{ w *kafka.Writer }

func NewKafka(w *kafka.Writer) *Kafka { return &Kafka{w: w} }

func (k *Kafka) PublishBattleSettled(ctx context.Context, e events.BattleSettled) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, k.w, e.BattleID, payload)
}
