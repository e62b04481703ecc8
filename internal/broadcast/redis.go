package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Canal físico único de Pub/Sub; o canal lógico vai dentro do envelope
const PubSubChannel = "game_events_broadcast"

type RedisPublisher struct {
	r *redis.Client
}

func NewRedisPublisher(r *redis.Client) *RedisPublisher {
	return &RedisPublisher{r: r}
}

func (b *RedisPublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	msg, err := json.Marshal(newMessage(channel, event, payload))
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, PubSubChannel, msg).Err()
}
