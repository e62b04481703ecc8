package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caseclash/platform/internal/battle-service/engine"
)

const snapshotTTL = time.Hour

// RedisSnapshots guarda o último snapshot de cada batalha no Redis para a UI
// reconectar sem bater no banco
type RedisSnapshots struct {
	rdb *redis.Client
}

func NewRedisSnapshots(rdb *redis.Client) *RedisSnapshots {
	return &RedisSnapshots{rdb: rdb}
}

func (s *RedisSnapshots) Put(ctx context.Context, b engine.Battle) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, "battle:snapshot:"+b.ID, raw, snapshotTTL).Err()
}
