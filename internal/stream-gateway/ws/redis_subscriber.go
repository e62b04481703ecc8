package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/caseclash/platform/internal/broadcast"
)

// StartRedisSubscriber inicia uma goroutine que escuta o canal físico único
// de broadcast dos jogos e repassa cada envelope aos clientes WebSocket
// inscritos no canal lógico correspondente.
//
// Funcionamento:
// - Recebe mensagens JSON do canal Redis
// - Desserializa para broadcast.Message (que carrega o canal lógico)
// - Chama hub.Broadcast para entregar aos inscritos daquele canal
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, hub *Hub) {
	sub := r.Subscribe(ctx, broadcast.PubSubChannel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var env broadcast.Message
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(env)
			}
		}
	}()
}
