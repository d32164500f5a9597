package redis

import (
	"context"
	"encoding/json"

	"auction-ledger/internal/domain"

	"github.com/go-redis/redis/v8"
)

const eventsChannel = "ledger_events"

type RedisEventPublisher struct {
	client *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (r *RedisEventPublisher) PublishItemEvent(ctx context.Context, event *domain.ItemEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, eventsChannel, payload).Err()
}
