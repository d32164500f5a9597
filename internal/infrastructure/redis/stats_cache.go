package redis

import (
	"context"
	"encoding/json"
	"errors"

	"auction-ledger/internal/domain"

	"github.com/go-redis/redis/v8"
)

const statsKey = "ledger:stats"

// ErrSnapshotMissing is returned while no snapshot has been cached yet.
var ErrSnapshotMissing = errors.New("stats snapshot not cached")

type RedisStatsCache struct {
	client *redis.Client
}

func NewRedisStatsCache(client *redis.Client) *RedisStatsCache {
	return &RedisStatsCache{client: client}
}

func (r *RedisStatsCache) SetSnapshot(ctx context.Context, snapshot *domain.StatsSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, statsKey, payload, 0).Err()
}

func (r *RedisStatsCache) GetSnapshot(ctx context.Context) (*domain.StatsSnapshot, error) {
	payload, err := r.client.Get(ctx, statsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotMissing
		}
		return nil, err
	}

	var snapshot domain.StatsSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
