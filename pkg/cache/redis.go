// pkg/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"time"

	"bible-quiz/internal/models"

	"github.com/go-redis/redis/v8"
)

const historyTTL = 10 * time.Minute

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{
		client: client,
		ttl:    historyTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func historyKey(userID string) string {
	return "quiz:history:" + userID
}

// GetHistory returns redis.Nil on a miss.
func (c *RedisCache) GetHistory(ctx context.Context, userID string) (*models.HistorySummary, error) {
	data, err := c.client.Get(ctx, historyKey(userID)).Bytes()
	if err != nil {
		return nil, err
	}

	var summary models.HistorySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *RedisCache) SetHistory(ctx context.Context, userID string, summary *models.HistorySummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, historyKey(userID), data, c.ttl).Err()
}

func (c *RedisCache) InvalidateHistory(ctx context.Context, userID string) error {
	return c.client.Del(ctx, historyKey(userID)).Err()
}
