package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"testimony-digest/internal/domain"
	"testimony-digest/internal/infra/metrics"
)

// RedisMailQueue реализует очередь исходящих писем на базе Redis lists.
// Используется, когда AMQP-брокер не сконфигурирован.
type RedisMailQueue struct {
	client *redis.Client
	key    string
}

var _ domain.MailQueue = (*RedisMailQueue)(nil)

// NewRedisMailQueue создаёт очередь по указанному ключу.
func NewRedisMailQueue(client *redis.Client, key string) *RedisMailQueue {
	return &RedisMailQueue{client: client, key: key}
}

// Enqueue публикует письмо в очередь.
func (q *RedisMailQueue) Enqueue(ctx context.Context, email domain.OutboundEmail) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push email: %w", err)
	}
	return nil
}
