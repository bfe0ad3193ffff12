// Package events доставляет итоги отправки активаций во внешний аналитический вебхук
// через очередь в Redis.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
)

const (
	activationQueueKey = "activation_events"
)

// ActivationEvent - итог одной попытки отправки
type ActivationEvent struct {
	UserID    string                `json:"user_id"`
	DraftID   string                `json:"draft_id"`
	Mode      models.Mode           `json:"mode"`
	Type      string                `json:"type"`
	Services  []string              `json:"services"`
	Outcome   models.AttemptOutcome `json:"outcome"`
	RecordID  string                `json:"record_id,omitempty"`
	Error     string                `json:"error,omitempty"`
	Location  *models.Coordinate    `json:"location,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// Publisher - интерфейс для публикации событий
type Publisher interface {
	Publish(ctx context.Context, event ActivationEvent) error
}

// RedisPublisher - реализация Publisher, использующая список Redis как очередь
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish кладет событие в левую часть очереди
func (p *RedisPublisher) Publish(ctx context.Context, event ActivationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal activation event: %w", err)
	}

	if err := p.redisClient.LPush(ctx, activationQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish activation event to Redis: %w", err)
	}
	return nil
}
