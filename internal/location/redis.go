package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
)

// FixStore хранит последнюю позицию, которую сообщило устройство пользователя
type FixStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewFixStore создает новый FixStore
func NewFixStore(client *redis.Client, ttl time.Duration) *FixStore {
	return &FixStore{
		redisClient: client,
		ttl:         ttl,
	}
}

func fixKey(userID string) string {
	return fmt.Sprintf("location:%s", userID)
}

// Save сохраняет позицию устройства с ограниченным сроком жизни
func (s *FixStore) Save(ctx context.Context, fix *models.LocationFix) error {
	val, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("failed to marshal location fix: %w", err)
	}
	if err := s.redisClient.Set(ctx, fixKey(fix.UserID), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save location fix: %w", err)
	}
	return nil
}

// Get возвращает последнюю позицию или ErrUnavailable
func (s *FixStore) Get(ctx context.Context, userID string) (*models.Coordinate, error) {
	val, err := s.redisClient.Get(ctx, fixKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("failed to get location fix: %w", err)
	}

	fix := &models.LocationFix{}
	if err := json.Unmarshal(val, fix); err != nil {
		return nil, fmt.Errorf("failed to unmarshal location fix: %w", err)
	}
	return &fix.Coordinate, nil
}

// ForUser возвращает Provider, читающий позицию конкретного пользователя
func (s *FixStore) ForUser(userID string) Provider {
	return ProviderFunc(func(ctx context.Context) (*models.Coordinate, error) {
		return s.Get(ctx, userID)
	})
}
