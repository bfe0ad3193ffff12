package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/rociobottinelli/citypass-emergency/internal/service"
)

type ActivationRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewActivationRepository(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration) service.ActivationRepository {
	return &ActivationRepository{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// SaveAttempt сохраняет попытку отправки в журнал
func (r *ActivationRepository) SaveAttempt(ctx context.Context, attempt *models.ActivationAttempt) error {
	query := `
		INSERT INTO activation_attempts (user_id, draft_id, mode, type, services, record_id, outcome, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at;
	`
	services := attempt.Services
	if services == nil {
		services = []string{}
	}
	err := r.db.QueryRow(ctx, query,
		attempt.UserID,
		attempt.DraftID,
		string(attempt.Mode),
		attempt.Type,
		services,
		attempt.RecordID,
		string(attempt.Outcome),
		attempt.Error,
	).Scan(&attempt.ID, &attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save activation attempt: %w", err)
	}
	return nil
}

// ListAttempts возвращает последние попытки пользователя, новые первыми
func (r *ActivationRepository) ListAttempts(ctx context.Context, userID string, limit int) ([]*models.ActivationAttempt, error) {
	query := `
		SELECT
			id,
			user_id,
			draft_id,
			mode,
			type,
			services,
			record_id,
			outcome,
			error,
			created_at
		FROM activation_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activation attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.ActivationAttempt, 0)
	for rows.Next() {
		var (
			attempt       models.ActivationAttempt
			mode, outcome string
		)
		err := rows.Scan(
			&attempt.ID,
			&attempt.UserID,
			&attempt.DraftID,
			&mode,
			&attempt.Type,
			&attempt.Services,
			&attempt.RecordID,
			&outcome,
			&attempt.Error,
			&attempt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activation attempt row: %w", err)
		}
		attempt.Mode = models.Mode(mode)
		attempt.Outcome = models.AttemptOutcome(outcome)
		attempts = append(attempts, &attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return attempts, nil
}

// GetDispatchStats возвращает количество уникальных пользователей, успешно отправивших вызов за окно
func (r *ActivationRepository) GetDispatchStats(ctx context.Context, minutes int) (int, error) {
	query := `
		SELECT COUNT(DISTINCT user_id)
		FROM activation_attempts
		WHERE outcome = 'succeeded'
			AND created_at >= NOW() - ($1 * INTERVAL '1 minute');
	`
	var count int
	err := r.db.QueryRow(ctx, query, minutes).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get dispatch stats: %w", err)
	}
	return count, nil
}

func historyKey(userID string) string {
	return fmt.Sprintf("history:%s", userID)
}

// GetHistoryFromCache возвращает последнюю успешно загруженную историю. Промах - (nil, nil).
func (r *ActivationRepository) GetHistoryFromCache(ctx context.Context, userID string) ([]models.EmergencyRecord, error) {
	val, err := r.redisClient.Get(ctx, historyKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get history from cache: %w", err)
	}

	var records []models.EmergencyRecord
	if err := json.Unmarshal(val, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history from cache: %w", err)
	}
	return records, nil
}

// SetHistoryCache сохраняет историю пользователя в Redis
func (r *ActivationRepository) SetHistoryCache(ctx context.Context, userID string, records []models.EmergencyRecord) error {
	val, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal history for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, historyKey(userID), val, r.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set history in cache: %w", err)
	}
	return nil
}

// InvalidateHistoryCache удаляет историю пользователя из кеша
func (r *ActivationRepository) InvalidateHistoryCache(ctx context.Context, userID string) error {
	if err := r.redisClient.Del(ctx, historyKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate history cache: %w", err)
	}
	return nil
}
