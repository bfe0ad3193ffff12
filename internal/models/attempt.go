package models

import (
	"time"

	"github.com/google/uuid"
)

// AttemptOutcome - результат попытки отправки
type AttemptOutcome string

const (
	OutcomeSucceeded AttemptOutcome = "succeeded"
	OutcomeFailed    AttemptOutcome = "failed"
)

// ActivationAttempt - запись журнала попыток отправки активаций
type ActivationAttempt struct {
	ID        uuid.UUID      `json:"id"`
	UserID    string         `json:"user_id"`
	DraftID   string         `json:"draft_id"`
	Mode      Mode           `json:"mode"`
	Type      string         `json:"type"`
	Services  []string       `json:"services"`
	RecordID  string         `json:"record_id,omitempty"`
	Outcome   AttemptOutcome `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
