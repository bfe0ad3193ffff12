package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rociobottinelli/citypass-emergency/internal/config"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(url string) *Worker {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		WebhookURL:        url,
		WebhookSecret:     "secret",
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Millisecond,
	}
	return NewWorker(nil, logger, cfg)
}

func testEvent() (ActivationEvent, string) {
	event := ActivationEvent{
		UserID:    "u1",
		DraftID:   "d1",
		Mode:      models.ModeQuick,
		Outcome:   models.OutcomeSucceeded,
		RecordID:  "e1",
		Timestamp: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	payload, _ := json.Marshal(event)
	return event, string(payload)
}

func TestDeliver_SignsPayload(t *testing.T) {
	// Подготовка
	event, payload := testEvent()
	var gotSignature, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotSignature = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	w := newTestWorker(srv.URL)

	// Действие
	ok := w.deliver(context.Background(), event, payload)

	// Проверки
	require.True(t, ok)
	assert.Equal(t, payload, gotBody)
	assert.Equal(t, generateHMACSHA256(payload, "secret"), gotSignature)
}

func TestDeliver_RetriesUntilSuccess(t *testing.T) {
	event, payload := testEvent()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ok := newTestWorker(srv.URL).deliver(context.Background(), event, payload)

	assert.True(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDeliver_GivesUpAfterMaxRetries(t *testing.T) {
	event, payload := testEvent()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ok := newTestWorker(srv.URL).deliver(context.Background(), event, payload)

	assert.False(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDeliver_NoURLSkips(t *testing.T) {
	event, payload := testEvent()

	assert.False(t, newTestWorker("").deliver(context.Background(), event, payload))
}

func TestGenerateHMACSHA256(t *testing.T) {
	// Известное значение HMAC-SHA256("data", "key")
	assert.Equal(t,
		"5031fe3d989c6d1537a013fa6e739da23463fdaec3b70137d828e36ace221bd0",
		generateHMACSHA256("data", "key"))
}
