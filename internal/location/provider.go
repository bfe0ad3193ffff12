// Package location получает однократную позицию устройства.
// Отсутствие позиции - допустимое конечное состояние, а не ошибка отправки.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rociobottinelli/citypass-emergency/internal/models"
)

// ErrUnavailable возвращается, когда позиция неизвестна
var ErrUnavailable = errors.New("location unavailable")

// Provider - однократный запрос позиции. Повторов не делает.
type Provider interface {
	RequestLocation(ctx context.Context) (*models.Coordinate, error)
}

// ProviderFunc позволяет использовать функцию как Provider
type ProviderFunc func(ctx context.Context) (*models.Coordinate, error)

func (f ProviderFunc) RequestLocation(ctx context.Context) (*models.Coordinate, error) {
	return f(ctx)
}

// StaticProvider всегда возвращает одну и ту же позицию
type StaticProvider struct {
	Coordinate *models.Coordinate
}

func (p StaticProvider) RequestLocation(_ context.Context) (*models.Coordinate, error) {
	if p.Coordinate == nil {
		return nil, ErrUnavailable
	}
	c := *p.Coordinate
	return &c, nil
}

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

// WithTimeout ограничивает время ожидания позиции
func WithTimeout(p Provider, timeout time.Duration) Provider {
	return &timeoutProvider{next: p, timeout: timeout}
}

func (p *timeoutProvider) RequestLocation(ctx context.Context) (*models.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		coord *models.Coordinate
		err   error
	}
	// буфер, чтобы горутина не зависла после таймаута
	done := make(chan result, 1)
	go func() {
		c, err := p.next.RequestLocation(ctx)
		done <- result{coord: c, err: err}
	}()

	select {
	case r := <-done:
		return r.coord, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}
