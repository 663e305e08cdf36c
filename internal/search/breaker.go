package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/models"
)

// BreakerConfig tunes the circuit breaker around a Backend.
type BreakerConfig struct {
	Name         string
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
	HalfOpenMax  uint32
}

func (c BreakerConfig) normalize() BreakerConfig {
	if c.Name == "" {
		c.Name = "backend"
	}
	if c.MinRequests == 0 {
		c.MinRequests = 5
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenMax == 0 {
		c.HalfOpenMax = 1
	}
	return c
}

// BreakerBackend stops calling a failing Backend for a while instead of
// letting every request wait on it. Calls are never retried.
type BreakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerBackend wraps next. Invalid-argument errors and cancellations do
// not count as failures.
func NewBreakerBackend(next Backend, cfg BreakerConfig, logger *zap.Logger) *BreakerBackend {
	cfg = cfg.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenMax,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, models.ErrInvalidArgument) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &BreakerBackend{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// VectorSearch implements Backend.
func (b *BreakerBackend) VectorSearch(ctx context.Context, query models.Embedding, limit int, sourceIDs []string) ([]*models.VectorMatch, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.VectorSearch(ctx, query, limit, sourceIDs)
	})
	if err != nil {
		return nil, mapBreakerError(err)
	}
	matches, _ := res.([]*models.VectorMatch)
	return matches, nil
}

// LexicalSearch implements Backend.
func (b *BreakerBackend) LexicalSearch(ctx context.Context, text string, sourceIDs []string) ([]*models.LexicalHit, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.LexicalSearch(ctx, text, sourceIDs)
	})
	if err != nil {
		return nil, mapBreakerError(err)
	}
	hits, _ := res.([]*models.LexicalHit)
	return hits, nil
}

// State returns the current breaker state.
func (b *BreakerBackend) State() gobreaker.State {
	return b.cb.State()
}

func mapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", models.ErrUnavailable, err)
	}
	return err
}
