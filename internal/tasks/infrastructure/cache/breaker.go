package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/resilience"
	"github.com/sony/gobreaker/v2"
)

// BreakerStore stops calling a failing store for a while. Misses do not
// count as failures.
type BreakerStore struct {
	next    Store
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, cfg resilience.BreakerConfig, logger *slog.Logger) *BreakerStore {
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrCacheMiss)
	}
	return &BreakerStore{
		next:    next,
		breaker: resilience.NewBreaker[[]byte](cfg, logger, nil),
	}
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.breaker.Execute(func() ([]byte, error) {
		return s.next.Get(ctx, key)
	})
	return val, s.wrap(err)
}

func (s *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.next.Set(ctx, key, value, ttl)
	})
	return s.wrap(err)
}

func (s *BreakerStore) Delete(ctx context.Context, keys ...string) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.next.Delete(ctx, keys...)
	})
	return s.wrap(err)
}

// State reports the breaker state for health checks.
func (s *BreakerStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *BreakerStore) Close() error {
	return s.next.Close()
}

func (s *BreakerStore) wrap(err error) error {
	if resilience.IsOpen(err) {
		return errors.Join(ErrCacheUnavailable, err)
	}
	return err
}
