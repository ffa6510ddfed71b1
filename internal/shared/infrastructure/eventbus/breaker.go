package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/resilience"
	"github.com/sony/gobreaker/v2"
)

// BreakerPublisher stops calling a failing broker for a while. Rejected
// publishes return an error, so the outbox keeps the message and retries
// it after its backoff.
type BreakerPublisher struct {
	next    Publisher
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerPublisher wraps next.
func NewBreakerPublisher(next Publisher, cfg resilience.BreakerConfig, logger *slog.Logger) *BreakerPublisher {
	return &BreakerPublisher{
		next:    next,
		breaker: resilience.NewBreaker[struct{}](cfg, logger, nil),
	}
}

func (p *BreakerPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, routingKey, payload)
	})
	if resilience.IsOpen(err) {
		return fmt.Errorf("publish %s: broker circuit open: %w", routingKey, err)
	}
	return err
}

// State reports the breaker state for health checks.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.breaker.State()
}

func (p *BreakerPublisher) Close() error {
	return p.next.Close()
}
