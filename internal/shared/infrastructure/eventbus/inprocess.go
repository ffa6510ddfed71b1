package eventbus

import (
	"context"
	"log/slog"
)

// InProcessEventBus is the local-mode broker: Publish decodes the
// envelope and dispatches it synchronously to the registry.
type InProcessEventBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
}

// NewInProcessEventBus creates a bus over registry. A nil registry gets a
// fresh one.
func NewInProcessEventBus(registry *ConsumerRegistry, logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewConsumerRegistry(logger)
	}
	return &InProcessEventBus{registry: registry, logger: logger}
}

// Registry returns the registry consumers subscribe to.
func (b *InProcessEventBus) Registry() *ConsumerRegistry {
	return b.registry
}

// Publish dispatches the event. Consumer failures are returned so the
// outbox retries the message.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event, err := Decode(payload, routingKey)
	if err != nil {
		return err
	}
	if err := b.registry.Dispatch(ctx, event); err != nil {
		return err
	}
	b.logger.DebugContext(ctx, "event dispatched in process",
		"routing_key", event.RoutingKey,
		"event_id", event.EventID,
	)
	return nil
}

func (b *InProcessEventBus) Close() error { return nil }

// NoopPublisher drops events. Used when a process relays nothing.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }
