package cache

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/pkg/observability"
)

// Invalidator drops cached entries when task events arrive, so writes
// made by other processes become visible before the entries expire.
type Invalidator struct {
	store   Store
	logger  *slog.Logger
	metrics observability.Metrics
}

var _ eventbus.EventConsumer = (*Invalidator)(nil)

// NewInvalidator creates an Invalidator over store.
func NewInvalidator(store Store, logger *slog.Logger, metrics observability.Metrics) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Invalidator{store: store, logger: logger, metrics: metrics}
}

func (i *Invalidator) EventTypes() []string {
	return task.RoutingKeys()
}

// Handle removes the task entry and every list. Failures are logged, not
// returned: the entries expire on their own.
func (i *Invalidator) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	i.metrics.Counter(observability.MetricEventsConsumed, 1, observability.T("consumer", "cache_invalidator"))

	keys := append(ListKeys(), TaskKey(event.AggregateID))
	if err := i.store.Delete(ctx, keys...); err != nil {
		i.logger.WarnContext(ctx, "cache invalidation failed",
			"routing_key", event.RoutingKey,
			"task_id", event.AggregateID,
			"error", err,
		)
	}
	return nil
}
