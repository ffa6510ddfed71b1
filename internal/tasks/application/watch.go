package application

import (
	"context"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// changeSignal is subscribed to the event registry for the life of one
// watch. Its channel holds at most one pending signal, so a burst of
// events during a load causes a single reload.
type changeSignal struct {
	ch chan struct{}
}

func (s *changeSignal) EventTypes() []string { return task.RoutingKeys() }

func (s *changeSignal) Handle(context.Context, *eventbus.ConsumedEvent) error {
	select {
	case s.ch <- struct{}{}:
	default:
	}
	return nil
}

// Watch emits the current result for filter and loads again whenever a
// task event is dispatched. When ctx ends it emits Reset and closes.
func (i *Interactor) Watch(ctx context.Context, filter task.Filter) <-chan queries.LoadResult {
	out := make(chan queries.LoadResult, 1)
	signal := &changeSignal{ch: make(chan struct{}, 1)}

	unsubscribe := func() {}
	if i.changes != nil {
		unsubscribe = i.changes.Subscribe(signal)
	}

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			result := <-i.GetTasks(ctx, filter)
			if ctx.Err() != nil {
				reset(out)
				return
			}
			select {
			case out <- result:
			case <-ctx.Done():
				reset(out)
				return
			}

			select {
			case <-signal.ch:
				i.logger.DebugContext(ctx, "tasks changed, reloading", "filter", filter.String())
			case <-ctx.Done():
				reset(out)
				return
			}
		}
	}()

	return out
}

// reset replaces any unread result with Reset. out has capacity one and
// only the watch goroutine sends, so the send cannot block.
func reset(out chan queries.LoadResult) {
	select {
	case <-out:
	default:
	}
	out <- queries.Reset()
}
