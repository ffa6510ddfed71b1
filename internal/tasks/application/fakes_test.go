package application_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// memRepo is an in-memory task.Repository.
type memRepo struct {
	mu    sync.Mutex
	tasks map[string]*task.Task
	err   error
}

func newMemRepo() *memRepo {
	return &memRepo{tasks: make(map[string]*task.Task)}
}

func (r *memRepo) Save(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.tasks[t.ID()] = t
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	t, ok := r.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	return t, nil
}

func (r *memRepo) Find(_ context.Context, filter task.Filter) ([]*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*task.Task
	for _, t := range r.tasks {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return task.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *memRepo) DeleteMatching(_ context.Context, filter task.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, t := range r.tasks {
		if filter.Matches(t) {
			delete(r.tasks, id)
			n++
		}
	}
	return n, nil
}

// memOutbox keeps saved messages in order.
type memOutbox struct {
	mu   sync.Mutex
	msgs []*outbox.Message
}

func (o *memOutbox) Save(ctx context.Context, msg *outbox.Message) error {
	return o.SaveBatch(ctx, []*outbox.Message{msg})
}

func (o *memOutbox) SaveBatch(_ context.Context, msgs []*outbox.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, msg := range msgs {
		msg.ID = int64(len(o.msgs) + 1)
		o.msgs = append(o.msgs, msg)
	}
	return nil
}

func (o *memOutbox) routingKeys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, len(o.msgs))
	for i, msg := range o.msgs {
		keys[i] = msg.RoutingKey
	}
	return keys
}

func (o *memOutbox) GetUnpublished(context.Context, int) ([]*outbox.Message, error)  { return nil, nil }
func (o *memOutbox) MarkPublished(context.Context, int64) error                      { return nil }
func (o *memOutbox) MarkFailed(context.Context, int64, string, time.Time) error      { return nil }
func (o *memOutbox) MarkDead(context.Context, int64, string) error                   { return nil }
func (o *memOutbox) CountPending(context.Context) (int64, error)                     { return 0, nil }
func (o *memOutbox) DeleteOld(context.Context, time.Time) (int64, error)             { return 0, nil }
func (o *memOutbox) GetAfter(context.Context, int64, int) ([]*outbox.Message, error) { return nil, nil }
func (o *memOutbox) LastID(context.Context) (int64, error)                           { return 0, nil }

// passthroughUoW runs work without a transaction.
type passthroughUoW struct{}

func (passthroughUoW) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (passthroughUoW) Commit(context.Context) error                       { return nil }
func (passthroughUoW) Rollback(context.Context) error                     { return nil }
