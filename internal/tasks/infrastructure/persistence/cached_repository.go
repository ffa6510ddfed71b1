package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/cache"
	"github.com/felixgeelhaar/todo/pkg/observability"
)

// CachedRepository serves reads from a cache.Store and invalidates on
// writes. Calls inside a transaction bypass the cache so commands always
// see the rows they lock, and their invalidation waits for the commit.
type CachedRepository struct {
	next    task.Repository
	store   cache.Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics observability.Metrics
}

var _ task.Repository = (*CachedRepository)(nil)

// NewCachedRepository decorates next.
func NewCachedRepository(next task.Repository, store cache.Store, ttl time.Duration, logger *slog.Logger, metrics observability.Metrics) *CachedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &CachedRepository{next: next, store: store, ttl: ttl, logger: logger, metrics: metrics}
}

// cachedTask is the cache encoding of a task.
type cachedTask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toCached(t *task.Task) cachedTask {
	return cachedTask{
		ID:          t.ID(),
		Title:       t.Title(),
		Description: t.Description(),
		Completed:   t.IsCompleted(),
		CompletedAt: t.CompletedAt(),
		Version:     t.Version(),
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
}

func (c cachedTask) toTask() *task.Task {
	return task.Rehydrate(c.ID, c.Title, c.Description, c.Completed, c.CompletedAt, c.CreatedAt, c.UpdatedAt, c.Version)
}

func inTx(ctx context.Context) bool {
	return database.TxFromContext(ctx) != nil
}

func (r *CachedRepository) FindByID(ctx context.Context, id string) (*task.Task, error) {
	if inTx(ctx) {
		return r.next.FindByID(ctx, id)
	}

	key := cache.TaskKey(id)
	var cached cachedTask
	if r.get(ctx, key, &cached) {
		return cached.toTask(), nil
	}

	t, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.set(ctx, key, toCached(t))
	return t, nil
}

func (r *CachedRepository) Find(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	if inTx(ctx) {
		return r.next.Find(ctx, filter)
	}

	key := cache.ListKey(filter)
	var cached []cachedTask
	if r.get(ctx, key, &cached) {
		tasks := make([]*task.Task, len(cached))
		for i, c := range cached {
			tasks[i] = c.toTask()
		}
		return tasks, nil
	}

	tasks, err := r.next.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	encoded := make([]cachedTask, len(tasks))
	for i, t := range tasks {
		encoded[i] = toCached(t)
	}
	r.set(ctx, key, encoded)
	return tasks, nil
}

func (r *CachedRepository) Save(ctx context.Context, t *task.Task) error {
	if err := r.next.Save(ctx, t); err != nil {
		return err
	}
	r.invalidate(ctx, t.ID())
	return nil
}

func (r *CachedRepository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// DeleteMatching looks up the affected ids first so their entries can
// be dropped too.
func (r *CachedRepository) DeleteMatching(ctx context.Context, filter task.Filter) (int, error) {
	tasks, err := r.next.Find(ctx, filter)
	if err != nil {
		return 0, err
	}
	n, err := r.next.DeleteMatching(ctx, filter)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID()
	}
	r.invalidate(ctx, ids...)
	return n, nil
}

func (r *CachedRepository) get(ctx context.Context, key string, v any) bool {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		r.metrics.Counter(observability.MetricCacheMisses, 1)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.logger.WarnContext(ctx, "dropping undecodable cache entry", "key", key, "error", err)
		r.drop(ctx, key)
		r.metrics.Counter(observability.MetricCacheMisses, 1)
		return false
	}
	r.metrics.Counter(observability.MetricCacheHits, 1)
	return true
}

func (r *CachedRepository) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := r.store.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// invalidate drops the entries of ids and every list once the write is
// visible to other connections. Dropping earlier would let a concurrent
// reader cache the pre-commit row.
func (r *CachedRepository) invalidate(ctx context.Context, ids ...string) {
	keys := cache.ListKeys()
	for _, id := range ids {
		keys = append(keys, cache.TaskKey(id))
	}
	database.AfterCommit(ctx, func(ctx context.Context) { r.drop(ctx, keys...) })
}

func (r *CachedRepository) drop(ctx context.Context, keys ...string) {
	if err := r.store.Delete(ctx, keys...); err != nil {
		r.logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}
