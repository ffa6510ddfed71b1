package persistence_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/cache"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/persistence"
	"github.com/felixgeelhaar/todo/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedFixture struct {
	conn    database.Connection
	inner   *persistence.SQLTaskRepository
	store   *cache.MemoryStore
	repo    *persistence.CachedRepository
	metrics *observability.InMemoryMetrics
}

func newCachedFixture(t *testing.T) cachedFixture {
	t.Helper()
	conn := openSQLite(t)
	store, err := cache.NewMemoryStore(context.Background(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	inner := persistence.NewSQLTaskRepository(conn)
	metrics := observability.NewInMemoryMetrics()
	return cachedFixture{
		conn:    conn,
		inner:   inner,
		store:   store,
		repo:    persistence.NewCachedRepository(inner, store, time.Minute, nil, metrics),
		metrics: metrics,
	}
}

func TestCachedRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)

	tk := mustTask(t, "Cached", "body")
	require.NoError(t, f.repo.Save(ctx, tk))

	first, err := f.repo.FindByID(ctx, tk.ID())
	require.NoError(t, err)
	second, err := f.repo.FindByID(ctx, tk.ID())
	require.NoError(t, err)

	assert.Equal(t, first.Title(), second.Title())
	assert.Equal(t, first.Version(), second.Version())
	assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricCacheMisses))
	assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricCacheHits))
}

func TestCachedRepository_ServesCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)

	tk := mustTask(t, "Before", "")
	require.NoError(t, f.repo.Save(ctx, tk))
	_, err := f.repo.Find(ctx, task.FilterAll)
	require.NoError(t, err)

	// A write that bypasses the decorator is not seen.
	stale, err := f.inner.FindByID(ctx, tk.ID())
	require.NoError(t, err)
	require.NoError(t, stale.Update("Behind the cache", ""))
	require.NoError(t, f.inner.Save(ctx, stale))

	tasks, err := f.repo.Find(ctx, task.FilterAll)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Before", tasks[0].Title())

	// A write through the decorator drops the lists.
	fresh, err := f.inner.FindByID(ctx, tk.ID())
	require.NoError(t, err)
	fresh.Complete()
	require.NoError(t, f.repo.Save(ctx, fresh))

	tasks, err = f.repo.Find(ctx, task.FilterCompleted)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Behind the cache", tasks[0].Title())

	tasks, err = f.repo.Find(ctx, task.FilterAll)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].IsCompleted())
}

func TestCachedRepository_DeleteMatchingDropsTaskEntries(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)

	done := mustTask(t, "Done", "")
	done.Complete()
	require.NoError(t, f.repo.Save(ctx, done))
	_, err := f.repo.FindByID(ctx, done.ID())
	require.NoError(t, err)

	n, err := f.repo.DeleteMatching(ctx, task.FilterCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.repo.FindByID(ctx, done.ID())
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestCachedRepository_Delete(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)

	tk := mustTask(t, "Remove me", "")
	require.NoError(t, f.repo.Save(ctx, tk))
	_, err := f.repo.FindByID(ctx, tk.ID())
	require.NoError(t, err)

	require.NoError(t, f.repo.Delete(ctx, tk.ID()))

	_, err = f.repo.FindByID(ctx, tk.ID())
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
	assert.ErrorIs(t, f.repo.Delete(ctx, tk.ID()), task.ErrTaskNotFound)
}

func TestCachedRepository_BypassesCacheInTransaction(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)

	tk := mustTask(t, "In tx", "")
	require.NoError(t, f.repo.Save(ctx, tk))

	uow := database.NewUnitOfWork(f.conn)
	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	_, err = f.repo.FindByID(txCtx, tk.ID())
	require.NoError(t, err)
	require.NoError(t, uow.Commit(txCtx))

	_, err = f.store.Get(ctx, cache.TaskKey(tk.ID()))
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	assert.Zero(t, f.metrics.GetCounter(observability.MetricCacheMisses))
}

func TestCachedRepository_UndecodableEntryFallsThrough(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)

	tk := mustTask(t, "Real", "")
	require.NoError(t, f.repo.Save(ctx, tk))
	require.NoError(t, f.store.Set(ctx, cache.TaskKey(tk.ID()), []byte("{not json"), time.Minute))

	got, err := f.repo.FindByID(ctx, tk.ID())
	require.NoError(t, err)
	assert.Equal(t, "Real", got.Title())
}

func TestCachedRepository_InvalidatesAfterCommit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")
	writerConn := openSQLiteAt(t, path)
	readerConn := openSQLiteAt(t, path)

	store, err := cache.NewMemoryStore(ctx, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	writer := persistence.NewCachedRepository(persistence.NewSQLTaskRepository(writerConn), store, time.Minute, nil, nil)
	reader := persistence.NewCachedRepository(persistence.NewSQLTaskRepository(readerConn), store, time.Minute, nil, nil)

	tk := mustTask(t, "Shared", "")
	require.NoError(t, writer.Save(ctx, tk))

	uow := database.NewUnitOfWork(writerConn)
	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	pending, err := writer.FindByID(txCtx, tk.ID())
	require.NoError(t, err)
	pending.Complete()
	require.NoError(t, writer.Save(txCtx, pending))

	// The reader only sees committed rows and caches what it read.
	during, err := reader.FindByID(ctx, tk.ID())
	require.NoError(t, err)
	assert.False(t, during.IsCompleted())

	require.NoError(t, uow.Commit(txCtx))

	after, err := reader.FindByID(ctx, tk.ID())
	require.NoError(t, err)
	assert.True(t, after.IsCompleted(), "the commit drops the entry cached mid-transaction")
}

func TestCachedRepository_RollbackKeepsCache(t *testing.T) {
	ctx := context.Background()
	f := newCachedFixture(t)

	tk := mustTask(t, "Kept", "")
	require.NoError(t, f.repo.Save(ctx, tk))
	_, err := f.repo.FindByID(ctx, tk.ID())
	require.NoError(t, err)

	uow := database.NewUnitOfWork(f.conn)
	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, f.repo.Delete(txCtx, tk.ID()))
	require.NoError(t, uow.Rollback(txCtx))

	_, err = f.store.Get(ctx, cache.TaskKey(tk.ID()))
	assert.NoError(t, err)
	got, err := f.repo.FindByID(ctx, tk.ID())
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Title())
}
