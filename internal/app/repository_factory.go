package app

import (
	"log/slog"
	"time"

	sharedApplication "github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/cache"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/persistence"
	"github.com/felixgeelhaar/todo/pkg/observability"
)

// RepositoryFactory creates the repositories of one connection. Both
// drivers share the same implementations.
type RepositoryFactory struct {
	conn database.Connection

	store   cache.Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// WithCache puts store in front of the task repository. A nil store
// leaves reads uncached.
func (f *RepositoryFactory) WithCache(store cache.Store, ttl time.Duration, logger *slog.Logger, metrics observability.Metrics) *RepositoryFactory {
	f.store = store
	f.ttl = ttl
	f.logger = logger
	f.metrics = metrics
	return f
}

// TaskRepository creates the task repository, cached when configured.
func (f *RepositoryFactory) TaskRepository() task.Repository {
	repo := persistence.NewSQLTaskRepository(f.conn)
	if f.store == nil {
		return repo
	}
	return persistence.NewCachedRepository(repo, f.store, f.ttl, f.logger, f.metrics)
}

// OutboxRepository creates the outbox repository.
func (f *RepositoryFactory) OutboxRepository() outbox.Repository {
	return outbox.NewSQLRepository(f.conn)
}

// UnitOfWork creates a unit of work the repositories above join.
func (f *RepositoryFactory) UnitOfWork() sharedApplication.UnitOfWork {
	return database.NewUnitOfWork(f.conn)
}
