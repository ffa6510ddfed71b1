// Package app wires configuration, storage, messaging and the task
// interactor into a Container each binary builds once at startup.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sharedApplication "github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/todo/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/todo/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/resilience"
	"github.com/felixgeelhaar/todo/internal/tasks/application"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/cache"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/caldav"
	"github.com/felixgeelhaar/todo/pkg/config"
	"github.com/felixgeelhaar/todo/pkg/observability"
	"github.com/sony/gobreaker/v2"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics
	Health  *observability.HealthRegistry

	// Database
	DB database.Connection

	// Cache is nil when CACHE_BACKEND is none or Redis was unreachable.
	Cache cache.Store

	// Repositories
	TaskRepo   task.Repository
	OutboxRepo outbox.Repository
	UnitOfWork sharedApplication.UnitOfWork

	// Events. Registry receives every task event this process learns
	// about, from RabbitMQ or, in local mode, from tailing the outbox.
	Registry        *eventbus.ConsumerRegistry
	Publisher       eventbus.Publisher
	OutboxProcessor *outbox.Processor
	// OutboxTail is nil when RabbitMQ carries events.
	OutboxTail *outbox.Tail

	Interactor *application.Interactor

	// Syncer is nil unless CALDAV_URL is set.
	Syncer *caldav.Syncer

	mu       sync.Mutex
	consumer *eventbus.RabbitMQConsumer
	cancel   context.CancelFunc
	done     chan error
}

// Option customizes a Container.
type Option func(*Container)

// WithMetrics reports to m instead of discarding metrics.
func WithMetrics(m observability.Metrics) Option {
	return func(c *Container) {
		if m != nil {
			c.Metrics = m
		}
	}
}

// NewContainer opens the database, applies migrations and wires every
// component. Close releases what it opened, also on error.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *Container, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Metrics:  observability.NoopMetrics{},
		Health:   observability.NewHealthRegistry(),
		Registry: eventbus.NewConsumerRegistry(logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, c.Close())
		}
	}()

	if err := c.initDatabase(ctx); err != nil {
		return nil, err
	}
	c.initCache(ctx)

	factory := NewRepositoryFactory(c.DB)
	if c.Cache != nil {
		factory.WithCache(c.Cache, cfg.CacheTTL, logger, c.Metrics)
		c.Registry.Register(cache.NewInvalidator(c.Cache, logger, c.Metrics))
	}
	c.TaskRepo = factory.TaskRepository()
	c.OutboxRepo = factory.OutboxRepository()
	c.UnitOfWork = factory.UnitOfWork()

	if err := c.initPublisher(); err != nil {
		return nil, err
	}

	processorCfg := outbox.DefaultProcessorConfig()
	processorCfg.PollInterval = cfg.OutboxPollInterval
	processorCfg.BatchSize = cfg.OutboxBatchSize
	processorCfg.MaxRetries = cfg.OutboxMaxRetries
	if cfg.OutboxRetentionDays > 0 {
		processorCfg.Retention = time.Duration(cfg.OutboxRetentionDays) * 24 * time.Hour
	}
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.Publisher, processorCfg, logger).WithMetrics(c.Metrics)

	if !c.UsesBroker() {
		tailCfg := outbox.DefaultTailConfig()
		tailCfg.PollInterval = cfg.OutboxPollInterval
		tailCfg.BatchSize = cfg.OutboxBatchSize
		c.OutboxTail = outbox.NewTail(c.OutboxRepo, eventbus.NewInProcessEventBus(c.Registry, logger), tailCfg, logger)
	}

	handlers := application.NewHandlers(c.TaskRepo, c.OutboxRepo, c.UnitOfWork)
	c.Interactor = application.NewInteractor(handlers, c.Registry, logger, c.Metrics)

	if cfg.CalDAVEnabled() {
		c.Syncer = caldav.NewSyncer(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, logger).
			WithCalendarPath(cfg.CalDAVCalendarPath).
			WithDeleteMissing(cfg.CalDAVDeleteMissing).
			WithMetrics(c.Metrics)
	}

	logger.Info("container ready",
		"driver", c.DB.Driver().String(),
		"cache", c.cacheBackend(),
		"broker", c.brokerName(),
	)
	return c, nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	cfg := c.Config
	dbCfg := database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	}
	if dbCfg.Driver == database.DriverSQLite {
		if err := database.EnsureDirectory(dbCfg.SQLitePath); err != nil {
			return fmt.Errorf("prepare sqlite directory: %w", err)
		}
	}

	conn, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	c.DB = conn

	if err := migrations.Run(ctx, conn, c.Logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	c.Health.Register("database", observability.PingChecker("database", observability.HealthStatusUnhealthy, conn.Ping))
	return nil
}

// initCache never fails: without a cache every read goes to the database.
func (c *Container) initCache(ctx context.Context) {
	cfg := c.Config
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		store, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			c.Logger.Warn("redis unavailable, caching disabled", "error", err)
			c.Health.Register("cache", func(context.Context) observability.HealthCheckResult {
				return observability.HealthCheckResult{
					Status:  observability.HealthStatusDegraded,
					Message: "cache disabled: " + err.Error(),
				}
			})
			return
		}
		breaker := cache.NewBreakerStore(store, c.breakerConfig("cache"), c.Logger)
		c.Cache = breaker
		c.Health.Register("cache", func(ctx context.Context) observability.HealthCheckResult {
			if breaker.State() == gobreaker.StateOpen {
				return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: "cache circuit open"}
			}
			return observability.PingChecker("redis", observability.HealthStatusDegraded, store.Ping)(ctx)
		})

	case config.CacheBackendMemory:
		store, err := cache.NewMemoryStore(ctx, cfg.CacheTTL)
		if err != nil {
			c.Logger.Warn("memory cache unavailable, caching disabled", "error", err)
			return
		}
		c.Cache = store
	}
}

// initPublisher picks where the outbox processor relays to. Without a
// broker there is nowhere to relay: the processor only retires rows so
// retention cleanup can delete them, and OutboxTail does the delivery.
func (c *Container) initPublisher() error {
	if !c.UsesBroker() {
		c.Publisher = eventbus.NoopPublisher{}
		return nil
	}

	rabbit, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		return err
	}
	breaker := eventbus.NewBreakerPublisher(rabbit, c.breakerConfig("rabbitmq"), c.Logger)
	c.Publisher = breaker
	c.Health.Register("broker", func(ctx context.Context) observability.HealthCheckResult {
		if breaker.State() == gobreaker.StateOpen {
			return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: "broker circuit open"}
		}
		return observability.PingChecker("rabbitmq", observability.HealthStatusDegraded, rabbit.Ping)(ctx)
	})
	return nil
}

func (c *Container) breakerConfig(name string) resilience.BreakerConfig {
	cfg := resilience.DefaultBreakerConfig(name)
	cfg.FailureThreshold = uint32(c.Config.BreakerFailureThreshold)
	cfg.Timeout = c.Config.BreakerTimeout
	return cfg
}

// UsesBroker reports whether events travel through RabbitMQ.
func (c *Container) UsesBroker() bool {
	return c.Config.RabbitMQURL != ""
}

// StartEvents makes task events reach Registry in this process. With
// RabbitMQ that means consuming from an exclusive queue, relaying the
// outbox is left to the worker. Without it this process tails the outbox
// itself, so it sees the changes of every process sharing the database,
// and also retires rows when the processor is enabled.
func (c *Container) StartEvents(ctx context.Context) error {
	if !c.UsesBroker() {
		if err := c.OutboxTail.Start(ctx); err != nil {
			return fmt.Errorf("start outbox tail: %w", err)
		}
		if !c.Config.OutboxProcessorEnabled {
			return nil
		}
		return c.OutboxProcessor.Start(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumer != nil {
		return nil
	}

	consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:       c.Config.RabbitMQURL,
		Exclusive: true,
		Logger:    c.Logger,
	}, c.Registry)
	if err != nil {
		return err
	}
	for _, key := range task.RoutingKeys() {
		if err := consumer.Bind(key); err != nil {
			return errors.Join(err, consumer.Close())
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.consumer = consumer
	c.cancel = cancel
	c.done = make(chan error, 1)
	go func() {
		err := consumer.Start(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.Logger.Error("event consumer stopped", "error", err)
		}
		c.done <- err
	}()
	return nil
}

// Close stops background work and releases connections.
func (c *Container) Close() error {
	var errs []error

	if c.OutboxTail != nil {
		c.OutboxTail.Stop()
	}
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}

	c.mu.Lock()
	if c.consumer != nil {
		c.cancel()
		<-c.done
		errs = append(errs, c.consumer.Close())
		c.consumer = nil
	}
	c.mu.Unlock()

	if c.Publisher != nil {
		errs = append(errs, c.Publisher.Close())
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}

	if err := errors.Join(errs...); err != nil {
		c.Logger.Warn("error closing container", "error", err)
		return err
	}
	return nil
}

func (c *Container) cacheBackend() string {
	if c.Cache == nil {
		return config.CacheBackendNone
	}
	return c.Config.CacheBackend
}

func (c *Container) brokerName() string {
	if c.UsesBroker() {
		return "rabbitmq"
	}
	return "in-process"
}
