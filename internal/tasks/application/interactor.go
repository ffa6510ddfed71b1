// Package application is the entry point to the task service. Adapters
// hold an Interactor built by the container; there is no global one.
package application

import (
	"context"
	"log/slog"

	sharedApplication "github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/tasks/application/commands"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/pkg/observability"
)

// Handlers groups the command and query handlers an Interactor drives.
type Handlers struct {
	GetTasks       *queries.GetTasksHandler
	GetTask        *queries.GetTaskHandler
	SaveTask       *commands.SaveTaskHandler
	CompleteTask   *commands.CompleteTaskHandler
	ActivateTask   *commands.ActivateTaskHandler
	ClearCompleted *commands.ClearCompletedTasksHandler
	DeleteAll      *commands.DeleteAllTasksHandler
	DeleteTask     *commands.DeleteTaskHandler
}

// NewHandlers wires every handler to the same repositories.
func NewHandlers(taskRepo task.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) Handlers {
	return Handlers{
		GetTasks:       queries.NewGetTasksHandler(taskRepo),
		GetTask:        queries.NewGetTaskHandler(taskRepo),
		SaveTask:       commands.NewSaveTaskHandler(taskRepo, outboxRepo, uow),
		CompleteTask:   commands.NewCompleteTaskHandler(taskRepo, outboxRepo, uow),
		ActivateTask:   commands.NewActivateTaskHandler(taskRepo, outboxRepo, uow),
		ClearCompleted: commands.NewClearCompletedTasksHandler(taskRepo, outboxRepo, uow),
		DeleteAll:      commands.NewDeleteAllTasksHandler(taskRepo, outboxRepo, uow),
		DeleteTask:     commands.NewDeleteTaskHandler(taskRepo, outboxRepo, uow),
	}
}

// TaskService is what adapters need from an Interactor.
type TaskService interface {
	GetTasks(ctx context.Context, filter task.Filter) <-chan queries.LoadResult
	GetTask(ctx context.Context, id string) <-chan queries.LoadResult
	Watch(ctx context.Context, filter task.Filter) <-chan queries.LoadResult
	SaveTask(ctx context.Context, cmd commands.SaveTaskCommand) (*commands.SaveTaskResult, error)
	CompleteTask(ctx context.Context, id string) error
	ActivateTask(ctx context.Context, id string) error
	ClearCompletedTasks(ctx context.Context) (int, error)
	DeleteAllTasks(ctx context.Context) (int, error)
	DeleteTask(ctx context.Context, id string) error
}

var _ TaskService = (*Interactor)(nil)

// Interactor reads and writes tasks. Reads are asynchronous and deliver
// one LoadResult; writes return their error.
type Interactor struct {
	h       Handlers
	changes *eventbus.ConsumerRegistry
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewInteractor creates an Interactor. changes is the registry task
// events are dispatched to. With a nil registry Watch never reloads.
func NewInteractor(h Handlers, changes *eventbus.ConsumerRegistry, logger *slog.Logger, metrics observability.Metrics) *Interactor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Interactor{h: h, changes: changes, logger: logger, metrics: metrics}
}

// GetTasks loads the tasks matching filter.
func (i *Interactor) GetTasks(ctx context.Context, filter task.Filter) <-chan queries.LoadResult {
	return i.load(ctx, "task.list", func(ctx context.Context) ([]queries.TaskDTO, error) {
		return i.h.GetTasks.Handle(ctx, queries.GetTasksQuery{Filter: filter})
	})
}

// GetTask loads one task. An unknown id yields Empty.
func (i *Interactor) GetTask(ctx context.Context, id string) <-chan queries.LoadResult {
	return i.load(ctx, "task.get", queries.One(func(ctx context.Context) (*queries.TaskDTO, error) {
		return i.h.GetTask.Handle(ctx, queries.GetTaskQuery{TaskID: id})
	}))
}

func (i *Interactor) load(ctx context.Context, operation string, fetch queries.FetchFunc) <-chan queries.LoadResult {
	return queries.Load(ctx, func(ctx context.Context) ([]queries.TaskDTO, error) {
		tasks, err := observability.TimeOperationResult(ctx, i.logger, i.metrics, operation,
			func() ([]queries.TaskDTO, error) { return fetch(ctx) })
		i.metrics.Counter(observability.MetricTaskLoads, 1,
			observability.T(observability.OperationKey, operation),
			observability.T("state", queries.Classify(tasks, err).State.String()),
		)
		return tasks, err
	})
}

// SaveTask inserts or replaces a task.
func (i *Interactor) SaveTask(ctx context.Context, cmd commands.SaveTaskCommand) (*commands.SaveTaskResult, error) {
	result, err := observability.TimeOperationResult(ctx, i.logger, i.metrics, "task.save",
		func() (*commands.SaveTaskResult, error) { return i.h.SaveTask.Handle(ctx, cmd) })
	if err != nil {
		return nil, err
	}
	i.metrics.Counter(observability.MetricTasksSaved, 1)
	return result, nil
}

// CompleteTask marks a task completed.
func (i *Interactor) CompleteTask(ctx context.Context, id string) error {
	err := observability.TimeOperation(ctx, i.logger, i.metrics, "task.complete", func() error {
		return i.h.CompleteTask.Handle(ctx, commands.CompleteTaskCommand{TaskID: id})
	})
	if err == nil {
		i.metrics.Counter(observability.MetricTasksCompleted, 1)
	}
	return err
}

// ActivateTask marks a task active.
func (i *Interactor) ActivateTask(ctx context.Context, id string) error {
	err := observability.TimeOperation(ctx, i.logger, i.metrics, "task.activate", func() error {
		return i.h.ActivateTask.Handle(ctx, commands.ActivateTaskCommand{TaskID: id})
	})
	if err == nil {
		i.metrics.Counter(observability.MetricTasksActivated, 1)
	}
	return err
}

// ClearCompletedTasks deletes completed tasks and returns how many.
func (i *Interactor) ClearCompletedTasks(ctx context.Context) (int, error) {
	n, err := observability.TimeOperationResult(ctx, i.logger, i.metrics, "task.clear_completed",
		func() (int, error) { return i.h.ClearCompleted.Handle(ctx, commands.ClearCompletedTasksCommand{}) })
	if err != nil {
		return 0, err
	}
	i.metrics.Counter(observability.MetricTasksDeleted, int64(n))
	return n, nil
}

// DeleteAllTasks deletes every task and returns how many.
func (i *Interactor) DeleteAllTasks(ctx context.Context) (int, error) {
	n, err := observability.TimeOperationResult(ctx, i.logger, i.metrics, "task.delete_all",
		func() (int, error) { return i.h.DeleteAll.Handle(ctx, commands.DeleteAllTasksCommand{}) })
	if err != nil {
		return 0, err
	}
	i.metrics.Counter(observability.MetricTasksDeleted, int64(n))
	return n, nil
}

// DeleteTask deletes one task.
func (i *Interactor) DeleteTask(ctx context.Context, id string) error {
	err := observability.TimeOperation(ctx, i.logger, i.metrics, "task.delete", func() error {
		return i.h.DeleteTask.Handle(ctx, commands.DeleteTaskCommand{TaskID: id})
	})
	if err == nil {
		i.metrics.Counter(observability.MetricTasksDeleted, 1)
	}
	return err
}
