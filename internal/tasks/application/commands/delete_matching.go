package commands

import (
	"context"

	sharedApplication "github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// ClearCompletedTasksCommand removes every completed task.
type ClearCompletedTasksCommand struct{}

func (ClearCompletedTasksCommand) CommandName() string { return "task.clear_completed" }

// DeleteAllTasksCommand removes every task.
type DeleteAllTasksCommand struct{}

func (DeleteAllTasksCommand) CommandName() string { return "task.delete_all" }

// ClearCompletedTasksHandler handles the ClearCompletedTasksCommand.
type ClearCompletedTasksHandler struct {
	bulk bulkDelete
}

// NewClearCompletedTasksHandler creates a new ClearCompletedTasksHandler.
func NewClearCompletedTasksHandler(taskRepo task.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *ClearCompletedTasksHandler {
	return &ClearCompletedTasksHandler{bulk: bulkDelete{taskRepo: taskRepo, outboxRepo: outboxRepo, uow: uow}}
}

// Handle deletes the completed tasks and returns how many were removed.
func (h *ClearCompletedTasksHandler) Handle(ctx context.Context, _ ClearCompletedTasksCommand) (int, error) {
	return h.bulk.run(ctx, task.FilterCompleted)
}

// DeleteAllTasksHandler handles the DeleteAllTasksCommand.
type DeleteAllTasksHandler struct {
	bulk bulkDelete
}

// NewDeleteAllTasksHandler creates a new DeleteAllTasksHandler.
func NewDeleteAllTasksHandler(taskRepo task.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *DeleteAllTasksHandler {
	return &DeleteAllTasksHandler{bulk: bulkDelete{taskRepo: taskRepo, outboxRepo: outboxRepo, uow: uow}}
}

// Handle deletes every task and returns how many were removed.
func (h *DeleteAllTasksHandler) Handle(ctx context.Context, _ DeleteAllTasksCommand) (int, error) {
	return h.bulk.run(ctx, task.FilterAll)
}

// bulkDelete loads the matching tasks first so each one gets its own
// TaskDeleted event, then removes them in one statement.
type bulkDelete struct {
	taskRepo   task.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

func (b bulkDelete) run(ctx context.Context, filter task.Filter) (int, error) {
	var deleted int

	err := sharedApplication.WithUnitOfWork(ctx, b.uow, func(txCtx context.Context) error {
		tasks, err := b.taskRepo.Find(txCtx, filter)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}

		for _, t := range tasks {
			t.MarkDeleted()
		}

		n, err := b.taskRepo.DeleteMatching(txCtx, filter)
		if err != nil {
			return err
		}
		if err := recordEvents(txCtx, b.outboxRepo, tasks...); err != nil {
			return err
		}

		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}
