package commands

import (
	"context"

	sharedApplication "github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// CompleteTaskCommand marks a task completed.
type CompleteTaskCommand struct {
	TaskID string
}

func (CompleteTaskCommand) CommandName() string { return "task.complete" }

// CompleteTaskHandler handles the CompleteTaskCommand.
type CompleteTaskHandler struct {
	taskRepo   task.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

var _ sharedApplication.CommandHandler[CompleteTaskCommand] = (*CompleteTaskHandler)(nil)

// NewCompleteTaskHandler creates a new CompleteTaskHandler.
func NewCompleteTaskHandler(taskRepo task.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *CompleteTaskHandler {
	return &CompleteTaskHandler{
		taskRepo:   taskRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
	}
}

// Handle executes the CompleteTaskCommand. A task already in the target
// state is left untouched.
func (h *CompleteTaskHandler) Handle(ctx context.Context, cmd CompleteTaskCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		t, err := h.taskRepo.FindByID(txCtx, cmd.TaskID)
		if err != nil {
			return err
		}
		if t.IsCompleted() {
			return nil
		}

		t.Complete()

		if err := h.taskRepo.Save(txCtx, t); err != nil {
			return err
		}
		return recordEvents(txCtx, h.outboxRepo, t)
	})
}
