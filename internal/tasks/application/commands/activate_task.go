package commands

import (
	"context"

	sharedApplication "github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// ActivateTaskCommand reopens a completed task.
type ActivateTaskCommand struct {
	TaskID string
}

func (ActivateTaskCommand) CommandName() string { return "task.activate" }

// ActivateTaskHandler handles the ActivateTaskCommand.
type ActivateTaskHandler struct {
	taskRepo   task.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

var _ sharedApplication.CommandHandler[ActivateTaskCommand] = (*ActivateTaskHandler)(nil)

// NewActivateTaskHandler creates a new ActivateTaskHandler.
func NewActivateTaskHandler(taskRepo task.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *ActivateTaskHandler {
	return &ActivateTaskHandler{
		taskRepo:   taskRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
	}
}

// Handle executes the ActivateTaskCommand. A task already in the target
// state is left untouched.
func (h *ActivateTaskHandler) Handle(ctx context.Context, cmd ActivateTaskCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		t, err := h.taskRepo.FindByID(txCtx, cmd.TaskID)
		if err != nil {
			return err
		}
		if t.IsActive() {
			return nil
		}

		t.Activate()

		if err := h.taskRepo.Save(txCtx, t); err != nil {
			return err
		}
		return recordEvents(txCtx, h.outboxRepo, t)
	})
}
