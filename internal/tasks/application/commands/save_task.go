package commands

import (
	"context"
	"errors"

	sharedApplication "github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// SaveTaskCommand inserts a task, or replaces one when TaskID names an
// existing task.
type SaveTaskCommand struct {
	TaskID      string
	Title       string
	Description string
	Completed   bool
}

func (SaveTaskCommand) CommandName() string { return "task.save" }

// SaveTaskResult reports the saved task id and whether it was new.
type SaveTaskResult struct {
	TaskID  string
	Created bool
}

// SaveTaskHandler handles the SaveTaskCommand.
type SaveTaskHandler struct {
	taskRepo   task.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

// NewSaveTaskHandler creates a new SaveTaskHandler.
func NewSaveTaskHandler(taskRepo task.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *SaveTaskHandler {
	return &SaveTaskHandler{
		taskRepo:   taskRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
	}
}

// Handle executes the SaveTaskCommand.
func (h *SaveTaskHandler) Handle(ctx context.Context, cmd SaveTaskCommand) (*SaveTaskResult, error) {
	var result *SaveTaskResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		t, created, err := h.load(txCtx, cmd)
		if err != nil {
			return err
		}
		t.SetCompleted(cmd.Completed)
		result = &SaveTaskResult{TaskID: t.ID(), Created: created}

		// An identical replace leaves the row and its version alone.
		if !created && len(t.DomainEvents()) == 0 {
			return nil
		}
		if err := h.taskRepo.Save(txCtx, t); err != nil {
			return err
		}
		return recordEvents(txCtx, h.outboxRepo, t)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (h *SaveTaskHandler) load(ctx context.Context, cmd SaveTaskCommand) (*task.Task, bool, error) {
	if cmd.TaskID == "" {
		t, err := task.NewTask(cmd.Title, cmd.Description)
		return t, true, err
	}

	existing, err := h.taskRepo.FindByID(ctx, cmd.TaskID)
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		t, err := task.NewTaskWithID(cmd.TaskID, cmd.Title, cmd.Description)
		return t, true, err
	case err != nil:
		return nil, false, err
	}

	if err := existing.Update(cmd.Title, cmd.Description); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
