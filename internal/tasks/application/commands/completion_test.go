package commands

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func TestCompleteTaskHandler_Handle(t *testing.T) {
	t.Run("completes an active task", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCompleteTaskHandler(taskRepo, outboxRepo, uow)
		ctx, txCtx := newTxContext()

		existing := task.Rehydrate("task-1", "Title", "Body", false, nil, fixedTime, fixedTime, 1)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, "task-1").Return(existing, nil)
		taskRepo.On("Save", txCtx, existing).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.MatchedBy(func(msgs []*outbox.Message) bool {
			return assert.ObjectsAreEqual([]string{task.RoutingKeyCompleted}, routingKeys(msgs))
		})).Return(nil)

		require.NoError(t, handler.Handle(ctx, CompleteTaskCommand{TaskID: "task-1"}))

		assert.True(t, existing.IsCompleted())
		assert.Equal(t, "Title", existing.Title())
		assert.Equal(t, "Body", existing.Description())
		uow.AssertExpectations(t)
		taskRepo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("completing a completed task is a no-op", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCompleteTaskHandler(taskRepo, outboxRepo, uow)
		ctx, txCtx := newTxContext()

		done := fixedTime.Add(time.Hour)
		existing := task.Rehydrate("task-1", "Title", "", true, &done, fixedTime, done, 2)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, "task-1").Return(existing, nil)

		require.NoError(t, handler.Handle(ctx, CompleteTaskCommand{TaskID: "task-1"}))
		taskRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		outboxRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
	})

	t.Run("missing task", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCompleteTaskHandler(taskRepo, outboxRepo, uow)
		ctx, txCtx := newTxContext()

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, "nope").Return(nil, task.ErrTaskNotFound)

		err := handler.Handle(ctx, CompleteTaskCommand{TaskID: "nope"})

		assert.ErrorIs(t, err, task.ErrTaskNotFound)
		uow.AssertExpectations(t)
	})
}

func TestActivateTaskHandler_Handle(t *testing.T) {
	t.Run("activates a completed task", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewActivateTaskHandler(taskRepo, outboxRepo, uow)
		ctx, txCtx := newTxContext()

		done := fixedTime.Add(time.Hour)
		existing := task.Rehydrate("task-1", "Title", "", true, &done, fixedTime, done, 2)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, "task-1").Return(existing, nil)
		taskRepo.On("Save", txCtx, existing).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.MatchedBy(func(msgs []*outbox.Message) bool {
			return assert.ObjectsAreEqual([]string{task.RoutingKeyActivated}, routingKeys(msgs))
		})).Return(nil)

		require.NoError(t, handler.Handle(ctx, ActivateTaskCommand{TaskID: "task-1"}))

		assert.True(t, existing.IsActive())
		assert.Nil(t, existing.CompletedAt())
		outboxRepo.AssertExpectations(t)
	})

	t.Run("activating an active task is a no-op", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewActivateTaskHandler(taskRepo, outboxRepo, uow)
		ctx, txCtx := newTxContext()

		existing := task.Rehydrate("task-1", "Title", "", false, nil, fixedTime, fixedTime, 1)

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, "task-1").Return(existing, nil)

		require.NoError(t, handler.Handle(ctx, ActivateTaskCommand{TaskID: "task-1"}))
		taskRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("missing task", func(t *testing.T) {
		taskRepo := new(mockTaskRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewActivateTaskHandler(taskRepo, outboxRepo, uow)
		ctx, txCtx := newTxContext()

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)
		taskRepo.On("FindByID", txCtx, "nope").Return(nil, task.ErrTaskNotFound)

		assert.ErrorIs(t, handler.Handle(ctx, ActivateTaskCommand{TaskID: "nope"}), task.ErrTaskNotFound)
	})
}
