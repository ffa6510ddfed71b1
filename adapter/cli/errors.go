package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/cache"
)

// Friendly rewrites domain errors into messages for a terminal. The
// original error stays in the chain.
func Friendly(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, task.ErrTaskNotFound):
		return fmt.Errorf("no such task: %w", err)
	case errors.Is(err, task.ErrEmptyTask):
		return fmt.Errorf("give the task a title or a description: %w", err)
	case errors.Is(err, task.ErrOptimisticLocking):
		return fmt.Errorf("the task changed while you edited it, try again: %w", err)
	case errors.Is(err, task.ErrUnknownFilter):
		return fmt.Errorf("filter must be one of all, active, completed: %w", err)
	case errors.Is(err, cache.ErrCacheUnavailable):
		return fmt.Errorf("storage is temporarily unavailable: %w", err)
	default:
		return err
	}
}
