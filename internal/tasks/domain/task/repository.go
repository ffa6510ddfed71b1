package task

import (
	"context"

	"github.com/felixgeelhaar/todo/internal/shared/domain"
)

// Repository defines the interface for task persistence. FindByID and
// Delete return ErrTaskNotFound for unknown ids.
type Repository interface {
	domain.Repository[*Task]
	Find(ctx context.Context, filter Filter) ([]*Task, error)
	DeleteMatching(ctx context.Context, filter Filter) (int, error)
}
