package cli

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
)

// Await waits for one load and turns Unavailable and Reset into errors.
// Empty yields no tasks and no error.
func Await(ctx context.Context, results <-chan queries.LoadResult) ([]queries.TaskDTO, error) {
	result, ok := <-results
	if !ok {
		return nil, ctx.Err()
	}
	switch result.State {
	case queries.LoadStateLoaded:
		return result.Tasks, nil
	case queries.LoadStateEmpty:
		return nil, nil
	case queries.LoadStateUnavailable:
		return nil, fmt.Errorf("tasks unavailable: %w", result.Err)
	default:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, context.Canceled
	}
}
