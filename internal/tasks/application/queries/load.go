package queries

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// LoadState tells a caller what a load produced.
type LoadState int

const (
	// LoadStateLoaded means Tasks holds at least one task.
	LoadStateLoaded LoadState = iota
	// LoadStateEmpty means the query matched nothing.
	LoadStateEmpty
	// LoadStateUnavailable means the data could not be read; Err says why.
	LoadStateUnavailable
	// LoadStateReset means a watch ended and earlier results are stale.
	LoadStateReset
)

func (s LoadState) String() string {
	switch s {
	case LoadStateLoaded:
		return "loaded"
	case LoadStateEmpty:
		return "empty"
	case LoadStateUnavailable:
		return "unavailable"
	case LoadStateReset:
		return "reset"
	default:
		return "unknown"
	}
}

// LoadResult is the single value an asynchronous read delivers.
type LoadResult struct {
	State LoadState
	Tasks []TaskDTO
	Err   error
}

// Loaded wraps a non-empty result.
func Loaded(tasks []TaskDTO) LoadResult {
	return LoadResult{State: LoadStateLoaded, Tasks: tasks}
}

// Empty is a load that matched nothing.
func Empty() LoadResult {
	return LoadResult{State: LoadStateEmpty}
}

// Unavailable carries the error that stopped the load.
func Unavailable(err error) LoadResult {
	return LoadResult{State: LoadStateUnavailable, Err: err}
}

// Reset tells a watcher's consumer to drop what it holds.
func Reset() LoadResult {
	return LoadResult{State: LoadStateReset}
}

// Task returns the first task of a loaded result.
func (r LoadResult) Task() (TaskDTO, bool) {
	if r.State != LoadStateLoaded || len(r.Tasks) == 0 {
		return TaskDTO{}, false
	}
	return r.Tasks[0], true
}

// Classify turns a fetch outcome into a LoadResult. A missing task is
// Empty rather than Unavailable.
func Classify(tasks []TaskDTO, err error) LoadResult {
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return Empty()
	case err != nil:
		return Unavailable(err)
	case len(tasks) == 0:
		return Empty()
	default:
		return Loaded(tasks)
	}
}

// FetchFunc reads tasks for a load.
type FetchFunc func(ctx context.Context) ([]TaskDTO, error)

// Load runs fetch on its own goroutine. The returned channel yields
// exactly one result and is then closed. If ctx ends first the result is
// Unavailable with ctx.Err().
func Load(ctx context.Context, fetch FetchFunc) <-chan LoadResult {
	out := make(chan LoadResult, 1)
	done := make(chan LoadResult, 1)

	go func() {
		tasks, err := fetch(ctx)
		done <- Classify(tasks, err)
	}()

	go func() {
		defer close(out)
		select {
		case result := <-done:
			out <- result
		case <-ctx.Done():
			select {
			case result := <-done:
				out <- result
			default:
				out <- Unavailable(ctx.Err())
			}
		}
	}()

	return out
}

// One adapts a single-task fetch to a FetchFunc.
func One(fetch func(ctx context.Context) (*TaskDTO, error)) FetchFunc {
	return func(ctx context.Context) ([]TaskDTO, error) {
		dto, err := fetch(ctx)
		if err != nil || dto == nil {
			return nil, err
		}
		return []TaskDTO{*dto}, nil
	}
}
