package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
)

func requireID(value string) (string, error) {
	id := strings.TrimSpace(value)
	if id == "" {
		return "", errors.New("task_id is required")
	}
	return id, nil
}

// await reads one load result and turns failures into readable errors.
func await(ctx context.Context, results <-chan queries.LoadResult) ([]queries.TaskDTO, error) {
	tasks, err := cli.Await(ctx, results)
	if err != nil {
		return nil, cli.Friendly(err)
	}
	if tasks == nil {
		tasks = []queries.TaskDTO{}
	}
	return tasks, nil
}
