package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/todo/internal/tasks/application"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// Resource URIs, one per filter.
const (
	ResourceAllTasks       = "todo://tasks"
	ResourceActiveTasks    = "todo://tasks/active"
	ResourceCompletedTasks = "todo://tasks/completed"
)

// RegisterResources registers MCP resources that expose task lists.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	if deps.App == nil || deps.App.Tasks == nil {
		return fmt.Errorf("app is required")
	}

	tasks := deps.App.Tasks

	srv.Resource(ResourceAllTasks).
		Name("Tasks").
		Description("Every task, active and completed").
		MimeType("application/json").
		Handler(taskListResource(tasks, task.FilterAll))

	srv.Resource(ResourceActiveTasks).
		Name("Active Tasks").
		Description("Tasks that are not completed yet").
		MimeType("application/json").
		Handler(taskListResource(tasks, task.FilterActive))

	srv.Resource(ResourceCompletedTasks).
		Name("Completed Tasks").
		Description("Tasks that are completed").
		MimeType("application/json").
		Handler(taskListResource(tasks, task.FilterCompleted))

	return nil
}

func taskListResource(tasks application.TaskService, filter task.Filter) func(context.Context, string, map[string]string) (*mcp.ResourceContent, error) {
	return func(ctx context.Context, uri string, _ map[string]string) (*mcp.ResourceContent, error) {
		list, err := await(ctx, tasks.GetTasks(ctx, filter))
		if err != nil {
			return nil, err
		}

		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return nil, err
		}

		return &mcp.ResourceContent{
			URI:      uri,
			MimeType: "application/json",
			Text:     string(data),
		}, nil
	}
}
