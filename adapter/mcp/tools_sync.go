package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/caldav"
)

type syncInput struct{}

var errSyncDisabled = errors.New("calendar sync requires CALDAV_URL")

func registerSyncTools(srv *mcp.Server, deps ToolDependencies) error {
	srv.Tool("task.sync").
		Description("Push all tasks to the configured CalDAV calendar").
		Handler(syncTool(deps.App))

	return nil
}

func syncTool(app *cli.App) func(context.Context, syncInput) (*caldav.SyncResult, error) {
	return func(ctx context.Context, _ syncInput) (*caldav.SyncResult, error) {
		if app.Syncer == nil {
			return nil, errSyncDisabled
		}
		tasks, err := await(ctx, app.Tasks.GetTasks(ctx, task.FilterAll))
		if err != nil {
			return nil, err
		}
		result, err := app.Syncer.Sync(ctx, tasks)
		if err != nil {
			return nil, cli.Friendly(err)
		}
		return result, nil
	}
}
