package cli

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/todo/internal/tasks/application"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/caldav"
)

// Syncer pushes tasks to a remote calendar. Sync takes the full task
// list and may prune the calendar; Push takes any subset and only upserts.
type Syncer interface {
	Sync(ctx context.Context, tasks []queries.TaskDTO) (*caldav.SyncResult, error)
	Push(ctx context.Context, tasks []queries.TaskDTO) (*caldav.SyncResult, error)
}

// App holds the CLI application dependencies. Commands receive it when
// they are built; there is no package-level instance.
type App struct {
	Tasks  application.TaskService
	Syncer Syncer
	Logger *slog.Logger
	// LogLevel, when set, is lowered to debug by --verbose.
	LogLevel *slog.LevelVar
}

// NewApp creates a CLI application over tasks.
func NewApp(tasks application.TaskService, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{Tasks: tasks, Logger: logger}
}

// WithSyncer enables `task sync`.
func (a *App) WithSyncer(s Syncer) *App {
	a.Syncer = s
	return a
}
