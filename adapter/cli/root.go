// Package cli is the command-line front end of the task service.
package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/todo/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type commandContext struct {
	correlationID string
	startedAt     time.Time
}

type commandContextKey struct{}

// NewRootCmd builds the todo command tree without the task group, which
// lives in its own package and is added by the caller.
func NewRootCmd(app *App) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "todo",
		Short: "todo - a small task list",
		Long: `todo keeps a list of tasks in SQLite or PostgreSQL.

Tasks are either active or completed. Changes are published as events
so other processes (the API, the MCP server, watchers) stay current.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose && app.LogLevel != nil {
				app.LogLevel.Set(slog.LevelDebug)
			}
			info := commandContext{
				correlationID: uuid.NewString(),
				startedAt:     time.Now(),
			}
			ctx := observability.WithCorrelationID(cmd.Context(), info.correlationID)
			ctx = observability.WithActor(ctx, "cli")
			cmd.SetContext(context.WithValue(ctx, commandContextKey{}, info))
			app.Logger.DebugContext(ctx, "command start", "command", cmd.CommandPath())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
			if !ok {
				return
			}
			app.Logger.DebugContext(cmd.Context(), "command end",
				"command", cmd.CommandPath(),
				"duration_ms", time.Since(info.startedAt).Milliseconds(),
			)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newExportCmd(app))
	root.AddCommand(newImportCmd(app))
	return root
}

// Execute runs root with ctx and maps domain errors to readable messages.
func Execute(ctx context.Context, root *cobra.Command) error {
	root.SilenceErrors = true
	if err := root.ExecuteContext(ctx); err != nil {
		return Friendly(err)
	}
	return nil
}
