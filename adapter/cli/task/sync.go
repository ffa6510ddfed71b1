package task

import (
	"errors"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/spf13/cobra"
)

var errSyncDisabled = errors.New("CalDAV sync is not configured, set CALDAV_URL")

func newSyncCmd(app *cli.App) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push tasks to the configured CalDAV calendar",
		Long: `Push tasks to a CalDAV calendar as VTODOs, where calendar and
reminder apps show them.

Configure with CALDAV_URL, CALDAV_USERNAME, CALDAV_PASSWORD and
optionally CALDAV_CALENDAR_PATH and CALDAV_DELETE_MISSING. Deleting
missing tasks only happens with --filter all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Syncer == nil {
				return errSyncDisabled
			}
			f, err := task.ParseFilter(filter)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			tasks, err := cli.Await(ctx, app.Tasks.GetTasks(ctx, f))
			if err != nil {
				return err
			}

			send := app.Syncer.Sync
			if f != task.FilterAll {
				send = app.Syncer.Push
			}
			result, err := send(ctx, tasks)
			if err != nil {
				return err
			}
			cli.Success(cmd.OutOrStdout(), "Synced: %d created, %d updated, %d deleted, %d failed",
				result.Created, result.Updated, result.Deleted, result.Failed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", string(task.FilterAll), "which tasks: all, active or completed")
	return cmd
}
