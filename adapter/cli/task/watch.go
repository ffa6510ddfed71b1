package task

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *cli.App) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the task list again whenever it changes",
		Long: `Print the task list, then again after every change made by
this or any other process. Stop with Ctrl-C.

Examples:
  todo task watch --filter active`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := task.ParseFilter(filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for result := range app.Tasks.Watch(cmd.Context(), f) {
				switch result.State {
				case queries.LoadStateLoaded:
					fmt.Fprintf(out, "\n%s\n", time.Now().Format(time.TimeOnly))
					cli.RenderTasks(out, filterTitle(f), result.Tasks)
				case queries.LoadStateEmpty:
					fmt.Fprintf(out, "\n%s\nNo tasks found.\n", time.Now().Format(time.TimeOnly))
				case queries.LoadStateUnavailable:
					cli.Warn(cmd.ErrOrStderr(), "Tasks unavailable: %v", result.Err)
				case queries.LoadStateReset:
					return nil
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", string(task.FilterAll), "which tasks: all, active or completed")
	return cmd
}
