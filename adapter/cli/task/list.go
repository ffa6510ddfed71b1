package task

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/spf13/cobra"
)

func filterTitle(f task.Filter) string {
	switch f {
	case task.FilterActive:
		return "Active tasks"
	case task.FilterCompleted:
		return "Completed tasks"
	default:
		return "Tasks"
	}
}

func newListCmd(app *cli.App) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks, oldest first.

Examples:
  todo task list
  todo task list --filter active
  todo task list -f completed`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := task.ParseFilter(filter)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			tasks, err := cli.Await(ctx, app.Tasks.GetTasks(ctx, f))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found.")
				return nil
			}
			cli.RenderTasks(out, filterTitle(f), tasks)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", string(task.FilterAll),
		"which tasks: "+strings.Join(filterNames(), ", "))
	return cmd
}

func filterNames() []string {
	filters := task.Filters()
	names := make([]string, len(filters))
	for i, f := range filters {
		names[i] = f.String()
	}
	return names
}
