package task

import (
	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/spf13/cobra"
)

func newShowCmd(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:     "show [task-id]",
		Short:   "Show one task",
		Aliases: []string{"get"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tasks, err := cli.Await(ctx, app.Tasks.GetTask(ctx, args[0]))
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				return task.ErrTaskNotFound
			}
			cli.RenderTask(cmd.OutOrStdout(), tasks[0])
			return nil
		},
	}
}
