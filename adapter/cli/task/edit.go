package task

import (
	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/application/commands"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/spf13/cobra"
)

func newEditCmd(app *cli.App) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit [task-id]",
		Short: "Change a task's title or description",
		Long: `Change a task's title or description. Flags left out keep
their current value; pass an empty string to clear one.

Examples:
  todo task edit 550e8400 --title "Buy oat milk"
  todo task edit 550e8400 --description ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tasks, err := cli.Await(ctx, app.Tasks.GetTask(ctx, args[0]))
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				return task.ErrTaskNotFound
			}
			current := tasks[0]

			save := commands.SaveTaskCommand{
				TaskID:      current.ID,
				Title:       current.Title,
				Description: current.Description,
				Completed:   current.Completed,
			}
			if cmd.Flags().Changed("title") {
				save.Title = title
			}
			if cmd.Flags().Changed("description") {
				save.Description = description
			}

			if _, err := app.Tasks.SaveTask(ctx, save); err != nil {
				return err
			}
			cli.Success(cmd.OutOrStdout(), "Task updated: %s", current.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}
