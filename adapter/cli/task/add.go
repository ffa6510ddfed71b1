package task

import (
	"strings"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/application/commands"
	"github.com/spf13/cobra"
)

func newAddCmd(app *cli.App) *cobra.Command {
	var (
		description string
		completed   bool
		id          string
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Long: `Add a task. A task needs a title or a description.

Examples:
  todo task add "Buy milk"
  todo task add "Write report" -d "Quarterly numbers"
  todo task add -d "Just a note"`,
		Aliases: []string{"new", "create"},
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Tasks.SaveTask(cmd.Context(), commands.SaveTaskCommand{
				TaskID:      id,
				Title:       strings.Join(args, " "),
				Description: description,
				Completed:   completed,
			})
			if err != nil {
				return err
			}

			if result.Created {
				cli.Success(cmd.OutOrStdout(), "Task added: %s", result.TaskID)
			} else {
				cli.Success(cmd.OutOrStdout(), "Task replaced: %s", result.TaskID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().BoolVar(&completed, "completed", false, "add the task as already completed")
	cmd.Flags().StringVar(&id, "id", "", "use this id instead of a generated one")
	return cmd
}
