package task

import (
	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/spf13/cobra"
)

func newCompleteCmd(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete [task-id]",
		Short: "Mark a task as completed",
		Long: `Mark a task as completed by its ID. Completing a completed task
does nothing.

Examples:
  todo task complete 550e8400-e29b-41d4-a716-446655440000`,
		Aliases: []string{"done"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Tasks.CompleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			cli.Success(cmd.OutOrStdout(), "Task completed: %s", args[0])
			return nil
		},
	}
}

func newActivateCmd(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:     "activate [task-id]",
		Short:   "Mark a completed task as active again",
		Aliases: []string{"reopen", "undo"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Tasks.ActivateTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			cli.Success(cmd.OutOrStdout(), "Task activated: %s", args[0])
			return nil
		},
	}
}
