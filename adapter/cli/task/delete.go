package task

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/spf13/cobra"
)

var errNotConfirmed = errors.New("refusing to delete without --yes")

func newDeleteCmd(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete [task-id]",
		Short:   "Delete a task",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Tasks.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			cli.Success(cmd.OutOrStdout(), "Task deleted: %s", args[0])
			return nil
		},
	}
}

func newClearCompletedCmd(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Tasks.ClearCompletedTasks(cmd.Context())
			if err != nil {
				return err
			}
			cli.Success(cmd.OutOrStdout(), "Cleared %d completed %s", n, plural(n))
			return nil
		},
	}
}

func newDeleteAllCmd(app *cli.App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("%w: this removes all tasks", errNotConfirmed)
			}
			n, err := app.Tasks.DeleteAllTasks(cmd.Context())
			if err != nil {
				return err
			}
			cli.Success(cmd.OutOrStdout(), "Deleted %d %s", n, plural(n))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting all tasks")
	return cmd
}

func plural(n int) string {
	if n == 1 {
		return "task"
	}
	return "tasks"
}
