// Package task holds the `todo task` commands.
package task

import (
	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/spf13/cobra"
)

// NewCmd builds the task command group on app.
func NewCmd(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  `Add, list, complete, and delete your tasks.`,
	}

	cmd.AddCommand(
		newAddCmd(app),
		newEditCmd(app),
		newListCmd(app),
		newShowCmd(app),
		newCompleteCmd(app),
		newActivateCmd(app),
		newDeleteCmd(app),
		newClearCompletedCmd(app),
		newDeleteAllCmd(app),
		newWatchCmd(app),
		newSyncCmd(app),
	)
	return cmd
}
