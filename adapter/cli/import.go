package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/security"
	"github.com/felixgeelhaar/todo/internal/tasks/application/commands"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/caldav"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ReadTasks decodes a document written by WriteTasks, or any iCalendar
// file with VTODOs, into save commands. Ids are kept so that importing
// twice replaces instead of duplicating.
func ReadTasks(r io.Reader, format string) ([]commands.SaveTaskCommand, error) {
	if format == FormatICS {
		remote, err := caldav.DecodeCalendar(r)
		if err != nil {
			return nil, err
		}
		cmds := make([]commands.SaveTaskCommand, len(remote))
		for i, rt := range remote {
			cmds[i] = commands.SaveTaskCommand{
				TaskID:      rt.UID,
				Title:       rt.Summary,
				Description: rt.Description,
				Completed:   rt.Completed,
			}
		}
		return cmds, nil
	}

	var tasks []queries.TaskDTO
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&tasks); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&tasks); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}

	cmds := make([]commands.SaveTaskCommand, len(tasks))
	for i, t := range tasks {
		cmds[i] = commands.SaveTaskCommand{
			TaskID:      t.ID,
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
		}
	}
	return cmds, nil
}

func newImportCmd(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import tasks from JSON, YAML or iCalendar",
		Long: `Import tasks written by "todo export", or VTODOs from any
iCalendar file. Tasks with a known id are replaced.

Examples:
  todo import tasks.json
  todo import reminders.ics
  cat tasks.yaml | todo import --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				in   io.Reader = cmd.InOrStdin()
				path string
			)
			if len(args) == 1 {
				path = args[0]
				file, err := security.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", path, err)
				}
				defer file.Close()
				in = file
			}

			format, err := formatFor(format, path)
			if err != nil {
				return err
			}
			cmds, err := ReadTasks(in, format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			created, replaced, skipped := 0, 0, 0
			for _, c := range cmds {
				result, err := app.Tasks.SaveTask(ctx, c)
				if err != nil {
					app.Logger.WarnContext(ctx, "skipping task", "task_id", c.TaskID, "error", err)
					Warn(cmd.ErrOrStderr(), "Skipped %q: %v", c.Title, Friendly(err))
					skipped++
					continue
				}
				if result.Created {
					created++
				} else {
					replaced++
				}
			}

			Success(cmd.OutOrStdout(), "Imported %d tasks (%d new, %d replaced, %d skipped)", created+replaced, created, replaced, skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: json, yaml or ics (default from file name, else json)")
	return cmd
}
