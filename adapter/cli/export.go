package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/security"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/caldav"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Export and import formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatICS  = "ics"
)

// formatFor picks the format from the flag, then from the file name.
func formatFor(flag, path string) (string, error) {
	format := strings.ToLower(flag)
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = FormatYAML
		case ".ics", ".ical":
			format = FormatICS
		default:
			format = FormatJSON
		}
	}
	switch format {
	case FormatJSON, FormatYAML, FormatICS:
		return format, nil
	case "yml":
		return FormatYAML, nil
	case "ical":
		return FormatICS, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: json, yaml, ics)", flag)
	}
}

// WriteTasks encodes tasks in format.
func WriteTasks(w io.Writer, format string, tasks []queries.TaskDTO) error {
	if tasks == nil {
		tasks = []queries.TaskDTO{}
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatICS:
		return caldav.EncodeCalendar(tasks, w)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}
}

func newExportCmd(app *App) *cobra.Command {
	var (
		format string
		output string
		filter string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks as JSON, YAML or iCalendar",
		Long: `Export tasks to stdout or a file.

The ics format writes VTODO entries that calendar and reminder apps
can import.

Examples:
  todo export                           # JSON to stdout
  todo export --format yaml -o tasks.yaml
  todo export --filter active -o todo.ics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatFor(format, output)
			if err != nil {
				return err
			}
			f, err := task.ParseFilter(filter)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			tasks, err := Await(ctx, app.Tasks.GetTasks(ctx, f))
			if err != nil {
				return err
			}

			if output == "" {
				return WriteTasks(cmd.OutOrStdout(), format, tasks)
			}
			file, err := security.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := WriteTasks(file, format, tasks); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			Success(cmd.ErrOrStderr(), "Exported %d tasks to %s", len(tasks), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: json, yaml or ics (default from file name, else json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&filter, "filter", "all", "which tasks: all, active or completed")
	return cmd
}
