package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
)

// Styles
var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)
	idStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	keyStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

const shortIDLen = 8

// ShortID trims an id for list output.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// RenderTasks writes one line per task.
func RenderTasks(w io.Writer, title string, tasks []queries.TaskDTO) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%d)", title, len(tasks))))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, t := range tasks {
		fmt.Fprintln(w, taskLine(t))
	}
}

func taskLine(t queries.TaskDTO) string {
	box, style := "[ ]", activeStyle
	if t.Completed {
		box, style = "[x]", completedStyle
	}
	return fmt.Sprintf("%s %s  %s", box, idStyle.Render(ShortID(t.ID)), style.Render(t.TitleForList()))
}

// RenderTask writes every field of t.
func RenderTask(w io.Writer, t queries.TaskDTO) {
	status := "active"
	if t.Completed {
		status = "completed"
	}
	rows := [][2]string{
		{"ID", t.ID},
		{"Title", t.Title},
		{"Description", t.Description},
		{"Status", status},
		{"Created", t.CreatedAt.Local().Format(time.DateTime)},
		{"Updated", t.UpdatedAt.Local().Format(time.DateTime)},
	}
	if t.CompletedAt != nil {
		rows = append(rows, [2]string{"Completed", t.CompletedAt.Local().Format(time.DateTime)})
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", keyStyle.Render(fmt.Sprintf("%-12s", row[0]+":")), row[1])
	}
}

// Success prints a confirmation line.
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a notice line.
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf(format, args...)))
}
