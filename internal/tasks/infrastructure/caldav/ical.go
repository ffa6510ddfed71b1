package caldav

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
)

// PropManaged marks VTODOs written by this service.
const PropManaged = "X-TODO-MANAGED"

const productID = "-//todo//Task Sync//EN"

const (
	statusCompleted   = "COMPLETED"
	statusNeedsAction = "NEEDS-ACTION"
)

// RemoteTask is a VTODO read from a calendar or an iCalendar file.
type RemoteTask struct {
	UID         string
	Path        string
	Summary     string
	Description string
	Completed   bool
	CompletedAt *time.Time
	Managed     bool
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

func toComponent(t queries.TaskDTO, now time.Time) *ical.Component {
	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, t.ID)
	todo.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	todo.Props.SetDateTime(ical.PropCreated, t.CreatedAt.UTC())
	todo.Props.SetDateTime(ical.PropLastModified, t.UpdatedAt.UTC())
	todo.Props.SetText(ical.PropSummary, t.TitleForList())
	if t.Description != "" {
		todo.Props.SetText(ical.PropDescription, t.Description)
	}

	if t.Completed {
		todo.Props.SetText(ical.PropStatus, statusCompleted)
		percent := ical.NewProp(ical.PropPercentComplete)
		percent.Value = "100"
		todo.Props.Set(percent)
		if t.CompletedAt != nil {
			todo.Props.SetDateTime(ical.PropCompleted, t.CompletedAt.UTC())
		}
	} else {
		todo.Props.SetText(ical.PropStatus, statusNeedsAction)
	}

	managed := ical.NewProp(PropManaged)
	managed.Value = "1"
	todo.Props.Set(managed)
	return todo
}

// toICalendar wraps one task in its own calendar, the unit CalDAV stores.
func toICalendar(t queries.TaskDTO) *ical.Calendar {
	cal := newCalendar()
	cal.Children = append(cal.Children, toComponent(t, time.Now()))
	return cal
}

// EncodeCalendar writes tasks as one iCalendar document of VTODOs.
func EncodeCalendar(tasks []queries.TaskDTO, w io.Writer) error {
	cal := newCalendar()
	now := time.Now()
	for _, t := range tasks {
		cal.Children = append(cal.Children, toComponent(t, now))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

// DecodeCalendar reads every VTODO from one or more iCalendar documents.
func DecodeCalendar(r io.Reader) ([]RemoteTask, error) {
	dec := ical.NewDecoder(r)
	var tasks []RemoteTask
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return tasks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}
		tasks = append(tasks, todosOf(cal, "")...)
	}
}

func todosOf(cal *ical.Calendar, path string) []RemoteTask {
	if cal == nil {
		return nil
	}
	var tasks []RemoteTask
	for _, child := range cal.Children {
		if child.Name != ical.CompToDo {
			continue
		}
		tasks = append(tasks, parseToDo(child, path))
	}
	return tasks
}

func parseToDo(c *ical.Component, path string) RemoteTask {
	rt := RemoteTask{
		Path:    path,
		UID:     text(c, ical.PropUID),
		Summary: text(c, ical.PropSummary),
		Managed: isManaged(c),
	}
	rt.Description = text(c, ical.PropDescription)
	rt.Completed = strings.EqualFold(text(c, ical.PropStatus), statusCompleted)

	if prop := c.Props.Get(ical.PropCompleted); prop != nil {
		if at, err := prop.DateTime(time.UTC); err == nil {
			at = at.UTC()
			rt.CompletedAt = &at
			rt.Completed = true
		}
	}
	return rt
}

func text(c *ical.Component, name string) string {
	prop := c.Props.Get(name)
	if prop == nil {
		return ""
	}
	if v, err := prop.Text(); err == nil {
		return v
	}
	return prop.Value
}

func isManaged(c *ical.Component) bool {
	return text(c, PropManaged) == "1"
}
