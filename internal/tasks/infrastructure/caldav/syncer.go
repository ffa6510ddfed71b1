// Package caldav pushes tasks to a CalDAV collection as VTODOs and
// reads them back. Servers such as Nextcloud, Fastmail and iCloud show
// them in their reminders or tasks apps.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/pkg/observability"
)

// ErrNoCalendar is returned when the account has no collection to use.
var ErrNoCalendar = errors.New("no calendars found")

// SyncResult counts what a Sync changed remotely.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Syncer writes tasks into a CalDAV calendar.
type Syncer struct {
	baseURL       string
	username      string
	password      string
	calendarPath  string
	deleteMissing bool
	httpClient    *http.Client
	logger        *slog.Logger
	metrics       observability.Metrics
}

// NewSyncer creates a syncer that authenticates with basic auth. Use an
// app-specific password for iCloud.
func NewSyncer(baseURL, username, password string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		metrics:    observability.NoopMetrics{},
	}
}

// WithDeleteMissing removes managed VTODOs whose task no longer exists.
func (s *Syncer) WithDeleteMissing(enabled bool) *Syncer {
	s.deleteMissing = enabled
	return s
}

// WithCalendarPath pins the collection instead of using the first one.
func (s *Syncer) WithCalendarPath(path string) *Syncer {
	s.calendarPath = path
	return s
}

// WithHTTPClient replaces the default client.
func (s *Syncer) WithHTTPClient(c *http.Client) *Syncer {
	s.httpClient = c
	return s
}

func (s *Syncer) WithMetrics(m observability.Metrics) *Syncer {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Sync upserts one VTODO per task. tasks must be every task: with
// delete-missing enabled, managed VTODOs of other ids are removed.
// Individual failures are counted and logged; only failing to reach the
// calendar aborts.
func (s *Syncer) Sync(ctx context.Context, tasks []queries.TaskDTO) (*SyncResult, error) {
	return s.sync(ctx, tasks, s.deleteMissing)
}

// Push upserts one VTODO per task and never deletes, so tasks may be a
// filtered subset.
func (s *Syncer) Push(ctx context.Context, tasks []queries.TaskDTO) (*SyncResult, error) {
	return s.sync(ctx, tasks, false)
}

func (s *Syncer) sync(ctx context.Context, tasks []queries.TaskDTO, prune bool) (*SyncResult, error) {
	client, err := s.client()
	if err != nil {
		return nil, err
	}
	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	keep := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		path := objectPath(calPath, t.ID)
		keep[path] = struct{}{}

		updated, err := s.upsert(ctx, client, path, t)
		if err != nil {
			s.logger.WarnContext(ctx, "caldav push failed", "task_id", t.ID, "path", path, "error", err)
			result.Failed++
			continue
		}
		if updated {
			result.Updated++
		} else {
			result.Created++
		}
	}
	s.metrics.Counter(observability.MetricCalDAVPushed, int64(result.Created+result.Updated))

	if prune {
		deleted, err := s.deleteMissingTasks(ctx, client, calPath, keep)
		if err != nil {
			return result, fmt.Errorf("delete missing todos: %w", err)
		}
		result.Deleted = deleted
	}

	s.logger.InfoContext(ctx, "caldav sync finished",
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"failed", result.Failed,
	)
	return result, nil
}

// ListTasks returns the VTODOs in the calendar, optionally only the
// ones this service manages.
func (s *Syncer) ListTasks(ctx context.Context, onlyManaged bool) ([]RemoteTask, error) {
	client, err := s.client()
	if err != nil {
		return nil, err
	}
	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return nil, err
	}

	objects, err := client.QueryCalendar(ctx, calPath, todoQuery(
		ical.PropUID, ical.PropSummary, ical.PropDescription, ical.PropStatus, ical.PropCompleted, PropManaged,
	))
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var tasks []RemoteTask
	for _, obj := range objects {
		for _, rt := range todosOf(obj.Data, obj.Path) {
			if onlyManaged && !rt.Managed {
				continue
			}
			tasks = append(tasks, rt)
		}
	}
	s.metrics.Counter(observability.MetricCalDAVPulled, int64(len(tasks)))
	return tasks, nil
}

// DeleteTask removes the VTODO of one task.
func (s *Syncer) DeleteTask(ctx context.Context, id string) error {
	client, err := s.client()
	if err != nil {
		return err
	}
	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return err
	}
	if err := client.RemoveAll(ctx, objectPath(calPath, id)); err != nil {
		return fmt.Errorf("remove todo %s: %w", id, err)
	}
	return nil
}

func (s *Syncer) client() (*caldav.Client, error) {
	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(s.httpClient, s.username, s.password), s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}
	return client, nil
}

func (s *Syncer) findCalendarPath(ctx context.Context, client *caldav.Client) (string, error) {
	if s.calendarPath != "" {
		return s.calendarPath, nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find calendar home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}

	// Prefer a collection that accepts VTODOs.
	for _, cal := range cals {
		for _, comp := range cal.SupportedComponentSet {
			if comp == ical.CompToDo {
				return cal.Path, nil
			}
		}
	}
	if len(cals) == 0 {
		return "", ErrNoCalendar
	}
	return cals[0].Path, nil
}

func (s *Syncer) upsert(ctx context.Context, client *caldav.Client, path string, t queries.TaskDTO) (bool, error) {
	_, err := client.GetCalendarObject(ctx, path)
	exists := err == nil

	if _, err := client.PutCalendarObject(ctx, path, toICalendar(t)); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Syncer) deleteMissingTasks(ctx context.Context, client *caldav.Client, calPath string, keep map[string]struct{}) (int, error) {
	objects, err := client.QueryCalendar(ctx, calPath, todoQuery(ical.PropUID, PropManaged))
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, obj := range objects {
		if _, ok := keep[obj.Path]; ok {
			continue
		}
		managed := false
		for _, rt := range todosOf(obj.Data, obj.Path) {
			managed = managed || rt.Managed
		}
		if !managed {
			continue
		}
		if err := client.RemoveAll(ctx, obj.Path); err != nil {
			s.logger.WarnContext(ctx, "failed to delete caldav todo", "path", obj.Path, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

func todoQuery(props ...string) *caldav.CalendarQuery {
	return &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Props: []string{ical.PropVersion},
			Comps: []caldav.CalendarCompRequest{
				{Name: ical.CompToDo, Props: props},
			},
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompToDo}},
		},
	}
}

func objectPath(calPath, id string) string {
	if calPath != "" && calPath[len(calPath)-1] != '/' {
		calPath += "/"
	}
	return calPath + id + ".ics"
}
