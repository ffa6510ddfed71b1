package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/todo/internal/tasks/application/commands"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/cache"
	"github.com/felixgeelhaar/todo/pkg/observability"
)

type mockTasks struct {
	mock.Mock
}

func (m *mockTasks) GetTasks(ctx context.Context, filter task.Filter) <-chan queries.LoadResult {
	args := m.Called(ctx, filter)
	return args.Get(0).(<-chan queries.LoadResult)
}

func (m *mockTasks) GetTask(ctx context.Context, id string) <-chan queries.LoadResult {
	args := m.Called(ctx, id)
	return args.Get(0).(<-chan queries.LoadResult)
}

func (m *mockTasks) Watch(ctx context.Context, filter task.Filter) <-chan queries.LoadResult {
	args := m.Called(ctx, filter)
	return args.Get(0).(<-chan queries.LoadResult)
}

func (m *mockTasks) SaveTask(ctx context.Context, cmd commands.SaveTaskCommand) (*commands.SaveTaskResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commands.SaveTaskResult), args.Error(1)
}

func (m *mockTasks) CompleteTask(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTasks) ActivateTask(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTasks) ClearCompletedTasks(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockTasks) DeleteAllTasks(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockTasks) DeleteTask(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func deliver(result queries.LoadResult) <-chan queries.LoadResult {
	ch := make(chan queries.LoadResult, 1)
	ch <- result
	close(ch)
	return ch
}

func newTestServer(t *testing.T, opts ...Option) (*mockTasks, http.Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tasks := &mockTasks{}
	t.Cleanup(func() { tasks.AssertExpectations(t) })
	s := NewServer(DefaultServerConfig(), tasks, nil, opts...)
	return tasks, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleTask(id string) queries.TaskDTO {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return queries.TaskDTO{ID: id, Title: "Buy milk", CreatedAt: now, UpdatedAt: now}
}

func TestServer_Health(t *testing.T) {
	t.Run("static without registry", func(t *testing.T) {
		_, h := newTestServer(t)
		rec := do(t, h, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "healthy")
	})

	t.Run("unhealthy registry answers 503", func(t *testing.T) {
		health := observability.NewHealthRegistry()
		health.Register("database", observability.PingChecker("database", observability.HealthStatusUnhealthy,
			func(context.Context) error { return errors.New("down") }))
		_, h := newTestServer(t, WithHealth(health))

		rec := do(t, h, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "database unreachable")
	})
}

func TestServer_RequestID(t *testing.T) {
	tasks, h := newTestServer(t)
	tasks.On("GetTasks", mock.Anything, task.FilterAll).Return(deliver(queries.Empty()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	ctx := tasks.Calls[0].Arguments.Get(0).(context.Context)
	assert.Equal(t, "req-1", observability.RequestIDFromContext(ctx))
	assert.Equal(t, "api", observability.ActorFromContext(ctx))
}

func TestServer_Metrics(t *testing.T) {
	prom := observability.NewPrometheusMetrics("todo")
	tasks, h := newTestServer(t, WithPrometheus(prom.Registry()))
	tasks.On("GetTasks", mock.Anything, task.FilterAll).Return(deliver(queries.Empty()))

	do(t, h, http.MethodGet, "/api/v1/tasks", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `todo_http_requests_total{method="GET",route="/api/v1/tasks",status="200"} 1`)
}

func TestTaskHandler_List(t *testing.T) {
	t.Run("loaded", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("GetTasks", mock.Anything, task.FilterActive).
			Return(deliver(queries.Loaded([]queries.TaskDTO{sampleTask("t1")})))

		rec := do(t, h, http.MethodGet, "/api/v1/tasks?filter=active", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body TaskListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "loaded", body.State)
		require.Len(t, body.Tasks, 1)
		assert.Equal(t, "t1", body.Tasks[0].ID)
	})

	t.Run("empty still returns a list", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("GetTasks", mock.Anything, task.FilterAll).Return(deliver(queries.Empty()))

		rec := do(t, h, http.MethodGet, "/api/v1/tasks", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"state":"empty","tasks":[]}`, rec.Body.String())
	})

	t.Run("unknown filter", func(t *testing.T) {
		_, h := newTestServer(t)
		rec := do(t, h, http.MethodGet, "/api/v1/tasks?filter=someday", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown_filter")
	})

	t.Run("unavailable", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("GetTasks", mock.Anything, task.FilterAll).
			Return(deliver(queries.Unavailable(errors.New("disk gone"))))

		rec := do(t, h, http.MethodGet, "/api/v1/tasks", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.NotContains(t, rec.Body.String(), "disk gone")
	})
}

func TestTaskHandler_Get(t *testing.T) {
	t.Run("loaded", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("GetTask", mock.Anything, "t1").
			Return(deliver(queries.Loaded([]queries.TaskDTO{sampleTask("t1")})))

		rec := do(t, h, http.MethodGet, "/api/v1/tasks/t1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body queries.TaskDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Buy milk", body.Title)
	})

	t.Run("empty is not found", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("GetTask", mock.Anything, "nope").Return(deliver(queries.Empty()))

		rec := do(t, h, http.MethodGet, "/api/v1/tasks/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reset is unavailable", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("GetTask", mock.Anything, "t1").Return(deliver(queries.Reset()))

		rec := do(t, h, http.MethodGet, "/api/v1/tasks/t1", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestTaskHandler_Save(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("SaveTask", mock.Anything, commands.SaveTaskCommand{Title: "Buy milk"}).
			Return(&commands.SaveTaskResult{TaskID: "t1", Created: true}, nil)

		rec := do(t, h, http.MethodPost, "/api/v1/tasks", `{"title":"Buy milk"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/api/v1/tasks/t1", rec.Header().Get("Location"))
		assert.JSONEq(t, `{"id":"t1","created":true}`, rec.Body.String())
	})

	t.Run("replace takes the id from the path", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("SaveTask", mock.Anything, commands.SaveTaskCommand{TaskID: "t1", Title: "Oat milk", Completed: true}).
			Return(&commands.SaveTaskResult{TaskID: "t1"}, nil)

		rec := do(t, h, http.MethodPut, "/api/v1/tasks/t1", `{"id":"other","title":"Oat milk","completed":true}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty task", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("SaveTask", mock.Anything, commands.SaveTaskCommand{}).Return(nil, task.ErrEmptyTask)

		rec := do(t, h, http.MethodPost, "/api/v1/tasks", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "empty_task")
	})

	t.Run("malformed body", func(t *testing.T) {
		_, h := newTestServer(t)
		rec := do(t, h, http.MethodPost, "/api/v1/tasks", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("concurrent edit", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("SaveTask", mock.Anything, mock.Anything).Return(nil, task.ErrOptimisticLocking)

		rec := do(t, h, http.MethodPut, "/api/v1/tasks/t1", `{"title":"x"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestTaskHandler_StateChanges(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		call   string
		err    error
		want   int
	}{
		{"complete", http.MethodPost, "/api/v1/tasks/t1/complete", "CompleteTask", nil, http.StatusNoContent},
		{"activate", http.MethodPost, "/api/v1/tasks/t1/activate", "ActivateTask", nil, http.StatusNoContent},
		{"delete", http.MethodDelete, "/api/v1/tasks/t1", "DeleteTask", nil, http.StatusNoContent},
		{"complete missing", http.MethodPost, "/api/v1/tasks/t1/complete", "CompleteTask", task.ErrTaskNotFound, http.StatusNotFound},
		{"activate with cache down", http.MethodPost, "/api/v1/tasks/t1/activate", "ActivateTask", cache.ErrCacheUnavailable, http.StatusServiceUnavailable},
		{"delete failure", http.MethodDelete, "/api/v1/tasks/t1", "DeleteTask", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, h := newTestServer(t)
			tasks.On(tt.call, mock.Anything, "t1").Return(tt.err)

			rec := do(t, h, tt.method, tt.path, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestTaskHandler_BulkDeletes(t *testing.T) {
	t.Run("clear completed", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("ClearCompletedTasks", mock.Anything).Return(2, nil)

		rec := do(t, h, http.MethodPost, "/api/v1/tasks/clear-completed", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())
	})

	t.Run("delete all", func(t *testing.T) {
		tasks, h := newTestServer(t)
		tasks.On("DeleteAllTasks", mock.Anything).Return(5, nil)

		rec := do(t, h, http.MethodDelete, "/api/v1/tasks", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"deleted":5}`, rec.Body.String())
	})
}
