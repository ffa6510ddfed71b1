package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/application/commands"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
	"github.com/felixgeelhaar/todo/internal/tasks/infrastructure/caldav"
)

type mockTasks struct {
	mock.Mock
}

func (m *mockTasks) GetTasks(ctx context.Context, filter task.Filter) <-chan queries.LoadResult {
	return m.Called(ctx, filter).Get(0).(<-chan queries.LoadResult)
}

func (m *mockTasks) GetTask(ctx context.Context, id string) <-chan queries.LoadResult {
	return m.Called(ctx, id).Get(0).(<-chan queries.LoadResult)
}

func (m *mockTasks) Watch(ctx context.Context, filter task.Filter) <-chan queries.LoadResult {
	return m.Called(ctx, filter).Get(0).(<-chan queries.LoadResult)
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

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) Sync(ctx context.Context, tasks []queries.TaskDTO) (*caldav.SyncResult, error) {
	args := m.Called(ctx, tasks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*caldav.SyncResult), args.Error(1)
}

func (m *mockSyncer) Push(ctx context.Context, tasks []queries.TaskDTO) (*caldav.SyncResult, error) {
	args := m.Called(ctx, tasks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*caldav.SyncResult), args.Error(1)
}

func deliver(result queries.LoadResult) <-chan queries.LoadResult {
	ch := make(chan queries.LoadResult, 1)
	ch <- result
	close(ch)
	return ch
}

func TestRegisterCLITools_ListTools(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "test",
		Version: "1.0.0",
		Capabilities: mcp.Capabilities{
			Tools: true,
		},
	})

	app := cli.NewApp(&mockTasks{}, nil)
	require.NoError(t, RegisterCLITools(srv, ToolDependencies{App: app}))

	tc := testutil.NewTestClient(t, srv)
	defer tc.Close()

	tools, err := tc.ListTools()
	require.NoError(t, err)

	names := make(map[any]bool, len(tools))
	for _, tool := range tools {
		names[tool["name"]] = true
	}
	for _, want := range []string{
		"task.list", "task.get", "task.save", "task.complete", "task.activate",
		"task.delete", "task.clear_completed", "task.delete_all", "task.sync",
	} {
		assert.True(t, names[want], "%s should be registered", want)
	}
}

func TestRegisterCLITools_RequiresApp(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{Name: "test", Version: "1.0.0"})

	assert.Error(t, RegisterCLITools(nil, ToolDependencies{}))
	assert.Error(t, RegisterCLITools(srv, ToolDependencies{}))
	assert.Error(t, RegisterResources(srv, ToolDependencies{App: &cli.App{}}))
}

func TestTaskTools_List(t *testing.T) {
	ctx := context.Background()

	t.Run("loaded", func(t *testing.T) {
		tasks := &mockTasks{}
		tasks.On("GetTasks", ctx, task.FilterActive).
			Return(deliver(queries.Loaded([]queries.TaskDTO{{ID: "t1", Title: "Buy milk"}})))

		out, err := taskTools{tasks: tasks}.list(ctx, taskListInput{Filter: "Active"})
		require.NoError(t, err)
		assert.Equal(t, "active", out.Filter)
		assert.Equal(t, 1, out.Count)
		tasks.AssertExpectations(t)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		tasks := &mockTasks{}
		tasks.On("GetTasks", ctx, task.FilterAll).Return(deliver(queries.Empty()))

		out, err := taskTools{tasks: tasks}.list(ctx, taskListInput{})
		require.NoError(t, err)
		assert.NotNil(t, out.Tasks)
		assert.Zero(t, out.Count)
	})

	t.Run("unknown filter", func(t *testing.T) {
		_, err := taskTools{tasks: &mockTasks{}}.list(ctx, taskListInput{Filter: "later"})
		assert.ErrorIs(t, err, task.ErrUnknownFilter)
	})

	t.Run("unavailable", func(t *testing.T) {
		tasks := &mockTasks{}
		cause := errors.New("database locked")
		tasks.On("GetTasks", ctx, task.FilterAll).Return(deliver(queries.Unavailable(cause)))

		_, err := taskTools{tasks: tasks}.list(ctx, taskListInput{})
		assert.ErrorIs(t, err, cause)
	})
}

func TestTaskTools_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		tasks := &mockTasks{}
		tasks.On("GetTask", ctx, "t1").Return(deliver(queries.Loaded([]queries.TaskDTO{{ID: "t1"}})))

		out, err := taskTools{tasks: tasks}.get(ctx, taskIDInput{TaskID: " t1 "})
		require.NoError(t, err)
		assert.Equal(t, "t1", out.ID)
	})

	t.Run("missing", func(t *testing.T) {
		tasks := &mockTasks{}
		tasks.On("GetTask", ctx, "t1").Return(deliver(queries.Empty()))

		_, err := taskTools{tasks: tasks}.get(ctx, taskIDInput{TaskID: "t1"})
		assert.ErrorIs(t, err, task.ErrTaskNotFound)
	})

	t.Run("id required", func(t *testing.T) {
		_, err := taskTools{tasks: &mockTasks{}}.get(ctx, taskIDInput{})
		assert.EqualError(t, err, "task_id is required")
	})
}

func TestTaskTools_Writes(t *testing.T) {
	ctx := context.Background()

	t.Run("save", func(t *testing.T) {
		tasks := &mockTasks{}
		tasks.On("SaveTask", ctx, commands.SaveTaskCommand{Title: "Buy milk"}).
			Return(&commands.SaveTaskResult{TaskID: "t1", Created: true}, nil)

		out, err := taskTools{tasks: tasks}.save(ctx, taskSaveInput{Title: "Buy milk"})
		require.NoError(t, err)
		assert.Equal(t, &taskSaveOutput{TaskID: "t1", Created: true}, out)
	})

	t.Run("save empty", func(t *testing.T) {
		tasks := &mockTasks{}
		tasks.On("SaveTask", ctx, commands.SaveTaskCommand{}).Return(nil, task.ErrEmptyTask)

		_, err := taskTools{tasks: tasks}.save(ctx, taskSaveInput{})
		assert.ErrorIs(t, err, task.ErrEmptyTask)
	})

	t.Run("complete activate delete", func(t *testing.T) {
		tasks := &mockTasks{}
		tasks.On("CompleteTask", ctx, "t1").Return(nil)
		tasks.On("ActivateTask", ctx, "t1").Return(nil)
		tasks.On("DeleteTask", ctx, "t1").Return(task.ErrTaskNotFound)
		tools := taskTools{tasks: tasks}

		out, err := tools.complete(ctx, taskIDInput{TaskID: "t1"})
		require.NoError(t, err)
		assert.Equal(t, true, out["completed"])

		out, err = tools.activate(ctx, taskIDInput{TaskID: "t1"})
		require.NoError(t, err)
		assert.Equal(t, false, out["completed"])

		_, err = tools.delete(ctx, taskIDInput{TaskID: "t1"})
		assert.ErrorIs(t, err, task.ErrTaskNotFound)
		tasks.AssertExpectations(t)
	})

	t.Run("bulk deletes need confirmation", func(t *testing.T) {
		tasks := &mockTasks{}
		tools := taskTools{tasks: tasks}

		_, err := tools.clearCompleted(ctx, confirmInput{})
		assert.ErrorIs(t, err, errConfirmRequired)
		_, err = tools.deleteAll(ctx, confirmInput{})
		assert.ErrorIs(t, err, errConfirmRequired)
		tasks.AssertNotCalled(t, "ClearCompletedTasks", mock.Anything)
		tasks.AssertNotCalled(t, "DeleteAllTasks", mock.Anything)
	})

	t.Run("bulk deletes", func(t *testing.T) {
		tasks := &mockTasks{}
		tasks.On("ClearCompletedTasks", ctx).Return(2, nil)
		tasks.On("DeleteAllTasks", ctx).Return(3, nil)
		tools := taskTools{tasks: tasks}

		out, err := tools.clearCompleted(ctx, confirmInput{Confirm: true})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Deleted)

		out, err = tools.deleteAll(ctx, confirmInput{Confirm: true})
		require.NoError(t, err)
		assert.Equal(t, 3, out.Deleted)
	})
}

func TestTaskListResource(t *testing.T) {
	ctx := context.Background()
	tasks := &mockTasks{}
	tasks.On("GetTasks", ctx, task.FilterCompleted).
		Return(deliver(queries.Loaded([]queries.TaskDTO{{ID: "t1", Title: "Done", Completed: true}})))

	content, err := taskListResource(tasks, task.FilterCompleted)(ctx, ResourceCompletedTasks, nil)
	require.NoError(t, err)
	assert.Equal(t, ResourceCompletedTasks, content.URI)
	assert.Equal(t, "application/json", content.MimeType)
	assert.Contains(t, content.Text, `"id": "t1"`)
	assert.Contains(t, content.Text, `"completed": true`)
}

func TestSyncTool(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		_, err := syncTool(cli.NewApp(&mockTasks{}, nil))(ctx, syncInput{})
		assert.ErrorIs(t, err, errSyncDisabled)
	})

	t.Run("pushes all tasks", func(t *testing.T) {
		list := []queries.TaskDTO{{ID: "t1", Title: "Buy milk"}}
		tasks := &mockTasks{}
		tasks.On("GetTasks", ctx, task.FilterAll).Return(deliver(queries.Loaded(list)))
		syncer := &mockSyncer{}
		syncer.On("Sync", ctx, list).Return(&caldav.SyncResult{Created: 1}, nil)

		result, err := syncTool(cli.NewApp(tasks, nil).WithSyncer(syncer))(ctx, syncInput{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Created)
		syncer.AssertExpectations(t)
	})
}
