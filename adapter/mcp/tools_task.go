package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/todo/adapter/cli"
	"github.com/felixgeelhaar/todo/internal/tasks/application"
	"github.com/felixgeelhaar/todo/internal/tasks/application/commands"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

type taskListInput struct {
	Filter string `json:"filter,omitempty"`
}

type taskSaveInput struct {
	TaskID      string `json:"task_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed,omitempty"`
}

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"required"`
}

type confirmInput struct {
	Confirm bool `json:"confirm" jsonschema:"required"`
}

type taskListOutput struct {
	Filter string            `json:"filter"`
	Count  int               `json:"count"`
	Tasks  []queries.TaskDTO `json:"tasks"`
}

type taskSaveOutput struct {
	TaskID  string `json:"task_id"`
	Created bool   `json:"created"`
}

type deletedOutput struct {
	Deleted int `json:"deleted"`
}

// taskTools implements the task.* tools over a TaskService.
type taskTools struct {
	tasks application.TaskService
}

func (t taskTools) list(ctx context.Context, input taskListInput) (*taskListOutput, error) {
	filter, err := task.ParseFilter(input.Filter)
	if err != nil {
		return nil, cli.Friendly(err)
	}
	tasks, err := await(ctx, t.tasks.GetTasks(ctx, filter))
	if err != nil {
		return nil, err
	}
	return &taskListOutput{Filter: filter.String(), Count: len(tasks), Tasks: tasks}, nil
}

func (t taskTools) get(ctx context.Context, input taskIDInput) (*queries.TaskDTO, error) {
	id, err := requireID(input.TaskID)
	if err != nil {
		return nil, err
	}
	tasks, err := await(ctx, t.tasks.GetTask(ctx, id))
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, cli.Friendly(fmt.Errorf("%s: %w", id, task.ErrTaskNotFound))
	}
	return &tasks[0], nil
}

func (t taskTools) save(ctx context.Context, input taskSaveInput) (*taskSaveOutput, error) {
	result, err := t.tasks.SaveTask(ctx, commands.SaveTaskCommand{
		TaskID:      input.TaskID,
		Title:       input.Title,
		Description: input.Description,
		Completed:   input.Completed,
	})
	if err != nil {
		return nil, cli.Friendly(err)
	}
	return &taskSaveOutput{TaskID: result.TaskID, Created: result.Created}, nil
}

func (t taskTools) complete(ctx context.Context, input taskIDInput) (map[string]any, error) {
	id, err := requireID(input.TaskID)
	if err != nil {
		return nil, err
	}
	if err := t.tasks.CompleteTask(ctx, id); err != nil {
		return nil, cli.Friendly(err)
	}
	return map[string]any{"task_id": id, "completed": true}, nil
}

func (t taskTools) activate(ctx context.Context, input taskIDInput) (map[string]any, error) {
	id, err := requireID(input.TaskID)
	if err != nil {
		return nil, err
	}
	if err := t.tasks.ActivateTask(ctx, id); err != nil {
		return nil, cli.Friendly(err)
	}
	return map[string]any{"task_id": id, "completed": false}, nil
}

func (t taskTools) delete(ctx context.Context, input taskIDInput) (map[string]any, error) {
	id, err := requireID(input.TaskID)
	if err != nil {
		return nil, err
	}
	if err := t.tasks.DeleteTask(ctx, id); err != nil {
		return nil, cli.Friendly(err)
	}
	return map[string]any{"task_id": id, "deleted": true}, nil
}

func (t taskTools) clearCompleted(ctx context.Context, input confirmInput) (*deletedOutput, error) {
	if !input.Confirm {
		return nil, errConfirmRequired
	}
	n, err := t.tasks.ClearCompletedTasks(ctx)
	if err != nil {
		return nil, cli.Friendly(err)
	}
	return &deletedOutput{Deleted: n}, nil
}

func (t taskTools) deleteAll(ctx context.Context, input confirmInput) (*deletedOutput, error) {
	if !input.Confirm {
		return nil, errConfirmRequired
	}
	n, err := t.tasks.DeleteAllTasks(ctx)
	if err != nil {
		return nil, cli.Friendly(err)
	}
	return &deletedOutput{Deleted: n}, nil
}

var errConfirmRequired = errors.New("set confirm to true to delete tasks")

func registerTaskTools(srv *mcp.Server, deps ToolDependencies) error {
	tools := taskTools{tasks: deps.App.Tasks}

	srv.Tool("task.list").
		Description("List tasks. filter is all (default), active or completed").
		Handler(tools.list)

	srv.Tool("task.get").
		Description("Get one task by id").
		Handler(tools.get)

	srv.Tool("task.save").
		Description("Create a task, or replace the task with task_id. Needs a title or a description").
		Handler(tools.save)

	srv.Tool("task.complete").
		Description("Mark a task as completed").
		Handler(tools.complete)

	srv.Tool("task.activate").
		Description("Mark a completed task as active again").
		Handler(tools.activate)

	srv.Tool("task.delete").
		Description("Delete a task").
		Handler(tools.delete)

	srv.Tool("task.clear_completed").
		Description("Delete every completed task").
		Handler(tools.clearCompleted)

	srv.Tool("task.delete_all").
		Description("Delete every task").
		Handler(tools.deleteAll)

	return nil
}
