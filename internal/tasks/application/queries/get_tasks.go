package queries

import (
	"context"
	"sort"

	"github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// GetTasksQuery lists tasks matching Filter.
type GetTasksQuery struct {
	Filter task.Filter
}

func (GetTasksQuery) QueryName() string { return "task.list" }

// GetTasksHandler handles the GetTasksQuery.
type GetTasksHandler struct {
	taskRepo task.Repository
}

var _ application.QueryHandler[GetTasksQuery, []TaskDTO] = (*GetTasksHandler)(nil)

// NewGetTasksHandler creates a new GetTasksHandler.
func NewGetTasksHandler(taskRepo task.Repository) *GetTasksHandler {
	return &GetTasksHandler{taskRepo: taskRepo}
}

// Handle returns the matching tasks, oldest first.
func (h *GetTasksHandler) Handle(ctx context.Context, query GetTasksQuery) ([]TaskDTO, error) {
	filter := query.Filter
	if filter == "" {
		filter = task.FilterAll
	}

	tasks, err := h.taskRepo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		if filter.Matches(t) {
			dtos = append(dtos, NewTaskDTO(t))
		}
	}
	sort.SliceStable(dtos, func(i, j int) bool {
		return dtos[i].CreatedAt.Before(dtos[j].CreatedAt)
	})

	return dtos, nil
}
