package task

import (
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/domain"
)

const (
	AggregateType = "Task"

	RoutingKeyCreated   = "todo.task.created"
	RoutingKeyUpdated   = "todo.task.updated"
	RoutingKeyCompleted = "todo.task.completed"
	RoutingKeyActivated = "todo.task.activated"
	RoutingKeyDeleted   = "todo.task.deleted"
)

// RoutingKeys lists every task event, for consumers that react to any change.
func RoutingKeys() []string {
	return []string{
		RoutingKeyCreated,
		RoutingKeyUpdated,
		RoutingKeyCompleted,
		RoutingKeyActivated,
		RoutingKeyDeleted,
	}
}

// TaskCreated is emitted when a new task is created.
type TaskCreated struct {
	domain.BaseEvent
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewTaskCreated creates a TaskCreated event.
func NewTaskCreated(taskID, title, description string) *TaskCreated {
	return &TaskCreated{
		BaseEvent:   domain.NewBaseEvent(taskID, AggregateType, RoutingKeyCreated),
		Title:       title,
		Description: description,
	}
}

// TaskUpdated is emitted when title or description change.
type TaskUpdated struct {
	domain.BaseEvent
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewTaskUpdated creates a TaskUpdated event.
func NewTaskUpdated(taskID, title, description string) *TaskUpdated {
	return &TaskUpdated{
		BaseEvent:   domain.NewBaseEvent(taskID, AggregateType, RoutingKeyUpdated),
		Title:       title,
		Description: description,
	}
}

// TaskCompleted is emitted when a task is completed.
type TaskCompleted struct {
	domain.BaseEvent
	CompletedAt time.Time `json:"completed_at"`
}

// NewTaskCompleted creates a TaskCompleted event.
func NewTaskCompleted(taskID string, completedAt time.Time) *TaskCompleted {
	return &TaskCompleted{
		BaseEvent:   domain.NewBaseEvent(taskID, AggregateType, RoutingKeyCompleted),
		CompletedAt: completedAt,
	}
}

// TaskActivated is emitted when a completed task is reopened.
type TaskActivated struct {
	domain.BaseEvent
}

// NewTaskActivated creates a TaskActivated event.
func NewTaskActivated(taskID string) *TaskActivated {
	return &TaskActivated{
		BaseEvent: domain.NewBaseEvent(taskID, AggregateType, RoutingKeyActivated),
	}
}

// TaskDeleted is emitted when a task is removed.
type TaskDeleted struct {
	domain.BaseEvent
	WasCompleted bool `json:"was_completed"`
}

// NewTaskDeleted creates a TaskDeleted event.
func NewTaskDeleted(taskID string, wasCompleted bool) *TaskDeleted {
	return &TaskDeleted{
		BaseEvent:    domain.NewBaseEvent(taskID, AggregateType, RoutingKeyDeleted),
		WasCompleted: wasCompleted,
	}
}
