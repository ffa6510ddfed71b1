package task

import (
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/domain"
)

var (
	ErrEmptyTask         = errors.New("task needs a title or a description")
	ErrTaskNotFound      = errors.New("task not found")
	ErrOptimisticLocking = errors.New("task was modified concurrently")
)

// Task is a single to-do item.
type Task struct {
	domain.BaseAggregateRoot
	title       string
	description string
	completed   bool
	completedAt *time.Time
}

// NewTask creates an active task with a generated id.
func NewTask(title, description string) (*Task, error) {
	return newTask(domain.NewBaseAggregateRoot(), title, description)
}

// NewTaskWithID creates an active task with a caller supplied id.
func NewTaskWithID(id, title, description string) (*Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return NewTask(title, description)
	}
	return newTask(domain.NewBaseAggregateRootWithID(id), title, description)
}

func newTask(root domain.BaseAggregateRoot, title, description string) (*Task, error) {
	title, description, err := normalize(title, description)
	if err != nil {
		return nil, err
	}

	t := &Task{
		BaseAggregateRoot: root,
		title:             title,
		description:       description,
	}
	t.AddDomainEvent(NewTaskCreated(t.ID(), t.title, t.description))
	return t, nil
}

// Rehydrate rebuilds a task from storage without recording events.
func Rehydrate(
	id, title, description string,
	completed bool,
	completedAt *time.Time,
	createdAt, updatedAt time.Time,
	version int,
) *Task {
	if completedAt != nil {
		at := completedAt.UTC()
		completedAt = &at
	}
	return &Task{
		BaseAggregateRoot: domain.RehydrateBaseAggregateRoot(
			domain.RehydrateBaseEntity(id, createdAt, updatedAt), version,
		),
		title:       title,
		description: description,
		completed:   completed,
		completedAt: completedAt,
	}
}

func (t *Task) Title() string           { return t.title }
func (t *Task) Description() string     { return t.description }
func (t *Task) IsCompleted() bool       { return t.completed }
func (t *Task) IsActive() bool          { return !t.completed }
func (t *Task) CompletedAt() *time.Time { return t.completedAt }

// TitleForList is the title, or the description for untitled tasks.
func (t *Task) TitleForList() string {
	if t.title != "" {
		return t.title
	}
	return t.description
}

// Update replaces title and description.
func (t *Task) Update(title, description string) error {
	title, description, err := normalize(title, description)
	if err != nil {
		return err
	}
	if title == t.title && description == t.description {
		return nil
	}

	t.title = title
	t.description = description
	t.Touch()
	t.AddDomainEvent(NewTaskUpdated(t.ID(), t.title, t.description))
	return nil
}

// Complete marks the task done. Completing a completed task is a no-op.
func (t *Task) Complete() {
	if t.completed {
		return
	}
	now := time.Now().UTC()
	t.completed = true
	t.completedAt = &now
	t.Touch()
	t.AddDomainEvent(NewTaskCompleted(t.ID(), now))
}

// Activate reopens the task. Activating an active task is a no-op.
func (t *Task) Activate() {
	if !t.completed {
		return
	}
	t.completed = false
	t.completedAt = nil
	t.Touch()
	t.AddDomainEvent(NewTaskActivated(t.ID()))
}

// SetCompleted completes or activates the task.
func (t *Task) SetCompleted(completed bool) {
	if completed {
		t.Complete()
		return
	}
	t.Activate()
}

// MarkDeleted records the deletion. The repository removes the row.
func (t *Task) MarkDeleted() {
	t.AddDomainEvent(NewTaskDeleted(t.ID(), t.completed))
}

func normalize(title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" && description == "" {
		return "", "", ErrEmptyTask
	}
	return title, description, nil
}
