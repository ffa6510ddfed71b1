// Package persistence stores tasks in PostgreSQL or SQLite.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

const taskColumns = `id, title, description, completed, completed_at, version, created_at, updated_at`

// SQLTaskRepository implements task.Repository on a database.Connection.
// It joins the unit of work carried by ctx.
type SQLTaskRepository struct {
	conn   database.Connection
	driver database.Driver
}

var _ task.Repository = (*SQLTaskRepository)(nil)

// NewSQLTaskRepository creates a task repository on conn.
func NewSQLTaskRepository(conn database.Connection) *SQLTaskRepository {
	return &SQLTaskRepository{conn: conn, driver: conn.Driver()}
}

func (r *SQLTaskRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLTaskRepository) q(query string) string {
	return database.Rebind(r.driver, query)
}

// Save inserts new tasks and updates known ones. Both paths check the
// version so a concurrent writer yields task.ErrOptimisticLocking.
func (r *SQLTaskRepository) Save(ctx context.Context, t *task.Task) error {
	if t.Version() == 0 {
		return r.insert(ctx, t)
	}
	return r.update(ctx, t)
}

func (r *SQLTaskRepository) insert(ctx context.Context, t *task.Task) error {
	res, err := r.exec(ctx).Exec(ctx, r.q(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		t.ID(),
		t.Title(),
		t.Description(),
		t.IsCompleted(),
		r.driver.NullTimeArg(t.CompletedAt()),
		r.driver.TimeArg(t.CreatedAt()),
		r.driver.TimeArg(t.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID(), err)
	}
	if err := expectOneRow(res, t.ID()); err != nil {
		return err
	}
	t.SetVersion(1)
	return nil
}

func (r *SQLTaskRepository) update(ctx context.Context, t *task.Task) error {
	res, err := r.exec(ctx).Exec(ctx, r.q(`
		UPDATE tasks
		SET title = ?, description = ?, completed = ?, completed_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`),
		t.Title(),
		t.Description(),
		t.IsCompleted(),
		r.driver.NullTimeArg(t.CompletedAt()),
		r.driver.TimeArg(t.UpdatedAt()),
		t.ID(),
		t.Version(),
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID(), err)
	}
	if err := expectOneRow(res, t.ID()); err != nil {
		return err
	}
	t.SetVersion(t.Version() + 1)
	return nil
}

func expectOneRow(res database.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("save task %s: %w", id, task.ErrOptimisticLocking)
	}
	return nil
}

// FindByID returns task.ErrTaskNotFound for unknown ids.
func (r *SQLTaskRepository) FindByID(ctx context.Context, id string) (*task.Task, error) {
	row := r.exec(ctx).QueryRow(ctx, r.q(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	t, err := scanTask(row)
	if database.IsNoRows(err) {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task %s: %w", id, err)
	}
	return t, nil
}

// Find returns the tasks matching filter, oldest first.
func (r *SQLTaskRepository) Find(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	where, args := r.where(filter)
	rows, err := r.exec(ctx).Query(ctx, r.q(`SELECT `+taskColumns+` FROM tasks`+where+` ORDER BY created_at, id`), args...)
	if err != nil {
		return nil, fmt.Errorf("find %s tasks: %w", filter, err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s tasks: %w", filter, err)
	}
	return tasks, nil
}

// Delete returns task.ErrTaskNotFound when no row was removed.
func (r *SQLTaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.exec(ctx).Exec(ctx, r.q(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}

// DeleteMatching removes every task matching filter.
func (r *SQLTaskRepository) DeleteMatching(ctx context.Context, filter task.Filter) (int, error) {
	where, args := r.where(filter)
	res, err := r.exec(ctx).Exec(ctx, r.q(`DELETE FROM tasks`+where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s tasks: %w", filter, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *SQLTaskRepository) where(filter task.Filter) (string, []any) {
	switch filter {
	case task.FilterActive:
		return ` WHERE completed = ?`, []any{false}
	case task.FilterCompleted:
		return ` WHERE completed = ?`, []any{true}
	default:
		return "", nil
	}
}

func scanTask(row database.Row) (*task.Task, error) {
	var (
		id, title, description string
		completed              bool
		completedAt            *time.Time
		version                int
		createdAt, updatedAt   time.Time
	)
	err := row.Scan(
		&id,
		&title,
		&description,
		&completed,
		database.ScanNullTime(&completedAt),
		&version,
		database.ScanTime(&createdAt),
		database.ScanTime(&updatedAt),
	)
	if err != nil {
		return nil, err
	}
	return task.Rehydrate(id, title, description, completed, completedAt, createdAt, updatedAt, version), nil
}
