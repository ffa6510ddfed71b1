package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

const messageColumns = `id, CAST(event_id AS TEXT), aggregate_type, aggregate_id, routing_key, payload,
	created_at, published_at, next_retry_at, retry_count, last_error, dead_lettered_at, dead_letter_reason`

// SQLRepository implements Repository for both PostgreSQL and SQLite.
type SQLRepository struct {
	conn   database.Connection
	driver database.Driver
}

// NewSQLRepository creates an outbox repository on conn.
func NewSQLRepository(conn database.Connection) *SQLRepository {
	return &SQLRepository{conn: conn, driver: conn.Driver()}
}

func (r *SQLRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLRepository) q(query string) string {
	return database.Rebind(r.driver, query)
}

func (r *SQLRepository) Save(ctx context.Context, msg *Message) error {
	err := r.exec(ctx).QueryRow(ctx, r.q(`
		INSERT INTO outbox (event_id, aggregate_type, aggregate_id, routing_key, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		msg.EventID.String(),
		msg.AggregateType,
		msg.AggregateID,
		msg.RoutingKey,
		string(msg.Payload),
		r.driver.TimeArg(msg.CreatedAt),
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert outbox message %s: %w", msg.EventID, err)
	}
	return nil
}

// SaveBatch inserts msgs in the transaction from ctx, or in its own
// transaction when there is none.
func (r *SQLRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}

	return application.WithUnitOfWork(ctx, database.NewUnitOfWork(r.conn), func(txCtx context.Context) error {
		for _, msg := range msgs {
			if err := r.Save(txCtx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at, id
		LIMIT ?`,
		r.driver.TimeArg(time.Now()), limit,
	)
}

func (r *SQLRepository) MarkPublished(ctx context.Context, id int64) error {
	return r.update(ctx, id, `
		UPDATE outbox SET published_at = ?, next_retry_at = NULL
		WHERE id = ?`,
		r.driver.TimeArg(time.Now()), id,
	)
}

func (r *SQLRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	return r.update(ctx, id, `
		UPDATE outbox SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ?
		WHERE id = ?`,
		errMsg, r.driver.TimeArg(nextRetryAt), id,
	)
}

func (r *SQLRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	return r.update(ctx, id, `
		UPDATE outbox SET dead_lettered_at = ?, dead_letter_reason = ?, last_error = ?,
			retry_count = retry_count + 1, next_retry_at = NULL
		WHERE id = ?`,
		r.driver.TimeArg(time.Now()), reason, reason, id,
	)
}

func (r *SQLRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.exec(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL AND dead_lettered_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending outbox messages: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) DeleteOld(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.exec(ctx).Exec(ctx, r.q(`
		DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < ?`),
		r.driver.TimeArg(before),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old outbox messages: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLRepository) GetAfter(ctx context.Context, afterID int64, limit int) ([]*Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM outbox
		WHERE id > ?
		ORDER BY id
		LIMIT ?`,
		afterID, limit,
	)
}

func (r *SQLRepository) LastID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.exec(ctx).QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM outbox`).Scan(&id); err != nil {
		return 0, fmt.Errorf("read last outbox id: %w", err)
	}
	return id, nil
}

func (r *SQLRepository) update(ctx context.Context, id int64, query string, args ...any) error {
	res, err := r.exec(ctx).Exec(ctx, r.q(query), args...)
	if err != nil {
		return fmt.Errorf("update outbox message %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("outbox message %d not found", id)
	}
	return nil
}

func (r *SQLRepository) list(ctx context.Context, query string, args ...any) ([]*Message, error) {
	rows, err := r.exec(ctx).Query(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return msgs, nil
}

func scanMessage(row database.Row) (*Message, error) {
	var (
		msg     Message
		eventID string
		payload []byte
	)
	err := row.Scan(
		&msg.ID,
		&eventID,
		&msg.AggregateType,
		&msg.AggregateID,
		&msg.RoutingKey,
		&payload,
		database.ScanTime(&msg.CreatedAt),
		database.ScanNullTime(&msg.PublishedAt),
		database.ScanNullTime(&msg.NextRetryAt),
		&msg.RetryCount,
		&msg.LastError,
		database.ScanNullTime(&msg.DeadLetteredAt),
		&msg.DeadLetterReason,
	)
	if err != nil {
		return nil, fmt.Errorf("scan outbox message: %w", err)
	}
	if msg.EventID, err = uuid.Parse(eventID); err != nil {
		return nil, fmt.Errorf("scan outbox message %d: %w", msg.ID, err)
	}
	msg.Payload = payload
	return &msg, nil
}
