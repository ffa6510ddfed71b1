package outbox

import (
	"context"
	"time"
)

// Repository defines the interface for outbox persistence.
type Repository interface {
	// Save stores a new outbox message. It joins the transaction in ctx.
	Save(ctx context.Context, msg *Message) error

	// SaveBatch stores multiple outbox messages atomically.
	SaveBatch(ctx context.Context, msgs []*Message) error

	// GetUnpublished returns messages due for publishing, oldest first.
	GetUnpublished(ctx context.Context, limit int) ([]*Message, error)

	// MarkPublished marks a message as successfully published.
	MarkPublished(ctx context.Context, id int64) error

	// MarkFailed records a publish failure and schedules the next attempt.
	MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error

	// MarkDead marks a message as dead-lettered.
	MarkDead(ctx context.Context, id int64, reason string) error

	// CountPending counts messages that are neither published nor dead.
	CountPending(ctx context.Context) (int64, error)

	// DeleteOld removes messages published before the cutoff.
	DeleteOld(ctx context.Context, before time.Time) (int64, error)

	// GetAfter returns messages with an id above afterID in id order,
	// whatever their publish state.
	GetAfter(ctx context.Context, afterID int64, limit int) ([]*Message, error)

	// LastID returns the highest message id, or zero for an empty outbox.
	LastID(ctx context.Context) (int64, error)
}
