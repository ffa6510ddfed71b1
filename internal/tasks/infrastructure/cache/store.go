// Package cache keeps recently read tasks in Redis or in process memory.
// The database stays the source of truth: every cache error is
// recoverable by reading through.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

var (
	// ErrCacheMiss is returned by Get for absent or expired keys.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable is returned while the backing store is failing.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// Store is a byte-oriented key/value cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

const keyPrefix = "todo:"

// TaskKey is the key a single task is cached under.
func TaskKey(id string) string {
	return keyPrefix + "task:" + id
}

// ListKey is the key a filtered task list is cached under.
func ListKey(filter task.Filter) string {
	return keyPrefix + "tasks:" + filter.String()
}

// ListKeys returns the keys of every cached list.
func ListKeys() []string {
	filters := task.Filters()
	keys := make([]string, len(filters))
	for i, f := range filters {
		keys[i] = ListKey(f)
	}
	return keys
}
