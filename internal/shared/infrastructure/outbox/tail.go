package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/eventbus"
)

// TailConfig configures a Tail.
type TailConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// GapTimeout is how long a skipped id is waited for. Ids are assigned
	// at insert, so a transaction can commit a lower id after a higher one
	// was read; a rolled-back insert leaves a gap that never fills.
	GapTimeout time.Duration
}

// DefaultTailConfig returns sensible defaults.
func DefaultTailConfig() TailConfig {
	return TailConfig{
		PollInterval: 200 * time.Millisecond,
		BatchSize:    100,
		GapTimeout:   10 * time.Second,
	}
}

// maxTrackedGap bounds the gap bookkeeping after a sequence jump.
const maxTrackedGap = 1000

// Tail follows the outbox without claiming rows and hands every message
// written after Start to a Publisher. Unlike Processor, any number of
// processes can tail the same outbox and each sees every message.
type Tail struct {
	repo      Repository
	publisher eventbus.Publisher
	config    TailConfig
	logger    *slog.Logger

	mu     sync.Mutex
	cursor int64
	gaps   map[int64]time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTail creates a Tail delivering to publisher.
func NewTail(repo Repository, publisher eventbus.Publisher, config TailConfig, logger *slog.Logger) *Tail {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultTailConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.GapTimeout <= 0 {
		config.GapTimeout = defaults.GapTimeout
	}
	return &Tail{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    logger.With("component", "outbox_tail"),
		gaps:      make(map[int64]time.Time),
	}
}

// Seek positions the tail after the newest message, so only messages
// written from now on are delivered.
func (t *Tail) Seek(ctx context.Context) error {
	last, err := t.repo.LastID(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursor = last
	clear(t.gaps)
	return nil
}

// Start seeks to the end and polls in a goroutine until ctx ends or Stop
// is called. Starting a running tail is a no-op.
func (t *Tail) Start(ctx context.Context) error {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel != nil {
		return nil
	}
	if err := t.Seek(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(runCtx, t.done)
	return nil
}

// Stop ends polling and waits for the current poll to finish.
func (t *Tail) Stop() {
	t.runMu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Tail) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.PollOnce(ctx); err != nil && ctx.Err() == nil {
				t.logger.WarnContext(ctx, "outbox tail poll failed", "error", err)
			}
		}
	}
}

// PollOnce delivers the messages that appeared since the last poll and
// returns how many it delivered. A failed delivery is logged and not
// retried.
func (t *Tail) PollOnce(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	after := t.cursor
	for id, seen := range t.gaps {
		if now.Sub(seen) > t.config.GapTimeout {
			delete(t.gaps, id)
			continue
		}
		after = min(after, id-1)
	}

	msgs, err := t.repo.GetAfter(ctx, after, t.config.BatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, msg := range msgs {
		if msg.ID <= t.cursor {
			if _, open := t.gaps[msg.ID]; !open {
				continue
			}
			delete(t.gaps, msg.ID)
		} else {
			if missing := msg.ID - t.cursor - 1; missing > 0 && missing <= maxTrackedGap {
				for id := t.cursor + 1; id < msg.ID; id++ {
					t.gaps[id] = now
				}
			}
			t.cursor = msg.ID
		}

		if err := t.publisher.Publish(ctx, msg.RoutingKey, msg.Payload); err != nil {
			t.logger.WarnContext(ctx, "failed to deliver tailed message",
				"id", msg.ID,
				"routing_key", msg.RoutingKey,
				"error", err,
			)
			continue
		}
		delivered++
	}
	return delivered, nil
}
