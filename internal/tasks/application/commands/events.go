// Package commands holds the write side of the task service. Every
// handler changes tasks and records their events in the outbox inside a
// single unit of work.
package commands

import (
	"context"

	"github.com/felixgeelhaar/todo/internal/shared/application"
	"github.com/felixgeelhaar/todo/internal/shared/domain"
	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// recordEvents stamps the pending events of tasks with request metadata
// and writes them to the outbox.
func recordEvents(ctx context.Context, outboxRepo outbox.Repository, tasks ...*task.Task) error {
	var events []domain.DomainEvent
	for _, t := range tasks {
		events = append(events, t.DomainEvents()...)
	}
	if len(events) == 0 {
		return nil
	}
	application.ApplyEventMetadata(events, application.NewEventMetadata(ctx))

	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return err
	}
	if err := outboxRepo.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	for _, t := range tasks {
		t.ClearDomainEvents()
	}
	return nil
}
