package eventbus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/todo/internal/shared/infrastructure/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessEventBus(t *testing.T) {
	ctx := context.Background()

	t.Run("publish dispatches decoded event", func(t *testing.T) {
		bus := eventbus.NewInProcessEventBus(nil, nil)
		consumer := &recordingConsumer{types: []string{"test.note.added"}}
		bus.Registry().Register(consumer)

		body, err := eventbus.Encode(newNoteAdded("agg-1", "hi"))
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, "test.note.added", body))

		require.Equal(t, 1, consumer.count())
		assert.Equal(t, "agg-1", consumer.events[0].AggregateID)
	})

	t.Run("consumer error is returned", func(t *testing.T) {
		bus := eventbus.NewInProcessEventBus(nil, nil)
		boom := errors.New("boom")
		bus.Registry().Register(&recordingConsumer{types: []string{"test.note.added"}, err: boom})

		body, err := eventbus.Encode(newNoteAdded("agg-1", "hi"))
		require.NoError(t, err)
		assert.ErrorIs(t, bus.Publish(ctx, "test.note.added", body), boom)
	})

	t.Run("malformed payload", func(t *testing.T) {
		bus := eventbus.NewInProcessEventBus(nil, nil)
		assert.ErrorIs(t, bus.Publish(ctx, "k", []byte("{")), eventbus.ErrMalformedEvent)
	})

	t.Run("close", func(t *testing.T) {
		assert.NoError(t, eventbus.NewInProcessEventBus(nil, nil).Close())
	})
}
