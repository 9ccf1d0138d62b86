package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DeliversInOrder(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Close()
	ctx := context.Background()

	var got []string
	require.NoError(t, bus.Subscribe(ctx, "topic", func(_ context.Context, e domain.Event) error {
		got = append(got, e.ID)
		return nil
	}))

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, bus.Publish(ctx, "topic", domain.Event{ID: id}))
	}
	require.NoError(t, bus.Publish(ctx, "other", domain.Event{ID: "x"}))

	assert.Equal(t, []string{"1", "2", "3"}, got)
}

func TestEventBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Close()
	ctx := context.Background()

	errNope := errors.New("nope")
	delivered := 0
	require.NoError(t, bus.Subscribe(ctx, "topic", func(context.Context, domain.Event) error {
		return errNope
	}))
	require.NoError(t, bus.Subscribe(ctx, "topic", func(context.Context, domain.Event) error {
		delivered++
		return nil
	}))

	err := bus.Publish(ctx, "topic", domain.Event{ID: "1"})
	assert.ErrorIs(t, err, errNope)
	assert.Equal(t, 1, delivered)
}

func TestEventBus_HasSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Close()
	ctx := context.Background()

	assert.False(t, bus.HasSubscribers("topic"))
	require.NoError(t, bus.Publish(ctx, "topic", domain.Event{ID: "dropped"}))

	require.NoError(t, bus.Subscribe(ctx, "topic", func(context.Context, domain.Event) error {
		return nil
	}))
	assert.True(t, bus.HasSubscribers("topic"))
	assert.False(t, bus.HasSubscribers("other"))

	require.NoError(t, bus.Unsubscribe(ctx, "topic"))
	assert.False(t, bus.HasSubscribers("topic"))
}

func TestEventBus_SubscriptionEndsWithContext(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Subscribe(ctx, "topic", func(context.Context, domain.Event) error {
		return nil
	}))
	cancel()

	assert.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["topic"]) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Close()
	ctx := context.Background()

	delivered := 0
	require.NoError(t, bus.Subscribe(ctx, "topic", func(context.Context, domain.Event) error {
		delivered++
		return nil
	}))
	require.NoError(t, bus.Unsubscribe(ctx, "topic"))
	require.NoError(t, bus.Publish(ctx, "topic", domain.Event{ID: "1"}))

	assert.Equal(t, 0, delivered)
}
