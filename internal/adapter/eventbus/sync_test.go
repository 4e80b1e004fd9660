package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightmansam/feishin/internal/domain"
	"github.com/flightmansam/feishin/internal/logger"
)

func newTestBus(t *testing.T) *SyncEventBus {
	t.Helper()
	bus := NewSyncEventBus(logger.NewTestLogger())
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestNewSyncEventBus(t *testing.T) {
	bus := NewSyncEventBus(nil)
	require.NotNil(t, bus)
	assert.Equal(t, 0, bus.SubscriberCount())
	assert.False(t, bus.closed)
}

func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus(t)

	var received []domain.Event
	subID := bus.Subscribe(domain.EventPlayerAutoNext, func(event domain.Event) {
		received = append(received, event)
	})
	require.NotEmpty(t, subID)

	bus.Publish(domain.NewAutoNextEvent(2))

	require.Len(t, received, 1)
	autoNext, ok := received[0].(domain.AutoNextEvent)
	require.True(t, ok)
	assert.Equal(t, 2, autoNext.PlaylistPos)
}

func TestPublishOnlyReachesMatchingType(t *testing.T) {
	bus := newTestBus(t)

	var autoNext, currentTime int
	bus.Subscribe(domain.EventPlayerAutoNext, func(domain.Event) { autoNext++ })
	bus.Subscribe(domain.EventPlayerCurrentTime, func(domain.Event) { currentTime++ })

	bus.Publish(domain.NewCurrentTimeEvent(12.5))

	assert.Equal(t, 0, autoNext)
	assert.Equal(t, 1, currentTime)
}

func TestDeliveryOrder(t *testing.T) {
	bus := newTestBus(t)

	var order []string
	bus.SubscribeAll(func(domain.Event) { order = append(order, "all") })
	bus.Subscribe(domain.EventPlayerPlay, func(domain.Event) { order = append(order, "first") })
	bus.Subscribe(domain.EventPlayerPlay, func(domain.Event) { order = append(order, "second") })

	bus.Publish(domain.NewPlayerPlayEvent())

	assert.Equal(t, []string{"first", "second", "all"}, order)
}

func TestUnsubscribeKeepsOrder(t *testing.T) {
	bus := newTestBus(t)

	var order []int
	bus.Subscribe(domain.EventPlayerStop, func(domain.Event) { order = append(order, 1) })
	middle := bus.Subscribe(domain.EventPlayerStop, func(domain.Event) { order = append(order, 2) })
	bus.Subscribe(domain.EventPlayerStop, func(domain.Event) { order = append(order, 3) })
	bus.Subscribe(domain.EventPlayerStop, func(domain.Event) { order = append(order, 4) })

	bus.Unsubscribe(middle)
	bus.Publish(domain.NewPlayerStopEvent())

	assert.Equal(t, []int{1, 3, 4}, order)
	assert.Equal(t, 3, bus.SubscriberCount())
}

func TestUnsubscribeInvalidID(t *testing.T) {
	bus := newTestBus(t)
	bus.Subscribe(domain.EventPlayerStop, func(domain.Event) {})

	bus.Unsubscribe("sub-does-not-exist")

	assert.Equal(t, 1, bus.SubscriberCount())
}

func TestUnsubscribeAll(t *testing.T) {
	bus := newTestBus(t)

	calls := 0
	id := bus.SubscribeAll(func(domain.Event) { calls++ })
	bus.Publish(domain.NewPlayerPlayEvent())
	bus.Unsubscribe(id)
	bus.Publish(domain.NewPlayerPlayEvent())

	assert.Equal(t, 1, calls)
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	bus := newTestBus(t)

	var secondCalls int
	var secondID domain.SubscriptionID
	bus.Subscribe(domain.EventPlayerPause, func(domain.Event) { bus.Unsubscribe(secondID) })
	secondID = bus.Subscribe(domain.EventPlayerPause, func(domain.Event) { secondCalls++ })

	// the snapshot taken for this publish still contains the second handler
	bus.Publish(domain.NewPlayerPauseEvent())
	bus.Publish(domain.NewPlayerPauseEvent())

	assert.Equal(t, 1, secondCalls)
}

func TestNestedPublish(t *testing.T) {
	bus := newTestBus(t)

	var order []domain.EventType
	bus.Subscribe(domain.EventPlayerAutoNext, func(e domain.Event) {
		order = append(order, e.Type())
		bus.Publish(domain.NewPlayerPlayEvent())
	})
	bus.Subscribe(domain.EventPlayerPlay, func(e domain.Event) {
		order = append(order, e.Type())
	})

	bus.Publish(domain.NewAutoNextEvent(1))

	assert.Equal(t, []domain.EventType{domain.EventPlayerAutoNext, domain.EventPlayerPlay}, order)
}

func TestHasSubscribers(t *testing.T) {
	bus := newTestBus(t)

	assert.False(t, bus.HasSubscribers(domain.EventQueueChanged))

	id := bus.Subscribe(domain.EventQueueChanged, func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventQueueChanged))
	assert.False(t, bus.HasSubscribers(domain.EventPlayerPlay))

	bus.Unsubscribe(id)
	assert.False(t, bus.HasSubscribers(domain.EventQueueChanged))

	bus.SubscribeAll(func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventPlayerPlay))
}

func TestHandlerPanic(t *testing.T) {
	bus := newTestBus(t)

	called := false
	bus.Subscribe(domain.EventPlayerError, func(domain.Event) { panic("boom") })
	bus.Subscribe(domain.EventPlayerError, func(domain.Event) { called = true })

	assert.NotPanics(t, func() {
		bus.Publish(domain.NewPlayerErrorEvent("start", assert.AnError))
	})
	assert.True(t, called, "handlers after a panicking one must still run")
}

func TestClose(t *testing.T) {
	bus := NewSyncEventBus(nil)

	calls := 0
	bus.Subscribe(domain.EventPlayerPlay, func(domain.Event) { calls++ })

	require.NoError(t, bus.Close())
	assert.Error(t, bus.Close())
	assert.Equal(t, 0, bus.SubscriberCount())

	bus.Publish(domain.NewPlayerPlayEvent())
	assert.Equal(t, 0, calls)

	assert.Panics(t, func() { bus.Subscribe(domain.EventPlayerPlay, func(domain.Event) {}) })
	assert.Panics(t, func() { bus.SubscribeAll(func(domain.Event) {}) })
}

func TestNilEventAndHandler(t *testing.T) {
	bus := newTestBus(t)

	assert.NotPanics(t, func() { bus.Publish(nil) })
	assert.Panics(t, func() { bus.Subscribe(domain.EventPlayerPlay, nil) })
	assert.Panics(t, func() { bus.SubscribeAll(nil) })
}

func TestUniqueSubscriptionIDs(t *testing.T) {
	bus := newTestBus(t)

	seen := make(map[domain.SubscriptionID]bool)
	for i := 0; i < 50; i++ {
		id := bus.Subscribe(domain.EventPlayerPlay, func(domain.Event) {})
		all := bus.SubscribeAll(func(domain.Event) {})
		assert.False(t, seen[id])
		assert.False(t, seen[all])
		seen[id], seen[all] = true, true
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := newTestBus(t)

	var delivered atomic.Int64
	bus.Subscribe(domain.EventPlayerCurrentTime, func(domain.Event) { delivered.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(domain.NewCurrentTimeEvent(float64(j)))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				id := bus.Subscribe(domain.EventPlayerPause, func(domain.Event) {})
				bus.Unsubscribe(id)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), delivered.Load())
	assert.Equal(t, 1, bus.SubscriberCount())
}
