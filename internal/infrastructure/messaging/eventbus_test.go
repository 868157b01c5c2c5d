package messaging_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/messaging"
)

// recordingHandler collects every event it receives.
type recordingHandler struct {
	name string
	mu   sync.Mutex
	seen []shared.Event
	err  error
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Handle(event shared.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func newSyncBus(t *testing.T) *messaging.InMemoryEventBus {
	t.Helper()

	cfg := messaging.DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	bus := messaging.NewInMemoryEventBus(cfg)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func testKey(t *testing.T) shared.EnrollmentKey {
	t.Helper()

	uid, err := shared.NewUserID("user-1")
	require.NoError(t, err)
	cid, err := shared.NewCourseID("go-101")
	require.NoError(t, err)
	key, err := shared.NewEnrollmentKey(uid, cid)
	require.NoError(t, err)
	return key
}

func TestInMemoryEventBus_PublishRoutesByType(t *testing.T) {
	bus := newSyncBus(t)
	key := testKey(t)

	created := &recordingHandler{name: "on_created"}
	dropped := &recordingHandler{name: "on_dropped"}

	require.NoError(t, bus.Subscribe(shared.EventEnrollmentCreated, created))
	require.NoError(t, bus.Subscribe(shared.EventEnrollmentDropped, dropped))

	require.NoError(t, bus.Publish(shared.NewEnrollmentCreatedEvent(key, false)))
	require.NoError(t, bus.Publish(shared.NewEnrollmentCreatedEvent(key, true)))

	assert.Equal(t, 2, created.count())
	assert.Zero(t, dropped.count())
}

func TestInMemoryEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := newSyncBus(t)
	key := testKey(t)

	all := &recordingHandler{name: "view"}
	require.NoError(t, bus.SubscribeAll(all))

	require.NoError(t, bus.Publish(shared.NewEnrollmentCreatedEvent(key, false)))
	require.NoError(t, bus.Publish(shared.NewEnrollmentDroppedEvent(key)))

	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := newSyncBus(t)
	key := testKey(t)

	failing := &recordingHandler{name: "failing", err: errors.New("boom")}
	healthy := &recordingHandler{name: "healthy"}

	require.NoError(t, bus.Subscribe(shared.EventEnrollmentCreated, failing))
	require.NoError(t, bus.Subscribe(shared.EventEnrollmentCreated, healthy))

	// The publisher must never see subscriber failures; the integrity
	// path depends on this.
	require.NoError(t, bus.Publish(shared.NewEnrollmentCreatedEvent(key, false)))
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_AsyncDeliveryCompletesOnClose(t *testing.T) {
	cfg := messaging.DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 4
	bus := messaging.NewInMemoryEventBus(cfg)

	key := testKey(t)
	all := &recordingHandler{name: "view"}
	require.NoError(t, bus.SubscribeAll(all))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(shared.NewEnrollmentCreatedEvent(key, false)))
	}

	// Close waits for in-flight handlers.
	require.NoError(t, bus.Close())
	assert.Equal(t, 20, all.count())
}

func TestInMemoryEventBus_ClosedBusRejectsUse(t *testing.T) {
	bus := newSyncBus(t)
	require.NoError(t, bus.Close())

	key := testKey(t)
	err := bus.Publish(shared.NewEnrollmentCreatedEvent(key, false))
	assert.ErrorIs(t, err, messaging.ErrEventBusClosed)

	err = bus.Subscribe(shared.EventEnrollmentCreated, &recordingHandler{name: "late"})
	assert.ErrorIs(t, err, messaging.ErrEventBusClosed)
}

func TestInMemoryEventBus_NilHandlerRejected(t *testing.T) {
	bus := newSyncBus(t)
	assert.Error(t, bus.Subscribe(shared.EventEnrollmentCreated, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

func TestDispatcher_RoutesAndRetries(t *testing.T) {
	bus := newSyncBus(t)
	key := testKey(t)

	cfg := messaging.DefaultDispatcherConfig(bus)
	cfg.RetryConfig.MaxRetries = 2
	cfg.RetryConfig.InitialBackoff = 0
	dispatcher := messaging.NewDispatcher(cfg)
	t.Cleanup(func() { _ = dispatcher.Stop() })

	handled := &recordingHandler{name: "on_created"}
	require.NoError(t, dispatcher.RegisterSync(shared.EventEnrollmentCreated, handled))
	require.NoError(t, dispatcher.Start())

	require.NoError(t, bus.Publish(shared.NewEnrollmentCreatedEvent(key, false)))
	assert.Equal(t, 1, handled.count())
}

func TestDispatcher_DeadLetterQueueCapturesExhaustedRetries(t *testing.T) {
	bus := newSyncBus(t)
	key := testKey(t)

	cfg := messaging.DefaultDispatcherConfig(bus)
	cfg.RetryConfig.MaxRetries = 1
	cfg.RetryConfig.InitialBackoff = 0
	dispatcher := messaging.NewDispatcher(cfg)
	t.Cleanup(func() { _ = dispatcher.Stop() })

	failing := &recordingHandler{name: "failing", err: errors.New("boom")}
	require.NoError(t, dispatcher.RegisterSync(shared.EventEnrollmentCreated, failing))
	require.NoError(t, dispatcher.Start())

	require.NoError(t, bus.Publish(shared.NewEnrollmentCreatedEvent(key, false)))

	dlq := dispatcher.DeadLetterQueue()
	require.NotNil(t, dlq)
	assert.Equal(t, 1, dlq.Size())
}
