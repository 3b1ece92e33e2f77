package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository/memory"
	"github.com/jwalitptl/visitq-api/pkg/logger"
	"github.com/jwalitptl/visitq-api/pkg/messaging"
	"github.com/jwalitptl/visitq-api/pkg/worker"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []messaging.Message
	err       error
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, message.(messaging.Message))
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

func (b *fakeBroker) messages() []messaging.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]messaging.Message(nil), b.published...)
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Output: io.Discard})
}

func stageEvent(t *testing.T, store *memory.Store, eventType string) *model.OutboxEvent {
	t.Helper()
	repo := memory.NewOutboxRepository(store)
	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)
	event := &model.OutboxEvent{EventType: eventType, Payload: []byte(`{"n":1}`)}
	require.NoError(t, repo.CreateTx(context.Background(), tx, event))
	require.NoError(t, tx.Commit())
	return event
}

func TestProcessorPublishesPendingEvents(t *testing.T) {
	store := memory.NewStore()
	broker := &fakeBroker{}
	event := stageEvent(t, store, model.EventTypeTokenAdvanced)

	processor := worker.NewOutboxProcessor(memory.NewOutboxRepository(store), broker, worker.OutboxProcessorConfig{
		PollInterval: 10 * time.Millisecond,
		EventChannel: "test.events",
	}, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go processor.Start(ctx)

	assert.Eventually(t, func() bool {
		return len(broker.messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, model.EventTypeTokenAdvanced, broker.messages()[0].Type)

	assert.Eventually(t, func() bool {
		for _, e := range store.Events() {
			if e.ID == event.ID {
				return e.Status == string(model.OutboxStatusProcessed)
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestProcessorDeadLettersAfterRetries(t *testing.T) {
	store := memory.NewStore()
	broker := &fakeBroker{err: errors.New("broker down")}
	event := stageEvent(t, store, model.EventTypeQueueReset)

	processor := worker.NewOutboxProcessor(memory.NewOutboxRepository(store), broker, worker.OutboxProcessorConfig{
		PollInterval:  5 * time.Millisecond,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go processor.Start(ctx)

	assert.Eventually(t, func() bool {
		return len(store.DeadLetters()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		for _, e := range store.Events() {
			if e.ID == event.ID {
				return e.Status == string(model.OutboxStatusFailed)
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCleanupProcessed(t *testing.T) {
	store := memory.NewStore()
	broker := &fakeBroker{}
	stageEvent(t, store, model.EventTypeStatusChanged)

	processor := worker.NewOutboxProcessor(memory.NewOutboxRepository(store), broker, worker.OutboxProcessorConfig{
		PollInterval: 5 * time.Millisecond,
	}, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go processor.Start(ctx)

	assert.Eventually(t, func() bool {
		return len(broker.messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, processor.CleanupProcessed(context.Background(), 0))
	assert.Empty(t, store.Events())
}
