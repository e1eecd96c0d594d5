package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	pending  []Event
	sent     []int64
	failed   map[int64]string
	extended [][]int64
}

func (s *fakeStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}
	n := min(batchSize, len(s.pending))
	batch := s.pending[:n]
	s.pending = s.pending[n:]
	return batch, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = make(map[int64]string)
	}
	s.failed[id] = errMsg
	return nil
}

func (s *fakeStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extended = append(s.extended, ids)
	return nil
}

type fakeProducer struct {
	mu       sync.Mutex
	messages []kafka.Message
	failKeys map[string]bool
}

func (p *fakeProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if p.failKeys[string(m.Key)] {
			return errors.New("broker unavailable")
		}
		p.messages = append(p.messages, m)
	}
	return nil
}

func TestRelayTick_DispatchesAndMarksSent(t *testing.T) {
	store := &fakeStore{pending: []Event{
		{ID: 1, AggregateID: "order-1", Type: "OrderConfirmed", Payload: []byte(`{}`)},
		{ID: 2, AggregateID: "order-2", Type: "OrderCancelled", Payload: []byte(`{}`), Traceparent: "00-abc-def-01"},
	}}
	producer := &fakeProducer{}
	log := slog.Default()

	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "test-relay")
	relay.tick(context.Background())

	require.Len(t, producer.messages, 2)
	assert.ElementsMatch(t, []int64{1, 2}, store.sent)
	assert.Empty(t, store.failed)

	// Event type and traceparent travel as headers.
	var headerKeys []string
	for _, h := range producer.messages[1].Headers {
		headerKeys = append(headerKeys, h.Key)
	}
	assert.Contains(t, headerKeys, "event_type")
	assert.Contains(t, headerKeys, "traceparent")
}

func TestRelayTick_FailedDispatchDoesNotBlockBatch(t *testing.T) {
	store := &fakeStore{pending: []Event{
		{ID: 1, AggregateID: "order-1", Type: "OrderConfirmed"},
		{ID: 2, AggregateID: "order-2", Type: "OrderConfirmed"},
	}}
	producer := &fakeProducer{failKeys: map[string]bool{"order-1": true}}
	log := slog.Default()

	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "test-relay")
	relay.tick(context.Background())

	assert.Equal(t, []int64{2}, store.sent)
	require.Contains(t, store.failed, int64(1))
	assert.Contains(t, store.failed[1], "broker unavailable")
}

func TestRelayTick_ExtendsLeaseOnLongBatches(t *testing.T) {
	events := make([]Event, 45)
	for i := range events {
		events[i] = Event{ID: int64(i + 1), AggregateID: "order", Type: "OrderConfirmed"}
	}
	store := &fakeStore{pending: events}
	producer := &fakeProducer{}
	log := slog.Default()

	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "test-relay")
	relay.tick(context.Background())

	require.Len(t, store.sent, 45)
	// Renewed at dispatch 20 and 40, covering the undelivered remainder.
	require.Len(t, store.extended, 2)
	assert.Len(t, store.extended[0], 25)
	assert.Len(t, store.extended[1], 5)
	assert.Equal(t, int64(21), store.extended[0][0])
	assert.Equal(t, int64(41), store.extended[1][0])
}

func TestRelayRun_StopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	producer := &fakeProducer{}
	log := slog.Default()
	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "test-relay")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
