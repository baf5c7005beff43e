package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memorySink struct {
	mu      sync.Mutex
	events  []Event
	block   chan struct{}
	failErr error
	closed  bool
}

func (s *memorySink) Write(_ context.Context, e Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.failErr
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestDispatcher_DeliversAndFillsDefaults(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(sink, 8, zap.NewNop())

	d.Record(context.Background(), Event{Action: ActionCreate, Resource: "sales", ResourceID: "1"})
	require.NoError(t, d.Close())

	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].OccurredAt.IsZero())
	assert.True(t, sink.closed)
}

func TestDispatcher_RecordNeverBlocks(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &memorySink{block: make(chan struct{})}
	d := NewDispatcher(sink, 1, zap.New(core))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Record(context.Background(), Event{Action: ActionUpdate, Resource: "sales"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a stalled sink")
	}

	close(sink.block)
	require.NoError(t, d.Close())

	assert.Less(t, len(sink.snapshot()), 10)
	assert.NotZero(t, logs.FilterMessage("audit buffer full, event dropped").Len())
}

func TestDispatcher_SinkErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sink := &memorySink{failErr: errors.New("broker unavailable")}
	d := NewDispatcher(sink, 4, zap.New(core))

	d.Record(context.Background(), Event{Action: ActionDelete, Resource: "sales", ResourceID: "9"})
	require.NoError(t, d.Close())

	assert.Equal(t, 1, logs.FilterMessage("audit delivery failed").Len())
}

func TestDispatcher_RecordAfterClose(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &memorySink{}
	d := NewDispatcher(sink, 1, zap.New(core))
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	assert.NotPanics(t, func() {
		d.Record(context.Background(), Event{Action: ActionView, Resource: "stats"})
	})
	assert.Empty(t, sink.snapshot())
	assert.Equal(t, 1, logs.FilterMessage("audit event dropped after shutdown").Len())
}

func TestDispatcher_RecordConcurrentWithClose(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(sink, 64, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Record(context.Background(), Event{Action: ActionCreate, Resource: "sales"})
			}
		}()
	}
	require.NoError(t, d.Close())
	wg.Wait()

	assert.True(t, sink.closed)
	assert.LessOrEqual(t, len(sink.snapshot()), 800)
}
