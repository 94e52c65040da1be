package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/storefront-orders/internal/logger"
)

type fakeReader struct {
	mu      sync.Mutex
	pending []kafka.Message
	commits []kafka.Message
	closed  bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		m := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) committed(partition int) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, m := range f.commits {
		if m.Partition == partition {
			out = append(out, m.Offset)
		}
	}
	return out
}

func newTestConsumer(r *fakeReader, workers int) *Consumer {
	c := newConsumer(r, "order.placed", workers, logger.Discard())
	c.backoff = time.Millisecond
	c.maxBackoff = 5 * time.Millisecond
	return c
}

func TestConsumerRetriesBeforeCommittingLaterOffsets(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Partition: 0, Offset: 10},
		{Partition: 0, Offset: 11},
		{Partition: 1, Offset: 5},
	}}
	c := newTestConsumer(r, 4)

	var mu sync.Mutex
	failures := 0
	var handled []int64
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		if m.Partition == 0 && m.Offset == 10 && failures < 3 {
			failures++
			return errors.New("postgres down")
		}
		if m.Partition == 0 {
			handled = append(handled, m.Offset)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool {
		return len(r.committed(0)) == 2 && len(r.committed(1)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{10, 11}, r.committed(0))
	mu.Lock()
	assert.Equal(t, []int64{10, 11}, handled)
	assert.Equal(t, 3, failures)
	mu.Unlock()
	assert.True(t, r.closed)
}

func TestConsumerStopsRetryingOnCancel(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Partition: 0, Offset: 1},
		{Partition: 0, Offset: 2},
	}}
	c := newTestConsumer(r, 1)

	attempts := make(chan struct{}, 64)
	h := func(_ context.Context, m kafka.Message) error {
		if m.Offset == 1 {
			select {
			case attempts <- struct{}{}:
			default:
			}
			return errors.New("always failing")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	for i := 0; i < 3; i++ {
		select {
		case <-attempts:
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not retried")
		}
	}
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, r.committed(0), "nothing past the failing offset is committed")
}
