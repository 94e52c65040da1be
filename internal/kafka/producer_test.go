package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/storefront-orders/internal/logger"
)

type fakeWriter struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	failKey string
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == f.failKey {
			return errors.New("broker down")
		}
		f.msgs = append(f.msgs, m)
	}
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestProducerFlushesOnClose(t *testing.T) {
	w := &fakeWriter{failKey: "bad"}
	p := newProducer(w, "order.placed", 8, logger.Discard())
	p.Start(context.Background())

	require.True(t, p.Publish([]byte("1"), []byte("a")))
	require.True(t, p.Publish([]byte("bad"), []byte("b")))
	require.True(t, p.Publish([]byte("2"), []byte("c"), kafka.Header{Key: "x-event-type", Value: []byte("OrderPlaced")}))
	p.Close()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "a", string(w.msgs[0].Value))
	assert.Equal(t, "c", string(w.msgs[1].Value))
	assert.Equal(t, "x-event-type", w.msgs[1].Headers[0].Key)
	assert.True(t, w.closed)

	assert.False(t, p.Publish([]byte("3"), []byte("late")), "publish after close is dropped")
}

func TestProducerDropsWhenInboxFull(t *testing.T) {
	p := newProducer(&fakeWriter{}, "order.placed", 1, logger.Discard())

	// not started: the inbox fills up
	assert.True(t, p.Publish([]byte("1"), []byte("a")))
	assert.False(t, p.Publish([]byte("2"), []byte("b")))
}

func TestProducerStopsOnContextCancel(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "order.placed", 4, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, p.Publish([]byte("1"), []byte("a")))
	p.Start(ctx)
	cancel()
	p.WaitClosed()

	assert.True(t, w.closed)
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderID int64 `json:"order_id"`
	}
	got, err := UnwrapPayload[payload](MustMarshal(payload{OrderID: 42}))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.OrderID)

	_, err = UnwrapPayload[payload]([]byte(`{"order_id": "x"}`))
	assert.Error(t, err)
}
