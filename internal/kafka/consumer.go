package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message was processed and its
// offset may be committed. A non-nil error is retried.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fans messages out to a worker pool. Every partition is pinned to
// one worker, and a worker retries a failed message until it succeeds or the
// context ends, so a commit never passes an unprocessed offset.
type Consumer struct {
	r          messageReader
	topic      string
	workers    int
	log        *slog.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, topic, workers, log)
}

func newConsumer(r messageReader, topic string, workers int, log *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:          r,
		topic:      topic,
		workers:    workers,
		log:        log,
		backoff:    200 * time.Millisecond,
		maxBackoff: 10 * time.Second,
	}
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if !c.process(ctx, h, m) {
					// context ended mid-retry; the offset stays uncommitted
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					c.log.Error("consumer commit failed", "topic", c.topic, "partition", m.Partition, "offset", m.Offset, "error", err)
				}
			}
		}(queues[i])
	}
	stop := func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case queues[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// process runs h until it succeeds. It reports false when ctx ended first.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) bool {
	wait := c.backoff
	for {
		if ctx.Err() != nil {
			return false
		}
		err := h(ctx, m)
		if err == nil {
			return true
		}
		c.log.Error("consumer handler failed", "topic", c.topic, "partition", m.Partition, "offset", m.Offset, "retry_in", wait, "error", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		wait = min(wait*2, c.maxBackoff)
	}
}
