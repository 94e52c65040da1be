package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/metrics"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
)

type Archiver interface {
	Archive(ctx context.Context, e Entry) (bool, error)
}

// Service archives OrderPlaced events. Redis dedup is optional; the
// order_ledger primary key keeps the archive exact without it.
type Service struct {
	Repo        Archiver
	Redis       *redis.Client
	Metrics     *metrics.Metrics
	Log         *slog.Logger
	ServiceName string
}

// HandleOrderPlaced is installed as the consumer handler.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// redelivery cannot fix a malformed event
		s.Log.Error("ledger: undecodable event", "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if s.Redis != nil {
		if seen, err := redisx.Exists(ctx, s.Redis, dkey); err != nil {
			s.Log.Warn("ledger: dedup lookup failed", "event_id", env.EventID, "error", err)
		} else if seen {
			s.duplicate()
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.Log.Error("ledger: undecodable payload", "event_id", env.EventID, "error", err)
		return nil
	}

	inserted, err := s.Repo.Archive(ctx, Entry{EventID: env.EventID, Order: p.Order, Sold: p.SoldProducts})
	if err != nil {
		return fmt.Errorf("archive order %d: %w", p.Order.ID, err)
	}
	if inserted {
		if s.Metrics != nil {
			s.Metrics.LedgerArchived.Inc()
		}
		s.Log.Info("ledger: order archived", "order_id", p.Order.ID, "event_id", env.EventID, "trace_id", env.TraceID)
	} else {
		s.duplicate()
	}

	if s.Redis != nil {
		if err := s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err(); err != nil {
			s.Log.Warn("ledger: dedup mark failed", "event_id", env.EventID, "error", err)
		}
	}
	return nil
}

func (s *Service) duplicate() {
	if s.Metrics != nil {
		s.Metrics.LedgerDuplicates.Inc()
	}
}
