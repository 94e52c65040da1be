package orders

import (
	"context"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/storefront-orders/internal/catalog"
	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
)

type eventSink interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// EventPublisher emits an OrderPlaced envelope for every persisted order.
type EventPublisher struct {
	sink    eventSink
	service string
}

func NewEventPublisher(p *kafkax.Producer, service string) *EventPublisher {
	return &EventPublisher{sink: p, service: service}
}

func (p *EventPublisher) OrderPlaced(ctx context.Context, o Order, sold []catalog.ID) {
	if sold == nil {
		sold = []catalog.ID{}
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: strconv.FormatInt(o.ID, 10),
		Payload:       kafkax.MustMarshal(OrderPlacedPayload{Order: o, SoldProducts: sold}),
	}
	p.sink.Publish(PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
