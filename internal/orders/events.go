package orders

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/catalog"
)

const EventOrderPlaced = "OrderPlaced"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	Order        Order        `json:"order"`
	SoldProducts []catalog.ID `json:"sold_products"`
}
