package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the storefront services.
type Metrics struct {
	OrdersPlaced        prometheus.Counter
	NotificationsFailed prometheus.Counter
	PersistenceFailures prometheus.Counter
	RateLimited         prometheus.Counter
	LedgerArchived      prometheus.Counter
	LedgerDuplicates    prometheus.Counter
}

// New registers all collectors on reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OrdersPlaced: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders persisted to the catalog store",
		}),
		NotificationsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_order_notifications_failed_total",
			Help: "Operator notifications that failed or timed out",
		}),
		PersistenceFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_order_persistence_failed_total",
			Help: "Order submissions that could not be written to the catalog store",
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		LedgerArchived: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_ledger_orders_archived_total",
			Help: "Orders written to the Postgres ledger",
		}),
		LedgerDuplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_ledger_duplicate_events_total",
			Help: "OrderPlaced events skipped as already archived",
		}),
	}
}

func (m *Metrics) OrderPlaced()        { m.OrdersPlaced.Inc() }
func (m *Metrics) NotificationFailed() { m.NotificationsFailed.Inc() }
func (m *Metrics) PersistenceFailed()  { m.PersistenceFailures.Inc() }
