package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ariefcatur/storefront-orders/internal/config"
	"github.com/ariefcatur/storefront-orders/internal/metrics"
	"github.com/ariefcatur/storefront-orders/internal/ratelimit"
)

// API is everything mounted under /api.
type API struct {
	Orders  *OrdersHandler
	Records http.Handler
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
	// Gatherer backs /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, cfg config.Config, api API) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, rememberPeer, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(securityHeaders(cfg.IsProduction()))
	r.Use(corsHandler(cfg.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if api.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(api.Gatherer, promhttp.HandlerOpts{}))
	}

	trusted, err := config.ParsePrefixes(cfg.TrustedProxies)
	if err != nil {
		log.Warn("ignoring TRUSTED_PROXIES", "error", err)
		trusted = nil
	}

	r.Route("/api", func(ar chi.Router) {
		if api.Limiter != nil {
			ar.Use(RateLimit(api.Limiter, log, api.Metrics, trusted))
		}
		if api.Orders != nil {
			api.Orders.Register(ar)
		}
		if api.Records != nil {
			ar.Mount("/", api.Records)
		}
	})
	return r
}
