package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ariefcatur/storefront-orders/internal/catalog"
	"github.com/ariefcatur/storefront-orders/internal/config"
	"github.com/ariefcatur/storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/logger"
	"github.com/ariefcatur/storefront-orders/internal/metrics"
	"github.com/ariefcatur/storefront-orders/internal/notify"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/ratelimit"
	"github.com/ariefcatur/storefront-orders/internal/records"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.ServiceName)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Redis (optional)
	rdb, err := redisx.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Warn("redis unavailable, using in-memory rate limiting", "error", err)
	}
	mem := ratelimit.NewMemory(cfg.RateLimitMax, cfg.RateLimitWindow)
	var limiter ratelimit.Limiter = mem
	var idem httpx.IdempotencyStore
	if rdb != nil {
		defer rdb.Close()
		limiter = ratelimit.NewFallback(ratelimit.NewRedis(rdb, cfg.RateLimitMax, cfg.RateLimitWindow), mem, log)
		idem = redisx.NewIdempotency(rdb)
	}

	opts := []orders.Option{
		orders.WithRecorder(m),
		orders.WithNotifyTimeout(cfg.NotifyTimeout),
	}

	// Kafka producer (optional)
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
		prod.Start(ctx)
		opts = append(opts, orders.WithPublisher(orders.NewEventPublisher(prod, cfg.ServiceName)))
	}

	store := catalog.NewStore(cfg.DBFile, log)
	if err := store.View(ctx, func(*catalog.Document) error { return nil }); err != nil {
		log.Error("catalog not readable, orders will fail until it is", "path", cfg.DBFile, "error", err)
	}
	svc := orders.NewService(store, notify.New(cfg, log), log, opts...)

	router := httpx.NewRouter(log, cfg, httpx.API{
		Orders: &httpx.OrdersHandler{
			Orders:      svc,
			Idempotency: idem,
			Log:         log,
			Production:  cfg.IsProduction(),
		},
		Records:  records.NewRouter(store, log),
		Limiter:  limiter,
		Metrics:  m,
		Gatherer: reg,
	})

	// forget idle clients
	go func() {
		t := time.NewTicker(cfg.RateLimitWindow)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				mem.Sweep()
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "env", cfg.Env, "db_file", cfg.DBFile)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("http shutdown", "error", err)
	}
	if prod != nil {
		prod.Close() // flush inbox and close writer
		prod.WaitClosed()
	}
	cancel()
}
