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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ariefcatur/storefront-orders/internal/config"
	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/ledger"
	"github.com/ariefcatur/storefront-orders/internal/logger"
	"github.com/ariefcatur/storefront-orders/internal/metrics"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.ServiceName+"-ledger")

	if len(cfg.KafkaBrokers) == 0 || cfg.PostgresDSN == "" {
		log.Error("ledger needs KAFKA_BROKERS and POSTGRES_DSN")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis dedup is optional
	rdb, err := redisx.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Warn("redis unavailable, relying on order_ledger primary key", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	svc := &ledger.Service{
		Repo:        &ledger.Repo{DB: db},
		Redis:       rdb,
		Metrics:     metrics.New(reg),
		Log:         log,
		ServiceName: cfg.ServiceName + "-ledger",
	}

	// metrics only; the ledger has no other HTTP surface
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	msrv := &http.Server{Addr: getenv("LEDGER_METRICS_ADDR", ":9101"), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listen failed", "error", err)
		}
	}()

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.LedgerGroup, orders.TopicOrderPlaced, cfg.LedgerWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("ledger consumer started", "group", cfg.LedgerGroup, "topic", orders.TopicOrderPlaced, "workers", cfg.LedgerWorkers)
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Error("consumer exit", "error", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = msrv.Shutdown(ctx2)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
