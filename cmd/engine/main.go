// Package main is the entry point for the cartflow engine.
// One process carries both halves of the system: the HTTP API that
// accepts triggers and serves run status, and the scheduler that
// advances queued workflow runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartflow/internal/config"
	"cartflow/internal/engine"
	"cartflow/internal/logger"
	"cartflow/internal/messaging"
	"cartflow/internal/observability"
	"cartflow/internal/server"
	"cartflow/internal/store/postgres"
	"cartflow/internal/tenant"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: environment only)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Postgres (the "Store")
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(store.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "cartflow-engine", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Use an Observable Gauge (Async) that queries the DB only when scraped.
	meter := otel.Meter("cartflow-engine")
	_, err = meter.Int64ObservableGauge("cartflow.queue.depth",
		metric.WithDescription("Current number of runs in the queue"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := store.Count(ctx)
			if err != nil {
				log.Printf("Failed to count queue depth: %v", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register queue depth metric: %v", err)
	}

	// Workflow core
	executor := engine.NewExecutor(store)
	resolver := tenant.NewResolver(store)
	gateway := messaging.NewGateway(&http.Client{Timeout: 10 * time.Second})
	pipeline := engine.NewPipeline(executor, resolver, gateway, store, slogger)
	dispatcher := engine.NewDispatcher(store, store, store, slogger)

	scheduler := engine.NewScheduler(store, store, pipeline, engine.SchedulerConfig{
		Concurrency:  cfg.SchedulerConcurrency,
		PollInterval: cfg.SchedulerPollInterval,
		MaxBackoff:   cfg.SchedulerMaxBackoff,
	}, slogger)
	go scheduler.Run(ctx)

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := server.New(addr, store, dispatcher, metricsHandler)

	go func() {
		log.Printf("Cartflow engine starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down engine...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Stop claiming new runs and drain in-flight ones.
	cancel()
	<-scheduler.Done()

	log.Println("Engine exited properly")
}
