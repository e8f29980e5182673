package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/part-ledger/internal/config"
	"github.com/tair/part-ledger/internal/ledger"
	httpDelivery "github.com/tair/part-ledger/internal/ledger/delivery/http"
	"github.com/tair/part-ledger/kafka"
	"github.com/tair/part-ledger/pkg/logger"
	"github.com/tair/part-ledger/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("part-ledger", true)
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("store_backend", cfg.StoreBackend).
		Str("audit_backend", cfg.AuditBackend).
		Msg("Starting ledger service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(tracing.Config{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.JaegerEndpoint,
		})
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	sub, closeSubstrate, err := ledger.OpenSubstrate(ctx, cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeSubstrate()

	// Initialize ledger with Wire DI
	app, cleanup, err := ledger.InitializeApp(cfg, sub, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize ledger")
	}
	defer cleanup()

	if cfg.Kafka.ConsumeScans {
		consumer := startScanConsumer(ctx, cfg, app)
		if consumer != nil {
			defer consumer.Close()
		}
	}

	server := newHTTPServer(cfg, app)
	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
}

func newHTTPServer(cfg *config.Config, app *ledger.App) *http.Server {
	router := mux.NewRouter()

	// Register routes
	app.Handler.RegisterRoutes(router)
	app.Handler.RegisterHealthCheck(router, app.Health)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	router.Use(
		httpDelivery.RequestIDMiddleware,
		httpDelivery.LoggingMiddleware,
		httpDelivery.RecoveryMiddleware,
		httpDelivery.SecurityHeadersMiddleware,
		httpDelivery.TimeoutMiddleware(cfg.RequestTimeout),
	)

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", httpDelivery.RequestIDHeader},
		AllowCredentials: true,
	})

	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(c.Handler(router), cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// startScanConsumer applies assignment events from scanning stations. A
// broker outage only disables scanning; the HTTP API keeps serving.
func startScanConsumer(ctx context.Context, cfg *config.Config, app *ledger.App) *kafka.Consumer {
	log := logger.Component("scan-consumer")

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{cfg.Kafka.ScanTopic})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create scan consumer, scan events disabled")
		return nil
	}

	consumer.RegisterHandler(kafka.EventTypeAssignmentRequested, kafka.NewAssignmentEventHandler(app.Adjust))
	if err := consumer.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start scan consumer")
	}
	log.Info().Str("topic", cfg.Kafka.ScanTopic).Msg("Scan consumer started")
	return consumer
}
