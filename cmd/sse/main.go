package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/internal/adapters/cache"
	"github.com/zatekoja/Receptionqueue/backend/internal/adapters/events"
	"github.com/zatekoja/Receptionqueue/backend/internal/api/handlers"
	"github.com/zatekoja/Receptionqueue/backend/internal/api/routes"
	"github.com/zatekoja/Receptionqueue/backend/internal/application/services"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Receptionqueue/backend/pkg/config"
)

// The streaming replica never polls the backend. It relays the events the
// api binary publishes on Redis and serves the snapshots it caches there.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-sse", cfg.Server.Env)
	log.Info().Msg("Starting SSE Server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName+"-sse", cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			observability.EnableLogExport(cfg.OTEL.ServiceName + "-sse")
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
		metrics = nil
	}

	// Redis is required: it is the only source of events and snapshots here.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	snapshotCache := cache.NewRedisAdapter(redisClient, metrics)
	sources := map[string]services.SnapshotSource{
		services.PollScopeToday:     services.NewCachedSnapshotSource(snapshotCache, services.PollScopeToday),
		services.PollScopeReception: services.NewCachedSnapshotSource(snapshotCache, services.PollScopeReception),
	}
	estimator := services.NewWaitTimeEstimator(cfg.Queue.Location(), cfg.Queue.ConsultationDuration())

	sseHandler := handlers.NewSSEHandler(eventBus,
		handlers.WithSnapshotSources(sources),
		handlers.WithSSEMetrics(metrics),
		handlers.WithClockTick(cfg.Queue.ClockTick),
	)

	router := routes.NewRouter(
		nil,
		handlers.NewLiveHandler(sources, estimator),
		sseHandler,
		nil,
		nil,
		nil,
		metrics,
		cfg.Server.AllowedOrigins,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No timeout for SSE streaming
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("SSE Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("SSE Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("SSE Server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("SSE Server stopped")
}
