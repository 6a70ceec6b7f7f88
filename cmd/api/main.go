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
	"github.com/zatekoja/Receptionqueue/backend/internal/adapters/database"
	"github.com/zatekoja/Receptionqueue/backend/internal/adapters/events"
	"github.com/zatekoja/Receptionqueue/backend/internal/api/handlers"
	"github.com/zatekoja/Receptionqueue/backend/internal/api/routes"
	"github.com/zatekoja/Receptionqueue/backend/internal/application/services"
	"github.com/zatekoja/Receptionqueue/backend/internal/domain/providers"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/clients/backendapi"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/session"
	"github.com/zatekoja/Receptionqueue/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			observability.EnableLogExport(cfg.OTEL.ServiceName)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
		metrics = nil
	}

	// Display screen registry
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pgClient.Close()

	if err := pgClient.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare database schema")
	}

	// Redis carries the shared cache and fan-out to streaming replicas. Without
	// it the service runs standalone on an in-process bus.
	var (
		snapshotCache providers.CacheProvider
		eventBus      providers.EventBus
	)
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without shared cache")
		eventBus = events.NewMemoryEventBus()
	} else {
		defer redisClient.Close()
		snapshotCache = cache.NewRedisAdapter(redisClient, metrics)
		eventBus = events.NewRedisEventBus(redisClient)
	}
	defer eventBus.Close()

	sessionProvider, err := session.NewProvider(cfg.Backend.APIToken, cfg.Backend.UserInfo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session")
	}
	if !sessionProvider.Authenticated() {
		log.Warn().Msg("No backend API token configured, backend calls are unauthenticated")
	}

	authenticator := session.NewAuthenticator(cfg.Auth.JWTSecret)
	if !authenticator.Enabled() {
		log.Warn().Msg("JWT_ACCESS_SECRET not set, screen management and session endpoints are disabled")
	}

	backendClient := backendapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout(), sessionProvider)

	snapshotTTL := time.Duration(cfg.Queue.SnapshotTTLSeconds) * time.Second
	estimator := services.NewWaitTimeEstimator(cfg.Queue.Location(), cfg.Queue.ConsultationDuration())
	queueService := services.NewQueueService(backendClient, snapshotCache, estimator, snapshotTTL)

	pollerOpts := []services.PollerOption{
		services.WithEventBus(eventBus),
		services.WithSnapshotCache(snapshotCache, snapshotTTL),
		services.WithPollerMetrics(metrics),
	}
	todayPoller := services.NewQueuePoller(services.PollScopeToday, services.TodayFetcher(queueService), cfg.Queue.PollInterval, pollerOpts...)
	receptionPoller := services.NewQueuePoller(services.PollScopeReception, services.ReceptionFetcher(queueService), cfg.Queue.PollInterval, pollerOpts...)

	todayPoller.Start(ctx)
	receptionPoller.Start(ctx)
	log.Info().Dur("interval", cfg.Queue.PollInterval).Msg("Queue pollers started")

	screenRepo := database.NewDisplayScreenAdapter(pgClient, metrics)
	screenService := services.NewScreenService(screenRepo, services.NewLiveBoardSource(todayPoller, queueService))

	sources := map[string]services.SnapshotSource{
		todayPoller.Scope():     todayPoller,
		receptionPoller.Scope(): receptionPoller,
	}

	sseHandler := handlers.NewSSEHandler(eventBus,
		handlers.WithSnapshotSources(sources),
		handlers.WithSSEMetrics(metrics),
		handlers.WithClockTick(cfg.Queue.ClockTick),
	)

	router := routes.NewRouter(
		handlers.NewQueueHandler(queueService),
		handlers.NewLiveHandler(sources, estimator),
		sseHandler,
		handlers.NewScreenHandler(screenService),
		handlers.NewSessionHandler(sessionProvider),
		authenticator,
		metrics,
		cfg.Server.AllowedOrigins,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streams stay open
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	// Pollers first, so nothing publishes into a closing bus. Cancelling the
	// base context also ends open streams, which Shutdown would wait on.
	todayPoller.Stop()
	receptionPoller.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
