package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/prepjourney/prepjourney-backend/api/routes"
	"github.com/prepjourney/prepjourney-backend/internal/assignments"
	"github.com/prepjourney/prepjourney-backend/internal/conversions"
	"github.com/prepjourney/prepjourney-backend/internal/experiments"
	"github.com/prepjourney/prepjourney-backend/internal/insights"
	"github.com/prepjourney/prepjourney-backend/pkg/config"
	"github.com/prepjourney/prepjourney-backend/pkg/db"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/prepjourney/prepjourney-backend/pkg/metrics"
	"github.com/prepjourney/prepjourney-backend/pkg/migrate"
	"github.com/prepjourney/prepjourney-backend/pkg/outbox"
	"github.com/prepjourney/prepjourney-backend/pkg/redis"
	"github.com/prepjourney/prepjourney-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	experimentMetrics := metrics.NewExperimentMetrics(registry)

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	experimentsService := experiments.NewService(
		experiments.NewRepository(dbClient.DB()), dbClient, events, logg)

	assignmentsRepo := assignments.NewRepository(dbClient.DB())
	assignmentsService := assignments.NewService(
		redisClient, assignmentsRepo, dbClient, events,
		experimentsService, experimentMetrics, logg, cfg.Experiments)
	defer assignmentsService.Wait()

	conversionsRepo := conversions.NewRepository(dbClient.DB())
	conversionsService := conversions.NewService(
		conversionsRepo, dbClient, events, squareClient, logg)

	webhookGuard, err := conversions.NewGuard(redisClient, cfg.Experiments.WebhookIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	insightsService := insights.NewService(
		experimentsService, assignmentsRepo, conversionsRepo, logg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Gatherer:     registry,
			Metrics:      experimentMetrics,
			Experiments:  experimentsService,
			Assignments:  assignmentsService,
			Insights:     insightsService,
			Conversions:  conversionsService,
			Square:       squareClient,
			WebhookGuard: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
