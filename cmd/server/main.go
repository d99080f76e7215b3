package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/insight-service/internal/cache"
	"github.com/SAP-F-2025/insight-service/internal/config"
	"github.com/SAP-F-2025/insight-service/internal/events"
	"github.com/SAP-F-2025/insight-service/internal/generation"
	"github.com/SAP-F-2025/insight-service/internal/handlers"
	"github.com/SAP-F-2025/insight-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/insight-service/internal/services"
	"github.com/SAP-F-2025/insight-service/internal/taskgroup"
	"github.com/SAP-F-2025/insight-service/internal/utils"
	"github.com/SAP-F-2025/insight-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(db)

	var cacheSvc cache.CacheService
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, metric caching disabled", "error", err)
	} else {
		cacheSvc = cache.NewRedisCache(redisClient, slogger)
		defer redisClient.Close()
	}

	// Generation stack: rotating credentials behind one rate-limited
	// client, usage recorded per credential and model.
	usageRecorder := generation.NewStoreUsageRecorder(repo.Usage(), slogger)
	client := generation.NewClient(
		generation.AnthropicCredentials(cfg.Generation.APIKeys),
		generation.Config{
			MaxConcurrent:  cfg.Generation.MaxConcurrent,
			Retries:        cfg.Generation.Retries,
			FallbackAfter:  cfg.Generation.FallbackAfter,
			InitialBackoff: cfg.Generation.InitialBackoff,
			MaxBackoff:     cfg.Generation.MaxBackoff,
		},
		usageRecorder,
		slogger,
	)

	metricService := services.NewMetricService(repo, cacheSvc, slogger)
	selectionService := services.NewSelectionService(slogger)
	insightService := services.NewInsightService(repo, metricService, selectionService, client, services.InsightConfig{
		Model:          cfg.Generation.Model,
		FallbackModels: cfg.Generation.FallbackModels,
	}, slogger)
	reportService := services.NewReportService(repo, slogger)
	runner := taskgroup.NewRunner(cfg.Workers, slogger)
	pipelineService := services.NewPipelineService(repo, insightService, runner, cacheSvc, slogger)

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// test.ingested events drive the pipeline; terminal states are
	// published back for downstream consumers.
	trigger := func(triggerCtx context.Context, event *events.TestIngestedEvent) error {
		publishEvent(triggerCtx, publisher, events.EventAnalysisStarted, events.AnalysisStartedEvent{
			ClassID:   event.ClassID,
			TestID:    event.TestID,
			StartedAt: time.Now(),
		}, slogger)

		runErr := pipelineService.Run(triggerCtx, event.ClassID, event.TestID)
		if runErr != nil {
			if errors.Is(runErr, services.ErrAnalysisRunning) {
				logger.Warn("analysis already running, skipping trigger",
					"class_id", event.ClassID, "test_id", event.TestID)
				return nil
			}
			stage := ""
			var pipeErr *services.PipelineError
			if errors.As(runErr, &pipeErr) {
				stage = pipeErr.Stage
			}
			publishEvent(triggerCtx, publisher, events.EventAnalysisFailed, events.AnalysisFailedEvent{
				ClassID:  event.ClassID,
				TestID:   event.TestID,
				Stage:    stage,
				Error:    runErr.Error(),
				FailedAt: time.Now(),
			}, slogger)
			if errors.Is(runErr, services.ErrTestNotFound) {
				// Permanent condition; redelivering the trigger cannot fix it.
				logger.Warn("ignoring trigger for unknown test",
					"class_id", event.ClassID, "test_id", event.TestID)
				return nil
			}
			return runErr
		}

		publishEvent(triggerCtx, publisher, events.EventAnalysisCompleted, events.AnalysisCompletedEvent{
			ClassID:     event.ClassID,
			TestID:      event.TestID,
			CompletedAt: time.Now(),
		}, slogger)
		return nil
	}

	if cfg.Events.Enabled && cfg.Events.Publisher == "kafka" {
		subscriber, err := cfg.Events.CreateTriggerSubscriber(slogger, trigger)
		if err != nil {
			logger.Error("failed to create trigger subscriber", "error", err)
			os.Exit(1)
		}
		defer subscriber.Close()
		go func() {
			if err := subscriber.Run(ctx); err != nil {
				logger.Error("trigger subscriber stopped", "error", err)
			}
		}()
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(
		insightService, reportService, pipelineService, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		logger.Info("insight service listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}

func publishEvent(ctx context.Context, publisher events.EventPublisher, eventType events.EventType, data interface{}, logger *slog.Logger) {
	event := &events.PipelineEvent{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "insight-service",
		Version:   "1.0",
		Data:      data,
	}
	if err := publisher.PublishPipelineEvent(ctx, event); err != nil {
		logger.Error("failed to publish pipeline event", "event_type", eventType, "error", err)
	}
}
