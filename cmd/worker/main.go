package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-listings-api/internal/app/api"
	platformobservability "github.com/Apurer/go-gin-listings-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-gin-listings-api/internal/platform/postgres"
	mediaactivities "github.com/Apurer/go-gin-listings-api/internal/platform/temporal/activities/media"
	mediaworkflows "github.com/Apurer/go-gin-listings-api/internal/platform/temporal/workflows/media"
)

func main() {
	ctx := context.Background()
	const serviceName = "listings-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := api.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	db, cleanupDB := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	defer cleanupDB()
	_, ledger, err := api.BuildPersistence(db, logger)
	if err != nil {
		logger.Error("failed to configure orphan ledger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	objects, err := api.BuildObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to configure object store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cleanupActivities := mediaactivities.NewActivities(objects, ledger)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, mediaworkflows.MediaCleanupTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(mediaworkflows.MediaCleanupWorkflow, workflow.RegisterOptions{Name: mediaworkflows.MediaCleanupWorkflowName})
	w.RegisterActivityWithOptions(cleanupActivities.DeleteObjects, activity.RegisterOptions{Name: mediaactivities.DeleteObjectsActivityName})
	w.RegisterActivityWithOptions(cleanupActivities.RecordOrphans, activity.RegisterOptions{Name: mediaactivities.RecordOrphansActivityName})

	logger.Info("worker listening", slog.String("taskQueue", mediaworkflows.MediaCleanupTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
