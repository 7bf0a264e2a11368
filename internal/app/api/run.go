package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	listingserver "github.com/Apurer/go-gin-listings-api/go"

	sqlitecache "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/draftcache/sqlite"
	listingsmemory "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/memory"
	s3store "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/objectstore/s3"
	listingsobs "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/observability"
	listingspostgres "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/persistence/postgres"
	listingsworkflows "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/workflows"
	listingsapp "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application"
	listingsports "github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
	"github.com/Apurer/go-gin-listings-api/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-gin-listings-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-gin-listings-api/internal/platform/postgres"
)

const serviceName = "listings-api"

// Run boots the listings HTTP API with observability, adapters, and workflows
// wired. It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	db, cleanupDB := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	defer cleanupDB()
	repo, ledger, err := BuildPersistence(db, logger)
	if err != nil {
		return err
	}

	objects, err := BuildObjectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	instrumented, err := listingsobs.NewObjectStore(objects, instruments.PrometheusRegisterer())
	if err != nil {
		return fmt.Errorf("failed to register object store metrics: %w", err)
	}

	cache, closeCache, err := buildDraftCache(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	var sink listingsports.OrphanSink = listingsworkflows.NewInlineOrphanSink(ledger)
	if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, recording orphans inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		sink = listingsworkflows.NewTemporalOrphanSink(temporalClient)
		logger.Info("Temporal media cleanup enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	reconciler := listingsapp.NewReconciler(
		instrumented,
		listingsapp.WithReconcilerLogger(logger),
		listingsapp.WithOrphanSink(sink),
		listingsapp.WithUploadConcurrency(cfg.Listings.UploadConcurrency),
	)
	orchestratorOpts := []listingsapp.OrchestratorOption{
		listingsapp.WithOrchestratorLogger(logger),
		listingsapp.WithBatchedDeletes(cfg.Listings.BatchDeletes),
	}
	if cfg.Listings.CompensateUploads {
		orchestratorOpts = append(orchestratorOpts, listingsapp.WithCompensation(sink))
	}
	submitter := listingsobs.New(
		listingsapp.NewOrchestrator(repo, reconciler, orchestratorOpts...),
		listingsobs.WithLogger(logger),
		listingsobs.WithTracer(instruments.Tracer("internal.listings.application")),
		listingsobs.WithMeter(instruments.Meter("internal.listings.application")),
	)
	sessions := listingsapp.NewSessions(cache, repo, submitter,
		listingsapp.WithSessionsLogger(logger),
		listingsapp.WithIdleTTL(cfg.Listings.SessionIdleTTL),
	)
	go sessions.RunSweeper(ctx, sweepInterval(cfg.Listings.SessionIdleTTL))

	handlers := listingserver.ApiHandleFunctions{
		ListingAPI: listingserver.NewListingAPI(repo),
		WizardAPI: listingserver.NewWizardAPI(
			sessions,
			listingserver.WithSubmitTimeout(cfg.Listings.SubmitTimeout),
			listingserver.WithMaxUploadBytes(cfg.Listings.MaxUploadBytes),
		),
		Metrics: promhttp.HandlerFor(instruments.Registry, promhttp.HandlerOpts{}),
	}
	listingserver.SetProblemLogger(logger)
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), otelgin.Middleware(serviceName))
	router := listingserver.NewRouterWithGinEngine(engine, handlers)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listings API listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listings API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Listings.SubmitTimeout)
		defer cancel()
		logger.Info("listings API shutting down")
		return server.Shutdown(shutdownCtx)
	}
}

// BuildPersistence returns the postgres repository and orphan ledger, or the
// memory ones when db is nil.
func BuildPersistence(db *gorm.DB, logger *slog.Logger) (listingsports.Repository, listingsports.OrphanLedger, error) {
	if db == nil {
		logger.Warn("listings persisted in memory; data is lost on restart")
		return listingsmemory.NewRepository(), listingsmemory.NewOrphanLedger(), nil
	}
	if err := migrations.Run(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate listings schema: %w", err)
	}
	logger.Info("listing repository configured with postgres")
	return listingspostgres.NewRepository(db), listingspostgres.NewOrphanLedger(db), nil
}

// BuildObjectStore returns the configured attachment object store.
func BuildObjectStore(ctx context.Context, cfg Config, logger *slog.Logger) (listingsports.ObjectStore, error) {
	if cfg.ObjectStoreDriver != DriverS3 {
		logger.Warn("attachments stored in memory; objects are lost on restart")
		return listingsmemory.NewObjectStore(""), nil
	}
	store, err := s3store.New(ctx, cfg.S3.Adapter())
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3 object store: %w", err)
	}
	logger.Info("object store configured with S3", slog.String("bucket", cfg.S3.Bucket))
	return store, nil
}

func buildDraftCache(cfg Config, logger *slog.Logger) (listingsports.DraftCache, func(), error) {
	if cfg.DraftCacheDriver != DriverSQLite {
		return listingsmemory.NewDraftCache(), func() {}, nil
	}
	cache, err := sqlitecache.Open(cfg.DraftCachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open draft cache: %w", err)
	}
	logger.Info("draft cache configured with sqlite", slog.String("path", cfg.DraftCachePath))
	return cache, func() {
		if err := cache.Close(); err != nil {
			logger.Warn("failed to close draft cache", slog.String("error", err.Error()))
		}
	}, nil
}

func connectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

// sweepInterval checks for idle sessions a few times per TTL, at most once a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Minute)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
