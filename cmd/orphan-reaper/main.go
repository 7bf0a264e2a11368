package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Apurer/go-gin-listings-api/internal/app/api"
	listingspostgres "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/persistence/postgres"
	listingsapp "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application"
	platformpostgres "github.com/Apurer/go-gin-listings-api/internal/platform/postgres"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot reap orphans")
	}
	if cfg.ObjectStoreDriver != api.DriverS3 {
		log.Fatal("OBJECT_STORE_DRIVER must be s3 to reap orphans")
	}
	objects, err := api.BuildObjectStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to configure object store: %v", err)
	}

	report, err := listingsapp.ReapOrphans(ctx, listingspostgres.NewOrphanLedger(db), objects, batchSizeFromEnv(), logger)
	if err != nil {
		log.Fatalf("orphan reap stopped after %d reaped, %d failed: %v", report.Reaped, report.Failed, err)
	}
	log.Printf("orphan reap completed: %d reaped in %d batches", report.Reaped, report.Batches)
}

func batchSizeFromEnv() int {
	raw := strings.TrimSpace(os.Getenv("ORPHAN_REAP_BATCH"))
	if raw == "" {
		return listingsapp.DefaultReapBatch
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return listingsapp.DefaultReapBatch
	}
	return n
}
