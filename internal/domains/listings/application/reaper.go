package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

// DefaultReapBatch matches the largest batch a single object-store delete accepts.
const DefaultReapBatch = 1000

// ReapReport summarises one reaper run.
type ReapReport struct {
	Reaped  int
	Failed  int
	Batches int
}

// ReapOrphans drains the ledger one batch at a time, issuing a single
// DeleteMany per batch. A failed batch stays pending with its attempt
// counter bumped and stops the run.
func ReapOrphans(ctx context.Context, ledger ports.OrphanLedger, objects ports.ObjectStore, batch int, logger *slog.Logger) (ReapReport, error) {
	var report ReapReport
	if batch <= 0 || batch > DefaultReapBatch {
		batch = DefaultReapBatch
	}
	if logger == nil {
		logger = discardLogger()
	}
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		records, err := ledger.Pending(ctx, batch)
		if err != nil {
			return report, fmt.Errorf("load orphan records: %w", err)
		}
		if len(records) == 0 {
			return report, nil
		}
		report.Batches++

		ids := make([]string, 0, len(records))
		refs := make([]string, 0, len(records))
		for _, rec := range records {
			ids = append(ids, rec.ID)
			refs = append(refs, rec.Reference)
		}
		if err := objects.DeleteMany(ctx, refs); err != nil {
			report.Failed += len(ids)
			if markErr := ledger.MarkFailed(ctx, ids); markErr != nil {
				logger.LogAttrs(ctx, slog.LevelError, "failed to bump orphan attempts",
					slog.Int("count", len(ids)), slog.String("error", markErr.Error()))
			}
			return report, fmt.Errorf("%w: %w", ErrDeleteFailed, err)
		}
		if err := ledger.MarkReaped(ctx, ids); err != nil {
			return report, fmt.Errorf("mark orphans reaped: %w", err)
		}
		report.Reaped += len(ids)
		logger.LogAttrs(ctx, slog.LevelInfo, "reaped orphaned attachments", slog.Int("count", len(ids)))
		if len(records) < batch {
			return report, nil
		}
	}
}
