package media

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

const (
	// DeleteObjectsActivityName removes a batch of object references.
	DeleteObjectsActivityName = "media.activities.DeleteObjects"
	// RecordOrphansActivityName parks references the cleanup could not remove.
	RecordOrphansActivityName = "media.activities.RecordOrphans"
)

// CleanupInput is the payload shared by the cleanup activities.
type CleanupInput struct {
	References []string
	Reason     ports.OrphanReason
}

// Activities groups the media cleanup activities.
type Activities struct {
	objects ports.ObjectStore
	ledger  ports.OrphanSink
}

// NewActivities wires the object store and the fallback ledger. ledger may be nil.
func NewActivities(objects ports.ObjectStore, ledger ports.OrphanSink) *Activities {
	return &Activities{objects: objects, ledger: ledger}
}

// DeleteObjects issues one batched delete for the input references.
func (a *Activities) DeleteObjects(ctx context.Context, input CleanupInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.objects == nil {
		logger.Error("media cleanup activity not initialized")
		return errors.New("media cleanup activity not initialized")
	}
	if len(input.References) == 0 {
		return nil
	}
	logger.Info("DeleteObjects activity started", "count", len(input.References), "reason", string(input.Reason))
	if err := a.objects.DeleteMany(ctx, input.References); err != nil {
		logger.Warn("DeleteObjects activity failed", "count", len(input.References), "error", err)
		return err
	}
	logger.Info("DeleteObjects activity completed", "count", len(input.References))
	return nil
}

// RecordOrphans hands the references to the orphan ledger for the reaper.
func (a *Activities) RecordOrphans(ctx context.Context, input CleanupInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.ledger == nil {
		logger.Info("orphan ledger not configured; skipping", "count", len(input.References))
		return nil
	}
	if err := a.ledger.Record(ctx, input.References, input.Reason); err != nil {
		logger.Error("RecordOrphans activity failed", "count", len(input.References), "error", err)
		return err
	}
	logger.Info("RecordOrphans activity completed", "count", len(input.References))
	return nil
}
