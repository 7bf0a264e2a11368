package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	mediaactivities "github.com/Apurer/go-gin-listings-api/internal/platform/temporal/activities/media"
)

// RunMediaCleanupSequence deletes the references and, once the delete retries
// are exhausted, parks them in the orphan ledger.
func RunMediaCleanupSequence(ctx workflow.Context, input mediaactivities.CleanupInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("media cleanup sequence started", "count", len(input.References), "reason", string(input.Reason))

	deleteOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	}
	recordOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    10,
		},
	}

	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, deleteOptions), mediaactivities.DeleteObjectsActivityName, input).Get(ctx, nil)
	if err == nil {
		logger.Info("media cleanup sequence deleted objects", "count", len(input.References))
		return nil
	}
	logger.Warn("media cleanup sequence delete exhausted retries", "count", len(input.References), "error", err)

	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, recordOptions), mediaactivities.RecordOrphansActivityName, input).Get(ctx, nil); err != nil {
		logger.Error("media cleanup sequence failed to record orphans", "count", len(input.References), "error", err)
		return err
	}
	logger.Info("media cleanup sequence recorded orphans", "count", len(input.References))
	return nil
}
