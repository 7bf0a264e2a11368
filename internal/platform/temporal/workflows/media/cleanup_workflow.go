package media

import (
	"go.temporal.io/sdk/workflow"

	mediaactivities "github.com/Apurer/go-gin-listings-api/internal/platform/temporal/activities/media"
	"github.com/Apurer/go-gin-listings-api/internal/platform/temporal/sequences"
)

const (
	// MediaCleanupWorkflowName is the public identifier for registering the workflow.
	MediaCleanupWorkflowName = "media.workflows.Cleanup"
	// MediaCleanupTaskQueue is the queue consumed by the worker processing cleanup workflows.
	MediaCleanupTaskQueue = "MEDIA_CLEANUP"
)

// MediaCleanupWorkflowInput carries the references to remove.
type MediaCleanupWorkflowInput struct {
	Cleanup mediaactivities.CleanupInput
	TraceID string
}

// MediaCleanupWorkflow removes orphaned attachment objects.
func MediaCleanupWorkflow(ctx workflow.Context, input MediaCleanupWorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	count := len(input.Cleanup.References)
	logger.Info("MediaCleanupWorkflow started", withTraceID(input.TraceID, "count", count)...)
	if err := sequences.RunMediaCleanupSequence(ctx, input.Cleanup); err != nil {
		logger.Error("MediaCleanupWorkflow failed", withTraceID(input.TraceID, "count", count, "error", err)...)
		return err
	}
	logger.Info("MediaCleanupWorkflow completed", withTraceID(input.TraceID, "count", count)...)
	return nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
