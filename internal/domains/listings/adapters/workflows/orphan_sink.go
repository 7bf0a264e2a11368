package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
	mediaactivities "github.com/Apurer/go-gin-listings-api/internal/platform/temporal/activities/media"
	mediaworkflows "github.com/Apurer/go-gin-listings-api/internal/platform/temporal/workflows/media"
)

var (
	_ ports.OrphanSink = (*TemporalOrphanSink)(nil)
	_ ports.OrphanSink = (*InlineOrphanSink)(nil)
)

// workflowStarter is the slice of client.Client the sink needs.
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// TemporalOrphanSink hands orphaned references to a cleanup workflow.
type TemporalOrphanSink struct {
	client    workflowStarter
	taskQueue string
}

// NewTemporalOrphanSink wires a Temporal client into the sink.
func NewTemporalOrphanSink(c client.Client) *TemporalOrphanSink {
	return newTemporalOrphanSink(c)
}

func newTemporalOrphanSink(c workflowStarter) *TemporalOrphanSink {
	return &TemporalOrphanSink{client: c, taskQueue: mediaworkflows.MediaCleanupTaskQueue}
}

// Record starts MediaCleanupWorkflow without waiting for it. The workflow ID
// is derived from the reference set, so a retried Record for the same set
// joins the running execution.
func (s *TemporalOrphanSink) Record(ctx context.Context, refs []string, reason ports.OrphanReason) error {
	if s == nil || s.client == nil {
		return errors.New("temporal orphan sink not configured")
	}
	if len(refs) == 0 {
		return nil
	}
	options := client.StartWorkflowOptions{
		ID:        buildCleanupWorkflowID(refs, reason),
		TaskQueue: s.taskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, options, mediaworkflows.MediaCleanupWorkflow, mediaworkflows.MediaCleanupWorkflowInput{
		Cleanup: mediaactivities.CleanupInput{References: append([]string{}, refs...), Reason: reason},
		TraceID: workflowTraceID(ctx),
	})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return err
	}
	return nil
}

// InlineOrphanSink writes straight to the orphan ledger, for deployments
// without Temporal.
type InlineOrphanSink struct {
	ledger ports.OrphanSink
}

// NewInlineOrphanSink wraps a ledger.
func NewInlineOrphanSink(ledger ports.OrphanSink) *InlineOrphanSink {
	return &InlineOrphanSink{ledger: ledger}
}

// Record delegates to the ledger.
func (s *InlineOrphanSink) Record(ctx context.Context, refs []string, reason ports.OrphanReason) error {
	if s == nil || s.ledger == nil {
		return errors.New("inline orphan sink not configured")
	}
	return s.ledger.Record(ctx, refs, reason)
}

func buildCleanupWorkflowID(refs []string, reason ports.OrphanReason) string {
	sorted := append([]string{}, refs...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return fmt.Sprintf("media-cleanup-%s-%s", reason, hex.EncodeToString(sum[:8]))
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
