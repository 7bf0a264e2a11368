package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/memory"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
	mediaworkflows "github.com/Apurer/go-gin-listings-api/internal/platform/temporal/workflows/media"
)

type fakeStarter struct {
	options []client.StartWorkflowOptions
	inputs  []mediaworkflows.MediaCleanupWorkflowInput
	err     error
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, options client.StartWorkflowOptions, _ interface{}, args ...interface{}) (client.WorkflowRun, error) {
	f.options = append(f.options, options)
	if len(args) == 1 {
		if input, ok := args[0].(mediaworkflows.MediaCleanupWorkflowInput); ok {
			f.inputs = append(f.inputs, input)
		}
	}
	return nil, f.err
}

func TestTemporalOrphanSinkStartsCleanupWorkflow(t *testing.T) {
	starter := &fakeStarter{}
	sink := newTemporalOrphanSink(starter)

	require.NoError(t, sink.Record(context.Background(), []string{"b", "a"}, ports.OrphanDeleteFailed))

	require.Len(t, starter.options, 1)
	assert.Equal(t, mediaworkflows.MediaCleanupTaskQueue, starter.options[0].TaskQueue)
	assert.Contains(t, starter.options[0].ID, "media-cleanup-delete_failed-")
	require.Len(t, starter.inputs, 1)
	assert.Equal(t, []string{"b", "a"}, starter.inputs[0].Cleanup.References)
	assert.Equal(t, ports.OrphanDeleteFailed, starter.inputs[0].Cleanup.Reason)
}

func TestCleanupWorkflowIDIsOrderIndependent(t *testing.T) {
	first := buildCleanupWorkflowID([]string{"a", "b"}, ports.OrphanDeleteFailed)
	second := buildCleanupWorkflowID([]string{"b", "a"}, ports.OrphanDeleteFailed)
	other := buildCleanupWorkflowID([]string{"a", "b"}, ports.OrphanAbortedSubmit)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
}

func TestTemporalOrphanSinkTreatsAlreadyStartedAsSuccess(t *testing.T) {
	starter := &fakeStarter{err: serviceerror.NewWorkflowExecutionAlreadyStarted("running", "req", "run-1")}
	sink := newTemporalOrphanSink(starter)
	require.NoError(t, sink.Record(context.Background(), []string{"a"}, ports.OrphanDeleteFailed))
}

func TestTemporalOrphanSinkSurfacesStartFailure(t *testing.T) {
	boom := errors.New("frontend unavailable")
	sink := newTemporalOrphanSink(&fakeStarter{err: boom})
	require.ErrorIs(t, sink.Record(context.Background(), []string{"a"}, ports.OrphanDeleteFailed), boom)
}

func TestTemporalOrphanSinkSkipsEmptySets(t *testing.T) {
	starter := &fakeStarter{}
	require.NoError(t, newTemporalOrphanSink(starter).Record(context.Background(), nil, ports.OrphanDeleteFailed))
	assert.Empty(t, starter.options)
}

func TestInlineOrphanSinkRecordsToLedger(t *testing.T) {
	ledger := memory.NewOrphanLedger()
	sink := NewInlineOrphanSink(ledger)
	require.NoError(t, sink.Record(context.Background(), []string{"a"}, ports.OrphanAbortedSubmit))

	pending, err := ledger.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].Reference)
}

func TestUnconfiguredSinksFail(t *testing.T) {
	var temporalSink *TemporalOrphanSink
	require.Error(t, temporalSink.Record(context.Background(), []string{"a"}, ports.OrphanDeleteFailed))
	require.Error(t, NewInlineOrphanSink(nil).Record(context.Background(), []string{"a"}, ports.OrphanDeleteFailed))
}
