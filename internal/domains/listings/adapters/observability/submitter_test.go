package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
	"github.com/Apurer/go-gin-listings-api/internal/shared/projection"
)

type stubSubmitter struct {
	result *listingtypes.SubmitResult
	err    error
}

func (s stubSubmitter) SubmitCreate(context.Context, string, ports.DraftSession) (*listingtypes.SubmitResult, error) {
	return s.result, s.err
}

func (s stubSubmitter) SubmitUpdate(context.Context, ports.DraftSession, *domain.Listing) (*listingtypes.SubmitResult, error) {
	return s.result, s.err
}

type fixture struct {
	spans   *tracetest.SpanRecorder
	reader  *sdkmetric.ManualReader
	logs    *bytes.Buffer
	options []Option
}

func newFixture() fixture {
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	logs := &bytes.Buffer{}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return fixture{
		spans:  spans,
		reader: reader,
		logs:   logs,
		options: []Option{
			WithTracer(tp.Tracer("test")),
			WithMeter(mp.Meter("test")),
			WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
		},
	}
}

func (f fixture) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestSubmitterRecordsSuccessfulCreate(t *testing.T) {
	f := newFixture()
	result := &listingtypes.SubmitResult{
		Listing: &projection.Projection[*domain.Listing]{Entity: &domain.Listing{ID: "lst-1"}},
		Groups: map[domain.Group]listingtypes.GroupOutcome{
			domain.GroupPhotos: {Group: domain.GroupPhotos, Uploaded: map[string]string{"b1": "ref-1", "b2": "ref-2"}},
		},
	}
	sub := New(stubSubmitter{result: result}, f.options...)

	got, err := sub.SubmitCreate(context.Background(), "owner-1", nil)
	require.NoError(t, err)
	assert.Same(t, result, got)

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "Submitter.SubmitCreate", ended[0].Name())
	assert.NotEqual(t, codes.Error, ended[0].Status().Code)

	assert.EqualValues(t, 1, f.counter(t, "listings.submit.succeeded"))
	assert.EqualValues(t, 2, f.counter(t, "listings.media.uploaded"))
	assert.Contains(t, f.logs.String(), "listing submitted")
	assert.Contains(t, f.logs.String(), "lst-1")
}

func TestSubmitterRecordsFailure(t *testing.T) {
	f := newFixture()
	boom := errors.New("backend unavailable")
	sub := New(stubSubmitter{err: boom}, f.options...)

	_, err := sub.SubmitUpdate(context.Background(), nil, &domain.Listing{ID: "lst-2"})
	require.ErrorIs(t, err, boom)

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.EqualValues(t, 1, f.counter(t, "listings.submit.failed"))
	assert.Contains(t, f.logs.String(), "failed to submit listing update")
}

func TestSubmitterLogsDeleteErrors(t *testing.T) {
	f := newFixture()
	result := &listingtypes.SubmitResult{
		Listing: &projection.Projection[*domain.Listing]{Entity: &domain.Listing{ID: "lst-3"}},
		Groups: map[domain.Group]listingtypes.GroupOutcome{
			domain.GroupPhotos: {Group: domain.GroupPhotos, Removed: []string{"old-1"}},
		},
		DeleteErrors: []error{errors.New("photos: delete refused")},
	}
	sub := New(stubSubmitter{result: result}, f.options...)

	_, err := sub.SubmitUpdate(context.Background(), nil, &domain.Listing{ID: "lst-3"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.counter(t, "listings.media.delete_failures"))
	assert.EqualValues(t, 1, f.counter(t, "listings.media.removed"))
	assert.Contains(t, f.logs.String(), "delete refused")
}

func TestSubmitterDefaultsAreSilent(t *testing.T) {
	sub := New(stubSubmitter{result: &listingtypes.SubmitResult{}})
	_, err := sub.SubmitCreate(context.Background(), "owner", nil)
	require.NoError(t, err)
}
