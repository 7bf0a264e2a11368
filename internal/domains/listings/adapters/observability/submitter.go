package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

const tracerName = "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/observability/submitter"

// Submitter decorates a listings submitter with tracing, logging, and metrics.
type Submitter struct {
	inner   ports.Submitter
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics submitterMetrics
}

type Option func(*Submitter)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Submitter) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create submission metric instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Submitter) {
		s.metrics = newSubmitterMetrics(m)
	}
}

// New wires a decorator around the orchestrator.
func New(inner ports.Submitter, opts ...Option) ports.Submitter {
	s := &Submitter{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newSubmitterMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// SubmitCreate creates a listing with instrumentation.
func (s *Submitter) SubmitCreate(ctx context.Context, ownerID string, session ports.DraftSession) (*listingtypes.SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "Submitter.SubmitCreate", trace.WithAttributes(attribute.String("listing.owner_id", ownerID)))
	defer span.End()

	s.logger.LogAttrs(ctx, slog.LevelInfo, "submitting new listing", slog.String("owner.id", ownerID))
	result, err := s.inner.SubmitCreate(ctx, ownerID, session)
	if err != nil {
		s.metrics.recordFailed(ctx, "create")
		return nil, s.handleError(ctx, span, err, "failed to submit new listing", slog.String("owner.id", ownerID))
	}
	s.observe(ctx, span, "create", result)
	return result, nil
}

// SubmitUpdate updates a listing with instrumentation.
func (s *Submitter) SubmitUpdate(ctx context.Context, session ports.DraftSession, original *domain.Listing) (*listingtypes.SubmitResult, error) {
	var listingID string
	if original != nil {
		listingID = original.ID
	}
	ctx, span := s.tracer.Start(ctx, "Submitter.SubmitUpdate", trace.WithAttributes(attribute.String("listing.id", listingID)))
	defer span.End()

	s.logger.LogAttrs(ctx, slog.LevelInfo, "submitting listing update", slog.String("listing.id", listingID))
	result, err := s.inner.SubmitUpdate(ctx, session, original)
	if err != nil {
		s.metrics.recordFailed(ctx, "update")
		return nil, s.handleError(ctx, span, err, "failed to submit listing update", slog.String("listing.id", listingID))
	}
	s.observe(ctx, span, "update", result)
	return result, nil
}

func (s *Submitter) observe(ctx context.Context, span trace.Span, path string, result *listingtypes.SubmitResult) {
	if result == nil {
		return
	}
	var uploaded, removed int
	for _, outcome := range result.Groups {
		uploaded += len(outcome.Uploaded)
		removed += len(outcome.Removed)
	}
	span.SetAttributes(
		attribute.Int("listing.media.uploaded", uploaded),
		attribute.Int("listing.media.removed", removed),
		attribute.Int("listing.media.delete_errors", len(result.DeleteErrors)),
	)
	s.metrics.recordSubmitted(ctx, path)
	s.metrics.recordMedia(ctx, uploaded, removed)
	for _, err := range result.DeleteErrors {
		s.metrics.recordOrphaned(ctx)
		s.logger.LogAttrs(ctx, slog.LevelWarn, "attachment delete failed during submission", slog.String("error", err.Error()))
	}
	attrs := []slog.Attr{slog.Int("uploaded", uploaded), slog.Int("removed", removed)}
	if result.Listing != nil && result.Listing.Entity != nil {
		attrs = append(attrs, slog.String("listing.id", result.Listing.Entity.ID))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "listing submitted", attrs...)
}

func (s *Submitter) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type submitterMetrics struct {
	submitted metric.Int64Counter
	failed    metric.Int64Counter
	uploaded  metric.Int64Counter
	removed   metric.Int64Counter
	orphaned  metric.Int64Counter
}

func newSubmitterMetrics(m metric.Meter) submitterMetrics {
	if m == nil {
		return submitterMetrics{}
	}
	submitted, _ := m.Int64Counter("listings.submit.succeeded", metric.WithDescription("Number of successful listing submissions"))
	failed, _ := m.Int64Counter("listings.submit.failed", metric.WithDescription("Number of failed listing submissions"))
	uploaded, _ := m.Int64Counter("listings.media.uploaded", metric.WithDescription("Number of attachments uploaded by submissions"))
	removed, _ := m.Int64Counter("listings.media.removed", metric.WithDescription("Number of attachments removed by submissions"))
	orphaned, _ := m.Int64Counter("listings.media.delete_failures", metric.WithDescription("Number of failed attachment delete batches"))
	return submitterMetrics{
		submitted: submitted,
		failed:    failed,
		uploaded:  uploaded,
		removed:   removed,
		orphaned:  orphaned,
	}
}

func (m submitterMetrics) recordSubmitted(ctx context.Context, path string) {
	addCounter(ctx, m.submitted, 1, attribute.String("listing.submit.path", path))
}

func (m submitterMetrics) recordFailed(ctx context.Context, path string) {
	addCounter(ctx, m.failed, 1, attribute.String("listing.submit.path", path))
}

func (m submitterMetrics) recordMedia(ctx context.Context, uploaded, removed int) {
	addCounter(ctx, m.uploaded, int64(uploaded))
	addCounter(ctx, m.removed, int64(removed))
}

func (m submitterMetrics) recordOrphaned(ctx context.Context) {
	addCounter(ctx, m.orphaned, 1)
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil || value == 0 {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Submitter = (*Submitter)(nil)
