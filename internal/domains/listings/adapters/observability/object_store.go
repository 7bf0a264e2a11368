package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

// ObjectStore records Prometheus metrics for every object-store call.
type ObjectStore struct {
	inner    ports.ObjectStore
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    prometheus.Counter
	keys     prometheus.Counter
}

// NewObjectStore registers the collectors on reg and wraps inner.
func NewObjectStore(inner ports.ObjectStore, reg prometheus.Registerer) (*ObjectStore, error) {
	s := &ObjectStore{
		inner: inner,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "listings",
			Subsystem: "object_store",
			Name:      "calls_total",
			Help:      "Object store calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "listings",
			Subsystem: "object_store",
			Name:      "call_duration_seconds",
			Help:      "Object store call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "listings",
			Subsystem: "object_store",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes successfully uploaded.",
		}),
		keys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "listings",
			Subsystem: "object_store",
			Name:      "deleted_keys_total",
			Help:      "References successfully deleted.",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{s.calls, s.duration, s.bytes, s.keys} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *ObjectStore) Upload(ctx context.Context, req ports.UploadRequest) (string, error) {
	start := time.Now()
	ref, err := s.inner.Upload(ctx, req)
	s.observe("upload", start, err)
	if err == nil && req.Blob != nil {
		s.bytes.Add(float64(req.Blob.Size()))
	}
	return ref, err
}

func (s *ObjectStore) DeleteMany(ctx context.Context, refs []string) error {
	start := time.Now()
	err := s.inner.DeleteMany(ctx, refs)
	s.observe("delete_many", start, err)
	if err == nil {
		s.keys.Add(float64(len(refs)))
	}
	return err
}

func (s *ObjectStore) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.calls.WithLabelValues(op, outcome).Inc()
	s.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

var _ ports.ObjectStore = (*ObjectStore)(nil)
