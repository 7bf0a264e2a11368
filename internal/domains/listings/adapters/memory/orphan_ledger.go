package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

var _ ports.OrphanLedger = (*OrphanLedger)(nil)

// OrphanLedger tracks orphaned references in memory.
type OrphanLedger struct {
	mu      sync.RWMutex
	records map[string]ports.OrphanRecord
	now     func() time.Time
}

func NewOrphanLedger() *OrphanLedger {
	return &OrphanLedger{records: map[string]ports.OrphanRecord{}, now: time.Now}
}

// WithClock overrides the time source for deterministic testing.
func (l *OrphanLedger) WithClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Record adds one pending record per reference. A reference that is already
// pending is not duplicated.
func (l *OrphanLedger) Record(_ context.Context, refs []string, reason ports.OrphanReason) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pending := map[string]struct{}{}
	for _, rec := range l.records {
		if rec.ReapedAt == nil {
			pending[rec.Reference] = struct{}{}
		}
	}
	now := l.now()
	for _, ref := range refs {
		if _, ok := pending[ref]; ok || ref == "" {
			continue
		}
		pending[ref] = struct{}{}
		id := uuid.NewString()
		l.records[id] = ports.OrphanRecord{
			ID:        id,
			Reference: ref,
			Reason:    reason,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return nil
}

func (l *OrphanLedger) Pending(_ context.Context, limit int) ([]ports.OrphanRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ports.OrphanRecord, 0, len(l.records))
	for _, rec := range l.records {
		if rec.ReapedAt == nil {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Reference < out[j].Reference
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *OrphanLedger) MarkReaped(_ context.Context, ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for _, id := range ids {
		rec, ok := l.records[id]
		if !ok {
			continue
		}
		reaped := now
		rec.ReapedAt = &reaped
		rec.UpdatedAt = now
		l.records[id] = rec
	}
	return nil
}

func (l *OrphanLedger) MarkFailed(_ context.Context, ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for _, id := range ids {
		rec, ok := l.records[id]
		if !ok {
			continue
		}
		rec.Attempts++
		rec.UpdatedAt = now
		l.records[id] = rec
	}
	return nil
}
