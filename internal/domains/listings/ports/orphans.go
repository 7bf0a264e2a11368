package ports

import (
	"context"
	"time"
)

// OrphanReason explains why a stored object lost its owner.
type OrphanReason string

const (
	// OrphanDeleteFailed marks references whose batched delete failed.
	OrphanDeleteFailed OrphanReason = "delete_failed"
	// OrphanAbortedSubmit marks uploads made during a submission that later failed.
	OrphanAbortedSubmit OrphanReason = "aborted_submit"
)

// OrphanRecord is one stored object awaiting cleanup.
type OrphanRecord struct {
	ID        string
	Reference string
	Reason    OrphanReason
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
	ReapedAt  *time.Time
}

// OrphanSink accepts references that must eventually be removed from the
// object store.
type OrphanSink interface {
	Record(ctx context.Context, refs []string, reason OrphanReason) error
}

// OrphanLedger is a durable sink the reaper can drain.
type OrphanLedger interface {
	OrphanSink
	// Pending returns at most limit unreaped records, oldest first.
	Pending(ctx context.Context, limit int) ([]OrphanRecord, error)
	MarkReaped(ctx context.Context, ids []string) error
	// MarkFailed bumps the attempt counter of records that could not be removed.
	MarkFailed(ctx context.Context, ids []string) error
}
