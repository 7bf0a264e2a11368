package types

import (
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/shared/projection"
)

// ListingProjection is the persisted listing plus storage timestamps.
type ListingProjection = projection.Projection[*domain.Listing]

// Plan is the three-way diff of one attachment group.
type Plan struct {
	Group    domain.Group
	Retained []string
	Pending  []domain.Attachment
	Removed  []string
}

// Empty reports whether the plan requires neither uploads nor deletes.
func (p Plan) Empty() bool {
	return len(p.Pending) == 0 && len(p.Removed) == 0
}

// GroupOutcome is the reconciliation result of one group.
type GroupOutcome struct {
	Group domain.Group
	// Final is the reference list written to the backend.
	Final []string
	// Uploaded maps each pending blob ID to its new reference.
	Uploaded map[string]string
	Removed  []string
}

// SubmitResult summarises a successful submission.
type SubmitResult struct {
	Listing *ListingProjection
	Groups  map[domain.Group]GroupOutcome
	// DeleteErrors holds one non-fatal error per failed delete batch.
	DeleteErrors []error
}
