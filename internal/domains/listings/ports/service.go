package ports

import (
	"context"

	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
)

// DraftSession is the slice of a draft store a submission needs.
type DraftSession interface {
	Current() domain.Draft
	Clear(ctx context.Context) error
}

// Submitter sequences uploads, deletes and the backend write for a draft
// (inbound/driving port).
type Submitter interface {
	SubmitCreate(ctx context.Context, ownerID string, session DraftSession) (*listingtypes.SubmitResult, error)
	SubmitUpdate(ctx context.Context, session DraftSession, original *domain.Listing) (*listingtypes.SubmitResult, error)
}
