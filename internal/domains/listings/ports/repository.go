package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/shared/projection"
)

var ErrNotFound = errors.New("listing not found")

// Repository is the resource backend holding persisted listings.
type Repository interface {
	// Create persists the scalar fields of a new listing and assigns its ID.
	// Media lists start empty.
	Create(ctx context.Context, ownerID string, fields domain.ListingFields) (*projection.Projection[*domain.Listing], error)
	// Update applies a partial patch to an existing listing.
	Update(ctx context.Context, id string, patch domain.ListingPatch) (*projection.Projection[*domain.Listing], error)
	GetByID(ctx context.Context, id string) (*projection.Projection[*domain.Listing], error)
}
