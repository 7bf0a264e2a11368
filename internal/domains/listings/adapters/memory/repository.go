package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
	"github.com/Apurer/go-gin-listings-api/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

type listingRecord struct {
	listing   *domain.Listing
	createdAt time.Time
	updatedAt time.Time
}

// Repository is an in-memory listing persistence adapter.
type Repository struct {
	mu       sync.RWMutex
	listings map[string]*listingRecord
	now      func() time.Time
	newID    func() string
}

func NewRepository() *Repository {
	return &Repository{
		listings: map[string]*listingRecord{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithClock overrides the time source for deterministic testing.
func (r *Repository) WithClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Repository) Create(_ context.Context, ownerID string, fields domain.ListingFields) (*projection.Projection[*domain.Listing], error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	rec := &listingRecord{
		listing: &domain.Listing{
			ID:            r.newID(),
			OwnerID:       ownerID,
			ListingFields: fields.Clone(),
		},
		createdAt: now,
		updatedAt: now,
	}
	r.listings[rec.listing.ID] = rec
	return rec.project(), nil
}

func (r *Repository) Update(_ context.Context, id string, patch domain.ListingPatch) (*projection.Projection[*domain.Listing], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.listings[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	next := rec.listing.Clone()
	if err := patch.Apply(next); err != nil {
		return nil, err
	}
	rec.listing = next
	rec.updatedAt = r.now()
	return rec.project(), nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*projection.Projection[*domain.Listing], error) {
	if id == "" {
		return nil, errors.New("listing id is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.listings[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return rec.project(), nil
}

// Put stores a listing as-is, replacing any listing with the same ID.
func (r *Repository) Put(listing *domain.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.listings[listing.ID] = &listingRecord{listing: listing.Clone(), createdAt: now, updatedAt: now}
}

// Reset drops every stored listing.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings = map[string]*listingRecord{}
}

func (rec *listingRecord) project() *projection.Projection[*domain.Listing] {
	return projection.New(rec.listing.Clone(), rec.createdAt, rec.updatedAt)
}
