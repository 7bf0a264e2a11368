package ports

import (
	"context"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
)

// UploadRequest describes a single pending blob to persist.
type UploadRequest struct {
	Group        domain.Group
	Blob         *domain.Blob
	OriginalName string
}

// ObjectStore persists media blobs and removes them in batches.
type ObjectStore interface {
	// Upload stores the blob and returns its durable reference.
	Upload(ctx context.Context, req UploadRequest) (string, error)
	// DeleteMany removes every reference in one request. A failure applies to
	// the whole batch.
	DeleteMany(ctx context.Context, refs []string) error
}
