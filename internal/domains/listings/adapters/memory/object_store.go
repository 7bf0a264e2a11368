package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

var _ ports.ObjectStore = (*ObjectStore)(nil)

// ObjectStore is an in-memory blob store for development and tests.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	prefix  string
}

// NewObjectStore builds a store whose references start with prefix.
func NewObjectStore(prefix string) *ObjectStore {
	if prefix == "" {
		prefix = "memory://listings"
	}
	return &ObjectStore{objects: map[string][]byte{}, prefix: prefix}
}

func (s *ObjectStore) Upload(ctx context.Context, req ports.UploadRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Blob == nil || len(req.Blob.Data) == 0 {
		return "", errors.New("blob is empty")
	}
	ref := fmt.Sprintf("%s/%s/%s", s.prefix, req.Group, uuid.NewString())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ref] = append([]byte{}, req.Blob.Data...)
	return ref, nil
}

// DeleteMany removes the references. Unknown references are ignored.
func (s *ObjectStore) DeleteMany(ctx context.Context, refs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		delete(s.objects, ref)
	}
	return nil
}

// Has reports whether ref is stored.
func (s *ObjectStore) Has(ref string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[ref]
	return ok
}

// Refs returns every stored reference in sorted order.
func (s *ObjectStore) Refs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]string, 0, len(s.objects))
	for ref := range s.objects {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
