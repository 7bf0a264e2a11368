package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	listingmemory "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/memory"
	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
	"github.com/Apurer/go-gin-listings-api/internal/shared/projection"
)

var errBoom = errors.New("boom")

// recordingStore is an object store that records every call and can be told
// to fail uploads of specific file names or every delete.
type recordingStore struct {
	mu          sync.Mutex
	seq         atomic.Int64
	uploads     []ports.UploadRequest
	deletes     [][]string
	failUploads map[string]bool
	failDeletes bool
	events      *eventLog
}

func newRecordingStore() *recordingStore {
	return &recordingStore{failUploads: map[string]bool{}}
}

func (s *recordingStore) Upload(ctx context.Context, req ports.UploadRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, req)
	fail := s.failUploads[req.OriginalName]
	s.mu.Unlock()
	s.events.add("upload:" + string(req.Group))
	if fail {
		return "", errBoom
	}
	return fmt.Sprintf("ref-%s-%d", req.OriginalName, s.seq.Add(1)), nil
}

func (s *recordingStore) DeleteMany(_ context.Context, refs []string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, append([]string{}, refs...))
	fail := s.failDeletes
	s.mu.Unlock()
	s.events.add("delete")
	if fail {
		return errBoom
	}
	return nil
}

func (s *recordingStore) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

func (s *recordingStore) deleteCalls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string{}, s.deletes...)
}

// blockingStore parks every upload until the context is cancelled.
type blockingStore struct {
	started chan struct{}
	once    sync.Once
}

func (s *blockingStore) Upload(ctx context.Context, _ ports.UploadRequest) (string, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return "", ctx.Err()
}

func (s *blockingStore) DeleteMany(context.Context, []string) error { return nil }

// eventLog captures the order of side effects across collaborators.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.events...)
}

// flakyRepo wraps a repository and can fail its create or update calls.
type flakyRepo struct {
	ports.Repository
	failCreate bool
	failUpdate bool
	patches    []domain.ListingPatch
	events     *eventLog
}

func (r *flakyRepo) Create(ctx context.Context, ownerID string, fields domain.ListingFields) (*projection.Projection[*domain.Listing], error) {
	r.events.add("create")
	if r.failCreate {
		return nil, errBoom
	}
	return r.Repository.Create(ctx, ownerID, fields)
}

func (r *flakyRepo) Update(ctx context.Context, id string, patch domain.ListingPatch) (*projection.Projection[*domain.Listing], error) {
	r.events.add("update")
	r.patches = append(r.patches, patch)
	if r.failUpdate {
		return nil, errBoom
	}
	return r.Repository.Update(ctx, id, patch)
}

// failingCache refuses every write.
type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingCache) Set(context.Context, string, string) error        { return errBoom }
func (failingCache) Remove(context.Context, string) error             { return errBoom }

func pending(name string) domain.Attachment {
	blob, err := domain.NewBlob([]byte("data-"+name), "image/jpeg")
	if err != nil {
		panic(err)
	}
	att, err := domain.PendingAttachment(blob, name)
	if err != nil {
		panic(err)
	}
	return att
}

// slowCache is a memory cache whose writes take a while, widening any
// read-modify-write window in the draft store.
type slowCache struct {
	*listingmemory.DraftCache
	delay time.Duration
}

func (c slowCache) Set(ctx context.Context, key, value string) error {
	time.Sleep(c.delay)
	return c.DraftCache.Set(ctx, key, value)
}

// gatedSubmitter blocks every submission until release is closed.
type gatedSubmitter struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	err     error
}

func newGatedSubmitter() *gatedSubmitter {
	return &gatedSubmitter{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gatedSubmitter) SubmitCreate(ctx context.Context, _ string, _ ports.DraftSession) (*listingtypes.SubmitResult, error) {
	return g.wait(ctx)
}

func (g *gatedSubmitter) SubmitUpdate(ctx context.Context, _ ports.DraftSession, _ *domain.Listing) (*listingtypes.SubmitResult, error) {
	return g.wait(ctx)
}

func (g *gatedSubmitter) wait(ctx context.Context) (*listingtypes.SubmitResult, error) {
	g.calls.Add(1)
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return &listingtypes.SubmitResult{}, nil
}
