package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/memory"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

type refusingStore struct{}

func (refusingStore) Upload(context.Context, ports.UploadRequest) (string, error) {
	return "", errors.New("refused")
}

func (refusingStore) DeleteMany(context.Context, []string) error { return errors.New("refused") }

func TestObjectStoreCountsCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	store, err := NewObjectStore(memory.NewObjectStore(""), reg)
	require.NoError(t, err)

	blob, err := domain.NewBlob([]byte("12345"), "image/jpeg")
	require.NoError(t, err)
	ref, err := store.Upload(context.Background(), ports.UploadRequest{Group: domain.GroupPhotos, Blob: blob, OriginalName: "a.jpg"})
	require.NoError(t, err)
	require.NoError(t, store.DeleteMany(context.Background(), []string{ref}))

	assert.Equal(t, float64(1), testutil.ToFloat64(store.calls.WithLabelValues("upload", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(store.calls.WithLabelValues("delete_many", "ok")))
	assert.Equal(t, float64(5), testutil.ToFloat64(store.bytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(store.keys))
	assert.Equal(t, 2, testutil.CollectAndCount(store.duration))
}

func TestObjectStoreCountsErrors(t *testing.T) {
	store, err := NewObjectStore(refusingStore{}, nil)
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), ports.UploadRequest{Group: domain.GroupPhotos})
	require.Error(t, err)
	require.Error(t, store.DeleteMany(context.Background(), []string{"x"}))

	assert.Equal(t, float64(1), testutil.ToFloat64(store.calls.WithLabelValues("upload", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(store.calls.WithLabelValues("delete_many", "error")))
	assert.Equal(t, float64(0), testutil.ToFloat64(store.keys))
}

func TestObjectStoreRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewObjectStore(refusingStore{}, reg)
	require.NoError(t, err)
	_, err = NewObjectStore(refusingStore{}, reg)
	require.Error(t, err)
}
