package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	listingmemory "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/memory"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

func TestDiff_ComputesRetainedPendingRemoved(t *testing.T) {
	x := pending("x")
	current := domain.RemoteSet("A", "C").With(x)

	plan := Diff(domain.GroupPhotos, current, []string{"A", "B", "C"})

	require.Equal(t, []string{"A", "C"}, plan.Retained)
	require.Equal(t, []string{"B"}, plan.Removed)
	require.Len(t, plan.Pending, 1)
	require.Equal(t, x.Key(), plan.Pending[0].Key())
}

func TestDiff_EmptyOriginalNeverRemoves(t *testing.T) {
	plan := Diff(domain.GroupCertificates, domain.RemoteSet("A").With(pending("x")), nil)
	require.Empty(t, plan.Removed)
}

func TestReconcile_DiffCorrectness(t *testing.T) {
	store := newRecordingStore()
	r := NewReconciler(store)
	x := pending("x")

	outcome, err := r.Reconcile(context.Background(), domain.GroupPhotos, domain.RemoteSet("A", "C").With(x), []string{"A", "B", "C"})
	require.NoError(t, err)

	require.Equal(t, 1, store.uploadCount())
	require.Equal(t, [][]string{{"B"}}, store.deleteCalls())
	uploaded := outcome.Uploaded[x.Key()]
	require.NotEmpty(t, uploaded)
	require.ElementsMatch(t, []string{"A", "C", uploaded}, outcome.Final)
}

func TestReconcile_IdempotentSecondRun(t *testing.T) {
	store := newRecordingStore()
	r := NewReconciler(store)
	ctx := context.Background()

	first, err := r.Reconcile(ctx, domain.GroupPhotos, domain.RemoteSet("A").With(pending("x")), []string{"A", "B"})
	require.NoError(t, err)
	require.Equal(t, 1, store.uploadCount())
	require.Len(t, store.deleteCalls(), 1)

	// The second run sees the persisted result as both current and original.
	persisted := domain.RemoteSet(first.Final...)
	second, err := r.Reconcile(ctx, domain.GroupPhotos, persisted, first.Final)
	require.NoError(t, err)
	require.Equal(t, first.Final, second.Final)
	require.Equal(t, 1, store.uploadCount())
	require.Len(t, store.deleteCalls(), 1)
}

func TestReconcile_NoOpSkipsNetwork(t *testing.T) {
	store := newRecordingStore()
	r := NewReconciler(store)

	outcome, err := r.Reconcile(context.Background(), domain.GroupDamPhotos, domain.RemoteSet("A", "B"), []string{"A", "B"})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, outcome.Final)
	require.Zero(t, store.uploadCount())
	require.Empty(t, store.deleteCalls())
}

func TestReconcile_FinalOrderRetainedThenUploaded(t *testing.T) {
	store := listingmemory.NewObjectStore("")
	r := NewReconciler(store, WithUploadConcurrency(2))
	a, b, c := pending("a"), pending("b"), pending("c")
	current := domain.RemoteSet("R1").With(a).With(b).With(c)

	outcome, err := r.Prepare(context.Background(), domain.GroupPhotos, current, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"R1", outcome.Uploaded[a.Key()], outcome.Uploaded[b.Key()], outcome.Uploaded[c.Key()]}, outcome.Final)
	for _, ref := range outcome.Final[1:] {
		require.True(t, store.Has(ref))
	}
}

func TestReconcile_UploadFailureAbortsGroup(t *testing.T) {
	store := newRecordingStore()
	store.failUploads["bad"] = true
	r := NewReconciler(store)

	outcome, err := r.Reconcile(context.Background(), domain.GroupPhotos, domain.RemoteSet("A").With(pending("bad")), []string{"A", "B"})
	require.ErrorIs(t, err, ErrUploadFailed)
	require.Nil(t, outcome.Final)
	require.Empty(t, store.deleteCalls())
}

func TestReconcile_DeleteFailureIsNonFatal(t *testing.T) {
	store := newRecordingStore()
	store.failDeletes = true
	ledger := listingmemory.NewOrphanLedger()
	r := NewReconciler(store, WithOrphanSink(ledger))

	outcome, err := r.Reconcile(context.Background(), domain.GroupSirePhotos, domain.RemoteSet("A"), []string{"A", "B"})
	require.ErrorIs(t, err, ErrDeleteFailed)
	require.True(t, IsDeleteFailure(err))
	require.Equal(t, []string{"A"}, outcome.Final)

	orphans, err := ledger.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, "B", orphans[0].Reference)
	require.Equal(t, ports.OrphanDeleteFailed, orphans[0].Reason)
}

func TestPrepare_HonoursCancellation(t *testing.T) {
	store := &blockingStore{started: make(chan struct{})}
	r := NewReconciler(store)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := r.Prepare(ctx, domain.GroupPhotos, domain.AttachmentSet{pending("slow")}, nil)
		done <- err
	}()
	<-store.started
	cancel()
	err := <-done
	require.ErrorIs(t, err, ErrUploadFailed)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPrepare_RejectsUnknownGroup(t *testing.T) {
	_, err := NewReconciler(newRecordingStore()).Prepare(context.Background(), domain.Group("avatars"), nil, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}
