package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	listingmemory "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/memory"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

func TestReapOrphans_DrainsInBatches(t *testing.T) {
	ctx := context.Background()
	ledger := listingmemory.NewOrphanLedger()
	require.NoError(t, ledger.Record(ctx, []string{"a", "b", "c"}, ports.OrphanDeleteFailed))
	store := newRecordingStore()

	report, err := ReapOrphans(ctx, ledger, store, 2, nil)
	require.NoError(t, err)
	require.Equal(t, 3, report.Reaped)
	require.Equal(t, 2, report.Batches)
	require.Len(t, store.deleteCalls(), 2)

	left, err := ledger.Pending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestReapOrphans_FailureLeavesRowsPending(t *testing.T) {
	ctx := context.Background()
	ledger := listingmemory.NewOrphanLedger()
	require.NoError(t, ledger.Record(ctx, []string{"a"}, ports.OrphanAbortedSubmit))
	store := newRecordingStore()
	store.failDeletes = true

	report, err := ReapOrphans(ctx, ledger, store, 10, nil)
	require.ErrorIs(t, err, ErrDeleteFailed)
	require.Equal(t, 1, report.Failed)

	left, err := ledger.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, 1, left[0].Attempts)
}

func TestReapOrphans_EmptyLedger(t *testing.T) {
	report, err := ReapOrphans(context.Background(), listingmemory.NewOrphanLedger(), newRecordingStore(), 0, nil)
	require.NoError(t, err)
	require.Zero(t, report.Batches)
}
