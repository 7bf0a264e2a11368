package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCache_SetGetRemove(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	defer cache.Close()
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "listing_draft")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, "listing_draft", `{"title":"A"}`))
	require.NoError(t, cache.Set(ctx, "listing_draft", `{"title":"B"}`))
	value, ok, err := cache.Get(ctx, "listing_draft")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"title":"B"}`, value)

	require.NoError(t, cache.Remove(ctx, "listing_draft"))
	_, ok, err = cache.Get(ctx, "listing_draft")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCache_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drafts.db")
	ctx := context.Background()

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", "v"))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	value, ok, err := second.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", value)
}
