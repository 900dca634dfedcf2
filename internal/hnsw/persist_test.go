package hnsw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/storageadapter/mem"
)

func TestPersistAndRebuildRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	c := NewCoordinator(DefaultConfig(2))
	c.Insert("person", "p1", []float32{1, 1})
	c.Insert("person", "p2", []float32{2, 2})
	c.Insert("person", "p3", []float32{3, 3})

	require.NoError(t, c.PersistAll(ctx, store))

	fresh := NewCoordinator(DefaultConfig(2))
	require.NoError(t, fresh.RebuildFromStorage(ctx, store, []string{"person"}))

	stats := fresh.Stats()
	require.Equal(t, 3, stats.TotalNodes)

	results, err := fresh.Search(ctx, []string{"person"}, []float32{1, 1}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "p1", results[0].ID)
}

func TestRebuildSkipsAlreadyPopulatedType(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	c := NewCoordinator(DefaultConfig(2))
	c.Insert("person", "p1", []float32{1, 1})
	require.NoError(t, c.PersistAll(ctx, store))
	require.NoError(t, c.RebuildFromStorage(ctx, store, []string{"person"}))

	require.Equal(t, 1, c.indexFor("person").Len())
}
