package hnsw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoordinatorSingleTypeFastPath(t *testing.T) {
	c := NewCoordinator(DefaultConfig(2))
	c.Insert("person", "p1", []float32{1, 1})
	c.Insert("document", "d1", []float32{5, 5})

	results, err := c.Search(context.Background(), []string{"person"}, []float32{1, 1}, 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "p1", results[0].ID)
}

func TestCoordinatorFallsBackToAllActiveTypes(t *testing.T) {
	c := NewCoordinator(DefaultConfig(2))
	c.Insert("person", "p1", []float32{1, 1})
	c.Insert("document", "d1", []float32{1, 1})

	results, err := c.Search(context.Background(), nil, []float32{1, 1}, 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestCoordinatorMultiTypeMergesByDistance(t *testing.T) {
	c := NewCoordinator(DefaultConfig(2))
	c.Insert("person", "near", []float32{1, 1})
	c.Insert("document", "far", []float32{100, 100})

	results, err := c.Search(context.Background(), []string{"person", "document"}, []float32{1, 1}, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "near", results[0].ID)
}

func TestCoordinatorStats(t *testing.T) {
	c := NewCoordinator(DefaultConfig(2))
	c.Insert("person", "p1", []float32{1, 1})
	c.Insert("person", "p2", []float32{2, 2})

	stats := c.Stats()
	require.Equal(t, 1, stats.TypeCount)
	require.Equal(t, 2, stats.TotalNodes)
}
