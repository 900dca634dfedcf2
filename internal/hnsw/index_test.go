package hnsw

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertThenSearchFindsSelf(t *testing.T) {
	idx := New(DefaultConfig(4))
	idx.Insert("a", []float32{1, 0, 0, 0})
	idx.Insert("b", []float32{0, 1, 0, 0})
	idx.Insert("c", []float32{0, 0, 1, 0})

	results := idx.Search([]float32{1, 0, 0, 0}, 1, 0)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].ID)
	require.InDelta(t, 0, results[0].Distance, 1e-9)
}

func TestSearchReturnsKNearest(t *testing.T) {
	idx := New(DefaultConfig(2))
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		id := randID(rng)
		idx.Insert(id, []float32{float32(rng.Intn(100)), float32(rng.Intn(100))})
	}
	results := idx.Search([]float32{50, 50}, 10, 50)
	require.Len(t, results, 10)
	for i := 1; i < len(results); i++ {
		require.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestReinsertReplacesVector(t *testing.T) {
	idx := New(DefaultConfig(2))
	idx.Insert("a", []float32{0, 0})
	idx.Insert("b", []float32{10, 10})
	idx.Insert("a", []float32{10, 10}) // a moves next to b

	require.Equal(t, 2, idx.Len())
	results := idx.Search([]float32{10, 10}, 2, 50)
	require.Len(t, results, 2)
	require.InDelta(t, 0, results[0].Distance, 1e-9)
}

func TestEmptyIndexSearchReturnsNil(t *testing.T) {
	idx := New(DefaultConfig(3))
	require.Empty(t, idx.Search([]float32{1, 2, 3}, 5, 0))
}

func randID(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}
