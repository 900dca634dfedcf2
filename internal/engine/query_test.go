package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/types"
)

func TestFindByVectorReturnsSelfAsTopHit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	vec := []float32{1, 0, 0}
	n, err := s.Add(ctx, types.NounInput{Type: types.NounDocument, Vector: vec})
	require.NoError(t, err)
	_, err = s.Add(ctx, types.NounInput{Type: types.NounDocument, Vector: []float32{0, 1, 0}})
	require.NoError(t, err)

	results, err := s.Find(ctx, types.FindQuery{Vector: vec, Type: []types.NounType{types.NounDocument}, Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, n.ID, results[0].ID)
}

func TestSimilarExcludesItself(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounDocument, Vector: []float32{1, 0, 0}})
	require.NoError(t, err)
	other, err := s.Add(ctx, types.NounInput{Type: types.NounDocument, Vector: []float32{0.9, 0.1, 0}})
	require.NoError(t, err)

	results, err := s.Similar(ctx, n.ID, 5)
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, n.ID, r.ID)
	}
	require.Contains(t, idsOf(results), other.ID)
}

func TestSimilarOfEntityWithoutVectorReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounDocument})
	require.NoError(t, err)

	results, err := s.Similar(ctx, n.ID, 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestFindByMetadataField(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounTask, Metadata: types.Metadata{"status": "open"}})
	require.NoError(t, err)
	_, err = s.Add(ctx, types.NounInput{Type: types.NounTask, Metadata: types.Metadata{"status": "closed"}})
	require.NoError(t, err)

	results, err := s.Find(ctx, types.FindQuery{Where: types.WhereClause{"status": "open"}, Limit: 10})
	require.NoError(t, err)
	require.Contains(t, idsOf(results), n.ID)
}

func TestFindRejectsUnknownOperator(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Find(ctx, types.FindQuery{Where: types.WhereClause{"status": map[string]interface{}{"$bogus": 1}}})
	require.Error(t, err)
}

func TestFindIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.Add(ctx, types.NounInput{Type: types.NounPerson, Vector: []float32{float32(i), 0, 0}})
		require.NoError(t, err)
	}

	q := types.FindQuery{Vector: []float32{2, 0, 0}, Type: []types.NounType{types.NounPerson}, Limit: 3}
	first, err := s.Find(ctx, q)
	require.NoError(t, err)
	second, err := s.Find(ctx, q)
	require.NoError(t, err)
	require.Equal(t, idsOf(first), idsOf(second))
}

func TestFindWithNoDimensionsReturnsLiveEntitiesUpToLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		n, err := s.Add(ctx, types.NounInput{Type: types.NounTask})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	results, err := s.Find(ctx, types.FindQuery{Limit: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.Contains(t, ids, r.ID)
	}
}

func TestFindWithNoDimensionsExcludesTombstoned(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounTask})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, n.ID, "tester", "gone"))

	results, err := s.Find(ctx, types.FindQuery{Limit: 10})
	require.NoError(t, err)
	require.NotContains(t, idsOf(results), n.ID)
}

func TestFindWithOnlyEmptyWhereStillReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Add(ctx, types.NounInput{Type: types.NounTask, Metadata: types.Metadata{"status": "open"}})
	require.NoError(t, err)

	results, err := s.Find(ctx, types.FindQuery{Where: types.WhereClause{"status": "nonexistent"}, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestFindClampsLimitToMaxQueryLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := s.Add(ctx, types.NounInput{Type: types.NounTask})
		require.NoError(t, err)
	}

	max := s.GetMemoryStats().Limits.MaxQueryLimit
	results, err := s.Find(ctx, types.FindQuery{Limit: max + 1_000_000})
	require.NoError(t, err)
	require.LessOrEqual(t, len(results), max)
}

func idsOf(results []types.FindResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}
