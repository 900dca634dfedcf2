package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/types"
)

func TestAddManyContinueOnErrorCollectsAllFailures(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	items := []types.NounInput{
		{Type: types.NounPerson},
		{}, // missing type: fails validation
		{Type: types.NounDocument},
	}

	ids, failures := s.AddMany(ctx, items, true)
	require.Len(t, ids, 2)
	require.Len(t, failures, 1)
	require.Equal(t, 1, failures[0].Index)
}

func TestAddManyStopsOnFirstErrorWithoutContinue(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	items := []types.NounInput{
		{},
		{Type: types.NounPerson},
	}

	ids, failures := s.AddMany(ctx, items, false)
	require.Empty(t, ids)
	require.Len(t, failures, 1)
	require.Equal(t, 0, failures[0].Index)

	// the second item was never attempted
	require.Empty(t, s.nouns)
}

func TestDeleteManyReportsPerIndexFailure(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounPerson})
	require.NoError(t, err)

	ok, failures := s.DeleteMany(ctx, []string{n.ID, "ghost"}, "tester", "cleanup", true)
	require.Equal(t, []string{n.ID}, ok)
	require.Len(t, failures, 1)
	require.Equal(t, 1, failures[0].Index)
}
