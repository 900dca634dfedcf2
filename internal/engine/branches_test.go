package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/types"
	"github.com/brainyhq/brainy/internal/vcs"
)

func TestForkedBranchIsIsolatedUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a, err := s.Add(ctx, types.NounInput{Type: types.NounPerson})
	require.NoError(t, err)

	_, err = s.Commit(ctx, "seed main", "tester")
	require.NoError(t, err)

	_, err = s.Fork(ctx, "feature", vcs.ForkOptions{})
	require.NoError(t, err)

	// writes on main after the fork must not appear on feature
	_, err = s.Add(ctx, types.NounInput{Type: types.NounPerson})
	require.NoError(t, err)

	require.NoError(t, s.Checkout(ctx, "feature"))
	require.Equal(t, "feature", s.CurrentBranch())

	// the forked branch sees everything committed to main before the fork
	_, ok, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, s.nouns, 1)
}

func TestBranchWritesDoNotLeakBackToParent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Commit(ctx, "seed main", "tester")
	require.NoError(t, err)
	_, err = s.Fork(ctx, "feature", vcs.ForkOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Checkout(ctx, "feature"))

	n, err := s.Add(ctx, types.NounInput{Type: types.NounDocument})
	require.NoError(t, err)

	require.NoError(t, s.Checkout(ctx, "main"))
	_, ok, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCheckoutRebuildsIndexesForTheNewBranch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a, err := s.Add(ctx, types.NounInput{Type: types.NounPerson, Metadata: types.Metadata{"name": "alice"}})
	require.NoError(t, err)
	_, err = s.Commit(ctx, "seed main", "tester")
	require.NoError(t, err)
	_, err = s.Fork(ctx, "feature", vcs.ForkOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Checkout(ctx, "feature"))
	hits := s.field.Query(types.WhereClause{"name": "alice"})
	require.Contains(t, hits, a.ID)

	require.NoError(t, s.Checkout(ctx, "main"))
	hits = s.field.Query(types.WhereClause{"name": "alice"})
	require.Contains(t, hits, a.ID)
}

func TestForkOfUncommittedBranchIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// no commit has ever been made: HEAD is NullHash, fork has nothing to
	// materialize.
	_, err := s.Fork(ctx, "empty-child", vcs.ForkOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Checkout(ctx, "empty-child"))
	require.Empty(t, s.nouns)
}

func TestListBranchesIncludesForkedNames(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Commit(ctx, "seed", "tester")
	require.NoError(t, err)
	_, err = s.Fork(ctx, "feature-a", vcs.ForkOptions{})
	require.NoError(t, err)
	_, err = s.Fork(ctx, "feature-b", vcs.ForkOptions{})
	require.NoError(t, err)

	names, err := s.ListBranches(ctx, false)
	require.NoError(t, err)
	require.Contains(t, names, "main")
	require.Contains(t, names, "feature-a")
	require.Contains(t, names, "feature-b")
}
