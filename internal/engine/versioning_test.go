package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/types"
	"github.com/brainyhq/brainy/internal/versioning"
)

func TestSaveVersionAndRestore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounDocument, Metadata: types.Metadata{"title": "v1"}})
	require.NoError(t, err)
	_, err = s.SaveVersion(ctx, n.ID, versioning.SaveOptions{Description: "first save"})
	require.NoError(t, err)

	_, err = s.Update(ctx, types.NounUpdate{ID: n.ID, Metadata: types.Metadata{"title": "v2"}})
	require.NoError(t, err)

	restored, err := s.Restore(ctx, n.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "v1", restored.Metadata["title"])

	got, ok, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", got.Metadata["title"])
}

func TestSaveVersionUnknownIDFails(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.SaveVersion(ctx, "ghost", versioning.SaveOptions{})
	require.Error(t, err)
}

func TestUndoRevertsToPriorVersion(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounDocument, Metadata: types.Metadata{"title": "v1"}})
	require.NoError(t, err)
	_, err = s.SaveVersion(ctx, n.ID, versioning.SaveOptions{})
	require.NoError(t, err)

	_, err = s.Update(ctx, types.NounUpdate{ID: n.ID, Metadata: types.Metadata{"title": "v2"}})
	require.NoError(t, err)
	_, err = s.SaveVersion(ctx, n.ID, versioning.SaveOptions{})
	require.NoError(t, err)

	restored, err := s.Undo(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, "v1", restored.Metadata["title"])
}

func TestListAndCompareVersions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounDocument, Metadata: types.Metadata{"title": "v1"}})
	require.NoError(t, err)
	_, err = s.SaveVersion(ctx, n.ID, versioning.SaveOptions{})
	require.NoError(t, err)

	_, err = s.Update(ctx, types.NounUpdate{ID: n.ID, Metadata: types.Metadata{"title": "v2"}})
	require.NoError(t, err)
	_, err = s.SaveVersion(ctx, n.ID, versioning.SaveOptions{})
	require.NoError(t, err)

	versions := s.ListVersions(n.ID)
	require.Len(t, versions, 2)

	diff, err := s.CompareVersions(n.ID, 1, 2)
	require.NoError(t, err)
	require.NotZero(t, diff.TotalChanges)
}
