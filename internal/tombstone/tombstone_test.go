package tombstone

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/storageadapter/mem"
)

func TestApplyMarksDeleted(t *testing.T) {
	idx := New()
	idx.Apply(Record{ID: "a", Timestamp: time.Now()})
	require.True(t, idx.IsDeleted("a"))
	require.False(t, idx.IsDeleted("b"))
}

func TestApplyClearedResurrectsID(t *testing.T) {
	idx := New()
	idx.Apply(Record{ID: "a", Timestamp: time.Now()})
	idx.Apply(Record{ID: "a", Timestamp: time.Now(), Cleared: true})
	require.False(t, idx.IsDeleted("a"))
}

func TestListIsSortedAndExcludesCleared(t *testing.T) {
	idx := New()
	idx.Apply(Record{ID: "b", Timestamp: time.Now()})
	idx.Apply(Record{ID: "a", Timestamp: time.Now()})
	idx.Apply(Record{ID: "b", Timestamp: time.Now(), Cleared: true})

	list := idx.List()
	require.Len(t, list, 1)
	require.Equal(t, "a", list[0].ID)
	require.Equal(t, 1, idx.Count())
}

func TestAppendAndLoadFromStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	require.NoError(t, Append(ctx, store, Record{ID: "a", Timestamp: time.Now(), Actor: "user1"}))
	require.NoError(t, Append(ctx, store, Record{ID: "b", Timestamp: time.Now()}))
	require.NoError(t, Append(ctx, store, Record{ID: "a", Timestamp: time.Now(), Cleared: true}))

	idx, warnings, err := LoadFromStorage(ctx, store)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.False(t, idx.IsDeleted("a"))
	require.True(t, idx.IsDeleted("b"))
}

func TestLoadFromStorageMissingManifestIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	idx, warnings, err := LoadFromStorage(ctx, store)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, 0, idx.Count())
}

func TestLoadFromStorageSkipsCorruptLines(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	require.NoError(t, Append(ctx, store, Record{ID: "a", Timestamp: time.Now()}))
	existing, err := store.Get(ctx, ManifestKey)
	require.NoError(t, err)
	corrupted := append(existing, []byte("{not json\n")...)
	require.NoError(t, store.Put(ctx, ManifestKey, corrupted))

	idx, warnings, err := LoadFromStorage(ctx, store)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.True(t, idx.IsDeleted("a"))
}

func TestAppendRejectsEmptyID(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	err := Append(ctx, store, Record{})
	require.Error(t, err)
}
