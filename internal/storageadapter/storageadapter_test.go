package storageadapter_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/storageadapter"
	"github.com/brainyhq/brainy/internal/storageadapter/fs"
	"github.com/brainyhq/brainy/internal/storageadapter/mem"
)

func adapters(t *testing.T) map[string]storageadapter.Adapter {
	t.Helper()
	fsAdapter, err := fs.Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { fsAdapter.Close() })
	return map[string]storageadapter.Adapter{
		"mem": mem.New(),
		"fs":  fsAdapter,
	}
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, a := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			key := storageadapter.EntityKey(storageadapter.KindNoun, "person", storageadapter.SectionMetadata, "abc123")
			require.NoError(t, a.Put(ctx, key, []byte(`{"name":"ok"}`)))

			got, err := a.Get(ctx, key)
			require.NoError(t, err)
			require.Equal(t, `{"name":"ok"}`, string(got))

			require.NoError(t, a.Delete(ctx, key))
			_, err = a.Get(ctx, key)
			require.Error(t, err)
		})
	}
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	for name, a := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			prefix := storageadapter.TypePrefix(storageadapter.KindNoun, "document", storageadapter.SectionMetadata)
			ids := []string{"aa000000", "bb000000", "cc000000", "dd000000", "ee000000"}
			for _, id := range ids {
				key := storageadapter.EntityKey(storageadapter.KindNoun, "document", storageadapter.SectionMetadata, id)
				require.NoError(t, a.Put(ctx, key, []byte("{}")))
			}

			var all []string
			cursor := ""
			for {
				page, err := a.List(ctx, prefix, cursor, 2)
				require.NoError(t, err)
				all = append(all, page.Keys...)
				if page.NextCursor == "" {
					break
				}
				cursor = page.NextCursor
			}
			require.Len(t, all, len(ids))
		})
	}
}

func TestBulkGetDropsMissingAndDedupes(t *testing.T) {
	ctx := context.Background()
	for name, a := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			k1 := storageadapter.EntityKey(storageadapter.KindNoun, "task", storageadapter.SectionMetadata, "t1")
			k2 := storageadapter.EntityKey(storageadapter.KindNoun, "task", storageadapter.SectionMetadata, "t2")
			missing := storageadapter.EntityKey(storageadapter.KindNoun, "task", storageadapter.SectionMetadata, "missing")
			require.NoError(t, a.Put(ctx, k1, []byte("one")))
			require.NoError(t, a.Put(ctx, k2, []byte("two")))

			result, err := a.BulkGet(ctx, []string{k1, k1, k2, missing})
			require.NoError(t, err)
			require.Len(t, result, 2)
			require.Equal(t, "one", string(result[k1]))
			require.Equal(t, "two", string(result[k2]))
		})
	}
}

func TestEmptyBulkGetReturnsEmptyMap(t *testing.T) {
	ctx := context.Background()
	for name, a := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			result, err := a.BulkGet(ctx, nil)
			require.NoError(t, err)
			require.Empty(t, result)
		})
	}
}
