package versioning

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/blobstore"
	"github.com/brainyhq/brainy/internal/types"
)

func TestSaveDedupesIdenticalContent(t *testing.T) {
	m := New(blobstore.NewMemStore())
	n := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "open"}}

	v1, err := m.Save("main", n, SaveOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, v1.Version)

	v2, err := m.Save("main", n, SaveOptions{})
	require.NoError(t, err)
	require.Equal(t, v1.Version, v2.Version, "identical content must reuse the existing version")
	require.Equal(t, 1, m.Count("main", "n1"))
}

func TestSaveRecordsNewVersionOnChange(t *testing.T) {
	m := New(blobstore.NewMemStore())
	n1 := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "open"}}
	n2 := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "closed"}}

	_, err := m.Save("main", n1, SaveOptions{})
	require.NoError(t, err)
	v2, err := m.Save("main", n2, SaveOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)
	require.Equal(t, 2, m.Count("main", "n1"))
}

func TestVersionsAreBranchScoped(t *testing.T) {
	m := New(blobstore.NewMemStore())
	n := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "open"}}

	_, err := m.Save("main", n, SaveOptions{})
	require.NoError(t, err)
	require.False(t, m.HasVersions("feature", "n1"))

	_, err = m.Save("feature", n, SaveOptions{})
	require.NoError(t, err)
	require.True(t, m.HasVersions("feature", "n1"))
	require.Equal(t, 1, m.Count("main", "n1"))
	require.Equal(t, 1, m.Count("feature", "n1"))
}

func TestRestoreReadsFreshFromBlobStore(t *testing.T) {
	m := New(blobstore.NewMemStore())
	n1 := types.Noun{ID: "n1", Data: []byte("v1 content"), Metadata: types.Metadata{"status": "open"}}
	n2 := types.Noun{ID: "n1", Data: []byte("v2 content"), Metadata: types.Metadata{"status": "closed"}}

	_, err := m.Save("main", n1, SaveOptions{})
	require.NoError(t, err)
	_, err = m.Save("main", n2, SaveOptions{})
	require.NoError(t, err)

	restored, err := m.Restore("main", "n1", 1, "")
	require.NoError(t, err)
	require.Equal(t, []byte("v1 content"), restored.Data)
}

func TestRestoreByTag(t *testing.T) {
	m := New(blobstore.NewMemStore())
	n1 := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "open"}}
	n2 := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "closed"}}

	_, err := m.Save("main", n1, SaveOptions{Tag: "release-1"})
	require.NoError(t, err)
	_, err = m.Save("main", n2, SaveOptions{})
	require.NoError(t, err)

	restored, err := m.Restore("main", "n1", 0, "release-1")
	require.NoError(t, err)
	require.Equal(t, "open", restored.Metadata["status"])
}

func TestUndoRollsBackOneVersion(t *testing.T) {
	m := New(blobstore.NewMemStore())
	n1 := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "open"}}
	n2 := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "closed"}}

	_, err := m.Save("main", n1, SaveOptions{})
	require.NoError(t, err)
	_, err = m.Save("main", n2, SaveOptions{})
	require.NoError(t, err)

	restored, err := m.Undo("main", "n1")
	require.NoError(t, err)
	require.Equal(t, "open", restored.Metadata["status"])
}

func TestUndoFailsWithoutPriorVersion(t *testing.T) {
	m := New(blobstore.NewMemStore())
	n := types.Noun{ID: "n1", Metadata: types.Metadata{}}
	_, err := m.Save("main", n, SaveOptions{})
	require.NoError(t, err)

	_, err = m.Undo("main", "n1")
	require.Error(t, err)
}

func TestCompareReportsAddedRemovedModified(t *testing.T) {
	m := New(blobstore.NewMemStore())
	n1 := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "open", "owner": "alice"}}
	n2 := types.Noun{ID: "n1", Metadata: types.Metadata{"status": "closed", "priority": "high"}}

	_, err := m.Save("main", n1, SaveOptions{})
	require.NoError(t, err)
	_, err = m.Save("main", n2, SaveOptions{})
	require.NoError(t, err)

	diff, err := m.Compare("main", "n1", 1, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"priority"}, diff.Added)
	require.Equal(t, []string{"owner"}, diff.Removed)
	require.Len(t, diff.Modified, 1)
	require.Equal(t, "status", diff.Modified[0].Path)
	require.Equal(t, "open", diff.Modified[0].OldValue)
	require.Equal(t, "closed", diff.Modified[0].NewValue)
	require.Equal(t, 3, diff.TotalChanges)
}

func TestPruneKeepsRecentAndTagged(t *testing.T) {
	m := New(blobstore.NewMemStore())
	for i := 0; i < 5; i++ {
		tag := ""
		if i == 0 {
			tag = "milestone"
		}
		n := types.Noun{ID: "n1", Metadata: types.Metadata{"i": i}}
		_, err := m.Save("main", n, SaveOptions{Tag: tag})
		require.NoError(t, err)
	}

	removed := m.Prune("main", "n1", PruneOptions{KeepRecent: 2, KeepTagged: true})
	require.Equal(t, 2, removed)

	remaining := m.List("main", "n1")
	require.Len(t, remaining, 3)
	require.Equal(t, 1, remaining[0].Version)
	require.Equal(t, 4, remaining[1].Version)
	require.Equal(t, 5, remaining[2].Version)
}

func TestGetVersionByTagMissingReturnsFalse(t *testing.T) {
	m := New(blobstore.NewMemStore())
	_, ok := m.GetVersionByTag("main", "n1", "nope")
	require.False(t, ok)
}
