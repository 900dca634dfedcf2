package vcs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/blobstore"
	"github.com/brainyhq/brainy/internal/objects"
	"github.com/brainyhq/brainy/internal/storageadapter/mem"
	"github.com/brainyhq/brainy/internal/types"
)

type fakeEntities struct {
	nouns []types.Noun
	verbs []types.Verb
}

func (f *fakeEntities) ListNouns(context.Context) ([]types.Noun, error) { return f.nouns, nil }
func (f *fakeEntities) ListVerbs(context.Context) ([]types.Verb, error) { return f.verbs, nil }

func newTestVCS(t *testing.T, entities EntitySource) (*VCS, blobstore.Store) {
	t.Helper()
	refs := mem.New()
	blobs := blobstore.NewMemStore()
	return New(refs, blobs, entities, "main"), blobs
}

func TestCommitWithoutCaptureStateUsesNullTree(t *testing.T) {
	ctx := context.Background()
	v, blobs := newTestVCS(t, nil)

	hash, err := v.Commit(ctx, CommitOptions{Message: "init", Author: "a"})
	require.NoError(t, err)

	data, err := blobs.Get(hash)
	require.NoError(t, err)
	c, err := objects.DecodeCommit(data)
	require.NoError(t, err)
	require.Equal(t, objects.NullHash, c.Tree)
	require.Equal(t, objects.NullHash, c.Parent)
}

func TestCommitChainsParents(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVCS(t, nil)

	h1, err := v.Commit(ctx, CommitOptions{Message: "c1", Author: "a"})
	require.NoError(t, err)
	h2, err := v.Commit(ctx, CommitOptions{Message: "c2", Author: "a"})
	require.NoError(t, err)

	head, err := v.HeadCommit(ctx)
	require.NoError(t, err)
	require.Equal(t, h2, head)

	entries, err := v.GetHistory(ctx, HistoryOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, h2, entries[0].Hash)
	require.Equal(t, h1, entries[1].Hash)
}

func TestCaptureStateDedupesUnchangedEntities(t *testing.T) {
	ctx := context.Background()
	n := types.Noun{ID: "n1", Type: types.NounPerson}
	entities := &fakeEntities{nouns: []types.Noun{n}}
	v, blobs := newTestVCS(t, entities)

	h1, err := v.Commit(ctx, CommitOptions{Message: "c1", Author: "a", CaptureState: true})
	require.NoError(t, err)
	h2, err := v.Commit(ctx, CommitOptions{Message: "c2", Author: "a", CaptureState: true})
	require.NoError(t, err)

	d1, err := blobs.Get(h1)
	require.NoError(t, err)
	c1, err := objects.DecodeCommit(d1)
	require.NoError(t, err)

	d2, err := blobs.Get(h2)
	require.NoError(t, err)
	c2, err := objects.DecodeCommit(d2)
	require.NoError(t, err)

	require.Equal(t, c1.Tree, c2.Tree, "identical entity content must reuse the same tree hash")
}

func TestForkCreatesIndependentBranch(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVCS(t, nil)

	h1, err := v.Commit(ctx, CommitOptions{Message: "c1", Author: "a"})
	require.NoError(t, err)

	_, err = v.Fork(ctx, "feature", ForkOptions{})
	require.NoError(t, err)

	require.NoError(t, v.Checkout(ctx, "feature"))
	head, err := v.HeadCommit(ctx)
	require.NoError(t, err)
	require.Equal(t, h1, head)

	h2, err := v.Commit(ctx, CommitOptions{Message: "c2", Author: "a"})
	require.NoError(t, err)

	require.NoError(t, v.Checkout(ctx, "main"))
	mainHead, err := v.HeadCommit(ctx)
	require.NoError(t, err)
	require.Equal(t, h1, mainHead, "commits on fork must not affect main")
	require.NotEqual(t, h1, h2)
}

func TestForkRejectsExistingBranchName(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVCS(t, nil)
	_, err := v.Fork(ctx, "main", ForkOptions{})
	require.Error(t, err)
}

func TestCheckoutUnknownBranchFails(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVCS(t, nil)
	err := v.Checkout(ctx, "nope")
	require.Error(t, err)
}

func TestListBranchesExcludesBackupRefsByDefault(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVCS(t, nil)
	_, err := v.Commit(ctx, CommitOptions{Message: "c1", Author: "a"})
	require.NoError(t, err)

	_, err = v.Fork(ctx, "pre-migration-1", ForkOptions{Metadata: map[string]interface{}{"type": "system:backup"}})
	require.NoError(t, err)

	branches, err := v.ListBranches(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{"main"}, branches)

	all, err := v.ListBranches(ctx, true)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"main", "pre-migration-1"}, all)
}

func TestAsOfResolvesLatestCommitAtOrBeforeTime(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVCS(t, nil)

	h1, err := v.Commit(ctx, CommitOptions{Message: "c1", Author: "a"})
	require.NoError(t, err)
	cutoff := time.Now().UTC().Add(time.Millisecond)
	time.Sleep(2 * time.Millisecond)
	_, err = v.Commit(ctx, CommitOptions{Message: "c2", Author: "a"})
	require.NoError(t, err)

	resolved, err := v.AsOf(ctx, "main", cutoff)
	require.NoError(t, err)
	require.Equal(t, h1, resolved)
}

func TestStreamHistoryStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVCS(t, nil)
	for i := 0; i < 5; i++ {
		_, err := v.Commit(ctx, CommitOptions{Message: "c", Author: "a"})
		require.NoError(t, err)
	}

	var seen int
	err := v.StreamHistory(ctx, HistoryOptions{Limit: 2}, func(HistoryEntry) (bool, error) {
		seen++
		return false, nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, seen)
}

func TestGetHistoryFiltersByAuthor(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVCS(t, nil)
	_, err := v.Commit(ctx, CommitOptions{Message: "c1", Author: "alice"})
	require.NoError(t, err)
	_, err = v.Commit(ctx, CommitOptions{Message: "c2", Author: "bob"})
	require.NoError(t, err)

	entries, err := v.GetHistory(ctx, HistoryOptions{Author: "alice"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "alice", entries[0].Commit.Author)
}
