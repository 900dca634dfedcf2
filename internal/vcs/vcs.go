// Package vcs implements Commit/Fork/Branch/Time-Travel (spec.md §4.11):
// Git-like history over the content-addressed object DAG in
// internal/objects. There is no teacher analog — the teacher versions
// issues through Dolt (a SQL-shaped version-control database), not a
// hand-rolled commit DAG — so this is grounded directly on spec.md §3/§4.2
// plus internal/objects' own Tree/Commit/Ref primitives, in the teacher's
// general idiom (sentinel errors, `fmt.Errorf` wrapping, RWMutex-guarded
// struct).
package vcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brainyhq/brainy/internal/blobstore"
	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/objects"
	"github.com/brainyhq/brainy/internal/storageadapter"
	"github.com/brainyhq/brainy/internal/types"
)

// refPrefix is the storage-adapter namespace refs live under — a mutable
// pointer, so it lives in the storage adapter's key space rather than the
// content-addressed blob store.
const refPrefix = "_system/refs/"

func refKey(name string) string {
	return refPrefix + objects.BranchFromRefName(objects.ResolveRefName(name))
}

// RefStore is the narrow storage-adapter surface refs need.
type RefStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	List(ctx context.Context, prefix, cursor string, limit int) (storageadapter.Page, error)
}

// EntitySource enumerates every non-tombstoned entity on the current
// branch overlay, for a captureState commit (spec.md §4.11).
type EntitySource interface {
	ListNouns(ctx context.Context) ([]types.Noun, error)
	ListVerbs(ctx context.Context) ([]types.Verb, error)
}

// CommitOptions is commit()'s input shape.
type CommitOptions struct {
	Message      string
	Author       string
	CaptureState bool
	Metadata     map[string]interface{}
}

// ForkOptions is fork()'s input shape.
type ForkOptions struct {
	Metadata map[string]interface{}
}

// HistoryOptions is getHistory()/streamHistory()'s input shape.
type HistoryOptions struct {
	Limit  int
	Branch string
	Author string
}

// HistoryEntry pairs a commit with the hash it was stored under.
type HistoryEntry struct {
	Hash   objects.Hash
	Commit objects.Commit
}

// VCS is the commit/branch/time-travel surface over a blob store and a
// ref store. Safe for concurrent use; ref advances are compare-and-swap so
// concurrent committers on the same branch never silently clobber each
// other (spec.md §4.11, §7 ConflictingCommit).
type VCS struct {
	mu       sync.Mutex
	refs     RefStore
	blobs    blobstore.Store
	entities EntitySource
	branch   string
}

// New returns a VCS bound to the given branch (normally "main"), creating
// its ref if none exists yet.
func New(refs RefStore, blobs blobstore.Store, entities EntitySource, initialBranch string) *VCS {
	if initialBranch == "" {
		initialBranch = "main"
	}
	v := &VCS{refs: refs, blobs: blobs, entities: entities, branch: initialBranch}
	ctx := context.Background()
	if _, err := v.getRef(ctx, initialBranch); errors.Is(err, brainyerr.ErrNotFound) {
		_ = v.putRef(ctx, objects.Ref{Name: objects.ResolveRefName(initialBranch), CommitHash: objects.NullHash, UpdatedAt: now()})
	}
	return v
}

// CurrentBranch returns the checked-out branch name (without the
// refs/heads/ prefix).
func (v *VCS) CurrentBranch() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.branch
}

// Checkout switches HEAD to branch, which must already have a ref (use
// Fork to create one).
func (v *VCS) Checkout(ctx context.Context, branch string) error {
	if _, err := v.getRef(ctx, branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	v.mu.Lock()
	v.branch = branch
	v.mu.Unlock()
	return nil
}

// ListBranches lists every branch ref, excluding migration backup refs
// (spec.md §4.12 step 2) unless includeBackups is set.
func (v *VCS) ListBranches(ctx context.Context, includeBackups bool) ([]string, error) {
	var names []string
	cursor := ""
	for {
		page, err := v.refs.List(ctx, refPrefix, cursor, 0)
		if err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
		for _, key := range page.Keys {
			data, err := v.refs.Get(ctx, key)
			if err != nil {
				continue
			}
			var r objects.Ref
			if err := json.Unmarshal(data, &r); err != nil {
				continue
			}
			if !includeBackups && objects.IsBackupRef(r) {
				continue
			}
			names = append(names, objects.BranchFromRefName(r.Name))
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	sort.Strings(names)
	return names, nil
}

func (v *VCS) getRef(ctx context.Context, branch string) (objects.Ref, error) {
	data, err := v.refs.Get(ctx, refKey(branch))
	if errors.Is(err, brainyerr.ErrNotFound) {
		return objects.Ref{}, brainyerr.NotFound("ref", branch)
	}
	if err != nil {
		return objects.Ref{}, fmt.Errorf("read ref %s: %w", branch, err)
	}
	var r objects.Ref
	if err := json.Unmarshal(data, &r); err != nil {
		return objects.Ref{}, fmt.Errorf("decode ref %s: %w", branch, err)
	}
	return r, nil
}

func (v *VCS) putRef(ctx context.Context, r objects.Ref) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode ref %s: %w", r.Name, err)
	}
	if err := v.refs.Put(ctx, refKey(r.Name), data); err != nil {
		return fmt.Errorf("write ref %s: %w", r.Name, err)
	}
	return nil
}

// HeadCommit returns the commit hash the current branch points at,
// NullHash if the branch has never been committed to.
func (v *VCS) HeadCommit(ctx context.Context) (objects.Hash, error) {
	r, err := v.getRef(ctx, v.CurrentBranch())
	if errors.Is(err, brainyerr.ErrNotFound) {
		return objects.NullHash, nil
	}
	if err != nil {
		return "", err
	}
	return r.CommitHash, nil
}

// Fork writes a new ref named `name` pointing at the current branch's
// HEAD, without switching HEAD to it. Entities subsequently authored under
// the new branch name are visible only there (spec.md §4.11).
func (v *VCS) Fork(ctx context.Context, name string, opts ForkOptions) (objects.Ref, error) {
	if name == "" {
		return objects.Ref{}, fmt.Errorf("fork: %w", brainyerr.InvalidArgument("branch name is required"))
	}
	if _, err := v.getRef(ctx, name); err == nil {
		return objects.Ref{}, fmt.Errorf("fork %s: %w", name, brainyerr.InvalidArgument("branch already exists"))
	}

	head, err := v.HeadCommit(ctx)
	if err != nil {
		return objects.Ref{}, fmt.Errorf("fork %s: %w", name, err)
	}

	r := objects.Ref{
		Name:       objects.ResolveRefName(name),
		CommitHash: head,
		UpdatedAt:  now(),
		Metadata:   opts.Metadata,
	}
	if err := v.putRef(ctx, r); err != nil {
		return objects.Ref{}, fmt.Errorf("fork %s: %w", name, err)
	}
	return r, nil
}

// Commit builds a new commit on the current branch and advances its ref,
// compare-and-swap style: if the ref moved between reading HEAD and
// writing the new commit, the write is rejected as a conflicting commit
// rather than silently losing the other writer's commit.
func (v *VCS) Commit(ctx context.Context, opts CommitOptions) (objects.Hash, error) {
	branch := v.CurrentBranch()

	before, err := v.getRef(ctx, branch)
	beforeExisted := err == nil
	if err != nil && !errors.Is(err, brainyerr.ErrNotFound) {
		return "", fmt.Errorf("commit: %w", err)
	}
	parent := objects.NullHash
	if beforeExisted {
		parent = before.CommitHash
	}

	tree := objects.NullHash
	if opts.CaptureState {
		tree, err = v.captureStateTree(ctx)
		if err != nil {
			return "", fmt.Errorf("commit: capture state: %w", err)
		}
	}

	c := objects.Commit{
		Tree:      tree,
		Parent:    parent,
		Author:    opts.Author,
		Message:   opts.Message,
		Timestamp: now(),
		Metadata:  opts.Metadata,
	}
	data := c.Canonical()
	hash, err := v.blobs.Put(data)
	if err != nil {
		return "", fmt.Errorf("commit: write commit blob: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	latest, err := v.getRef(ctx, branch)
	latestExisted := err == nil
	if err != nil && !errors.Is(err, brainyerr.ErrNotFound) {
		return "", fmt.Errorf("commit: %w", err)
	}
	if latestExisted != beforeExisted || (latestExisted && latest.CommitHash != before.CommitHash) {
		return "", fmt.Errorf("commit on %s: %w", branch, brainyerr.ErrConflictingCommit)
	}

	r := objects.Ref{
		Name:       objects.ResolveRefName(branch),
		CommitHash: hash,
		UpdatedAt:  c.Timestamp,
	}
	if latestExisted {
		r.Metadata = latest.Metadata
	}
	if err := v.putRef(ctx, r); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash, nil
}

// captureStateTree enumerates every non-tombstoned noun and verb, writes
// each as its own content-addressed blob (an unchanged entity reuses its
// existing hash automatically, since the blob store is idempotent on
// identical content), and assembles a flat tree named "entities/<id>" /
// "relations/<id>" over them.
func (v *VCS) captureStateTree(ctx context.Context) (objects.Hash, error) {
	if v.entities == nil {
		return objects.NullHash, fmt.Errorf("capture state: %w", brainyerr.InvalidArgument("no entity source configured"))
	}

	nouns, err := v.entities.ListNouns(ctx)
	if err != nil {
		return "", fmt.Errorf("list nouns: %w", err)
	}
	verbs, err := v.entities.ListVerbs(ctx)
	if err != nil {
		return "", fmt.Errorf("list verbs: %w", err)
	}

	var entries []objects.Entry
	for _, n := range nouns {
		data, err := json.Marshal(n)
		if err != nil {
			return "", fmt.Errorf("marshal noun %s: %w", n.ID, err)
		}
		h, err := v.blobs.Put(data)
		if err != nil {
			return "", fmt.Errorf("write noun blob %s: %w", n.ID, err)
		}
		entries = append(entries, objects.Entry{Name: "entities/" + n.ID, Type: objects.EntryBlob, Hash: h})
	}
	for _, e := range verbs {
		data, err := json.Marshal(e)
		if err != nil {
			return "", fmt.Errorf("marshal verb %s: %w", e.ID, err)
		}
		h, err := v.blobs.Put(data)
		if err != nil {
			return "", fmt.Errorf("write verb blob %s: %w", e.ID, err)
		}
		entries = append(entries, objects.Entry{Name: "relations/" + e.ID, Type: objects.EntryBlob, Hash: h})
	}

	tree := objects.Tree{Entries: entries}
	data := tree.Canonical()
	return v.blobs.Put(data)
}

// AsOf resolves the latest commit on branch at or before t (spec.md §4.2),
// read-only.
func (v *VCS) AsOf(ctx context.Context, branch string, t time.Time) (objects.Hash, error) {
	r, err := v.getRef(ctx, branch)
	if errors.Is(err, brainyerr.ErrNotFound) {
		return objects.NullHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("asOf: %w", err)
	}

	var result objects.Hash = objects.NullHash
	err = objects.WalkHistory(v.blobs, r.CommitHash, func(hash objects.Hash, c objects.Commit) (bool, error) {
		if !c.Timestamp.After(t) {
			result = hash
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return "", fmt.Errorf("asOf: %w", err)
	}
	return result, nil
}

// GetHistory walks commits from the resolved branch ref (or the checked-out
// branch if opts.Branch is empty), newest first, applying an optional
// author filter and limit.
func (v *VCS) GetHistory(ctx context.Context, opts HistoryOptions) ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := v.StreamHistory(ctx, opts, func(entry HistoryEntry) (bool, error) {
		out = append(out, entry)
		return opts.Limit > 0 && len(out) >= opts.Limit, nil
	})
	return out, err
}

// StreamHistory walks commits one at a time with constant memory,
// newest-first, invoking fn until it returns stop=true, an error, or
// history is exhausted.
func (v *VCS) StreamHistory(ctx context.Context, opts HistoryOptions, fn func(HistoryEntry) (stop bool, err error)) error {
	branch := opts.Branch
	if branch == "" {
		branch = v.CurrentBranch()
	}
	r, err := v.getRef(ctx, branch)
	if errors.Is(err, brainyerr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stream history: %w", err)
	}

	count := 0
	return objects.WalkHistory(v.blobs, r.CommitHash, func(hash objects.Hash, c objects.Commit) (bool, error) {
		if opts.Author != "" && c.Author != opts.Author {
			return false, nil
		}
		stop, err := fn(HistoryEntry{Hash: hash, Commit: c})
		if err != nil {
			return true, err
		}
		count++
		if opts.Limit > 0 && count >= opts.Limit {
			return true, nil
		}
		return stop, nil
	})
}

func now() time.Time {
	return time.Now().UTC()
}
