package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/brainyhq/brainy/internal/objects"
	"github.com/brainyhq/brainy/internal/vcs"
)

// Commit snapshots the current branch's live state into a new commit
// (spec.md §4.2/§4.11), advancing its ref.
func (s *Store) Commit(ctx context.Context, message, author string) (objects.Hash, error) {
	if err := s.checkClosed(); err != nil {
		return "", err
	}
	s.mu.Lock()
	if err := s.flushLocked(ctx); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("commit: %w", err)
	}
	s.mu.Unlock()

	return s.vcsStore.Commit(ctx, vcs.CommitOptions{Message: message, Author: author, CaptureState: true})
}

// Fork creates a new branch ref pointed at the current branch's HEAD
// without switching to it (spec.md §4.11). The signature matches
// vcs.VCS.Fork directly (rather than unpacking ForkOptions to a bare
// metadata map) so Store satisfies migration.Brancher without an adapter.
func (s *Store) Fork(ctx context.Context, name string, opts vcs.ForkOptions) (objects.Ref, error) {
	if err := s.checkClosed(); err != nil {
		return objects.Ref{}, err
	}
	return s.vcsStore.Fork(ctx, name, opts)
}

// Checkout switches the live store to branch (spec.md §4.11): the
// branch's storage namespace is swapped to its own scopedAdapter, lazily
// materialized from its HEAD commit on first visit (the actual
// copy-on-write step — see materializeIfEmpty), and every in-memory index
// is rebuilt from that namespace so stale cross-branch state never leaks.
func (s *Store) Checkout(ctx context.Context, branch string) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	if err := s.vcsStore.Checkout(ctx, branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}

	newAdapter := newScopedAdapter(branch, s.root)
	head, err := s.vcsStore.HeadCommit(ctx)
	if err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	if err := s.materializeIfEmpty(ctx, newAdapter, head); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}

	s.mu.Lock()
	s.branch = branch
	s.adapter = newAdapter
	s.mu.Unlock()

	if err := s.rebuildIndexes(ctx); err != nil {
		return fmt.Errorf("checkout %s: rebuild: %w", branch, err)
	}
	return nil
}

// ListBranches lists every branch ref (spec.md §4.11), excluding
// migration backup refs unless includeBackups is set.
func (s *Store) ListBranches(ctx context.Context, includeBackups bool) ([]string, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	return s.vcsStore.ListBranches(ctx, includeBackups)
}

// CurrentBranch returns the checked-out branch name.
func (s *Store) CurrentBranch() string {
	return s.vcsStore.CurrentBranch()
}

// AsOf resolves the latest commit on branch at or before t, read-only
// (spec.md §4.2).
func (s *Store) AsOf(ctx context.Context, branch string, t time.Time) (objects.Hash, error) {
	if err := s.checkClosed(); err != nil {
		return "", err
	}
	return s.vcsStore.AsOf(ctx, branch, t)
}

// GetHistory returns the commit history matching opts (spec.md §4.2).
func (s *Store) GetHistory(ctx context.Context, opts vcs.HistoryOptions) ([]vcs.HistoryEntry, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	return s.vcsStore.GetHistory(ctx, opts)
}

// StreamHistory streams the commit history matching opts, stopping early
// when fn returns stop=true (spec.md §4.2).
func (s *Store) StreamHistory(ctx context.Context, opts vcs.HistoryOptions, fn func(vcs.HistoryEntry) (bool, error)) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	return s.vcsStore.StreamHistory(ctx, opts, fn)
}
