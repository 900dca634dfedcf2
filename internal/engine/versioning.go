package engine

import (
	"context"
	"fmt"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/types"
	"github.com/brainyhq/brainy/internal/versioning"
)

// SaveVersion records a new version of id on the current branch
// (spec.md §4.13), content-hash deduplicated against its prior version.
func (s *Store) SaveVersion(_ context.Context, id string, opts versioning.SaveOptions) (versioning.EntityVersion, error) {
	if err := s.checkClosed(); err != nil {
		return versioning.EntityVersion{}, err
	}
	s.mu.RLock()
	n, ok := s.nouns[id]
	branch := s.branch
	s.mu.RUnlock()
	if !ok {
		return versioning.EntityVersion{}, fmt.Errorf("save version %s: %w", id, brainyerr.NotFound("noun", id))
	}
	return s.versions.Save(branch, n, opts)
}

// ListVersions lists every recorded version of id on the current branch.
func (s *Store) ListVersions(id string) []versioning.EntityVersion {
	return s.versions.List(s.branch, id)
}

// GetVersion reads one version's content without restoring it.
func (s *Store) GetVersion(id string, number int) (types.Noun, error) {
	return s.versions.GetContent(s.branch, id, number)
}

// Restore overwrites the current entity with a stored snapshot
// (spec.md §4.13): the restored content is read fresh from the version's
// blob, never from a denormalized in-memory copy.
func (s *Store) Restore(ctx context.Context, id string, number int) (types.Noun, error) {
	if err := s.checkClosed(); err != nil {
		return types.Noun{}, err
	}
	n, err := s.versions.Restore(s.branch, id, number, "")
	if err != nil {
		return types.Noun{}, fmt.Errorf("restore %s: %w", id, err)
	}
	return s.applyRestoredNoun(ctx, n)
}

// RestoreTag is Restore's tag-addressed form.
func (s *Store) RestoreTag(ctx context.Context, id, tag string) (types.Noun, error) {
	if err := s.checkClosed(); err != nil {
		return types.Noun{}, err
	}
	n, err := s.versions.Restore(s.branch, id, 0, tag)
	if err != nil {
		return types.Noun{}, fmt.Errorf("restore %s@%s: %w", id, tag, err)
	}
	return s.applyRestoredNoun(ctx, n)
}

// Undo restores the version immediately prior to the current one.
func (s *Store) Undo(ctx context.Context, id string) (types.Noun, error) {
	if err := s.checkClosed(); err != nil {
		return types.Noun{}, err
	}
	n, err := s.versions.Undo(s.branch, id)
	if err != nil {
		return types.Noun{}, fmt.Errorf("undo %s: %w", id, err)
	}
	return s.applyRestoredNoun(ctx, n)
}

// Revert restores the given version number, earlier or later.
func (s *Store) Revert(ctx context.Context, id string, number int) (types.Noun, error) {
	if err := s.checkClosed(); err != nil {
		return types.Noun{}, err
	}
	n, err := s.versions.Revert(s.branch, id, number)
	if err != nil {
		return types.Noun{}, fmt.Errorf("revert %s: %w", id, err)
	}
	return s.applyRestoredNoun(ctx, n)
}

// applyRestoredNoun writes a version-restored noun back into live storage
// and the in-memory indexes, the same persistence path Update uses.
func (s *Store) applyRestoredNoun(ctx context.Context, n types.Noun) (types.Noun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistNounLocked(ctx, n); err != nil {
		return types.Noun{}, err
	}
	s.nouns[n.ID] = n
	s.field.Update(n.ID, n.Metadata)
	if len(n.Vector) > 0 {
		s.hnswIdx.Insert(string(n.Type), n.ID, n.Vector)
	}
	return n, nil
}

// CompareVersions diffs two versions of id (spec.md §4.13).
func (s *Store) CompareVersions(id string, vA, vB int) (versioning.Diff, error) {
	return s.versions.Compare(s.branch, id, vA, vB)
}

// PruneVersions trims id's version history per opts (spec.md §4.13).
func (s *Store) PruneVersions(id string, opts versioning.PruneOptions) int {
	return s.versions.Prune(s.branch, id, opts)
}

// HasVersions reports whether id has any recorded version on this branch.
func (s *Store) HasVersions(id string) bool {
	return s.versions.HasVersions(s.branch, id)
}

// VersionCount is the number of versions recorded for id on this branch.
func (s *Store) VersionCount(id string) int {
	return s.versions.Count(s.branch, id)
}

// GetLatestVersion returns id's newest recorded version.
func (s *Store) GetLatestVersion(id string) (versioning.EntityVersion, bool) {
	return s.versions.GetLatest(s.branch, id)
}

// GetVersionByTag resolves a tag to its recorded version.
func (s *Store) GetVersionByTag(id, tag string) (versioning.EntityVersion, bool) {
	return s.versions.GetVersionByTag(s.branch, id, tag)
}
