// Package versioning implements Per-Entity Versioning (spec.md §4.13): a
// branch-scoped snapshot ring per entity, content-hash deduplicated, with
// restore/compare/prune. There is no teacher analog (the teacher versions
// whole-repo state through Dolt commits, never a single entity), so this
// is grounded directly on spec.md §4.13, reusing internal/blobstore for
// the snapshot storage itself — the same content-addressed dedup trick
// internal/vcs's captureStateTree relies on.
package versioning

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/objects"
	"github.com/brainyhq/brainy/internal/types"
)

// Store is the narrow blobstore.Store surface versioning needs: every
// snapshot is written and read back as a content-addressed blob, so a
// version never holds denormalized content of its own to go stale.
type Store interface {
	Put(data []byte) (objects.Hash, error)
	Get(hash objects.Hash) ([]byte, error)
}

// EntityVersion is one recorded save (spec.md §2's EntityVersion shape).
type EntityVersion struct {
	EntityID    string
	Version     int
	ContentHash objects.Hash
	SavedAt     time.Time
	Tag         string
	Description string
	ByBranch    string
}

// SaveOptions names and describes a save.
type SaveOptions struct {
	Tag         string
	Description string
}

// FieldChange is one changed metadata path between two compared versions.
type FieldChange struct {
	Path     string
	OldValue interface{}
	NewValue interface{}
}

// Diff is compare()'s return shape (spec.md §4.13).
type Diff struct {
	Added        []string
	Removed      []string
	Modified     []FieldChange
	TotalChanges int
}

// PruneOptions bounds what prune() keeps.
type PruneOptions struct {
	KeepRecent int
	KeepTagged bool
}

func versionKey(branch, entityID string) string {
	return branch + "\x00" + entityID
}

// Manager tracks versions across every branch+entity pair it has seen.
// Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	blobs    Store
	versions map[string][]EntityVersion
}

// New returns an empty Manager backed by blobs for snapshot storage.
func New(blobs Store) *Manager {
	return &Manager{blobs: blobs, versions: make(map[string][]EntityVersion)}
}

// Save records a new version of n on branch, unless its content is
// identical to the entity's current latest version, in which case the
// existing version is returned unchanged (spec.md §4.13 dedup rule).
func (m *Manager) Save(branch string, n types.Noun, opts SaveOptions) (EntityVersion, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return EntityVersion{}, fmt.Errorf("versioning: marshal entity %s: %w", n.ID, err)
	}
	hash, err := m.blobs.Put(data)
	if err != nil {
		return EntityVersion{}, fmt.Errorf("versioning: write snapshot %s: %w", n.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := versionKey(branch, n.ID)
	existing := m.versions[key]
	if len(existing) > 0 {
		last := existing[len(existing)-1]
		if last.ContentHash == hash {
			return last, nil
		}
	}

	v := EntityVersion{
		EntityID:    n.ID,
		Version:     len(existing) + 1,
		ContentHash: hash,
		SavedAt:     now(),
		Tag:         opts.Tag,
		Description: opts.Description,
		ByBranch:    branch,
	}
	m.versions[key] = append(existing, v)
	return v, nil
}

// List returns every recorded version of entityID on branch, oldest first.
func (m *Manager) List(branch, entityID string) []EntityVersion {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.versions[versionKey(branch, entityID)]
	out := make([]EntityVersion, len(src))
	copy(out, src)
	return out
}

// Count reports how many versions entityID has on branch.
func (m *Manager) Count(branch, entityID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.versions[versionKey(branch, entityID)])
}

// HasVersions reports whether entityID has ever been saved on branch.
func (m *Manager) HasVersions(branch, entityID string) bool {
	return m.Count(branch, entityID) > 0
}

// GetLatest returns entityID's most recent version on branch.
func (m *Manager) GetLatest(branch, entityID string) (EntityVersion, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.versions[versionKey(branch, entityID)]
	if len(versions) == 0 {
		return EntityVersion{}, false
	}
	return versions[len(versions)-1], true
}

// GetVersionByTag finds the most recent version of entityID on branch
// carrying the given tag.
func (m *Manager) GetVersionByTag(branch, entityID, tag string) (EntityVersion, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.versions[versionKey(branch, entityID)]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Tag == tag {
			return versions[i], true
		}
	}
	return EntityVersion{}, false
}

func (m *Manager) findVersion(branch, entityID string, number int) (EntityVersion, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.versions[versionKey(branch, entityID)] {
		if v.Version == number {
			return v, true
		}
	}
	return EntityVersion{}, false
}

// GetContent reads the full entity snapshot for version `number` of
// entityID on branch fresh from the blob store — never from a cached
// copy, so a File/Collection entity's content is always as-saved rather
// than whatever a denormalized field might claim (spec.md §4.13).
func (m *Manager) GetContent(branch, entityID string, number int) (types.Noun, error) {
	v, ok := m.findVersion(branch, entityID, number)
	if !ok {
		return types.Noun{}, fmt.Errorf("versioning: get content %s v%d: %w", entityID, number, brainyerr.NotFound("version", fmt.Sprintf("%s/%d", entityID, number)))
	}
	return m.readSnapshot(v)
}

func (m *Manager) readSnapshot(v EntityVersion) (types.Noun, error) {
	data, err := m.blobs.Get(v.ContentHash)
	if err != nil {
		return types.Noun{}, fmt.Errorf("versioning: read snapshot %s v%d: %w", v.EntityID, v.Version, err)
	}
	var n types.Noun
	if err := json.Unmarshal(data, &n); err != nil {
		return types.Noun{}, fmt.Errorf("versioning: decode snapshot %s v%d: %w", v.EntityID, v.Version, err)
	}
	return n, nil
}

// Restore returns the entity snapshot to overwrite the live entity with,
// resolving either a version number or, if number is 0, a tag.
func (m *Manager) Restore(branch, entityID string, number int, tag string) (types.Noun, error) {
	if number > 0 {
		return m.GetContent(branch, entityID, number)
	}
	v, ok := m.GetVersionByTag(branch, entityID, tag)
	if !ok {
		return types.Noun{}, fmt.Errorf("versioning: restore %s tag %q: %w", entityID, tag, brainyerr.NotFound("version", entityID+"/"+tag))
	}
	return m.readSnapshot(v)
}

// Undo restores entityID to the version immediately before its current
// latest, a one-step rollback shortcut over Restore.
func (m *Manager) Undo(branch, entityID string) (types.Noun, error) {
	latest, ok := m.GetLatest(branch, entityID)
	if !ok || latest.Version <= 1 {
		return types.Noun{}, fmt.Errorf("versioning: undo %s: %w", entityID, brainyerr.NotFound("prior version", entityID))
	}
	return m.GetContent(branch, entityID, latest.Version-1)
}

// Revert is Restore by explicit version number, named for callers that
// always operate on version numbers rather than tags.
func (m *Manager) Revert(branch, entityID string, number int) (types.Noun, error) {
	return m.GetContent(branch, entityID, number)
}

// Compare diffs two versions' Metadata field bags (spec.md §4.13).
func (m *Manager) Compare(branch, entityID string, vA, vB int) (Diff, error) {
	a, err := m.GetContent(branch, entityID, vA)
	if err != nil {
		return Diff{}, err
	}
	b, err := m.GetContent(branch, entityID, vB)
	if err != nil {
		return Diff{}, err
	}
	return diffMetadata(a.Metadata, b.Metadata), nil
}

func diffMetadata(a, b types.Metadata) Diff {
	var d Diff
	for k, bv := range b {
		av, existed := a[k]
		if !existed {
			d.Added = append(d.Added, k)
			continue
		}
		if !valuesEqual(av, bv) {
			d.Modified = append(d.Modified, FieldChange{Path: k, OldValue: av, NewValue: bv})
		}
	}
	for k := range a {
		if _, stillPresent := b[k]; !stillPresent {
			d.Removed = append(d.Removed, k)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.Modified, func(i, j int) bool { return d.Modified[i].Path < d.Modified[j].Path })
	d.TotalChanges = len(d.Added) + len(d.Removed) + len(d.Modified)
	return d
}

func valuesEqual(a, b interface{}) bool {
	da, errA := json.Marshal(a)
	db, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(da) == string(db)
}

// Prune keeps the `KeepRecent` most recent versions of entityID on branch
// plus, if KeepTagged is set, every tagged version regardless of age, and
// discards the rest.
func (m *Manager) Prune(branch, entityID string, opts PruneOptions) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := versionKey(branch, entityID)
	versions := m.versions[key]
	if len(versions) == 0 {
		return 0
	}

	keep := make(map[int]bool, len(versions))
	cutoff := len(versions) - opts.KeepRecent
	for i, v := range versions {
		if i >= cutoff {
			keep[v.Version] = true
		}
		if opts.KeepTagged && v.Tag != "" {
			keep[v.Version] = true
		}
	}

	var kept []EntityVersion
	removed := 0
	for _, v := range versions {
		if keep[v.Version] {
			kept = append(kept, v)
		} else {
			removed++
		}
	}
	m.versions[key] = kept
	return removed
}

func now() time.Time {
	return time.Now().UTC()
}
