package brainy

import (
	"context"
	"time"

	"github.com/brainyhq/brainy/internal/engine"
	"github.com/brainyhq/brainy/internal/memlimit"
	"github.com/brainyhq/brainy/internal/migration"
	"github.com/brainyhq/brainy/internal/objects"
	"github.com/brainyhq/brainy/internal/telemetry"
	"github.com/brainyhq/brainy/internal/vcs"
	"github.com/brainyhq/brainy/internal/versioning"
)

// Store is the embeddable knowledge-graph and vector store. Safe for
// concurrent use. Obtain one with Open.
type Store struct {
	eng *engine.Store
}

// Open constructs a Store, rebuilding its in-memory indexes from
// persistent (or in-memory) state.
func Open(ctx context.Context, opts Options) (*Store, error) {
	eng, err := engine.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Store{eng: eng}, nil
}

// Close releases the store's underlying backend resources. Callers
// wanting durability must Flush or Commit first.
func (s *Store) Close() error {
	return s.eng.Close()
}

// Flush persists the count bookkeeping and the HNSW index, then clears the
// write-through cache.
func (s *Store) Flush(ctx context.Context) error {
	return s.eng.Flush(ctx)
}

// Add persists a new noun and folds it into the live indexes.
func (s *Store) Add(ctx context.Context, in NounInput) (Noun, error) {
	return s.eng.Add(ctx, in)
}

// BatchResult is addMany/updateMany/deleteMany/relateMany's return shape
// (spec.md §7: "batch operations return {successful, failed} rather than
// aborting").
type BatchResult struct {
	Successful []string
	Failed     []BatchFailure
}

// BatchFailure names which input item failed and why.
type BatchFailure struct {
	Index int
	Error error
}

func toBatchResult(ids []string, failures []engine.Failure) BatchResult {
	out := BatchResult{Successful: ids}
	for _, f := range failures {
		out.Failed = append(out.Failed, BatchFailure{Index: f.Index, Error: f.Err})
	}
	return out
}

// AddMany adds every item in order. When continueOnError is false, the
// first failure stops the batch.
func (s *Store) AddMany(ctx context.Context, items []NounInput, continueOnError bool) BatchResult {
	ids, failures := s.eng.AddMany(ctx, items, continueOnError)
	return toBatchResult(ids, failures)
}

// Get resolves a single noun by id.
func (s *Store) Get(ctx context.Context, id string) (Noun, bool, error) {
	return s.eng.Get(ctx, id)
}

// BatchGet resolves many ids in one call.
func (s *Store) BatchGet(ctx context.Context, ids []string, includeVectors bool) (map[string]Noun, error) {
	return s.eng.BatchGet(ctx, ids, includeVectors)
}

// Update applies a partial update to an existing noun.
func (s *Store) Update(ctx context.Context, in NounUpdate) (Noun, error) {
	return s.eng.Update(ctx, in)
}

// UpdateMany applies Update to every item in order.
func (s *Store) UpdateMany(ctx context.Context, updates []NounUpdate, continueOnError bool) BatchResult {
	ids, failures := s.eng.UpdateMany(ctx, updates, continueOnError)
	return toBatchResult(ids, failures)
}

// Delete tombstones a noun, unrelating every verb that touched it.
func (s *Store) Delete(ctx context.Context, id, actor, reason string) error {
	return s.eng.Delete(ctx, id, actor, reason)
}

// DeleteMany tombstones every id in order.
func (s *Store) DeleteMany(ctx context.Context, ids []string, actor, reason string, continueOnError bool) BatchResult {
	ok, failures := s.eng.DeleteMany(ctx, ids, actor, reason, continueOnError)
	return toBatchResult(ok, failures)
}

// Relate persists a new verb between two existing nouns.
func (s *Store) Relate(ctx context.Context, in VerbInput) (Verb, error) {
	return s.eng.Relate(ctx, in)
}

// RelateMany applies Relate to every item in order.
func (s *Store) RelateMany(ctx context.Context, items []VerbInput, continueOnError bool) BatchResult {
	ids, failures := s.eng.RelateMany(ctx, items, continueOnError)
	return toBatchResult(ids, failures)
}

// Unrelate tombstones a verb by id.
func (s *Store) Unrelate(ctx context.Context, id, actor, reason string) error {
	return s.eng.Unrelate(ctx, id, actor, reason)
}

// GetRelations answers the by-from/by-to/by-type relation query.
func (s *Store) GetRelations(ctx context.Context, q RelationQuery) ([]Verb, string, error) {
	return s.eng.GetRelations(ctx, q)
}

// Connected answers a graph-traversal query dimension directly, without
// fusing it with vector/metadata search the way Find does.
func (s *Store) Connected(ctx context.Context, c Connected) ([]string, error) {
	return s.eng.Connected(ctx, c)
}

// Find runs the unified query engine, fusing whichever of
// vector/graph/metadata dimensions the query shape requests.
func (s *Store) Find(ctx context.Context, q FindQuery) ([]FindResult, error) {
	return s.eng.Find(ctx, q)
}

// Similar is Find's single-entity convenience form: it looks up id's own
// vector and searches for its nearest neighbors, excluding itself.
func (s *Store) Similar(ctx context.Context, id string, limit int) ([]FindResult, error) {
	return s.eng.Similar(ctx, id, limit)
}

// Commit snapshots the current branch's live state into a new commit,
// advancing its ref.
func (s *Store) Commit(ctx context.Context, message, author string) (objects.Hash, error) {
	return s.eng.Commit(ctx, message, author)
}

// ForkOptions configures Fork.
type ForkOptions = vcs.ForkOptions

// Fork creates a new branch ref pointed at the current branch's HEAD,
// without switching to it.
func (s *Store) Fork(ctx context.Context, name string, opts ForkOptions) (objects.Ref, error) {
	return s.eng.Fork(ctx, name, opts)
}

// Checkout switches the live store to branch.
func (s *Store) Checkout(ctx context.Context, branch string) error {
	return s.eng.Checkout(ctx, branch)
}

// ListBranches lists every branch ref, excluding migration backup refs
// unless includeBackups is set.
func (s *Store) ListBranches(ctx context.Context, includeBackups bool) ([]string, error) {
	return s.eng.ListBranches(ctx, includeBackups)
}

// CurrentBranch returns the checked-out branch name.
func (s *Store) CurrentBranch() string {
	return s.eng.CurrentBranch()
}

// AsOf resolves the latest commit on branch at or before t, read-only.
func (s *Store) AsOf(ctx context.Context, branch string, t time.Time) (objects.Hash, error) {
	return s.eng.AsOf(ctx, branch, t)
}

// HistoryOptions configures GetHistory/StreamHistory.
type HistoryOptions = vcs.HistoryOptions

// HistoryEntry is one row of commit history.
type HistoryEntry = vcs.HistoryEntry

// GetHistory returns the commit history matching opts.
func (s *Store) GetHistory(ctx context.Context, opts HistoryOptions) ([]HistoryEntry, error) {
	return s.eng.GetHistory(ctx, opts)
}

// StreamHistory streams the commit history matching opts, stopping early
// when fn returns stop=true.
func (s *Store) StreamHistory(ctx context.Context, opts HistoryOptions, fn func(HistoryEntry) (bool, error)) error {
	return s.eng.StreamHistory(ctx, opts, fn)
}

// Migration describes one entry in an ordered migration run.
type Migration = migration.Migration

// MigrationOptions configures Migrate.
type MigrationOptions = migration.Options

// MigrationResult is Migrate's return shape.
type MigrationResult = migration.Result

// DryRunResult is DryRun's return shape.
type DryRunResult = migration.DryRunResult

// Migrate runs migrations across every branch except migration backup
// branches.
func (s *Store) Migrate(ctx context.Context, migrations []Migration, opts MigrationOptions) (MigrationResult, error) {
	return s.eng.Migrate(ctx, migrations, opts)
}

// DryRun previews what Migrate would change without writing anything.
func (s *Store) DryRun(ctx context.Context, migrations []Migration) (DryRunResult, error) {
	return s.eng.DryRun(ctx, migrations)
}

// GetMemoryStats reports the detected memory basis and derived query
// limit.
func (s *Store) GetMemoryStats() memlimit.Stats {
	return s.eng.GetMemoryStats()
}

// TelemetrySnapshot reports the structured statistics snapshot.
func (s *Store) TelemetrySnapshot() telemetry.Snapshot {
	return s.eng.TelemetrySnapshot()
}

// Versions returns the per-entity version-history handle bound to this
// store's currently checked-out branch.
func (s *Store) Versions() Versions {
	return Versions{eng: s.eng}
}

// Versions is the per-entity version-history surface (spec.md §4.13's
// `versions: {save, list, restore, ...}` wire grouping).
type Versions struct {
	eng *engine.Store
}

// SaveOptions names and describes a saved version.
type SaveOptions = versioning.SaveOptions

// EntityVersion is one recorded version of an entity.
type EntityVersion = versioning.EntityVersion

// Diff is Compare's return shape.
type Diff = versioning.Diff

// PruneOptions bounds what Prune keeps.
type PruneOptions = versioning.PruneOptions

// Save records a new version of id, content-hash deduplicated against
// its prior version.
func (v Versions) Save(ctx context.Context, id string, opts SaveOptions) (EntityVersion, error) {
	return v.eng.SaveVersion(ctx, id, opts)
}

// List lists every recorded version of id, oldest first.
func (v Versions) List(id string) []EntityVersion {
	return v.eng.ListVersions(id)
}

// GetContent reads one version's content without restoring it.
func (v Versions) GetContent(id string, number int) (Noun, error) {
	return v.eng.GetVersion(id, number)
}

// Restore overwrites the current entity with a stored snapshot.
func (v Versions) Restore(ctx context.Context, id string, number int) (Noun, error) {
	return v.eng.Restore(ctx, id, number)
}

// RestoreTag is Restore's tag-addressed form.
func (v Versions) RestoreTag(ctx context.Context, id, tag string) (Noun, error) {
	return v.eng.RestoreTag(ctx, id, tag)
}

// Undo restores the version immediately prior to the current one.
func (v Versions) Undo(ctx context.Context, id string) (Noun, error) {
	return v.eng.Undo(ctx, id)
}

// Revert restores the given version number.
func (v Versions) Revert(ctx context.Context, id string, number int) (Noun, error) {
	return v.eng.Revert(ctx, id, number)
}

// Compare diffs two versions of id.
func (v Versions) Compare(id string, vA, vB int) (Diff, error) {
	return v.eng.CompareVersions(id, vA, vB)
}

// Prune trims id's version history per opts, returning the count removed.
func (v Versions) Prune(id string, opts PruneOptions) int {
	return v.eng.PruneVersions(id, opts)
}

// HasVersions reports whether id has any recorded version.
func (v Versions) HasVersions(id string) bool {
	return v.eng.HasVersions(id)
}

// Count is the number of versions recorded for id.
func (v Versions) Count(id string) int {
	return v.eng.VersionCount(id)
}

// GetLatest returns id's newest recorded version.
func (v Versions) GetLatest(id string) (EntityVersion, bool) {
	return v.eng.GetLatestVersion(id)
}

// GetVersionByTag resolves a tag to its recorded version.
func (v Versions) GetVersionByTag(id, tag string) (EntityVersion, bool) {
	return v.eng.GetVersionByTag(id, tag)
}
