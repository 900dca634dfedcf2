// Package migration implements the Migration Runner (spec.md §4.12): an
// ordered list of metadata transforms applied to every visible entity
// across every branch except migration backup branches, with a mandatory
// pre-run backup ref, resumable idempotent re-runs, and a dry-run preview
// mode. There is no teacher analog (the teacher has no metadata-transform
// runner); this is grounded on spec.md §4.12 directly, written in the
// teacher's general idiom of narrow consumer-defined interfaces and
// sentinel-wrapped errors.
package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/objects"
	"github.com/brainyhq/brainy/internal/types"
	"github.com/brainyhq/brainy/internal/vcs"
)

// Applies selects which entity kinds a Migration's Transform runs against.
type Applies string

const (
	AppliesNouns Applies = "nouns"
	AppliesVerbs Applies = "verbs"
	AppliesBoth  Applies = "both"
)

// Migration is one entry in an ordered migration run (spec.md §4.12).
// Transform returns nil to mean "skip this entity, no change".
type Migration struct {
	ID          string
	Version     string
	Description string
	Applies     Applies
	Transform   func(metadata types.Metadata) types.Metadata
}

// Brancher is the narrow vcs.VCS surface the runner needs: enumerate
// branches, switch HEAD between them, and fork a backup ref.
type Brancher interface {
	ListBranches(ctx context.Context, includeBackups bool) ([]string, error)
	CurrentBranch() string
	Checkout(ctx context.Context, branch string) error
	Fork(ctx context.Context, name string, opts vcs.ForkOptions) (objects.Ref, error)
}

// EntityPage is one page of the currently checked-out branch's entities.
type EntityPage struct {
	Nouns      []types.Noun
	Verbs      []types.Verb
	NextCursor string
}

// EntityStore is the narrow surface the runner needs against whichever
// branch is currently checked out on the bound Brancher.
type EntityStore interface {
	ListEntities(ctx context.Context, cursor string, limit int) (EntityPage, error)
	SetNounMetadata(ctx context.Context, id string, metadata types.Metadata) error
	SetVerbMetadata(ctx context.Context, id string, metadata types.Metadata) error
}

// pageSize is the entity page size the runner reads with; the spec leaves
// it unspecified, so this matches the default find() limit used elsewhere.
const pageSize = 100

// ErrorEntry records one transform or write failure during a run.
type ErrorEntry struct {
	MigrationID string
	EntityID    string
	Error       string
}

// Result is Run's return shape (spec.md §4.12 step 3).
type Result struct {
	EntitiesProcessed int
	EntitiesModified  int
	MigrationsApplied []string
	Errors            []ErrorEntry
}

// SampleChange is one before/after pair shown by a dry run.
type SampleChange struct {
	EntityID string
	Before   types.Metadata
	After    types.Metadata
}

// DryRunResult is DryRun's return shape (spec.md §4.12 step 6).
type DryRunResult struct {
	PendingMigrations []string
	AffectedEntities  int
	SampleChanges     []SampleChange
	EstimatedTime     time.Duration
}

// Options configures a Run. MaxErrors <= 0 means unbounded (spec.md §4.12
// step 3's documented default). Version names the backup ref created for
// this run (`pre-migration-<version>`) — the spec names the backup after
// "the" version being applied, so a single Run call is expected to carry
// migrations belonging to one release's version; if empty, the first
// pending migration's own Version is used.
type Options struct {
	MaxErrors int
	Version   string
}

// sampleLimit bounds how many before/after pairs DryRun collects, so a
// large run doesn't build an unbounded preview in memory.
const sampleLimit = 10

// estimatePerEntity is the constant per-entity cost DryRun's EstimatedTime
// heuristic scales by. There is no runtime profiling signal to derive
// this from ahead of a real run, so it is a fixed, documented estimate
// rather than a measured one.
const estimatePerEntity = time.Millisecond

// Runner applies migrations across branches and tracks which migration
// ids have already completed, so repeated Run calls with an overlapping
// migration list are no-ops for anything already applied (spec.md §4.12
// step 4).
type Runner struct {
	vcs       Brancher
	entities  EntityStore
	completed map[string]bool
}

// NewRunner returns a Runner with no migrations marked completed yet.
func NewRunner(vcs Brancher, entities EntityStore) *Runner {
	return &Runner{vcs: vcs, entities: entities, completed: make(map[string]bool)}
}

// Completed reports whether migration id has already been applied by a
// prior Run call on this Runner.
func (r *Runner) Completed(id string) bool {
	return r.completed[id]
}

// Validate rejects a migration list with duplicate ids, missing required
// fields, an invalid Applies value, or a nil Transform (spec.md §4.12
// step 5).
func Validate(migrations []Migration) error {
	seen := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		if m.ID == "" {
			return fmt.Errorf("migration validation: %w", brainyerr.InvalidArgument("migration id is required"))
		}
		if seen[m.ID] {
			return fmt.Errorf("migration validation: %w", brainyerr.InvalidArgument(fmt.Sprintf("duplicate migration id %q", m.ID)))
		}
		seen[m.ID] = true
		if m.Version == "" {
			return fmt.Errorf("migration validation: %w", brainyerr.InvalidArgument(fmt.Sprintf("migration %q: version is required", m.ID)))
		}
		switch m.Applies {
		case AppliesNouns, AppliesVerbs, AppliesBoth:
		default:
			return fmt.Errorf("migration validation: %w", brainyerr.InvalidArgument(fmt.Sprintf("migration %q: invalid applies %q", m.ID, m.Applies)))
		}
		if m.Transform == nil {
			return fmt.Errorf("migration validation: %w", brainyerr.InvalidArgument(fmt.Sprintf("migration %q: transform is required", m.ID)))
		}
	}
	return nil
}

func (r *Runner) pending(migrations []Migration) []Migration {
	var out []Migration
	for _, m := range migrations {
		if !r.completed[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// Run validates migrations, creates a backup ref at the current branch's
// HEAD, then applies every not-yet-completed migration to every branch
// except backup-tagged ones, entity pages per branch in the order the
// EntityStore returns them.
func (r *Runner) Run(ctx context.Context, migrations []Migration, opts Options) (Result, error) {
	if err := Validate(migrations); err != nil {
		return Result{}, err
	}

	pending := r.pending(migrations)
	if len(pending) == 0 {
		return Result{}, nil
	}

	version := opts.Version
	if version == "" {
		version = pending[0].Version
	}
	if _, err := r.vcs.Fork(ctx, fmt.Sprintf("pre-migration-%s", version), vcs.ForkOptions{
		Metadata: map[string]interface{}{
			"type":             "system:backup",
			"migrationVersion": version,
			"author":           "brainy-migration",
		},
	}); err != nil {
		return Result{}, fmt.Errorf("migration run: backup ref: %w", err)
	}

	origBranch := r.vcs.CurrentBranch()
	defer r.vcs.Checkout(ctx, origBranch)

	maxErrors := opts.MaxErrors
	result := Result{}

	for _, m := range pending {
		errsBefore := len(result.Errors)
		if err := r.runOne(ctx, m, &result, maxErrors); err != nil {
			return result, err
		}
		if maxErrors > 0 && len(result.Errors) >= maxErrors {
			break
		}
		if len(result.Errors) == errsBefore {
			r.completed[m.ID] = true
			result.MigrationsApplied = append(result.MigrationsApplied, m.ID)
		}
	}

	return result, nil
}

func (r *Runner) runOne(ctx context.Context, m Migration, result *Result, maxErrors int) error {
	branches, err := r.vcs.ListBranches(ctx, false)
	if err != nil {
		return fmt.Errorf("migration %s: list branches: %w", m.ID, err)
	}

	for _, branch := range branches {
		if err := r.vcs.Checkout(ctx, branch); err != nil {
			return fmt.Errorf("migration %s: checkout %s: %w", m.ID, branch, err)
		}

		cursor := ""
		for {
			page, err := r.entities.ListEntities(ctx, cursor, pageSize)
			if err != nil {
				return fmt.Errorf("migration %s: list entities on %s: %w", m.ID, branch, err)
			}

			if m.Applies == AppliesNouns || m.Applies == AppliesBoth {
				for _, n := range page.Nouns {
					r.applyToNoun(ctx, m, n, result)
					if maxErrors > 0 && len(result.Errors) >= maxErrors {
						return nil
					}
				}
			}
			if m.Applies == AppliesVerbs || m.Applies == AppliesBoth {
				for _, v := range page.Verbs {
					r.applyToVerb(ctx, m, v, result)
					if maxErrors > 0 && len(result.Errors) >= maxErrors {
						return nil
					}
				}
			}

			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
	}
	return nil
}

func (r *Runner) applyToNoun(ctx context.Context, m Migration, n types.Noun, result *Result) {
	result.EntitiesProcessed++
	next := m.Transform(n.Metadata)
	if next == nil {
		return
	}
	if err := r.entities.SetNounMetadata(ctx, n.ID, next); err != nil {
		result.Errors = append(result.Errors, ErrorEntry{MigrationID: m.ID, EntityID: n.ID, Error: err.Error()})
		return
	}
	result.EntitiesModified++
}

func (r *Runner) applyToVerb(ctx context.Context, m Migration, v types.Verb, result *Result) {
	result.EntitiesProcessed++
	next := m.Transform(v.Metadata)
	if next == nil {
		return
	}
	if err := r.entities.SetVerbMetadata(ctx, v.ID, next); err != nil {
		result.Errors = append(result.Errors, ErrorEntry{MigrationID: m.ID, EntityID: v.ID, Error: err.Error()})
		return
	}
	result.EntitiesModified++
}

// DryRun reports what Run would do without mutating anything or creating
// a backup ref (spec.md §4.12 step 6).
func (r *Runner) DryRun(ctx context.Context, migrations []Migration) (DryRunResult, error) {
	if err := Validate(migrations); err != nil {
		return DryRunResult{}, err
	}

	pending := r.pending(migrations)
	out := DryRunResult{}
	for _, m := range pending {
		out.PendingMigrations = append(out.PendingMigrations, m.ID)
	}
	if len(pending) == 0 {
		return out, nil
	}

	origBranch := r.vcs.CurrentBranch()
	defer r.vcs.Checkout(ctx, origBranch)

	branches, err := r.vcs.ListBranches(ctx, false)
	if err != nil {
		return DryRunResult{}, fmt.Errorf("migration dry run: list branches: %w", err)
	}

	for _, branch := range branches {
		if err := r.vcs.Checkout(ctx, branch); err != nil {
			return DryRunResult{}, fmt.Errorf("migration dry run: checkout %s: %w", branch, err)
		}

		cursor := ""
		for {
			page, err := r.entities.ListEntities(ctx, cursor, pageSize)
			if err != nil {
				return DryRunResult{}, fmt.Errorf("migration dry run: list entities on %s: %w", branch, err)
			}

			for _, n := range page.Nouns {
				r.previewNoun(pending, n, &out)
			}
			for _, v := range page.Verbs {
				r.previewVerb(pending, v, &out)
			}

			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
	}

	out.EstimatedTime = time.Duration(out.AffectedEntities) * estimatePerEntity
	return out, nil
}

func (r *Runner) previewNoun(pending []Migration, n types.Noun, out *DryRunResult) {
	for _, m := range pending {
		if m.Applies != AppliesNouns && m.Applies != AppliesBoth {
			continue
		}
		next := m.Transform(n.Metadata)
		if next == nil {
			continue
		}
		out.AffectedEntities++
		if len(out.SampleChanges) < sampleLimit {
			out.SampleChanges = append(out.SampleChanges, SampleChange{EntityID: n.ID, Before: n.Metadata, After: next})
		}
		return
	}
}

func (r *Runner) previewVerb(pending []Migration, v types.Verb, out *DryRunResult) {
	for _, m := range pending {
		if m.Applies != AppliesVerbs && m.Applies != AppliesBoth {
			continue
		}
		next := m.Transform(v.Metadata)
		if next == nil {
			continue
		}
		out.AffectedEntities++
		if len(out.SampleChanges) < sampleLimit {
			out.SampleChanges = append(out.SampleChanges, SampleChange{EntityID: v.ID, Before: v.Metadata, After: next})
		}
		return
	}
}
