package migration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/objects"
	"github.com/brainyhq/brainy/internal/types"
	"github.com/brainyhq/brainy/internal/vcs"
)

type fakeBrancher struct {
	branches []string
	current  string
	forks    []string
}

func (f *fakeBrancher) ListBranches(context.Context, bool) ([]string, error) { return f.branches, nil }
func (f *fakeBrancher) CurrentBranch() string                                { return f.current }
func (f *fakeBrancher) Checkout(_ context.Context, branch string) error {
	f.current = branch
	return nil
}
func (f *fakeBrancher) Fork(_ context.Context, name string, _ vcs.ForkOptions) (objects.Ref, error) {
	f.forks = append(f.forks, name)
	f.branches = append(f.branches, name)
	return objects.Ref{Name: name}, nil
}

type fakeEntities struct {
	nouns   map[string]types.Noun
	failSet bool
}

func (f *fakeEntities) ListEntities(_ context.Context, cursor string, limit int) (EntityPage, error) {
	if cursor != "" {
		return EntityPage{}, nil
	}
	var nouns []types.Noun
	for _, n := range f.nouns {
		nouns = append(nouns, n)
	}
	return EntityPage{Nouns: nouns}, nil
}

func (f *fakeEntities) SetNounMetadata(_ context.Context, id string, metadata types.Metadata) error {
	if f.failSet {
		return fmt.Errorf("write failed for %s", id)
	}
	n := f.nouns[id]
	n.Metadata = metadata
	f.nouns[id] = n
	return nil
}

func (f *fakeEntities) SetVerbMetadata(context.Context, string, types.Metadata) error { return nil }

func addField(field string, value interface{}) func(types.Metadata) types.Metadata {
	return func(m types.Metadata) types.Metadata {
		out := types.Metadata{}
		for k, v := range m {
			out[k] = v
		}
		out[field] = value
		return out
	}
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	migrations := []Migration{
		{ID: "m1", Version: "1", Applies: AppliesNouns, Transform: addField("x", 1)},
		{ID: "m1", Version: "2", Applies: AppliesNouns, Transform: addField("x", 1)},
	}
	require.Error(t, Validate(migrations))
}

func TestValidateRejectsMissingFields(t *testing.T) {
	require.Error(t, Validate([]Migration{{Version: "1", Applies: AppliesNouns, Transform: addField("x", 1)}}))
	require.Error(t, Validate([]Migration{{ID: "m1", Applies: AppliesNouns, Transform: addField("x", 1)}}))
	require.Error(t, Validate([]Migration{{ID: "m1", Version: "1", Applies: "bogus", Transform: addField("x", 1)}}))
	require.Error(t, Validate([]Migration{{ID: "m1", Version: "1", Applies: AppliesNouns}}))
}

func TestRunAppliesTransformAndCreatesBackupRef(t *testing.T) {
	brancher := &fakeBrancher{branches: []string{"main"}, current: "main"}
	entities := &fakeEntities{nouns: map[string]types.Noun{
		"n1": {ID: "n1", Metadata: types.Metadata{"status": "open"}},
	}}
	r := NewRunner(brancher, entities)

	migrations := []Migration{
		{ID: "m1", Version: "1", Applies: AppliesNouns, Transform: addField("migrated", true)},
	}

	result, err := r.Run(context.Background(), migrations, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, result.EntitiesProcessed)
	require.Equal(t, 1, result.EntitiesModified)
	require.Equal(t, []string{"m1"}, result.MigrationsApplied)
	require.Empty(t, result.Errors)
	require.Equal(t, true, entities.nouns["n1"].Metadata["migrated"])
	require.Contains(t, brancher.forks, "pre-migration-1")
}

func TestRunIsNoOpOnAlreadyCompletedMigration(t *testing.T) {
	brancher := &fakeBrancher{branches: []string{"main"}, current: "main"}
	entities := &fakeEntities{nouns: map[string]types.Noun{
		"n1": {ID: "n1", Metadata: types.Metadata{}},
	}}
	r := NewRunner(brancher, entities)

	migrations := []Migration{
		{ID: "m1", Version: "1", Applies: AppliesNouns, Transform: addField("migrated", true)},
	}

	_, err := r.Run(context.Background(), migrations, Options{})
	require.NoError(t, err)
	forksAfterFirst := len(brancher.forks)

	result, err := r.Run(context.Background(), migrations, Options{})
	require.NoError(t, err)
	require.Empty(t, result.MigrationsApplied)
	require.Equal(t, 0, result.EntitiesProcessed)
	require.Equal(t, forksAfterFirst, len(brancher.forks), "re-run of a completed migration must not fork again")
}

func TestRunStopsEarlyAtMaxErrors(t *testing.T) {
	brancher := &fakeBrancher{branches: []string{"main"}, current: "main"}
	entities := &fakeEntities{failSet: true, nouns: map[string]types.Noun{
		"n1": {ID: "n1", Metadata: types.Metadata{}},
		"n2": {ID: "n2", Metadata: types.Metadata{}},
	}}
	r := NewRunner(brancher, entities)

	failing := Migration{
		ID:        "m1",
		Version:   "1",
		Applies:   AppliesNouns,
		Transform: addField("migrated", true),
	}

	result, err := r.Run(context.Background(), []Migration{failing}, Options{MaxErrors: 1})
	require.NoError(t, err)
	require.NotContains(t, result.MigrationsApplied, "m1")
	require.Len(t, result.Errors, 1, "must stop as soon as errors reach maxErrors")
	require.False(t, r.Completed("m1"))
}

func TestDryRunDoesNotMutateOrFork(t *testing.T) {
	brancher := &fakeBrancher{branches: []string{"main"}, current: "main"}
	entities := &fakeEntities{nouns: map[string]types.Noun{
		"n1": {ID: "n1", Metadata: types.Metadata{"status": "open"}},
	}}
	r := NewRunner(brancher, entities)

	migrations := []Migration{
		{ID: "m1", Version: "1", Applies: AppliesNouns, Transform: addField("migrated", true)},
	}

	preview, err := r.DryRun(context.Background(), migrations)
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, preview.PendingMigrations)
	require.Equal(t, 1, preview.AffectedEntities)
	require.Len(t, preview.SampleChanges, 1)
	require.Nil(t, entities.nouns["n1"].Metadata["migrated"])
	require.Empty(t, brancher.forks)
}

func TestDryRunWithNothingPendingReturnsEmptyResult(t *testing.T) {
	brancher := &fakeBrancher{branches: []string{"main"}, current: "main"}
	entities := &fakeEntities{nouns: map[string]types.Noun{}}
	r := NewRunner(brancher, entities)

	preview, err := r.DryRun(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, preview.PendingMigrations)
	require.Equal(t, 0, preview.AffectedEntities)
}

func TestLoadManifestResolvesNamedTransform(t *testing.T) {
	doc := []byte(`
migrations:
  - id: m1
    version: "1"
    description: tag legacy items
    applies: nouns
    transform: addMigratedFlag
`)
	registry := Registry{
		"addMigratedFlag": addField("migrated", true),
	}
	migrations, err := LoadManifest(doc, registry)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	require.Equal(t, "m1", migrations[0].ID)
	require.Equal(t, AppliesNouns, migrations[0].Applies)
	out := migrations[0].Transform(types.Metadata{})
	require.Equal(t, true, out["migrated"])
}

func TestLoadManifestRejectsUnknownTransform(t *testing.T) {
	doc := []byte(`
migrations:
  - id: m1
    version: "1"
    applies: nouns
    transform: doesNotExist
`)
	_, err := LoadManifest(doc, Registry{})
	require.Error(t, err)
}
