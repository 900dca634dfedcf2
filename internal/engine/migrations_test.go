package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/migration"
	"github.com/brainyhq/brainy/internal/types"
)

func TestMigrateAppliesTransformAcrossBranches(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounTask, Metadata: types.Metadata{"status": "todo"}})
	require.NoError(t, err)
	_, err = s.Commit(ctx, "seed", "tester")
	require.NoError(t, err)

	migrations := []migration.Migration{{
		ID:      "rename-status",
		Version: "v1",
		Applies: migration.AppliesNouns,
		Transform: func(md types.Metadata) types.Metadata {
			out := md.Clone()
			if out["status"] == "todo" {
				out["status"] = "open"
			}
			return out
		},
	}}

	result, err := s.Migrate(ctx, migrations, migration.Options{})
	require.NoError(t, err)
	require.Contains(t, result.MigrationsApplied, "rename-status")
	require.Equal(t, 1, result.EntitiesModified)

	got, ok, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "open", got.Metadata["status"])
}

func TestMigrateIsIdempotentOnRerun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Add(ctx, types.NounInput{Type: types.NounTask, Metadata: types.Metadata{"status": "todo"}})
	require.NoError(t, err)
	_, err = s.Commit(ctx, "seed", "tester")
	require.NoError(t, err)

	migrations := []migration.Migration{{
		ID:      "noop-rename",
		Version: "v1",
		Applies: migration.AppliesNouns,
		Transform: func(md types.Metadata) types.Metadata {
			out := md.Clone()
			out["status"] = "open"
			return out
		},
	}}

	_, err = s.Migrate(ctx, migrations, migration.Options{})
	require.NoError(t, err)

	second, err := s.Migrate(ctx, migrations, migration.Options{})
	require.NoError(t, err)
	require.Empty(t, second.MigrationsApplied)
}

func TestListEntitiesPagesNounsAndVerbs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a, err := s.Add(ctx, types.NounInput{Type: types.NounPerson})
	require.NoError(t, err)
	b, err := s.Add(ctx, types.NounInput{Type: types.NounPerson})
	require.NoError(t, err)
	_, err = s.Relate(ctx, types.VerbInput{Type: types.VerbFriendOf, From: a.ID, To: b.ID})
	require.NoError(t, err)

	page, err := s.ListEntities(ctx, "", 100)
	require.NoError(t, err)
	require.Len(t, page.Nouns, 2)
	require.Len(t, page.Verbs, 1)
}

func TestDryRunDoesNotMutateEntities(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.Add(ctx, types.NounInput{Type: types.NounTask, Metadata: types.Metadata{"status": "todo"}})
	require.NoError(t, err)
	_, err = s.Commit(ctx, "seed", "tester")
	require.NoError(t, err)

	migrations := []migration.Migration{{
		ID:      "preview-only",
		Version: "v1",
		Applies: migration.AppliesNouns,
		Transform: func(md types.Metadata) types.Metadata {
			out := md.Clone()
			out["status"] = "open"
			return out
		},
	}}

	preview, err := s.DryRun(ctx, migrations)
	require.NoError(t, err)
	require.Equal(t, 1, preview.AffectedEntities)

	got, ok, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "todo", got.Metadata["status"])
}
