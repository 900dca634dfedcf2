package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/migration"
	"github.com/brainyhq/brainy/internal/types"
)

// Migrate runs migrations across every branch (spec.md §4.12), delegating
// to internal/migration.Runner bound to this Store for both the Brancher
// and EntityStore roles — Runner's own Checkout calls become visible to
// its own ListEntities calls because both point at the same Store.
func (s *Store) Migrate(ctx context.Context, migrations []migration.Migration, opts migration.Options) (migration.Result, error) {
	if err := s.checkClosed(); err != nil {
		return migration.Result{}, err
	}
	return s.migrator.Run(ctx, migrations, opts)
}

// DryRun previews what Migrate would change without writing anything
// (spec.md §4.12 step 6).
func (s *Store) DryRun(ctx context.Context, migrations []migration.Migration) (migration.DryRunResult, error) {
	if err := s.checkClosed(); err != nil {
		return migration.DryRunResult{}, err
	}
	return s.migrator.DryRun(ctx, migrations)
}

// ListEntities satisfies migration.EntityStore: one page of the currently
// checked-out branch's live nouns and verbs, ordered by id for a stable
// cursor boundary.
func (s *Store) ListEntities(_ context.Context, cursor string, limit int) (migration.EntityPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.nouns))
	for id := range s.nouns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	nounIDs, nounCursor := pageIDs(ids, cursor, limit)

	verbIDs := make([]string, 0, len(s.verbs))
	for id := range s.verbs {
		verbIDs = append(verbIDs, id)
	}
	sort.Strings(verbIDs)
	vIDs, _ := pageIDs(verbIDs, cursor, limit)

	page := migration.EntityPage{NextCursor: nounCursor}
	for _, id := range nounIDs {
		page.Nouns = append(page.Nouns, s.nouns[id])
	}
	for _, id := range vIDs {
		page.Verbs = append(page.Verbs, s.verbs[id])
	}
	return page, nil
}

func pageIDs(sorted []string, cursor string, limit int) ([]string, string) {
	start := 0
	if cursor != "" {
		start = sort.SearchStrings(sorted, cursor)
		if start < len(sorted) && sorted[start] == cursor {
			start++
		}
	}
	if start > len(sorted) {
		start = len(sorted)
	}
	end := len(sorted)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	page := sorted[start:end]
	next := ""
	if end < len(sorted) {
		next = page[len(page)-1]
	}
	return page, next
}

// SetNounMetadata satisfies migration.EntityStore: a migration transform's
// direct metadata replacement, bypassing Update's partial-field semantics
// since a migration always supplies the full post-transform bag.
func (s *Store) SetNounMetadata(ctx context.Context, id string, metadata types.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nouns[id]
	if !ok {
		return fmt.Errorf("set noun metadata %s: %w", id, brainyerr.NotFound("noun", id))
	}
	n.Metadata = metadata
	if err := s.persistNounLocked(ctx, n); err != nil {
		return fmt.Errorf("set noun metadata %s: %w", id, err)
	}
	s.nouns[id] = n
	s.field.Update(id, metadata)
	return nil
}

// SetVerbMetadata satisfies migration.EntityStore.
func (s *Store) SetVerbMetadata(ctx context.Context, id string, metadata types.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verbs[id]
	if !ok {
		return fmt.Errorf("set verb metadata %s: %w", id, brainyerr.NotFound("verb", id))
	}
	v.Metadata = metadata
	if err := s.persistVerbLocked(ctx, v); err != nil {
		return fmt.Errorf("set verb metadata %s: %w", id, err)
	}
	s.verbs[id] = v
	s.graph.Relate(v)
	return nil
}
