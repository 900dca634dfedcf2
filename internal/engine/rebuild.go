package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brainyhq/brainy/internal/counts"
	"github.com/brainyhq/brainy/internal/graphindex"
	"github.com/brainyhq/brainy/internal/hnsw"
	"github.com/brainyhq/brainy/internal/metaindex"
	"github.com/brainyhq/brainy/internal/objects"
	"github.com/brainyhq/brainy/internal/storageadapter"
	"github.com/brainyhq/brainy/internal/tombstone"
	"github.com/brainyhq/brainy/internal/types"
)

// knownVerbTypes lists every built-in VerbType, the edge-side counterpart
// to types.KnownNounTypes (which has no verb equivalent), used to pre-size
// a rebuild scan's per-type listing loop.
var knownVerbTypes = []types.VerbType{
	types.VerbContains, types.VerbRelatedTo, types.VerbFriendOf,
	types.VerbWorksWith, types.VerbCreatedBy, types.VerbLocatedAt,
	types.VerbPartOf, types.VerbMemberOf, types.VerbReportsTo, types.VerbChildOf,
}

// rebuildIndexes is the open()-time / checkout()-time scan that turns
// durable storage back into the four in-memory indexes (spec.md §4.9):
// tombstones and counts load from their own manifests, then every known
// noun type's metadata section is scanned to repopulate the noun map, the
// metadata field index, and the HNSW coordinator, and every verb type's
// section repopulates the verb map and the graph index. Tombstoned ids
// are skipped so a deleted entity never resurfaces in a freshly rebuilt
// index (spec.md §4.8).
func (s *Store) rebuildIndexes(ctx context.Context) error {
	tomb, _, err := tombstone.LoadFromStorage(ctx, s.adapter)
	if err != nil {
		return fmt.Errorf("rebuild: load tombstones: %w", err)
	}

	cnt, err := counts.LoadFromStorage(ctx, s.adapter)
	if err != nil {
		return fmt.Errorf("rebuild: load counts: %w", err)
	}

	nouns := make(map[string]types.Noun)
	field := metaindex.New()
	hnswIdx := hnsw.NewCoordinator(s.hnswCfg)

	for _, nt := range types.KnownNounTypes() {
		if err := scanSection(ctx, s.adapter, storageadapter.KindNoun, string(nt), func(raw []byte) error {
			var n types.Noun
			if err := json.Unmarshal(raw, &n); err != nil {
				return fmt.Errorf("decode noun: %w", err)
			}
			if tomb.IsDeleted(n.ID) {
				return nil
			}
			nouns[n.ID] = n
			field.Update(n.ID, n.Metadata)
			if len(n.Vector) > 0 {
				hnswIdx.Insert(string(n.Type), n.ID, n.Vector)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("rebuild: scan noun type %s: %w", nt, err)
		}
	}

	verbs := make(map[string]types.Verb)
	graph := graphindex.New()
	for _, vt := range knownVerbTypes {
		if err := scanSection(ctx, s.adapter, storageadapter.KindVerb, string(vt), func(raw []byte) error {
			var v types.Verb
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decode verb: %w", err)
			}
			if tomb.IsDeleted(v.ID) {
				return nil
			}
			verbs[v.ID] = v
			graph.Relate(v)
			return nil
		}); err != nil {
			return fmt.Errorf("rebuild: scan verb type %s: %w", vt, err)
		}
	}

	actualNouns := make(map[types.NounType]int64, len(types.KnownNounTypes()))
	for _, n := range nouns {
		actualNouns[n.Type]++
	}
	actualVerbs := make(map[types.VerbType]int64, len(knownVerbTypes))
	for _, v := range verbs {
		actualVerbs[v.Type]++
	}
	cnt.Reconcile(actualNouns, actualVerbs)

	s.mu.Lock()
	s.tomb = tomb
	s.cnt = cnt
	s.nouns = nouns
	s.verbs = verbs
	s.field = field
	s.graph = graph
	s.hnswIdx = hnswIdx
	s.mu.Unlock()
	return nil
}

// scanSection lists every object under one entity type's metadata section
// and invokes fn with each record's raw bytes, paging through the full
// listing regardless of backend page size.
func scanSection(ctx context.Context, adapter storageadapter.Adapter, kind storageadapter.EntityKind, entityType string, fn func([]byte) error) error {
	prefix := storageadapter.TypePrefix(kind, entityType, storageadapter.SectionMetadata)
	cursor := ""
	for {
		page, err := adapter.List(ctx, prefix, cursor, 0)
		if err != nil {
			return err
		}
		if len(page.Keys) > 0 {
			found, err := adapter.BulkGet(ctx, page.Keys)
			if err != nil {
				return err
			}
			for _, key := range page.Keys {
				raw, ok := found[key]
				if !ok {
					continue
				}
				if err := fn(raw); err != nil {
					return err
				}
			}
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return nil
}

// materializeIfEmpty implements the copy-on-write step of a branch
// checkout (spec.md §4.11): a branch whose scoped storage namespace is
// still empty but whose ref already carries a non-null HEAD commit is a
// freshly forked branch that has never been written to directly. Its
// entities exist only as the flat "entities/<id>" / "relations/<id>" tree
// its parent last committed; this walks that tree once and writes each
// entry into the branch's own scoped namespace so every later checkout of
// this branch finds a populated namespace and skips straight to a normal
// rebuild. Each entry's bytes are read from the blob store and written
// again under the branch's scoped keys, so the branch holds its own copy.
func (s *Store) materializeIfEmpty(ctx context.Context, adapter storageadapter.Adapter, head objects.Hash) error {
	if head.IsNull() {
		return nil
	}

	page, err := adapter.List(ctx, "entities/", "", 1)
	if err != nil {
		return fmt.Errorf("materialize: probe namespace: %w", err)
	}
	if len(page.Keys) > 0 {
		return nil // already materialized, nothing to do
	}

	commitData, err := s.blobs.Get(head)
	if err != nil {
		return fmt.Errorf("materialize: read head commit: %w", err)
	}
	commit, err := objects.DecodeCommit(commitData)
	if err != nil {
		return fmt.Errorf("materialize: decode head commit: %w", err)
	}

	return objects.Walk(s.blobs, commit.Tree, func(path string, entry objects.Entry) error {
		raw, err := s.blobs.Get(entry.Hash)
		if err != nil {
			return fmt.Errorf("materialize: read blob %s: %w", path, err)
		}

		switch {
		case hasPrefix(path, "entities/"):
			var n types.Noun
			if err := json.Unmarshal(raw, &n); err != nil {
				return fmt.Errorf("materialize: decode noun %s: %w", path, err)
			}
			key := storageadapter.EntityKey(storageadapter.KindNoun, string(n.Type), storageadapter.SectionMetadata, n.ID)
			if err := adapter.Put(ctx, key, raw); err != nil {
				return fmt.Errorf("materialize: write noun %s: %w", n.ID, err)
			}
			if len(n.Vector) > 0 {
				vecData, err := json.Marshal(n.Vector)
				if err != nil {
					return fmt.Errorf("materialize: marshal vector %s: %w", n.ID, err)
				}
				vecKey := storageadapter.EntityKey(storageadapter.KindNoun, string(n.Type), storageadapter.SectionVectors, n.ID)
				if err := adapter.Put(ctx, vecKey, vecData); err != nil {
					return fmt.Errorf("materialize: write vector %s: %w", n.ID, err)
				}
			}
		case hasPrefix(path, "relations/"):
			var v types.Verb
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("materialize: decode verb %s: %w", path, err)
			}
			key := storageadapter.EntityKey(storageadapter.KindVerb, string(v.Type), storageadapter.SectionMetadata, v.ID)
			if err := adapter.Put(ctx, key, raw); err != nil {
				return fmt.Errorf("materialize: write verb %s: %w", v.ID, err)
			}
		}
		return nil
	})
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
