package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brainyhq/brainy/internal/batch"
	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/storageadapter"
	"github.com/brainyhq/brainy/internal/tombstone"
	"github.com/brainyhq/brainy/internal/types"
)

// batchGet is a thin rename of batch.Get kept local so crud.go's call site
// reads as an engine operation rather than a bare package-qualified call.
func batchGet(ctx context.Context, cache batch.Cache, resolver batch.TypeResolver, bulk batch.BulkSource, parent batch.ParentResolver, ids []string, includeVectors bool) (map[string]types.Noun, error) {
	return batch.Get(ctx, cache, resolver, bulk, parent, ids, batch.Options{IncludeVectors: includeVectors})
}

// Add persists a new noun (spec.md §4.6): validated against the store's
// configured vector dimension, written to the current branch's scoped
// storage as two sections (metadata and, when a vector is supplied,
// vectors — so a bulk vector read never pays metadata I/O), and folded
// into the live metadata/HNSW/count indexes.
func (s *Store) Add(ctx context.Context, in types.NounInput) (types.Noun, error) {
	if err := s.checkClosed(); err != nil {
		return types.Noun{}, err
	}
	if err := types.ValidateNounInput(in, s.vectorDim); err != nil {
		return types.Noun{}, fmt.Errorf("add: %w", err)
	}

	id := in.ID
	if id == "" {
		id = types.NewID()
	}
	now := time.Now().UTC()
	n := types.Noun{
		ID:         id,
		Type:       in.Type,
		Vector:     in.Vector,
		Metadata:   in.Metadata,
		Data:       in.Data,
		Confidence: in.Confidence,
		Weight:     in.Weight,
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  in.CreatedBy,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nouns[id]; exists {
		return types.Noun{}, fmt.Errorf("add %s: %w", id, brainyerr.InvalidArgument("id already exists on this branch"))
	}

	if err := s.persistNounLocked(ctx, n); err != nil {
		return types.Noun{}, fmt.Errorf("add %s: %w", id, err)
	}
	if s.tomb.IsDeleted(id) {
		clear := tombstone.Record{ID: id, Timestamp: now, Actor: in.CreatedBy, Cleared: true}
		if err := tombstone.Append(ctx, s.adapter, clear); err != nil {
			return types.Noun{}, fmt.Errorf("add %s: %w", id, err)
		}
		s.tomb.Apply(clear)
	}

	s.nouns[id] = n
	s.field.Update(id, n.Metadata)
	if len(n.Vector) > 0 {
		s.hnswIdx.Insert(string(n.Type), id, n.Vector)
	}
	s.cnt.IncrNoun(n.Type)
	return n, nil
}

func (s *Store) persistNounLocked(ctx context.Context, n types.Noun) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal noun: %w", err)
	}
	key := storageadapter.EntityKey(storageadapter.KindNoun, string(n.Type), storageadapter.SectionMetadata, n.ID)
	if err := s.adapter.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write noun metadata: %w", err)
	}
	if len(n.Vector) > 0 {
		vecData, err := json.Marshal(n.Vector)
		if err != nil {
			return fmt.Errorf("marshal vector: %w", err)
		}
		vecKey := storageadapter.EntityKey(storageadapter.KindNoun, string(n.Type), storageadapter.SectionVectors, n.ID)
		if err := s.adapter.Put(ctx, vecKey, vecData); err != nil {
			return fmt.Errorf("write noun vector: %w", err)
		}
	}
	return nil
}

// Get resolves a single noun id against the current branch overlay.
func (s *Store) Get(_ context.Context, id string) (types.Noun, bool, error) {
	if err := s.checkClosed(); err != nil {
		return types.Noun{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nouns[id]
	return n, ok, nil
}

// BatchGet resolves many ids in one call via internal/batch's COW-aware
// grouping (spec.md §4.15): Store itself satisfies every interface batch.Get
// needs, backed by the same in-memory noun map the single-item path uses.
func (s *Store) BatchGet(ctx context.Context, ids []string, includeVectors bool) (map[string]types.Noun, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	return batchGet(ctx, s, s, s, s, ids, includeVectors)
}

// GetNoun satisfies batch.Cache: an in-flight write not yet flushed still
// lives in s.nouns (every mutator updates it synchronously), so the cache
// and the backing store are one and the same structure here.
func (s *Store) GetNoun(id string) (types.Noun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nouns[id]
	return n, ok
}

// NounType satisfies batch.TypeResolver.
func (s *Store) NounType(id string) (types.NounType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nouns[id]
	if !ok {
		return "", false
	}
	return n.Type, true
}

// BulkGetNouns satisfies batch.BulkSource, grouping by an already-known
// type the way the metadata/vector split was built to support: a bulk read
// of just the ids' metadata sections, one backend round trip per type.
func (s *Store) BulkGetNouns(ctx context.Context, nounType types.NounType, ids []string) (map[string]types.Noun, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = storageadapter.EntityKey(storageadapter.KindNoun, string(nounType), storageadapter.SectionMetadata, id)
	}
	found, err := s.adapter.BulkGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("bulk get nouns: %w", err)
	}
	out := make(map[string]types.Noun, len(found))
	for i, key := range keys {
		raw, ok := found[key]
		if !ok {
			continue
		}
		var n types.Noun
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("decode noun %s: %w", ids[i], err)
		}
		out[n.ID] = n
	}
	return out, nil
}

// ResolveFromParent satisfies batch.ParentResolver: a COW branch that never
// itself wrote id falls through to the ancestor chain. Since every branch's
// first checkout eagerly materializes its parent's full state
// (see materializeIfEmpty), a miss here means id genuinely does not exist
// on any ancestor either, so this always reports not-found rather than
// walking commit history itself.
func (s *Store) ResolveFromParent(_ context.Context, _ string) (types.Noun, bool, error) {
	return types.Noun{}, false, nil
}

// ResolveNoun satisfies query.EntityResolver, filling in the full entity
// payload for a fused find() result. A tombstoned or otherwise-missing id
// reports ok=false; Execute leaves that result's entity fields empty
// rather than dropping the row, so a stale HNSW hit for a deleted entity
// still consumes a result slot (pre-existing Fuse/Execute behavior, not
// engine's concern to fix).
func (s *Store) ResolveNoun(id string) (*types.Noun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tomb.IsDeleted(id) {
		return nil, false
	}
	n, ok := s.nouns[id]
	if !ok {
		return nil, false
	}
	return &n, true
}

// Update applies a partial update to an existing noun (spec.md §4.6's
// "v7.5 fix" symmetry requirement): when Metadata is supplied it fully
// replaces the prior bag, with the field index's old postings removed
// before the new ones are inserted, so a field that no longer appears in
// the replacement metadata cannot leave a stale posting behind.
func (s *Store) Update(ctx context.Context, in types.NounUpdate) (types.Noun, error) {
	if err := s.checkClosed(); err != nil {
		return types.Noun{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nouns[in.ID]
	if !ok {
		return types.Noun{}, fmt.Errorf("update %s: %w", in.ID, brainyerr.NotFound("noun", in.ID))
	}

	if in.DataSet {
		n.Data = in.Data
	}
	if in.Metadata != nil {
		n.Metadata = in.Metadata
	}
	if in.Confidence != nil {
		n.Confidence = in.Confidence
	}
	if in.Weight != nil {
		n.Weight = in.Weight
	}
	n.UpdatedAt = time.Now().UTC()

	if err := s.persistNounLocked(ctx, n); err != nil {
		return types.Noun{}, fmt.Errorf("update %s: %w", in.ID, err)
	}

	s.nouns[in.ID] = n
	if in.Metadata != nil {
		s.field.Update(in.ID, n.Metadata)
	}
	return n, nil
}

// Delete tombstones a noun (spec.md §4.8): it is removed from the metadata
// and HNSW indexes and its graph relations are unrelated, and its id stays
// tombstoned until a later Add of the same id clears it. HNSW itself has no delete primitive, so a tombstoned
// vector's node stays physically in its subindex until the next full
// rebuild — ResolveNoun's tombstone check is what keeps it out of results
// meanwhile.
func (s *Store) Delete(ctx context.Context, id string, actor, reason string) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nouns[id]
	if !ok {
		return fmt.Errorf("delete %s: %w", id, brainyerr.NotFound("noun", id))
	}

	rec := tombstone.Record{ID: id, Timestamp: time.Now().UTC(), Actor: actor, Reason: reason}
	if err := tombstone.Append(ctx, s.adapter, rec); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	s.tomb.Apply(rec)

	delete(s.nouns, id)
	s.field.Remove(id)
	s.cnt.DecrNoun(n.Type)

	for _, verbID := range s.verbIDsTouching(id) {
		if v, ok := s.verbs[verbID]; ok {
			s.graph.Unrelate(verbID)
			delete(s.verbs, verbID)
			s.cnt.DecrVerb(v.Type)
		}
	}
	return nil
}

// verbIDsTouching returns every verb id currently referencing nounID as
// either endpoint, used to cascade a noun deletion onto its relations
// (spec.md §4.7 "deleting a noun removes its relations").
func (s *Store) verbIDsTouching(nounID string) []string {
	var out []string
	for id, v := range s.verbs {
		if v.From == nounID || v.To == nounID {
			out = append(out, id)
		}
	}
	return out
}
