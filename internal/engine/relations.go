package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/storageadapter"
	"github.com/brainyhq/brainy/internal/tombstone"
	"github.com/brainyhq/brainy/internal/types"
)

// Relate persists a new verb (spec.md §4.7): validated, written to the
// current branch's scoped storage, and folded into the live graph index
// and count bookkeeping. Both endpoints must already exist on this
// branch overlay — an edge to a noun the graph has never heard of would
// silently corrupt Connected's traversal.
func (s *Store) Relate(ctx context.Context, in types.VerbInput) (types.Verb, error) {
	if err := s.checkClosed(); err != nil {
		return types.Verb{}, err
	}
	if err := types.ValidateVerbInput(in); err != nil {
		return types.Verb{}, fmt.Errorf("relate: %w", err)
	}

	id := in.ID
	if id == "" {
		id = types.NewID()
	}
	v := types.Verb{
		ID:        id,
		Type:      in.Type,
		From:      in.From,
		To:        in.To,
		Metadata:  in.Metadata,
		Weight:    in.Weight,
		CreatedAt: time.Now().UTC(),
		CreatedBy: in.CreatedBy,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nouns[in.From]; !ok {
		return types.Verb{}, fmt.Errorf("relate: from %s: %w", in.From, brainyerr.NotFound("noun", in.From))
	}
	if _, ok := s.nouns[in.To]; !ok {
		return types.Verb{}, fmt.Errorf("relate: to %s: %w", in.To, brainyerr.NotFound("noun", in.To))
	}
	if _, exists := s.verbs[id]; exists {
		return types.Verb{}, fmt.Errorf("relate %s: %w", id, brainyerr.InvalidArgument("id already exists on this branch"))
	}

	if err := s.persistVerbLocked(ctx, v); err != nil {
		return types.Verb{}, fmt.Errorf("relate %s: %w", id, err)
	}

	s.verbs[id] = v
	s.graph.Relate(v)
	s.cnt.IncrVerb(v.Type)
	return v, nil
}

func (s *Store) persistVerbLocked(ctx context.Context, v types.Verb) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verb: %w", err)
	}
	key := storageadapter.EntityKey(storageadapter.KindVerb, string(v.Type), storageadapter.SectionMetadata, v.ID)
	if err := s.adapter.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write verb: %w", err)
	}
	return nil
}

// Unrelate tombstones a verb by id (spec.md §4.7/§4.8).
func (s *Store) Unrelate(ctx context.Context, id, actor, reason string) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verbs[id]
	if !ok {
		return fmt.Errorf("unrelate %s: %w", id, brainyerr.NotFound("verb", id))
	}

	rec := tombstone.Record{ID: id, Timestamp: time.Now().UTC(), Actor: actor, Reason: reason}
	if err := tombstone.Append(ctx, s.adapter, rec); err != nil {
		return fmt.Errorf("unrelate %s: %w", id, err)
	}
	s.tomb.Apply(rec)

	s.graph.Unrelate(id)
	delete(s.verbs, id)
	s.cnt.DecrVerb(v.Type)
	return nil
}

// GetRelations answers the by-from/by-to/by-type relation query,
// paginated (spec.md §4.7).
func (s *Store) GetRelations(_ context.Context, q types.RelationQuery) ([]types.Verb, string, error) {
	if err := s.checkClosed(); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.GetRelations(q)
}

// Connected answers a graph-traversal query dimension (spec.md §4.10),
// delegating to the graph adjacency index directly; find() uses the same
// path through internal/query.Engine.
func (s *Store) Connected(_ context.Context, c types.Connected) ([]string, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Connected(c), nil
}
