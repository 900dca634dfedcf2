package engine

import (
	"context"
	"time"

	"github.com/brainyhq/brainy/internal/hnsw"
	"github.com/brainyhq/brainy/internal/query"
	"github.com/brainyhq/brainy/internal/types"
)

// liveEfSearchVector, liveGraphIndex and liveFieldIndex all exist for the
// same reason: a checkout rebuilds the four indexes from scratch and
// swaps s.hnswIdx/s.graph/s.field to brand new instances (see rebuild.go),
// so a query.Engine holding a direct pointer captured at Open time would
// silently keep querying a stale, pre-checkout snapshot. Indirecting every
// call back through the Store picks up whichever instance is current.
//
// liveEfSearchVector additionally resolves spec.md §2.5's hot-reloadable
// hnsw.ef_search: query.Engine.Execute always calls Search with efSearch=0
// (meaning "caller has no opinion"), so this substitutes the live
// config-driven value on every call rather than whatever per-subindex
// default each Index was constructed with.
type liveEfSearchVector struct {
	store *Store
}

func (w *liveEfSearchVector) Search(ctx context.Context, nounTypes []string, vector []float32, k, _ int) ([]hnsw.Result, error) {
	w.store.mu.RLock()
	idx := w.store.hnswIdx
	ef := w.store.hnswCfg.EfSearch
	w.store.mu.RUnlock()
	return idx.Search(ctx, nounTypes, vector, k, ef)
}

type liveGraphIndex struct {
	store *Store
}

func (w *liveGraphIndex) Connected(c types.Connected) []string {
	w.store.mu.RLock()
	graph := w.store.graph
	w.store.mu.RUnlock()
	return graph.Connected(c)
}

type liveFieldIndex struct {
	store *Store
}

func (w *liveFieldIndex) Query(where types.WhereClause) []string {
	w.store.mu.RLock()
	field := w.store.field
	w.store.mu.RUnlock()
	return field.Query(where)
}

// Find runs the Unified Query Engine (spec.md §4.10) and records query
// telemetry around it.
func (s *Store) Find(ctx context.Context, q types.FindQuery) ([]types.FindResult, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := types.ValidateWhereClause(q.Where); err != nil {
		return nil, err
	}

	if max := s.GetMemoryStats().Limits.MaxQueryLimit; q.Limit > max {
		q.Limit = max
	}

	start := time.Now()
	dims := 0
	if len(q.Vector) > 0 || q.Query != "" {
		dims++
	}
	if q.Connected != nil {
		dims++
	}
	if len(q.Where) > 0 {
		dims++
	}

	var results []types.FindResult
	var err error
	if dims == 0 {
		// No signal requested at all (vector, connected, and where are all
		// absent) — spec.md §8's boundary property calls for an
		// arbitrary-ordered slice of the live entity set, not the empty
		// result a lone requested-but-empty dimension would fuse to.
		results = s.listEntities(q)
	} else {
		results, err = s.queryEng.Execute(ctx, q)
	}
	s.metrics.RecordQuery(ctx, dims)
	if dims >= 1 && (len(q.Vector) > 0 || q.Query != "") {
		s.metrics.RecordHNSWSearch(ctx, firstTypeOrAll(q.Type), float64(time.Since(start).Milliseconds()))
	}
	return results, err
}

// listEntities answers the no-dimension find() case: the live,
// non-tombstoned noun set (s.nouns already excludes tombstoned entries, see
// rebuild.go), optionally narrowed by q.Type, clipped to the effective
// limit. Map iteration order is unspecified, which is exactly the
// "arbitrary-ordered" result spec.md §8 asks for here.
func (s *Store) listEntities(q types.FindQuery) []types.FindResult {
	limit := q.Limit
	if limit <= 0 {
		limit = query.DefaultLimit
	}

	var typeFilter map[types.NounType]bool
	if len(q.Type) > 0 {
		typeFilter = make(map[types.NounType]bool, len(q.Type))
		for _, t := range q.Type {
			typeFilter[t] = true
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.FindResult, 0, limit)
	for _, n := range s.nouns {
		if typeFilter != nil && !typeFilter[n.Type] {
			continue
		}
		out = append(out, types.FindResult{
			ID:         n.ID,
			Entity:     &n,
			Type:       n.Type,
			Metadata:   n.Metadata,
			Data:       n.Data,
			Confidence: n.Confidence,
			Weight:     n.Weight,
		})
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Similar is find()'s single-entity convenience form (spec.md §4.10): it
// looks the entity's own vector up and issues the same vector-dimension
// search, filtering its own id out of the result set.
func (s *Store) Similar(ctx context.Context, id string, limit int) ([]types.FindResult, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	n, ok, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok || len(n.Vector) == 0 {
		return nil, nil
	}

	results, err := s.Find(ctx, types.FindQuery{Vector: n.Vector, Type: []types.NounType{n.Type}, Limit: limit + 1})
	if err != nil {
		return nil, err
	}
	out := results[:0]
	for _, r := range results {
		if r.ID == id {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func firstTypeOrAll(nounTypes []types.NounType) string {
	if len(nounTypes) == 0 {
		return "*"
	}
	return string(nounTypes[0])
}
