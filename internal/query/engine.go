package query

import (
	"context"
	"fmt"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/hnsw"
	"github.com/brainyhq/brainy/internal/types"
)

// VectorIndex is the narrow surface Engine needs from the HNSW
// coordinator.
type VectorIndex interface {
	Search(ctx context.Context, nounTypes []string, vector []float32, k, efSearch int) ([]hnsw.Result, error)
}

// GraphIndex is the narrow surface Engine needs from the graph adjacency
// index.
type GraphIndex interface {
	Connected(c types.Connected) []string
}

// FieldIndex is the narrow surface Engine needs from the metadata field
// index.
type FieldIndex interface {
	Query(where types.WhereClause) []string
}

// EntityResolver fills in the full entity payload for a fused result.
type EntityResolver interface {
	ResolveNoun(id string) (*types.Noun, bool)
}

// Embedder turns free text into a vector, used when a find() call supplies
// `query` rather than `vector` directly. Embedding-model training is an
// explicit spec Non-goal, but running inference through a caller-supplied
// embedder to answer a text query is not — the engine just needs somewhere
// to plug one in, since spec.md §4.10 accepts a bare query string.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine is the Unified Query Engine (spec.md §4.10): it dispatches a
// FindQuery to whichever of the vector/graph/field indexes the query
// shape requests, then fuses the resulting rank lists with Fuse.
type Engine struct {
	Vector   VectorIndex
	Graph    GraphIndex
	Field    FieldIndex
	Entities EntityResolver
	Embed    Embedder
	RRFK     int
	Weights  Weights
}

// Execute runs the dispatch-then-fuse procedure described in spec.md
// §4.10 and returns fully-populated, limit-clipped, deterministically
// ordered results.
func (e *Engine) Execute(ctx context.Context, q types.FindQuery) ([]types.FindResult, error) {
	var dims []Dimension

	candidateLimit := q.Limit
	if candidateLimit <= 0 {
		candidateLimit = DefaultLimit
	}

	vector := q.Vector
	wantVector := len(q.Vector) > 0 || q.Query != ""
	if wantVector && len(vector) == 0 {
		if e.Embed == nil {
			return nil, fmt.Errorf("find: query text requires a configured embedder: %w", brainyerr.ErrInvalidArgument)
		}
		v, err := e.Embed.Embed(ctx, q.Query)
		if err != nil {
			return nil, fmt.Errorf("embed query text: %w", err)
		}
		vector = v
	}
	if wantVector {
		if e.Vector == nil {
			return nil, fmt.Errorf("find: vector dimension requested but no vector index configured: %w", brainyerr.ErrInvalidArgument)
		}
		results, err := e.Vector.Search(ctx, nounTypeStrings(q.Type), vector, candidateLimit, 0)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		dims = append(dims, Dimension{Kind: KindVector, Present: true, IDs: ids})
	}

	if q.Connected != nil {
		if e.Graph == nil {
			return nil, fmt.Errorf("find: connected dimension requested but no graph index configured: %w", brainyerr.ErrInvalidArgument)
		}
		dims = append(dims, Dimension{Kind: KindGraph, Present: true, IDs: e.Graph.Connected(*q.Connected)})
	}

	if len(q.Where) > 0 {
		if e.Field == nil {
			return nil, fmt.Errorf("find: where dimension requested but no field index configured: %w", brainyerr.ErrInvalidArgument)
		}
		dims = append(dims, Dimension{Kind: KindField, Present: true, IDs: e.Field.Query(q.Where)})
	}

	results := Fuse(dims, e.Weights, e.RRFK, candidateLimit)

	for i := range results {
		if e.Entities == nil {
			continue
		}
		n, ok := e.Entities.ResolveNoun(results[i].ID)
		if !ok || n == nil {
			continue
		}
		results[i].Entity = n
		results[i].Type = n.Type
		results[i].Metadata = n.Metadata
		results[i].Data = n.Data
		results[i].Confidence = n.Confidence
		results[i].Weight = n.Weight
	}

	return results, nil
}

func nounTypeStrings(nt []types.NounType) []string {
	if len(nt) == 0 {
		return nil
	}
	out := make([]string, len(nt))
	for i, t := range nt {
		out[i] = string(t)
	}
	return out
}
