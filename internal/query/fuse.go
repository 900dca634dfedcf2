// Package query implements the Unified Query Engine (spec.md §4.10):
// dispatch per provided dimension (vector/graph/field), then fuse the
// ranked candidate lists by Reciprocal Rank Fusion. There is no text DSL
// here — `types.WhereClause` already arrives structured — so nothing of
// the teacher's query/{lexer,parser}.go tokenizer stage survives; what
// carries over from the teacher's evaluator.go is the *dispatch* idiom
// (per-dimension handling feeding one fused result), now expressed as RRF
// over independently-produced rank lists instead of a single predicate.
package query

import (
	"sort"

	"github.com/brainyhq/brainy/internal/types"
)

// DefaultRRFK is the Reciprocal Rank Fusion smoothing constant (spec.md
// §4.10).
const DefaultRRFK = 60

// DefaultLimit bounds vector-search candidate fan-out and the final fused
// result set when the caller supplies no limit.
const DefaultLimit = 100

// Weights scales each dimension's contribution to the fused score. The
// source system exposes equal weighting only; per-dimension weights are an
// implementation-defined extension spec.md §9 explicitly permits, so the
// zero value must behave as {1,1,1}, never as "drop this dimension".
type Weights struct {
	Vector float64
	Graph  float64
	Field  float64
}

// DefaultWeights returns the spec's documented default: every dimension
// weighted equally.
func DefaultWeights() Weights {
	return Weights{Vector: 1, Graph: 1, Field: 1}
}

func (w Weights) normalized() Weights {
	if w == (Weights{}) {
		return DefaultWeights()
	}
	return w
}

// Kind identifies which query dimension a Dimension belongs to.
type Kind int

const (
	KindVector Kind = iota
	KindGraph
	KindField
)

// Dimension is one ranked candidate list contributed by a query signal.
// IDs must already be in best-first rank order; Present distinguishes "this
// dimension was requested and returned zero hits" from "this dimension was
// never requested", which only matters for the edge case in spec.md §4.10
// step 3 (a lone requested dimension returning nothing must still yield an
// empty final result — which falls out of plain RRF union automatically,
// since no other list remains to contribute candidates).
type Dimension struct {
	Kind    Kind
	Present bool
	IDs     []string
}

// Fuse combines the present dimensions via Reciprocal Rank Fusion: each
// id's score is the weighted sum of 1/(rrfK+rank) across every list it
// appears in (rank is 1-based), absent from a list contributes 0 to that
// term. Ties break on id ascending so identical inputs always produce
// identical output ordering (spec.md §4.10's determinism requirement).
func Fuse(dims []Dimension, weights Weights, rrfK int, limit int) []types.FindResult {
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}
	weights = weights.normalized()

	scores := make(map[string]float64)
	searchTypes := make(map[string]types.SearchTypes)

	for _, d := range dims {
		if !d.Present {
			continue
		}
		w := weightFor(weights, d.Kind)
		for i, id := range d.IDs {
			rank := i + 1
			scores[id] += w * (1.0 / float64(rrfK+rank))
			st := searchTypes[id]
			switch d.Kind {
			case KindVector:
				st.Vector = true
			case KindGraph:
				st.Graph = true
			case KindField:
				st.Field = true
			}
			searchTypes[id] = st
		}
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	results := make([]types.FindResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, types.FindResult{
			ID:          id,
			Score:       scores[id],
			SearchTypes: searchTypes[id],
		})
	}
	return results
}

func weightFor(w Weights, k Kind) float64 {
	switch k {
	case KindVector:
		return w.Vector
	case KindGraph:
		return w.Graph
	case KindField:
		return w.Field
	default:
		return 1
	}
}
