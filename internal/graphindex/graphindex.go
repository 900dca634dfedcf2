// Package graphindex implements the Graph Adjacency Index (spec.md §4.7):
// an in-memory bidirectional adjacency structure over verbs (typed directed
// edges between nouns), supporting relate/unrelate, filtered/paginated
// relation lookup, and breadth-first "connected" traversal. Grounded on the
// teacher's dependency-graph adjacency maps (cmd/bd/graph.go's
// computeLayout, which builds fromID -> []toID / toID -> []fromID maps to
// walk an issue's dependency graph) generalized from a single "blocks"
// edge type to the full verb-type grammar.
package graphindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/brainyhq/brainy/internal/storageadapter"
	"github.com/brainyhq/brainy/internal/types"
)

// DefaultLimit is applied to GetRelations when the caller supplies no
// limit (spec.md §4.7).
const DefaultLimit = 100

// Index is the graph adjacency index. Safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	verbs map[string]*types.Verb // verb id -> verb

	out map[string][]string // from id -> verb ids, insertion order
	in  map[string][]string // to id -> verb ids, insertion order

	order []string // every currently related verb id, insertion order
}

// New returns an empty graph adjacency index.
func New() *Index {
	return &Index{
		verbs: make(map[string]*types.Verb),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
}

// Relate indexes v, replacing any existing verb with the same id.
func (g *Index) Relate(v types.Verb) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unrelateLocked(v.ID)
	cp := v
	g.verbs[v.ID] = &cp
	g.out[v.From] = append(g.out[v.From], v.ID)
	g.in[v.To] = append(g.in[v.To], v.ID)
	g.order = append(g.order, v.ID)
}

// Unrelate removes a verb by id. Reports whether it was present.
func (g *Index) Unrelate(verbID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unrelateLocked(verbID)
}

func (g *Index) unrelateLocked(verbID string) bool {
	v, ok := g.verbs[verbID]
	if !ok {
		return false
	}
	g.out[v.From] = removeID(g.out[v.From], verbID)
	g.in[v.To] = removeID(g.in[v.To], verbID)
	g.order = removeID(g.order, verbID)
	delete(g.verbs, verbID)
	return true
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// GetRelations answers the all/by-from/by-to/by-from-to/by-type relation
// query, paginated by an opaque last-id cursor (reusing the storageadapter
// cursor encoding so every paginated surface in the store shares one
// cursor format). Results are ordered by verb id for a stable page
// boundary across calls.
func (g *Index) GetRelations(q types.RelationQuery) ([]types.Verb, string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var candidates []string
	switch {
	case q.From != "" && q.To != "":
		candidates = intersectIDs(g.out[q.From], g.in[q.To])
	case q.From != "":
		candidates = append([]string(nil), g.out[q.From]...)
	case q.To != "":
		candidates = append([]string(nil), g.in[q.To]...)
	default:
		candidates = append([]string(nil), g.order...)
	}

	matched := make([]string, 0, len(candidates))
	for _, id := range candidates {
		v := g.verbs[id]
		if v == nil {
			continue
		}
		if q.Type != nil && v.Type != *q.Type {
			continue
		}
		matched = append(matched, id)
	}
	sort.Strings(matched)

	start := 0
	if q.Cursor != "" {
		last, err := storageadapter.DecodeCursor(q.Cursor)
		if err != nil {
			return nil, "", fmt.Errorf("decode relation cursor: %w", err)
		}
		start = sort.SearchStrings(matched, last)
		if start < len(matched) && matched[start] == last {
			start++
		}
	}

	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[start:end]

	result := make([]types.Verb, 0, len(page))
	for _, id := range page {
		result = append(result, *g.verbs[id])
	}

	next := ""
	if end < len(matched) {
		next = storageadapter.EncodeCursor(page[len(page)-1])
	}
	return result, next, nil
}

func intersectIDs(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	var out []string
	for _, id := range a {
		if inB[id] {
			out = append(out, id)
		}
	}
	return out
}

// Connected performs a breadth-first traversal from q.From up to q.MaxDepth
// hops, honoring direction and an optional verb-type filter, and returns
// neighbor ids ranked by BFS depth then first-discovered order. The root id
// is never included in the result.
func (g *Index) Connected(q types.Connected) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	maxDepth := q.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	visited := map[string]bool{q.From: true}
	type frontier struct {
		id    string
		depth int
	}
	queue := []frontier{{q.From, 0}}
	var ranked []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, nb := range g.neighborsLocked(cur.id, q.Dir, q.Type) {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			ranked = append(ranked, nb)
			queue = append(queue, frontier{nb, cur.depth + 1})
		}
	}
	return ranked
}

// neighborsLocked returns id's adjacent node ids in the requested direction.
// An empty Direction defaults to "out", matching how the teacher's graph
// layout walks "blocks" dependencies forward from dependents to blockers.
func (g *Index) neighborsLocked(id string, dir types.Direction, vtype *types.VerbType) []string {
	var out []string
	add := func(verbIDs []string, other func(v *types.Verb) string) {
		for _, vid := range verbIDs {
			v := g.verbs[vid]
			if v == nil {
				continue
			}
			if vtype != nil && v.Type != *vtype {
				continue
			}
			out = append(out, other(v))
		}
	}
	if dir == types.DirOut || dir == types.DirBoth || dir == "" {
		add(g.out[id], func(v *types.Verb) string { return v.To })
	}
	if dir == types.DirIn || dir == types.DirBoth {
		add(g.in[id], func(v *types.Verb) string { return v.From })
	}
	return out
}
