package hnsw

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Coordinator owns one Index per noun type and implements the fast paths
// from spec.md §4.5: a single requested type searches directly, multiple
// (or absent) types fan out in parallel and merge by distance.
type Coordinator struct {
	mu      sync.RWMutex
	byType  map[string]*Index
	cfgBase Config
}

// NewCoordinator returns a Coordinator that lazily creates a subindex per
// type using cfgBase as the template (only Dimension/Metric are expected to
// vary from the template in practice).
func NewCoordinator(cfgBase Config) *Coordinator {
	return &Coordinator{byType: make(map[string]*Index), cfgBase: cfgBase}
}

func (c *Coordinator) indexFor(typ string) *Index {
	c.mu.RLock()
	idx, ok := c.byType[typ]
	c.mu.RUnlock()
	if ok {
		return idx
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.byType[typ]; ok {
		return idx
	}
	idx = New(c.cfgBase)
	c.byType[typ] = idx
	return idx
}

// Insert adds or replaces a vector for id under the given noun type.
func (c *Coordinator) Insert(typ, id string, vector []float32) {
	c.indexFor(typ).Insert(id, vector)
}

// ActiveTypes returns every type with at least one subindex created.
func (c *Coordinator) ActiveTypes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.byType))
	for t := range c.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Search dispatches a query across the given types (spec.md §4.5 fast
// paths): a single type searches directly, no types falls back to every
// active subindex, and two or more search in parallel and merge by
// distance ascending, clipped to k.
func (c *Coordinator) Search(ctx context.Context, types []string, query []float32, k, efSearch int) ([]Result, error) {
	if len(types) == 0 {
		types = c.ActiveTypes()
	}
	if len(types) == 1 {
		return c.indexFor(types[0]).Search(query, k, efSearch), nil
	}

	eg, _ := errgroup.WithContext(ctx)
	perType := make([][]Result, len(types))
	for i, typ := range types {
		i, typ := i, typ
		eg.Go(func() error {
			perType[i] = c.indexFor(typ).Search(query, k, efSearch)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := make([]Result, 0, k*len(types))
	for _, rs := range perType {
		merged = append(merged, rs...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Distance < merged[j].Distance })
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

// CoordinatorStats is the coordinator-level rollup from spec.md §4.5.
type CoordinatorStats struct {
	TotalNodes                  int
	TypeCount                   int
	EstimatedMonolithicMemoryMB float64
	TotalMemoryMB               float64
	MemoryReductionPercent      float64
	PerType                     map[string]Stats
}

// Stats aggregates per-subindex stats. EstimatedMonolithicMemoryMB models
// what a single unsharded index over all vectors would cost (no per-type
// graph duplication of cross-type edges), giving the reduction achieved by
// keeping types in separate subindexes.
func (c *Coordinator) Stats() CoordinatorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := CoordinatorStats{PerType: make(map[string]Stats, len(c.byType))}
	var totalNodes int
	var totalMemory float64
	for typ, idx := range c.byType {
		s := idx.Stats()
		out.PerType[typ] = s
		totalNodes += s.NodeCount
		totalMemory += s.MemoryMB
	}
	out.TotalNodes = totalNodes
	out.TypeCount = len(c.byType)
	out.TotalMemoryMB = totalMemory

	// A monolithic index over the same N nodes would need ceil(log(N))
	// more average levels of cross-type links; approximate its cost as the
	// per-type average times the square of the type count (that is, the
	// total across types times the type count), a conservative upper bound.
	if len(c.byType) > 0 {
		avg := totalMemory / float64(len(c.byType))
		out.EstimatedMonolithicMemoryMB = avg * float64(len(c.byType)) * float64(len(c.byType))
		if out.EstimatedMonolithicMemoryMB > 0 {
			out.MemoryReductionPercent = (1 - out.TotalMemoryMB/out.EstimatedMonolithicMemoryMB) * 100
		}
	}
	return out
}
