package hnsw

import (
	"container/heap"
	"math"
	"math/rand"
	"sync"
)

// Result is one ranked hit from a search.
type Result struct {
	ID       string
	Distance float64
}

// Index is one type's HNSW subindex. Reads (Search) take only an RLock and
// never block each other; Insert takes the write lock (spec.md §5: "HNSW
// reads are lock-free" relative to other reads, read-mostly locking on the
// shared node cache).
type Index struct {
	mu         sync.RWMutex
	cfg        Config
	nodes      map[string]*node
	entryPoint string
	maxLevel   int
	rng        *rand.Rand
}

// New creates an empty subindex.
func New(cfg Config) *Index {
	cfg = cfg.normalized()
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	return &Index{
		cfg:      cfg,
		nodes:    make(map[string]*node),
		maxLevel: -1,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Config returns the subindex's configuration.
func (idx *Index) Config() Config { return idx.cfg }

func (idx *Index) randomLevel() int {
	level := 0
	for idx.rng.Float64() < 1.0/math.E && level < 32 {
		level++
	}
	// Ml-scaled geometric draw (standard HNSW level assignment).
	lvl := int(-math.Log(idx.rng.Float64()) * idx.cfg.Ml)
	if lvl > level {
		level = lvl
	}
	if level > 32 {
		level = 32
	}
	return level
}

// Insert adds or replaces a vector under id. Replacing an existing id first
// unlinks it from the graph, then inserts fresh (simplest correct way to
// honor "last writer wins" for per-id updates, spec.md §5).
func (idx *Index) Insert(id string, vector []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if existing, ok := idx.nodes[id]; ok {
		idx.unlinkLocked(existing)
		delete(idx.nodes, id)
	}

	level := idx.randomLevel()
	n := newNode(id, vector, level)
	idx.nodes[n.ID] = n

	if idx.entryPoint == "" {
		idx.entryPoint = n.ID
		idx.maxLevel = level
		return
	}

	entry := idx.nodes[idx.entryPoint]
	curDist := distance(idx.cfg.Metric, vector, entry.Vector)
	cur := entry

	for l := idx.maxLevel; l > level; l-- {
		cur, curDist = idx.greedyDescend(cur, curDist, vector, l)
	}

	for l := min(level, idx.maxLevel); l >= 0; l-- {
		candidates := idx.searchLayerLocked(vector, []*node{cur}, idx.cfg.EfConstruction, l)
		m := idx.cfg.M
		if l == 0 {
			m = idx.cfg.MMax0
		}
		selected := selectNeighborsHeuristic(idx.cfg.Metric, vector, candidates, m)
		for _, c := range selected {
			idx.link(n, c, l)
			idx.pruneLocked(c, l)
		}
		if len(candidates) > 0 {
			cur = candidates[0].n
		}
	}

	if level > idx.maxLevel {
		idx.maxLevel = level
		idx.entryPoint = n.ID
	}
}

func (idx *Index) greedyDescend(from *node, fromDist float64, target []float32, level int) (*node, float64) {
	improved := true
	cur, curDist := from, fromDist
	for improved {
		improved = false
		if level >= len(cur.Neighbors) {
			continue
		}
		for _, nb := range cur.Neighbors[level] {
			nn, ok := idx.nodes[nb]
			if !ok {
				continue
			}
			d := distance(idx.cfg.Metric, target, nn.Vector)
			if d < curDist {
				cur, curDist = nn, d
				improved = true
			}
		}
	}
	return cur, curDist
}

type candidate struct {
	n    *node
	dist float64
}

// searchLayerLocked runs efSearch best-first search at one level, starting
// from entryPoints, returning up to ef candidates sorted by distance
// ascending. Caller holds idx.mu (read or write).
func (idx *Index) searchLayerLocked(target []float32, entryPoints []*node, ef int, level int) []candidate {
	visited := make(map[string]bool)
	candidates := &minHeap{}
	results := &maxHeap{}

	for _, ep := range entryPoints {
		if visited[ep.ID] {
			continue
		}
		visited[ep.ID] = true
		d := distance(idx.cfg.Metric, target, ep.Vector)
		heap.Push(candidates, candidate{ep, d})
		heap.Push(results, candidate{ep, d})
	}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(candidate)
		if results.Len() >= ef {
			worst := (*results)[0]
			if c.dist > worst.dist {
				break
			}
		}
		if level >= len(c.n.Neighbors) {
			continue
		}
		for _, nbID := range c.n.Neighbors[level] {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true
			nn, ok := idx.nodes[nbID]
			if !ok {
				continue
			}
			d := distance(idx.cfg.Metric, target, nn.Vector)
			if results.Len() < ef {
				heap.Push(candidates, candidate{nn, d})
				heap.Push(results, candidate{nn, d})
			} else if d < (*results)[0].dist {
				heap.Push(candidates, candidate{nn, d})
				heap.Push(results, candidate{nn, d})
				heap.Pop(results)
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

// selectNeighborsHeuristic picks up to m candidates preserving diverse
// connectivity: a candidate is kept only if it is closer to the target
// than to every neighbor already selected (standard HNSW heuristic,
// prevents clustering all links in one direction).
func selectNeighborsHeuristic(metric Metric, target []float32, candidates []candidate, m int) []*node {
	selected := make([]*node, 0, m)
	for _, c := range candidates {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, s := range selected {
			if distance(metric, c.n.Vector, s.Vector) < c.dist {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c.n)
		}
	}
	// Backfill with the closest remaining candidates if the heuristic was
	// too strict to reach m (keeps the graph from under-connecting).
	if len(selected) < m {
		have := make(map[string]bool, len(selected))
		for _, s := range selected {
			have[s.ID] = true
		}
		for _, c := range candidates {
			if len(selected) >= m {
				break
			}
			if !have[c.n.ID] {
				selected = append(selected, c.n)
				have[c.n.ID] = true
			}
		}
	}
	return selected
}

func (idx *Index) link(a, b *node, level int) {
	if level >= len(a.Neighbors) || level >= len(b.Neighbors) {
		return
	}
	a.Neighbors[level] = appendUnique(a.Neighbors[level], b.ID)
	b.Neighbors[level] = appendUnique(b.Neighbors[level], a.ID)
}

func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

// pruneLocked trims n's neighbor list at level down to M (or MMax0 at
// layer 0) once it has grown past that, keeping the closest ones.
func (idx *Index) pruneLocked(n *node, level int) {
	limit := idx.cfg.M
	if level == 0 {
		limit = idx.cfg.MMax0
	}
	if level >= len(n.Neighbors) || len(n.Neighbors[level]) <= limit {
		return
	}
	cands := make([]candidate, 0, len(n.Neighbors[level]))
	for _, id := range n.Neighbors[level] {
		nn, ok := idx.nodes[id]
		if !ok {
			continue
		}
		cands = append(cands, candidate{nn, distance(idx.cfg.Metric, n.Vector, nn.Vector)})
	}
	sortCandidates(cands)
	kept := selectNeighborsHeuristic(idx.cfg.Metric, n.Vector, cands, limit)
	ids := make([]string, len(kept))
	for i, k := range kept {
		ids[i] = k.ID
	}
	n.Neighbors[level] = ids
}

func (idx *Index) unlinkLocked(n *node) {
	for level, neighbors := range n.Neighbors {
		for _, nbID := range neighbors {
			nn, ok := idx.nodes[nbID]
			if !ok || level >= len(nn.Neighbors) {
				continue
			}
			nn.Neighbors[level] = removeID(nn.Neighbors[level], n.ID)
		}
	}
	if idx.entryPoint == n.ID {
		idx.entryPoint = ""
		idx.maxLevel = -1
		for _, other := range idx.nodes {
			if other.ID == n.ID {
				continue
			}
			if idx.entryPoint == "" || other.Level > idx.maxLevel {
				idx.entryPoint = other.ID
				idx.maxLevel = other.Level
			}
		}
	}
}

func removeID(list []string, id string) []string {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortCandidates(c []candidate) {
	// simple insertion sort: neighbor lists are bounded by M/MMax0, so this
	// stays cheap and avoids importing sort for a handful of elements.
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].dist < c[j-1].dist; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

// Search returns up to k nearest neighbors of query using efSearch (or the
// subindex default if efSearch <= 0).
func (idx *Index) Search(query []float32, k, efSearch int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.entryPoint == "" {
		return nil
	}
	if efSearch <= 0 {
		efSearch = idx.cfg.EfSearch
	}
	if efSearch < k {
		efSearch = k
	}

	entry := idx.nodes[idx.entryPoint]
	cur, curDist := entry, distance(idx.cfg.Metric, query, entry.Vector)
	for l := idx.maxLevel; l > 0; l-- {
		cur, curDist = idx.greedyDescend(cur, curDist, query, l)
	}
	_ = curDist

	candidates := idx.searchLayerLocked(query, []*node{cur}, efSearch, 0)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{ID: c.n.ID, Distance: c.dist}
	}
	return out
}

// Len reports the number of nodes currently in the subindex.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// Stats reports the per-subindex snapshot required by spec.md §4.5.
type Stats struct {
	NodeCount int
	MemoryMB  float64
	MaxLevel  int
}

func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var bytes int
	for _, n := range idx.nodes {
		bytes += len(n.Vector)*4 + 64
		for _, lvl := range n.Neighbors {
			bytes += len(lvl) * 16
		}
	}
	return Stats{
		NodeCount: len(idx.nodes),
		MemoryMB:  float64(bytes) / (1024 * 1024),
		MaxLevel:  idx.maxLevel,
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
