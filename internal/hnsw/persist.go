package hnsw

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/brainyhq/brainy/internal/storageadapter"
)

// BlobPutter is the minimal storageadapter.Adapter surface persistence
// needs; kept narrow so tests don't need a full adapter.
type BlobPutter interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix, cursor string, limit int) (storageadapter.Page, error)
}

// systemSummary is the "_system/hnsw-system.json" record: entry point and
// max level per type, enough to resume search without reinserting nodes.
type systemSummary struct {
	ByType map[string]typeSummary `json:"byType"`
}

type typeSummary struct {
	EntryPoint string `json:"entryPoint"`
	MaxLevel   int    `json:"maxLevel"`
}

const systemSummaryKey = "_system/hnsw-system.json"

// PersistNode writes one node's adjacency and vector independently, per
// spec.md §4.5, so a rebuild can restore nodes in parallel from per-node
// blobs without replaying insertion order.
func PersistNode(ctx context.Context, store BlobPutter, typ string, n persistedNode) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("hnsw: marshal node %s/%s: %w", typ, n.ID, err)
	}
	key := storageadapter.EntityKey(storageadapter.KindNoun, typ, storageadapter.SectionHNSW, n.ID)
	return store.Put(ctx, key, data)
}

// PersistSummary writes the coordinator-wide entry point/max level record.
func (c *Coordinator) PersistSummary(ctx context.Context, store BlobPutter) error {
	c.mu.RLock()
	summary := systemSummary{ByType: make(map[string]typeSummary, len(c.byType))}
	for typ, idx := range c.byType {
		idx.mu.RLock()
		summary.ByType[typ] = typeSummary{EntryPoint: idx.entryPoint, MaxLevel: idx.maxLevel}
		idx.mu.RUnlock()
	}
	c.mu.RUnlock()

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("hnsw: marshal summary: %w", err)
	}
	return store.Put(ctx, systemSummaryKey, data)
}

// PersistAll writes every node of every active subindex, then the summary.
func (c *Coordinator) PersistAll(ctx context.Context, store BlobPutter) error {
	c.mu.RLock()
	types := make([]string, 0, len(c.byType))
	indexes := make([]*Index, 0, len(c.byType))
	for typ, idx := range c.byType {
		types = append(types, typ)
		indexes = append(indexes, idx)
	}
	c.mu.RUnlock()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for i := range types {
		typ, idx := types[i], indexes[i]
		idx.mu.RLock()
		nodes := make([]persistedNode, 0, len(idx.nodes))
		for _, n := range idx.nodes {
			nodes = append(nodes, n.toPersisted())
		}
		idx.mu.RUnlock()

		for _, n := range nodes {
			n := n
			eg.Go(func() error {
				return PersistNode(egCtx, store, typ, n)
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return c.PersistSummary(ctx, store)
}

// RebuildFromStorage reloads every type whose HNSW shard directory is
// non-empty while its in-memory subindex is still empty, restoring nodes
// in parallel across types (O(N) reload, not O(N log N) reinsertion, per
// spec.md §4.5).
func (c *Coordinator) RebuildFromStorage(ctx context.Context, store BlobPutter, knownTypes []string) error {
	raw, err := store.Get(ctx, systemSummaryKey)
	var summary systemSummary
	if err == nil {
		if jsonErr := json.Unmarshal(raw, &summary); jsonErr != nil {
			return fmt.Errorf("hnsw: decode summary: %w", jsonErr)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for _, typ := range knownTypes {
		typ := typ
		idx := c.indexFor(typ)
		if idx.Len() > 0 {
			continue
		}
		eg.Go(func() error {
			return rebuildType(egCtx, store, idx, typ, summary.ByType[typ])
		})
	}
	return eg.Wait()
}

func rebuildType(ctx context.Context, store BlobPutter, idx *Index, typ string, sum typeSummary) error {
	prefix := storageadapter.TypePrefix(storageadapter.KindNoun, typ, storageadapter.SectionHNSW)
	cursor := ""
	nodes := make(map[string]*node)
	for {
		page, err := store.List(ctx, prefix, cursor, 500)
		if err != nil {
			return fmt.Errorf("hnsw: list %s: %w", prefix, err)
		}
		for _, key := range page.Keys {
			raw, err := store.Get(ctx, key)
			if err != nil {
				return fmt.Errorf("hnsw: get %s: %w", key, err)
			}
			var p persistedNode
			if err := json.Unmarshal(raw, &p); err != nil {
				return fmt.Errorf("hnsw: decode %s: %w", key, err)
			}
			nodes[p.ID] = p.toNode()
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	idx.mu.Lock()
	idx.nodes = nodes
	idx.entryPoint = sum.EntryPoint
	idx.maxLevel = sum.MaxLevel
	if idx.entryPoint == "" {
		for _, n := range nodes {
			if idx.entryPoint == "" || n.Level > idx.maxLevel {
				idx.entryPoint = n.ID
				idx.maxLevel = n.Level
			}
		}
	}
	idx.mu.Unlock()
	return nil
}
