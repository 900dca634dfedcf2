// Package batch implements the Storage Batch API (spec.md §4.15): a
// COW-aware batchGet that resolves many ids with few backend round trips
// by grouping same-typed ids into single bulk fetches, consulting the
// write-through cache first and falling back to ancestor commits for ids
// missing from the current branch overlay. There is no teacher analog —
// the teacher's batch surface (internal/storage/batch.go) batches issue
// creation, not a COW multi-branch read path — so the grouping/fallback
// logic here is grounded directly on spec.md §4.15, kept in the teacher's
// general idiom of narrow consumer-defined interfaces.
package batch

import (
	"context"

	"github.com/brainyhq/brainy/internal/types"
)

// defaultBatchSize bounds how many ids one BulkGetNouns call carries, so
// a very large batchGet still makes bounded-size backend round trips.
const defaultBatchSize = 500

// Cache is the write-through cache's narrow read surface: a dirty entity
// not yet durably flushed must win over whatever the backend/ancestor
// chain would return.
type Cache interface {
	GetNoun(id string) (types.Noun, bool)
}

// TypeResolver is the type cache's narrow surface (GLOSSARY "Type cache"):
// cheap in-memory id → NounType lookup, populated on read/rebuild, used
// to group ids before issuing one bulk fetch per type.
type TypeResolver interface {
	NounType(id string) (types.NounType, bool)
}

// BulkSource resolves many same-typed ids against the current branch
// overlay in as few backend round trips as the storage adapter allows.
// Ids absent from the returned map are simply not present on this
// branch's overlay (spec.md §4.15 "missing ids are silently dropped" —
// though here "dropped" from this step, not necessarily from the final
// result, since ParentResolver still gets a chance).
type BulkSource interface {
	BulkGetNouns(ctx context.Context, nounType types.NounType, ids []string) (map[string]types.Noun, error)
}

// ParentResolver looks an id up the ancestor commit chain when it is
// absent from the current branch's overlay and its type is unknown
// locally (a COW branch that never itself wrote the id).
type ParentResolver interface {
	ResolveFromParent(ctx context.Context, id string) (types.Noun, bool, error)
}

// Options configures batchGet.
type Options struct {
	IncludeVectors bool
}

// Get resolves ids to their current entities, COW-aware: cache-first,
// then one bulk fetch per noun type for the rest, then an ancestor-commit
// fallback for anything still missing. Duplicate ids collapse to one map
// entry; an empty id list returns an empty map without any backend call.
func Get(ctx context.Context, cache Cache, resolver TypeResolver, bulk BulkSource, parent ParentResolver, ids []string, opts Options) (map[string]types.Noun, error) {
	results := make(map[string]types.Noun)
	if len(ids) == 0 {
		return results, nil
	}

	seen := make(map[string]bool, len(ids))
	byType := make(map[types.NounType][]string)
	var untyped []string

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if cache != nil {
			if n, ok := cache.GetNoun(id); ok {
				results[id] = n
				continue
			}
		}

		if resolver != nil {
			if t, ok := resolver.NounType(id); ok {
				byType[t] = append(byType[t], id)
				continue
			}
		}
		untyped = append(untyped, id)
	}

	for nounType, typeIDs := range byType {
		for _, chunk := range chunkIDs(typeIDs, defaultBatchSize) {
			found, err := bulk.BulkGetNouns(ctx, nounType, chunk)
			if err != nil {
				return nil, err
			}
			for id, n := range found {
				results[id] = n
			}
			for _, id := range chunk {
				if _, ok := found[id]; !ok {
					untyped = append(untyped, id)
				}
			}
		}
	}

	if parent != nil {
		for _, id := range untyped {
			n, ok, err := parent.ResolveFromParent(ctx, id)
			if err != nil {
				return nil, err
			}
			if ok {
				results[id] = n
			}
		}
	}

	if !opts.IncludeVectors {
		for id, n := range results {
			n.Vector = nil
			results[id] = n
		}
	}

	return results, nil
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
