// Package counts implements Count Bookkeeping (spec.md §4.9): atomic
// per-type and total noun/verb counters, persisted after every flush and
// reconciled against a full scan when the persisted snapshot and the live
// index disagree. Grounded on the teacher's RPC metrics counters
// (internal/rpc/metrics.go's mutex-guarded `map[string]int64` operation
// counters), generalized from per-operation keys to per-NounType/VerbType
// keys.
package counts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/types"
)

// ManifestKey is the storage-adapter key holding the last persisted count
// snapshot.
const ManifestKey = "_system/counts.json"

// Snapshot is the JSON-serializable view of a Counter, and the shape
// written to ManifestKey.
type Snapshot struct {
	Nouns      map[types.NounType]int64 `json:"nouns"`
	Verbs      map[types.VerbType]int64 `json:"verbs"`
	TotalNouns int64                    `json:"totalNouns"`
	TotalVerbs int64                    `json:"totalVerbs"`
}

// Counter tracks live per-type and total entity counts. Safe for
// concurrent use.
type Counter struct {
	mu    sync.RWMutex
	nouns map[types.NounType]int64
	verbs map[types.VerbType]int64
}

// New returns a zeroed counter.
func New() *Counter {
	return &Counter{
		nouns: make(map[types.NounType]int64),
		verbs: make(map[types.VerbType]int64),
	}
}

// IncrNoun/DecrNoun/IncrVerb/DecrVerb adjust a single type's count. Decr
// never drives a count below zero, so a double-delete (a caller bug
// elsewhere) cannot corrupt the tally into negative territory.
func (c *Counter) IncrNoun(t types.NounType) { c.adjustNoun(t, 1) }
func (c *Counter) DecrNoun(t types.NounType) { c.adjustNoun(t, -1) }
func (c *Counter) IncrVerb(t types.VerbType) { c.adjustVerb(t, 1) }
func (c *Counter) DecrVerb(t types.VerbType) { c.adjustVerb(t, -1) }

func (c *Counter) adjustNoun(t types.NounType, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nouns[t] = clampNonNegative(c.nouns[t] + delta)
}

func (c *Counter) adjustVerb(t types.VerbType, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verbs[t] = clampNonNegative(c.verbs[t] + delta)
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// TotalNouns and TotalVerbs sum every per-type count.
func (c *Counter) TotalNouns() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, n := range c.nouns {
		total += n
	}
	return total
}

func (c *Counter) TotalVerbs() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, n := range c.verbs {
		total += n
	}
	return total
}

// NounCount and VerbCount report one type's count.
func (c *Counter) NounCount(t types.NounType) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nouns[t]
}

func (c *Counter) VerbCount(t types.VerbType) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.verbs[t]
}

// Snapshot returns an immutable copy of the current counts.
func (c *Counter) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		Nouns: make(map[types.NounType]int64, len(c.nouns)),
		Verbs: make(map[types.VerbType]int64, len(c.verbs)),
	}
	for t, n := range c.nouns {
		snap.Nouns[t] = n
		snap.TotalNouns += n
	}
	for t, n := range c.verbs {
		snap.Verbs[t] = n
		snap.TotalVerbs += n
	}
	return snap
}

// Reconcile compares the live counts against an authoritative full scan
// (actualNouns/actualVerbs, typically produced by walking every index
// bucket) and replaces any mismatched entries. Reports whether a
// correction was made, so a caller can log the drift.
func (c *Counter) Reconcile(actualNouns map[types.NounType]int64, actualVerbs map[types.VerbType]int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := !equalCounts(c.nouns, actualNouns) || !equalCounts(c.verbs, actualVerbs)
	if !changed {
		return false
	}

	c.nouns = make(map[types.NounType]int64, len(actualNouns))
	for t, n := range actualNouns {
		if n != 0 {
			c.nouns[t] = n
		}
	}
	c.verbs = make(map[types.VerbType]int64, len(actualVerbs))
	for t, n := range actualVerbs {
		if n != 0 {
			c.verbs[t] = n
		}
	}
	return true
}

func equalCounts[T comparable](a, b map[T]int64) bool {
	for k, v := range a {
		if v != 0 && b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if v != 0 && a[k] != v {
			return false
		}
	}
	return true
}

// Store is the narrow persistence surface counts needs, satisfied by
// storageadapter.Adapter.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Persist writes the current snapshot to ManifestKey, called after every
// flush (spec.md §4.9).
func Persist(ctx context.Context, store Store, c *Counter) error {
	data, err := json.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal count snapshot: %w", err)
	}
	if err := store.Put(ctx, ManifestKey, data); err != nil {
		return fmt.Errorf("persist count snapshot: %w", err)
	}
	return nil
}

// LoadFromStorage restores a Counter from the last persisted snapshot, or
// returns a zeroed Counter if none exists yet.
func LoadFromStorage(ctx context.Context, store Store) (*Counter, error) {
	data, err := store.Get(ctx, ManifestKey)
	if errors.Is(err, brainyerr.ErrNotFound) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read count snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal count snapshot: %w", err)
	}

	c := New()
	for t, n := range snap.Nouns {
		c.nouns[t] = n
	}
	for t, n := range snap.Verbs {
		c.verbs[t] = n
	}
	return c, nil
}
