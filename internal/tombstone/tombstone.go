// Package tombstone implements the Deleted-Items Index (spec.md §4.8): an
// append-only, last-write-wins manifest of deleted entity ids, adapted from
// the teacher's deletions manifest (internal/deletions/deletions.go) but
// backed by the mutable storage adapter instead of a bare file, so the
// same manifest travels through the storage backend's durability and
// locking story rather than needing its own.
//
// Unlike the teacher's manifest, a record here can also clear a prior
// tombstone: re-adding an entity whose id was previously deleted resurrects
// it, recorded as a Cleared record rather than erasing history.
package tombstone

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brainyhq/brainy/internal/brainyerr"
)

// ManifestKey is the storage-adapter key holding the append-only tombstone
// log, a system key outside any entity's type-sharded namespace.
const ManifestKey = "_system/tombstones.jsonl"

// Record is a single tombstone manifest entry.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Actor     string    `json:"by,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Cleared   bool      `json:"cleared,omitempty"`
}

// Index is the in-memory deleted-items index. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	records map[string]Record // id -> most recent record, absent means not deleted
}

// New returns an empty deleted-items index.
func New() *Index {
	return &Index{records: make(map[string]Record)}
}

// Apply folds one manifest record into the index: a Cleared record removes
// any existing tombstone for its id, otherwise the record becomes (or
// replaces) the tombstone for its id.
func (idx *Index) Apply(rec Record) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if rec.Cleared {
		delete(idx.records, rec.ID)
		return
	}
	idx.records[rec.ID] = rec
}

// IsDeleted reports whether id currently carries a tombstone.
func (idx *Index) IsDeleted(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.records[id]
	return ok
}

// Get returns id's tombstone record, if any.
func (idx *Index) Get(id string) (Record, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rec, ok := idx.records[id]
	return rec, ok
}

// List returns every current tombstone, ordered by id for determinism.
func (idx *Index) List() []Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Record, 0, len(idx.records))
	for _, rec := range idx.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of currently tombstoned ids.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Store is the narrow persistence surface tombstone needs, satisfied by
// storageadapter.Adapter.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Append adds one record to the durable manifest, growing it exactly the
// way the teacher's AppendDeletion grows deletions.jsonl, except the
// backing "file" is a storage-adapter key: read-modify-write since the
// adapter interface has no true append.
func Append(ctx context.Context, store Store, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("tombstone record requires an id: %w", brainyerr.ErrInvalidArgument)
	}

	existing, err := store.Get(ctx, ManifestKey)
	if err != nil && !errors.Is(err, brainyerr.ErrNotFound) {
		return fmt.Errorf("read tombstone manifest: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal tombstone record: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(existing)
	buf.Write(data)
	buf.WriteByte('\n')

	if err := store.Put(ctx, ManifestKey, buf.Bytes()); err != nil {
		return fmt.Errorf("write tombstone manifest: %w", err)
	}
	return nil
}

// LoadFromStorage rebuilds an Index from the durable manifest. Corrupt
// lines are skipped and reported as warnings rather than failing the load,
// matching the teacher's LoadDeletions tolerance for a manifest damaged by
// a partial write.
func LoadFromStorage(ctx context.Context, store Store) (*Index, []string, error) {
	idx := New()

	data, err := store.Get(ctx, ManifestKey)
	if errors.Is(err, brainyerr.ErrNotFound) {
		return idx, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read tombstone manifest: %w", err)
	}

	var warnings []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping corrupt tombstone manifest line %d: %v", lineNo, err))
			continue
		}
		if rec.ID == "" {
			warnings = append(warnings, fmt.Sprintf("skipping tombstone manifest line %d: missing id", lineNo))
			continue
		}
		idx.Apply(rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan tombstone manifest: %w", err)
	}

	return idx, warnings, nil
}
