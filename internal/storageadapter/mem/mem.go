// Package mem implements storageadapter.Adapter over an in-process map,
// grounded on the teacher's internal/storage/memory backend shape but
// re-keyed for the sharded entity layout instead of an issues table.
package mem

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/storageadapter"
)

// Adapter is an in-memory storageadapter.Adapter, used by the ephemeral
// in-process store and by tests.
type Adapter struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New returns an empty in-memory adapter.
func New() *Adapter {
	return &Adapter{data: make(map[string][]byte)}
}

var _ storageadapter.Adapter = (*Adapter)(nil)

func (a *Adapter) Get(_ context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.data[key]
	if !ok {
		return nil, brainyerr.NotFound("key", key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (a *Adapter) Put(_ context.Context, key string, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	a.data[key] = cp
	return nil
}

func (a *Adapter) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.data, key)
	return nil
}

func (a *Adapter) List(_ context.Context, prefix, cursor string, limit int) (storageadapter.Page, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var matched []string
	for k := range a.data {
		if strings.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)

	last, err := storageadapter.DecodeCursor(cursor)
	if err != nil {
		return storageadapter.Page{}, brainyerr.InvalidArgument("malformed cursor")
	}

	start := 0
	if last != "" {
		idx := sort.SearchStrings(matched, last)
		if idx < len(matched) && matched[idx] == last {
			idx++
		}
		start = idx
	}
	if start > len(matched) {
		start = len(matched)
	}

	end := len(matched)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	page := matched[start:end]

	next := ""
	if end < len(matched) {
		next = storageadapter.EncodeCursor(page[len(page)-1])
	}
	return storageadapter.Page{Keys: page, NextCursor: next}, nil
}

func (a *Adapter) BulkGet(_ context.Context, keys []string) (map[string][]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string][]byte, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if v, ok := a.data[k]; ok {
			cp := make([]byte, len(v))
			copy(cp, v)
			out[k] = cp
		}
	}
	return out, nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}
