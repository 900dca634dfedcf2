package engine

import (
	"context"

	"github.com/brainyhq/brainy/internal/storageadapter"
)

// scopedAdapter prefixes every key with a branch namespace before
// delegating to the real adapter, giving each branch its own copy-on-write
// overlay over a single shared backend (spec.md §4.11). Refs are the one
// thing that must NOT go through a scopedAdapter — vcs.VCS talks to the
// unscoped adapter directly, since a ref is what names a branch.
type scopedAdapter struct {
	branch string
	inner  storageadapter.Adapter
}

func newScopedAdapter(branch string, inner storageadapter.Adapter) *scopedAdapter {
	return &scopedAdapter{branch: branch, inner: inner}
}

func (s *scopedAdapter) scope(key string) string {
	return "branches/" + s.branch + "/" + key
}

func (s *scopedAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, s.scope(key))
}

func (s *scopedAdapter) Put(ctx context.Context, key string, value []byte) error {
	return s.inner.Put(ctx, s.scope(key), value)
}

func (s *scopedAdapter) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.scope(key))
}

func (s *scopedAdapter) List(ctx context.Context, prefix, cursor string, limit int) (storageadapter.Page, error) {
	page, err := s.inner.List(ctx, s.scope(prefix), cursor, limit)
	if err != nil {
		return storageadapter.Page{}, err
	}
	stripped := make([]string, len(page.Keys))
	branchPrefix := s.scope("")
	for i, k := range page.Keys {
		stripped[i] = trimPrefix(k, branchPrefix)
	}
	page.Keys = stripped
	return page, nil
}

func (s *scopedAdapter) BulkGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	scopedKeys := make([]string, len(keys))
	for i, k := range keys {
		scopedKeys[i] = s.scope(k)
	}
	found, err := s.inner.BulkGet(ctx, scopedKeys)
	if err != nil {
		return nil, err
	}
	branchPrefix := s.scope("")
	out := make(map[string][]byte, len(found))
	for k, v := range found {
		out[trimPrefix(k, branchPrefix)] = v
	}
	return out, nil
}

func (s *scopedAdapter) Close() error {
	return nil // the underlying adapter owns the real resource lifetime
}

func trimPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

var _ storageadapter.Adapter = (*scopedAdapter)(nil)
