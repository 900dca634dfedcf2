// Package fs implements storageadapter.Adapter over the local filesystem.
// It holds an advisory exclusive flock on the data directory for the
// lifetime of the adapter (internal/lockfile, adapted from the teacher's
// daemon lock) so a second process opening the same directory fails fast
// instead of corrupting shard files.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/lockfile"
	"github.com/brainyhq/brainy/internal/storageadapter"
)

// Adapter is a filesystem-backed storageadapter.Adapter rooted at a data
// directory, one file per key mirroring the key's "/"-separated segments.
type Adapter struct {
	root     string
	lockFile *os.File

	mu     sync.Mutex
	closed bool
}

// Open acquires the directory's open-lock and returns a ready Adapter.
// Returns lockfile.ErrLocked (via IsLocked) if another process holds it.
func Open(root string) (*Adapter, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("fs adapter: create root %s: %w", root, err)
	}
	lockPath := filepath.Join(root, ".brainy.lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("fs adapter: open lockfile: %w", err)
	}
	if err := lockfile.FlockExclusiveNonBlocking(f); err != nil {
		f.Close()
		if lockfile.IsLocked(err) {
			return nil, fmt.Errorf("fs adapter: %s: %w", root, err)
		}
		return nil, fmt.Errorf("fs adapter: acquire lock: %w", err)
	}
	return &Adapter{root: root, lockFile: f}, nil
}

// OpenReadOnly returns an Adapter over root without taking the open-lock,
// for a reader replica that runs alongside a writer process (spec.md §1
// "distribution is optional reader/writer replica roles"). Put/Delete
// still succeed at the filesystem layer — it is the caller's job not to
// mutate a read-only-opened store.
func OpenReadOnly(root string) (*Adapter, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("fs adapter: open read-only %s: %w", root, err)
	}
	return &Adapter{root: root}, nil
}

var _ storageadapter.Adapter = (*Adapter)(nil)

func (a *Adapter) path(key string) string {
	return filepath.Join(a.root, filepath.FromSlash(key))
}

func (a *Adapter) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(a.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, brainyerr.NotFound("key", key)
		}
		return nil, fmt.Errorf("fs adapter: get %s: %w", key, err)
	}
	return data, nil
}

func (a *Adapter) Put(_ context.Context, key string, value []byte) error {
	full := a.path(key)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fs adapter: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("fs adapter: tempfile: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("fs adapter: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fs adapter: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("fs adapter: rename into place %s: %w", key, err)
	}
	return nil
}

func (a *Adapter) Delete(_ context.Context, key string) error {
	if err := os.Remove(a.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fs adapter: delete %s: %w", key, err)
	}
	return nil
}

func (a *Adapter) List(_ context.Context, prefix, cursor string, limit int) (storageadapter.Page, error) {
	last, err := storageadapter.DecodeCursor(cursor)
	if err != nil {
		return storageadapter.Page{}, brainyerr.InvalidArgument("malformed cursor")
	}

	var keys []string
	root := filepath.Join(a.root, filepath.FromSlash(prefix))
	err = filepath.Walk(root, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.Contains(filepath.Base(key), ".tmp-") {
			return nil
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return storageadapter.Page{}, fmt.Errorf("fs adapter: list %s: %w", prefix, err)
	}
	sort.Strings(keys)

	start := 0
	if last != "" {
		idx := sort.SearchStrings(keys, last)
		if idx < len(keys) && keys[idx] == last {
			idx++
		}
		start = idx
	}
	if start > len(keys) {
		start = len(keys)
	}
	end := len(keys)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	page := keys[start:end]

	next := ""
	if end < len(keys) {
		next = storageadapter.EncodeCursor(page[len(page)-1])
	}
	return storageadapter.Page{Keys: page, NextCursor: next}, nil
}

func (a *Adapter) BulkGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		v, err := a.Get(ctx, k)
		if err != nil {
			if errors.Is(err, brainyerr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.lockFile == nil {
		return nil
	}
	lockfile.FlockUnlock(a.lockFile)
	return a.lockFile.Close()
}
