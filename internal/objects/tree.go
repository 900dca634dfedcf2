package objects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// EntryType distinguishes a tree entry pointing at a blob from one pointing
// at a nested tree.
type EntryType string

const (
	EntryBlob EntryType = "blob"
	EntryTree EntryType = "tree"
)

// Entry is one named, typed, hashed member of a Tree.
type Entry struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
	Hash Hash      `json:"hash"`
}

// Tree is an ordered list of entries. Two trees with the same logical
// contents always hash identically because Canonical() sorts entries by
// name before encoding (spec.md §4.2).
type Tree struct {
	Entries []Entry `json:"entries"`
}

// Canonical returns the deterministic byte encoding used both to compute
// the tree's hash and to persist it as a blob.
func (t Tree) Canonical() []byte {
	sorted := make([]Entry, len(t.Entries))
	copy(sorted, t.Entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(sorted)
	return buf.Bytes()
}

// Hash returns the content-address of the tree's canonical encoding.
func (t Tree) Hash() Hash {
	return Sum(t.Canonical())
}

// DecodeTree parses a tree's canonical byte encoding back into a Tree.
func DecodeTree(data []byte) (Tree, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return Tree{}, fmt.Errorf("decode tree: %w", err)
	}
	return Tree{Entries: entries}, nil
}

// BlobGetter is the minimal dependency Walk needs: something that can
// resolve a tree's bytes by hash. internal/blobstore.Store satisfies it.
type BlobGetter interface {
	Get(hash Hash) ([]byte, error)
}

// WalkFunc is invoked once per entry encountered by Walk, in the order
// trees store them (sorted by name, depth-first).
type WalkFunc func(path string, entry Entry) error

// Walk lazily yields every {name, type, hash} entry reachable from root,
// guarding against NULL_HASH at every descent: a caller passing the empty
// tree gets zero callbacks rather than a failed blob read (spec.md §4.2).
func Walk(store BlobGetter, root Hash, fn WalkFunc) error {
	return walk(store, root, "", fn)
}

func walk(store BlobGetter, root Hash, prefix string, fn WalkFunc) error {
	if root.IsNull() {
		return nil
	}
	data, err := store.Get(root)
	if err != nil {
		return fmt.Errorf("walk tree %s: %w", root, err)
	}
	tree, err := DecodeTree(data)
	if err != nil {
		return err
	}
	sorted := make([]Entry, len(tree.Entries))
	copy(sorted, tree.Entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, e := range sorted {
		p := e.Name
		if prefix != "" {
			p = prefix + "/" + e.Name
		}
		if err := fn(p, e); err != nil {
			return err
		}
		if e.Type == EntryTree {
			if err := walk(store, e.Hash, p, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
