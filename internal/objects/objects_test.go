package objects

import (
	"errors"
	"testing"
	"time"
)

type memBlobs map[Hash][]byte

func (m memBlobs) Get(h Hash) ([]byte, error) {
	b, ok := m[h]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return b, nil
}

func TestTreeHashIsOrderIndependent(t *testing.T) {
	t1 := Tree{Entries: []Entry{
		{Name: "b", Type: EntryBlob, Hash: Sum([]byte("b"))},
		{Name: "a", Type: EntryBlob, Hash: Sum([]byte("a"))},
	}}
	t2 := Tree{Entries: []Entry{
		{Name: "a", Type: EntryBlob, Hash: Sum([]byte("a"))},
		{Name: "b", Type: EntryBlob, Hash: Sum([]byte("b"))},
	}}
	if t1.Hash() != t2.Hash() {
		t.Fatalf("expected identical hashes for logically equal trees, got %s vs %s", t1.Hash(), t2.Hash())
	}
}

func TestWalkGuardsNullHash(t *testing.T) {
	store := memBlobs{}
	var seen int
	if err := Walk(store, NullHash, func(string, Entry) error { seen++; return nil }); err != nil {
		t.Fatalf("Walk on NullHash returned error: %v", err)
	}
	if seen != 0 {
		t.Fatalf("expected zero entries walking the empty tree, got %d", seen)
	}
}

func TestWalkNested(t *testing.T) {
	store := memBlobs{}
	leaf := Tree{Entries: []Entry{{Name: "x", Type: EntryBlob, Hash: Sum([]byte("x"))}}}
	store[leaf.Hash()] = leaf.Canonical()

	root := Tree{Entries: []Entry{
		{Name: "nested", Type: EntryTree, Hash: leaf.Hash()},
		{Name: "top", Type: EntryBlob, Hash: Sum([]byte("top"))},
	}}
	store[root.Hash()] = root.Canonical()

	var paths []string
	err := Walk(store, root.Hash(), func(path string, e Entry) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	want := []string{"nested", "nested/x", "top"}
	if len(paths) != len(want) {
		t.Fatalf("got paths %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("got paths %v, want %v", paths, want)
		}
	}
}

func TestWalkHistoryStopsAtNullHash(t *testing.T) {
	store := memBlobs{}
	c1 := Commit{Tree: NullHash, Parent: NullHash, Message: "initial", Timestamp: time.Unix(1, 0)}
	store[c1.Hash()] = c1.Canonical()
	c2 := Commit{Tree: NullHash, Parent: c1.Hash(), Message: "second", Timestamp: time.Unix(2, 0)}
	store[c2.Hash()] = c2.Canonical()

	var messages []string
	err := WalkHistory(store, c2.Hash(), func(h Hash, c Commit) (bool, error) {
		messages = append(messages, c.Message)
		return false, nil
	})
	if err != nil {
		t.Fatalf("WalkHistory failed: %v", err)
	}
	if len(messages) != 2 || messages[0] != "second" || messages[1] != "initial" {
		t.Fatalf("unexpected history order: %v", messages)
	}
}

func TestResolveRefName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"main", "refs/heads/main"},
		{"heads/main", "refs/heads/main"},
		{"refs/heads/main", "refs/heads/main"},
	}
	for _, tt := range tests {
		if got := ResolveRefName(tt.in); got != tt.want {
			t.Fatalf("ResolveRefName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
