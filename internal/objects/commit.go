package objects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Commit is a parent-linked snapshot pointer (spec.md §3). Parent is
// NullHash only for the very first commit on a branch's history.
type Commit struct {
	Tree      Hash                   `json:"tree"`
	Parent    Hash                   `json:"parent"`
	Author    string                 `json:"author"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Canonical returns the deterministic byte encoding used to compute the
// commit's hash and to persist it as a blob.
func (c Commit) Canonical() []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	type wire struct {
		Tree      Hash                   `json:"tree"`
		Parent    Hash                   `json:"parent"`
		Author    string                 `json:"author"`
		Message   string                 `json:"message"`
		Timestamp string                 `json:"timestamp"`
		Metadata  map[string]interface{} `json:"metadata,omitempty"`
	}
	_ = enc.Encode(wire{
		Tree:      c.Tree,
		Parent:    c.Parent,
		Author:    c.Author,
		Message:   c.Message,
		Timestamp: c.Timestamp.UTC().Format(time.RFC3339Nano),
		Metadata:  c.Metadata,
	})
	return buf.Bytes()
}

// Hash returns the content-address of the commit's canonical encoding.
func (c Commit) Hash() Hash {
	return Sum(c.Canonical())
}

// DecodeCommit parses a commit's canonical byte encoding.
func DecodeCommit(data []byte) (Commit, error) {
	var c Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return Commit{}, fmt.Errorf("decode commit: %w", err)
	}
	return c, nil
}

// CommitGetter resolves a commit's bytes by hash.
type CommitGetter interface {
	Get(hash Hash) ([]byte, error)
}

// WalkHistory follows Parent pointers from head, stopping at NullHash
// (the initial commit). It never attempts to fetch the zero hash
// (spec.md §4.2, testable property §8.10).
func WalkHistory(store CommitGetter, head Hash, fn func(hash Hash, c Commit) (stop bool, err error)) error {
	cur := head
	for !cur.IsNull() {
		data, err := store.Get(cur)
		if err != nil {
			return fmt.Errorf("walk history at %s: %w", cur, err)
		}
		c, err := DecodeCommit(data)
		if err != nil {
			return err
		}
		stop, err := fn(cur, c)
		if err != nil || stop {
			return err
		}
		cur = c.Parent
	}
	return nil
}
