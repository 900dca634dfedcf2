// Package metaindex implements the Metadata Field Index (spec.md §4.6): an
// in-memory inverted postings index over entity metadata fields,
// supporting the operator grammar {$eq,$ne,$gt,$gte,$lt,$lte,$in,$contains,
// $and,$or}. Updates are symmetric: the old posting set for an entity is
// removed across every field it was indexed under before the new set is
// inserted, which is what the teacher's metadata layer calls "the v7.5
// fix" (internal/storage/metadata.go) to stop posting lists from growing
// unbounded across repeated updates.
package metaindex

import (
	"regexp"
	"sort"
	"sync"

	"github.com/brainyhq/brainy/internal/types"
)

// validFieldKeyRe bounds which metadata keys can be indexed: the same
// shape the teacher's internal/storage/metadata.go validated JSON path
// expressions with, reused here since a field name flows into this
// index's own postings map keys and eventually into `where` clauses.
var validFieldKeyRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// ValidFieldKey reports whether key is safe to index: it must start with
// a letter or underscore and contain only alphanumerics, underscores, and
// dots (for nested paths like "jira.sprint").
func ValidFieldKey(key string) bool {
	return validFieldKeyRe.MatchString(key)
}

// postingEntry pairs a comparable value with the entity id that produced
// it, kept sorted per field to support range queries by binary search.
type postingEntry struct {
	value interface{}
	id    string
}

// Index is the metadata field index. Safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	// exact holds field -> normalized value key -> set of ids, used for
	// $eq/$in/$ne and as the candidate source for $contains.
	exact map[string]map[string]map[string]bool

	// sorted holds field -> postings sorted by value ascending, used for
	// $gt/$gte/$lt/$lte range queries.
	sorted map[string][]postingEntry

	// indexedFields remembers exactly what this entity contributed to the
	// index (field -> normalized value keys), so Update can remove the
	// precise old posting set rather than re-deriving it.
	indexedFields map[string]map[string][]string

	// allIDs is every currently indexed entity id (even with empty metadata),
	// used to resolve $ne against entities missing the field entirely.
	allIDs map[string]bool
}

// New returns an empty metadata field index.
func New() *Index {
	return &Index{
		exact:         make(map[string]map[string]map[string]bool),
		sorted:        make(map[string][]postingEntry),
		indexedFields: make(map[string]map[string][]string),
		allIDs:        make(map[string]bool),
	}
}

// Update (re)indexes id's metadata. If id was previously indexed, its old
// postings are removed first across every field they touched — the
// symmetric removal spec.md §4.6 requires.
func (idx *Index) Update(id string, metadata types.Metadata) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
	idx.allIDs[id] = true
	idx.insertLocked(id, metadata)
}

// Remove deletes id's postings and forgets it entirely (used when an
// entity is deleted, including a tombstoning delete).
func (idx *Index) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
	delete(idx.allIDs, id)
}

func (idx *Index) removeLocked(id string) {
	fields, ok := idx.indexedFields[id]
	if !ok {
		return
	}
	for field, keys := range fields {
		exactByField := idx.exact[field]
		for _, key := range keys {
			if set, ok := exactByField[key]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(exactByField, key)
				}
			}
		}
		idx.sorted[field] = removeEntries(idx.sorted[field], id)
	}
	delete(idx.indexedFields, id)
}

func (idx *Index) insertLocked(id string, metadata types.Metadata) {
	fields := make(map[string][]string, len(metadata))
	for field, value := range metadata {
		if !ValidFieldKey(field) {
			continue
		}
		keys := idx.indexValueLocked(field, id, value)
		fields[field] = keys
	}
	idx.indexedFields[id] = fields
}

// indexValueLocked inserts one field's value (and, for arrays, each
// element individually so $contains can hit a single posting) and returns
// every normalized key that was written, for later symmetric removal.
func (idx *Index) indexValueLocked(field, id string, value interface{}) []string {
	if idx.exact[field] == nil {
		idx.exact[field] = make(map[string]map[string]bool)
	}

	var keys []string
	add := func(v interface{}) {
		key := normalizeKey(v)
		set := idx.exact[field][key]
		if set == nil {
			set = make(map[string]bool)
			idx.exact[field][key] = set
		}
		set[id] = true
		keys = append(keys, key)
		idx.sorted[field] = insertSorted(idx.sorted[field], postingEntry{value: v, id: id})
	}

	add(value)
	if arr, ok := value.([]interface{}); ok {
		for _, elem := range arr {
			add(elem)
		}
	}
	return keys
}

func removeEntries(entries []postingEntry, id string) []postingEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

func insertSorted(entries []postingEntry, e postingEntry) []postingEntry {
	i := sort.Search(len(entries), func(i int) bool {
		return compare(entries[i].value, e.value) >= 0
	})
	entries = append(entries, postingEntry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	return entries
}
