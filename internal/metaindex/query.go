package metaindex

import (
	"sort"

	"github.com/brainyhq/brainy/internal/types"
)

// Query evaluates a where clause against the index and returns matching
// entity ids sorted ascending, for deterministic downstream fusion
// (spec.md §4.10's determinism requirement applies transitively).
func (idx *Index) Query(where types.WhereClause) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	set := idx.evalLocked(where)
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// evalLocked walks the where clause the way the teacher's query.Evaluator
// walks a parsed AST (internal/query/evaluator.go: per-node-kind dispatch,
// AND as intersection, OR as union) — except the "AST" here is already the
// structured WhereClause from types.ValidateWhereClause, so there is no
// lexer/parser stage to adapt, only the evaluation dispatch.
func (idx *Index) evalLocked(where types.WhereClause) map[string]bool {
	if and, ok := where[types.OpAnd]; ok {
		clauses, _ := and.([]types.WhereClause)
		if len(clauses) == 0 {
			return idx.universeLocked()
		}
		result := idx.evalLocked(clauses[0])
		for _, c := range clauses[1:] {
			result = intersect(result, idx.evalLocked(c))
		}
		return result
	}
	if or, ok := where[types.OpOr]; ok {
		clauses, _ := or.([]types.WhereClause)
		result := make(map[string]bool)
		for _, c := range clauses {
			for id := range idx.evalLocked(c) {
				result[id] = true
			}
		}
		return result
	}

	// Implicit AND across every other field in this map.
	var result map[string]bool
	first := true
	for field, clause := range where {
		matched := idx.evalFieldLocked(field, clause)
		if first {
			result = matched
			first = false
		} else {
			result = intersect(result, matched)
		}
	}
	if result == nil {
		return idx.universeLocked()
	}
	return result
}

func (idx *Index) evalFieldLocked(field string, clause interface{}) map[string]bool {
	ops, isOpMap := clause.(map[string]interface{})
	if !isOpMap {
		return idx.eqLocked(field, clause)
	}

	var result map[string]bool
	first := true
	combine := func(matched map[string]bool) {
		if first {
			result = matched
			first = false
		} else {
			result = intersect(result, matched)
		}
	}

	for op, operand := range ops {
		switch op {
		case types.OpEq:
			combine(idx.eqLocked(field, operand))
		case types.OpNe:
			combine(idx.neLocked(field, operand))
		case types.OpGt:
			combine(idx.rangeLocked(field, operand, false, false))
		case types.OpGte:
			combine(idx.rangeLocked(field, operand, false, true))
		case types.OpLt:
			combine(idx.rangeLocked(field, operand, true, false))
		case types.OpLte:
			combine(idx.rangeLocked(field, operand, true, true))
		case types.OpIn:
			combine(idx.inLocked(field, operand))
		case types.OpContains:
			combine(idx.eqLocked(field, operand))
		default:
			combine(make(map[string]bool))
		}
	}
	if result == nil {
		return make(map[string]bool)
	}
	return result
}

func (idx *Index) eqLocked(field string, value interface{}) map[string]bool {
	set := idx.exact[field][normalizeKey(value)]
	out := make(map[string]bool, len(set))
	for id := range set {
		out[id] = true
	}
	return out
}

func (idx *Index) neLocked(field string, value interface{}) map[string]bool {
	matched := idx.eqLocked(field, value)
	out := make(map[string]bool)
	for id := range idx.allIDs {
		if !matched[id] {
			out[id] = true
		}
	}
	return out
}

func (idx *Index) inLocked(field string, values interface{}) map[string]bool {
	out := make(map[string]bool)
	list, ok := values.([]interface{})
	if !ok {
		return out
	}
	for _, v := range list {
		for id := range idx.eqLocked(field, v) {
			out[id] = true
		}
	}
	return out
}

func (idx *Index) rangeLocked(field string, bound interface{}, upper, inclusive bool) map[string]bool {
	entries := idx.sorted[field]
	out := make(map[string]bool)
	i := sort.Search(len(entries), func(i int) bool { return compare(entries[i].value, bound) >= 0 })

	if upper {
		end := i
		if inclusive {
			for end < len(entries) && compare(entries[end].value, bound) == 0 {
				end++
			}
		}
		for _, e := range entries[:end] {
			out[e.id] = true
		}
		return out
	}

	start := i
	if !inclusive {
		for start < len(entries) && compare(entries[start].value, bound) == 0 {
			start++
		}
	}
	for _, e := range entries[start:] {
		out[e.id] = true
	}
	return out
}

func (idx *Index) universeLocked() map[string]bool {
	out := make(map[string]bool, len(idx.allIDs))
	for id := range idx.allIDs {
		out[id] = true
	}
	return out
}

func intersect(a, b map[string]bool) map[string]bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	out := make(map[string]bool, len(a))
	for id := range a {
		if b[id] {
			out[id] = true
		}
	}
	return out
}
