package engine

import (
	"context"

	"github.com/brainyhq/brainy/internal/types"
)

// Failure is one failed item in a batch mutation, carrying the input
// index so a caller can correlate it back to the request it submitted
// (spec.md §7 "batch operations return {successful, failed}").
type Failure struct {
	Index int
	Err   error
}

// AddMany applies Add to each item in order. When continueOnError is
// false, the first failure stops the batch and every remaining item is
// left unattempted (not reported as failed). When true, every item is
// attempted regardless of earlier failures.
func (s *Store) AddMany(ctx context.Context, items []types.NounInput, continueOnError bool) ([]string, []Failure) {
	var ids []string
	var failures []Failure
	for i, in := range items {
		n, err := s.Add(ctx, in)
		if err != nil {
			failures = append(failures, Failure{Index: i, Err: err})
			if !continueOnError {
				break
			}
			continue
		}
		ids = append(ids, n.ID)
	}
	return ids, failures
}

// UpdateMany applies Update to each item in order, same continueOnError
// semantics as AddMany.
func (s *Store) UpdateMany(ctx context.Context, updates []types.NounUpdate, continueOnError bool) ([]string, []Failure) {
	var ids []string
	var failures []Failure
	for i, in := range updates {
		n, err := s.Update(ctx, in)
		if err != nil {
			failures = append(failures, Failure{Index: i, Err: err})
			if !continueOnError {
				break
			}
			continue
		}
		ids = append(ids, n.ID)
	}
	return ids, failures
}

// DeleteMany tombstones each id in order, same continueOnError semantics
// as AddMany.
func (s *Store) DeleteMany(ctx context.Context, ids []string, actor, reason string, continueOnError bool) ([]string, []Failure) {
	var ok []string
	var failures []Failure
	for i, id := range ids {
		if err := s.Delete(ctx, id, actor, reason); err != nil {
			failures = append(failures, Failure{Index: i, Err: err})
			if !continueOnError {
				break
			}
			continue
		}
		ok = append(ok, id)
	}
	return ok, failures
}

// RelateMany applies Relate to each item in order, same continueOnError
// semantics as AddMany.
func (s *Store) RelateMany(ctx context.Context, items []types.VerbInput, continueOnError bool) ([]string, []Failure) {
	var ids []string
	var failures []Failure
	for i, in := range items {
		v, err := s.Relate(ctx, in)
		if err != nil {
			failures = append(failures, Failure{Index: i, Err: err})
			if !continueOnError {
				break
			}
			continue
		}
		ids = append(ids, v.ID)
	}
	return ids, failures
}
