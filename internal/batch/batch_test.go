package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainyhq/brainy/internal/types"
)

type fakeCache struct {
	nouns map[string]types.Noun
}

func (f *fakeCache) GetNoun(id string) (types.Noun, bool) {
	n, ok := f.nouns[id]
	return n, ok
}

type fakeResolver struct {
	types map[string]types.NounType
}

func (f *fakeResolver) NounType(id string) (types.NounType, bool) {
	t, ok := f.types[id]
	return t, ok
}

type fakeBulk struct {
	calls int
	data  map[types.NounType]map[string]types.Noun
}

func (f *fakeBulk) BulkGetNouns(_ context.Context, nounType types.NounType, ids []string) (map[string]types.Noun, error) {
	f.calls++
	out := make(map[string]types.Noun)
	for _, id := range ids {
		if n, ok := f.data[nounType][id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type fakeParent struct {
	nouns map[string]types.Noun
}

func (f *fakeParent) ResolveFromParent(_ context.Context, id string) (types.Noun, bool, error) {
	n, ok := f.nouns[id]
	return n, ok, nil
}

func TestGetEmptyIDsReturnsEmptyMapWithoutBackendCalls(t *testing.T) {
	bulk := &fakeBulk{}
	result, err := Get(context.Background(), nil, nil, bulk, nil, nil, Options{})
	require.NoError(t, err)
	require.Empty(t, result)
	require.Equal(t, 0, bulk.calls)
}

func TestGetDuplicateIDsCollapseToOneEntry(t *testing.T) {
	cache := &fakeCache{nouns: map[string]types.Noun{"n1": {ID: "n1"}}}
	result, err := Get(context.Background(), cache, nil, &fakeBulk{}, nil, []string{"n1", "n1", "n1"}, Options{})
	require.NoError(t, err)
	require.Len(t, result, 1)
}

func TestGetPrefersCacheOverBulkSource(t *testing.T) {
	cache := &fakeCache{nouns: map[string]types.Noun{"n1": {ID: "n1", Metadata: types.Metadata{"dirty": true}}}}
	resolver := &fakeResolver{types: map[string]types.NounType{"n1": types.NounDocument}}
	bulk := &fakeBulk{data: map[types.NounType]map[string]types.Noun{
		types.NounDocument: {"n1": {ID: "n1", Metadata: types.Metadata{"dirty": false}}},
	}}

	result, err := Get(context.Background(), cache, resolver, bulk, nil, []string{"n1"}, Options{})
	require.NoError(t, err)
	require.Equal(t, true, result["n1"].Metadata["dirty"])
	require.Equal(t, 0, bulk.calls, "cache hit must not reach the bulk source")
}

func TestGetGroupsByTypeIntoSingleBulkCallPerType(t *testing.T) {
	resolver := &fakeResolver{types: map[string]types.NounType{
		"d1": types.NounDocument, "d2": types.NounDocument, "p1": types.NounPerson,
	}}
	bulk := &fakeBulk{data: map[types.NounType]map[string]types.Noun{
		types.NounDocument: {"d1": {ID: "d1"}, "d2": {ID: "d2"}},
		types.NounPerson:   {"p1": {ID: "p1"}},
	}}

	result, err := Get(context.Background(), nil, resolver, bulk, nil, []string{"d1", "d2", "p1"}, Options{})
	require.NoError(t, err)
	require.Len(t, result, 3)
	require.Equal(t, 2, bulk.calls, "one bulk call per distinct type")
}

func TestGetFallsBackToParentForMissingOrUntypedIDs(t *testing.T) {
	resolver := &fakeResolver{types: map[string]types.NounType{}}
	bulk := &fakeBulk{data: map[types.NounType]map[string]types.Noun{}}
	parent := &fakeParent{nouns: map[string]types.Noun{"inherited": {ID: "inherited"}}}

	result, err := Get(context.Background(), nil, resolver, bulk, parent, []string{"inherited", "nowhere"}, Options{})
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Contains(t, result, "inherited")
}

func TestGetSilentlyDropsIDsNotFoundAnywhere(t *testing.T) {
	result, err := Get(context.Background(), nil, nil, &fakeBulk{}, nil, []string{"ghost"}, Options{})
	require.NoError(t, err)
	require.Empty(t, result)
}

func TestGetStripsVectorsUnlessRequested(t *testing.T) {
	cache := &fakeCache{nouns: map[string]types.Noun{"n1": {ID: "n1", Vector: []float32{1, 2, 3}}}}

	withoutVectors, err := Get(context.Background(), cache, nil, &fakeBulk{}, nil, []string{"n1"}, Options{})
	require.NoError(t, err)
	require.Nil(t, withoutVectors["n1"].Vector)

	withVectors, err := Get(context.Background(), cache, nil, &fakeBulk{}, nil, []string{"n1"}, Options{IncludeVectors: true})
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, withVectors["n1"].Vector)
}

func TestGetChunksLargeTypeGroupsAcrossMultipleBulkCalls(t *testing.T) {
	ids := make([]string, defaultBatchSize+10)
	types_ := map[string]types.NounType{}
	data := map[string]types.Noun{}
	for i := range ids {
		id := string(rune('a')) + string(rune(i))
		ids[i] = id
		types_[id] = types.NounThing
		data[id] = types.Noun{ID: id}
	}
	resolver := &fakeResolver{types: types_}
	bulk := &fakeBulk{data: map[types.NounType]map[string]types.Noun{types.NounThing: data}}

	result, err := Get(context.Background(), nil, resolver, bulk, nil, ids, Options{})
	require.NoError(t, err)
	require.Len(t, result, len(ids))
	require.Equal(t, 2, bulk.calls)
}
