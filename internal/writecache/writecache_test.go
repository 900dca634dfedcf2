package writecache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingUpdater struct {
	id       string
	priority int
	calls    *[]string
}

func (r recordingUpdater) ID() string    { return r.id }
func (r recordingUpdater) Priority() int { return r.priority }
func (r recordingUpdater) OnStage(id string, value []byte) error {
	*r.calls = append(*r.calls, r.id)
	return nil
}

func TestReadAfterWriteBeforeFlush(t *testing.T) {
	c := New()
	require.NoError(t, c.Stage("noun-1", []byte("payload")))

	v, ok := c.Get("noun-1")
	require.True(t, ok)
	require.Equal(t, "payload", string(v))
}

func TestAckRemovesOnlyThatEntry(t *testing.T) {
	c := New()
	require.NoError(t, c.Stage("a", []byte("1")))
	require.NoError(t, c.Stage("b", []byte("2")))

	c.Ack("a")

	_, ok := c.Get("a")
	require.False(t, ok)
	v, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, "2", string(v))
}

func TestFlushClearsEverything(t *testing.T) {
	c := New()
	require.NoError(t, c.Stage("a", []byte("1")))
	require.NoError(t, c.Stage("b", []byte("2")))
	c.Flush()
	require.Equal(t, 0, c.Len())
}

func TestUpdatersRunInPriorityOrder(t *testing.T) {
	c := New()
	var calls []string
	c.Register(recordingUpdater{id: "graph", priority: 30, calls: &calls})
	c.Register(recordingUpdater{id: "hnsw", priority: 10, calls: &calls})
	c.Register(recordingUpdater{id: "meta", priority: 20, calls: &calls})

	require.NoError(t, c.Stage("x", []byte("v")))
	require.Equal(t, []string{"hnsw", "meta", "graph"}, calls)
}

type failingUpdater struct{ id string }

func (f failingUpdater) ID() string    { return f.id }
func (f failingUpdater) Priority() int { return 0 }
func (f failingUpdater) OnStage(id string, value []byte) error {
	return fmt.Errorf("%s: boom", f.id)
}

func TestStageRunsAllUpdatersEvenAfterAFailure(t *testing.T) {
	c := New()
	var calls []string
	c.Register(failingUpdater{id: "first"})
	c.Register(recordingUpdater{id: "second", priority: 1, calls: &calls})

	err := c.Stage("x", []byte("v"))
	require.Error(t, err)
	require.Equal(t, []string{"second"}, calls)
}
