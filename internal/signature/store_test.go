package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s := newTargetStore(2)
	s.Set("a", TargetRecord{Hash: "a"})
	s.Set("b", TargetRecord{Hash: "b"})
	s.Set("c", TargetRecord{Hash: "c"})

	_, ok := s.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted once capacity was exceeded")

	rec, ok := s.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", rec.Hash)
}

func TestWorkflowStore_WriteClearsPlaceholder(t *testing.T) {
	s := newWorkflowStore()
	s.MarkPlaceholder("wf", "out.txt")
	assert.Equal(t, []string{"out.txt"}, s.Placeholders("wf"))

	s.Write("wf", WorkflowRecord{ID: "out.txt"})
	assert.Empty(t, s.Placeholders("wf"))
	assert.Len(t, s.Records("wf"), 1)
}

func TestWorkflowStore_Clear(t *testing.T) {
	s := newWorkflowStore()
	s.Write("wf", WorkflowRecord{ID: "out.txt"})
	s.Clear()
	assert.Empty(t, s.Records("wf"))
}
