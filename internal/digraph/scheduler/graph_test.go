package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgcudahy/sos/internal/digraph"
)

func TestGraph_FindExecutable_LinearChain(t *testing.T) {
	g := NewGraph()
	n1 := g.AddStep("n1", "align", idx(0), digraph.NewTargetSet(), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("a.bam")), false)
	n2 := g.AddStep("n2", "call", idx(1), digraph.NewTargetSet(digraph.NewFileTarget("a.bam")), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("a.vcf")), false)
	g.Build()

	next, err := g.FindExecutable()
	require.NoError(t, err)
	require.Equal(t, n1, next)

	g.MarkCompleted(n1)
	next, err = g.FindExecutable()
	require.NoError(t, err)
	require.Equal(t, n2, next)

	g.MarkCompleted(n2)
	next, err = g.FindExecutable()
	require.NoError(t, err)
	require.Nil(t, next)
}

func TestGraph_FindExecutable_OrdersProducerBeforeConsumer(t *testing.T) {
	g := NewGraph()
	n1 := g.AddStep("n1", "a", idx(0), digraph.NewTargetSet(digraph.NewFileTarget("shared.txt")), digraph.NewTargetSet(), digraph.NewTargetSet(), false)
	n2 := g.AddStep("n2", "b", idx(1), digraph.NewTargetSet(), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("shared.txt")), false)
	g.Build()

	next, err := g.FindExecutable()
	require.NoError(t, err)
	require.Equal(t, n2, next, "n2 produces what n1 consumes, so n2 has no predecessor and runs first")
	g.MarkCompleted(n2)
	next, err = g.FindExecutable()
	require.NoError(t, err)
	require.Equal(t, n1, next)
}

func TestGraph_FindExecutable_MutualDependencyFaults(t *testing.T) {
	g := NewGraph()
	g.AddStep("n1", "a", idx(0),
		digraph.NewTargetSet(digraph.NewFileTarget("b.out")), digraph.NewTargetSet(),
		digraph.NewTargetSet(digraph.NewFileTarget("a.out")), false)
	g.AddStep("n2", "b", idx(1),
		digraph.NewTargetSet(digraph.NewFileTarget("a.out")), digraph.NewTargetSet(),
		digraph.NewTargetSet(digraph.NewFileTarget("b.out")), false)
	g.Build()

	_, err := g.FindExecutable()
	require.Error(t, err)
	var fault *SchedulingFault
	require.ErrorAs(t, err, &fault)
}

func TestGraph_Dangling(t *testing.T) {
	g := NewGraph()
	g.AddStep("n1", "a", idx(0), digraph.NewTargetSet(digraph.NewFileTarget("external.txt")), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("out.txt")), false)

	dangling := g.Dangling(func(string) bool { return false })
	assert.Contains(t, dangling, "external.txt")
	assert.NotContains(t, dangling, "out.txt")
}
