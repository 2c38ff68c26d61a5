package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgcudahy/sos/internal/digraph"
)

func idx(i int) *int { return &i }

func TestNode_DependsOn_ProduceConsume(t *testing.T) {
	a := &Node{ID: "a", Index: idx(0), OutputTargets: digraph.NewTargetSet(digraph.NewFileTarget("a.bam"))}
	b := &Node{ID: "b", Index: idx(1), InputTargets: digraph.NewTargetSet(digraph.NewFileTarget("a.bam"))}

	assert.True(t, b.DependsOn(a))
	assert.False(t, a.DependsOn(b))
}

func TestNode_DependsOn_UndeterminedInputFollowsPredecessor(t *testing.T) {
	a := &Node{ID: "a", Index: idx(0)}
	b := &Node{ID: "b", Index: idx(1), InputTargets: digraph.Undetermined()}
	c := &Node{ID: "c", Index: idx(2), InputTargets: digraph.Undetermined()}

	assert.True(t, b.DependsOn(a))
	assert.False(t, c.DependsOn(a), "undetermined step only depends on its immediate predecessor")
	assert.True(t, c.DependsOn(b))
}

func TestNode_DependsOn_ChangeContextAffectsLaterSteps(t *testing.T) {
	a := &Node{ID: "a", Index: idx(0), ChangeContext: true}
	b := &Node{ID: "b", Index: idx(1)}
	c := &Node{ID: "c", Index: idx(2)}

	assert.True(t, b.DependsOn(a))
	assert.True(t, c.DependsOn(a))
	assert.False(t, a.DependsOn(b))
}

func TestNode_DependsOn_CompletedNodeHasNoDependencies(t *testing.T) {
	a := &Node{ID: "a", Index: idx(0), OutputTargets: digraph.NewTargetSet(digraph.NewFileTarget("a.bam"))}
	b := &Node{ID: "b", Index: idx(1), InputTargets: digraph.NewTargetSet(digraph.NewFileTarget("a.bam"))}
	b.setStatus(NodeStatusCompleted)

	assert.False(t, b.DependsOn(a))
}

func TestNode_DependsOn_UndeterminedOutputNeverSatisfiesProduceConsume(t *testing.T) {
	a := &Node{ID: "a", Index: idx(0), OutputTargets: digraph.Undetermined()}
	b := &Node{ID: "b", Index: idx(1), InputTargets: digraph.NewTargetSet(digraph.NewFileTarget("a.bam"))}

	assert.False(t, b.DependsOn(a))
}
