package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgcudahy/sos/internal/digraph"
)

type recordingExecutor struct {
	mu      sync.Mutex
	ran     []string
	err     error
	results map[string]ExecutionResult
}

func (e *recordingExecutor) Execute(_ context.Context, node *Node, _ map[string]digraph.Value) (ExecutionResult, error) {
	e.mu.Lock()
	e.ran = append(e.ran, node.Name)
	e.mu.Unlock()
	if e.err != nil && node.Name == "call" {
		return ExecutionResult{}, e.err
	}
	if r, ok := e.results[node.Name]; ok {
		return r, nil
	}
	return ExecutionResult{Inputs: node.InputTargets, Outputs: node.OutputTargets}, nil
}

func TestDriver_Run_ExecutesInDependencyOrder(t *testing.T) {
	g := NewGraph()
	g.AddStep("n1", "align", idx(0), digraph.NewTargetSet(), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("a.bam")), false)
	g.AddStep("n2", "call", idx(1), digraph.NewTargetSet(digraph.NewFileTarget("a.bam")), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("a.vcf")), false)
	g.Build()

	exec := &recordingExecutor{}
	progress := make(chan ProgressEvent, 64)
	d := NewDriver(g, exec, 2, progress)

	err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"align", "call"}, exec.ran)

	close(progress)
	var sawDone bool
	for ev := range progress {
		if ev.Kind == ProgressDone {
			sawDone = true
		}
	}
	assert.True(t, sawDone)
}

func TestDriver_Run_PropagatesStepFailure(t *testing.T) {
	g := NewGraph()
	g.AddStep("n1", "align", idx(0), digraph.NewTargetSet(), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("a.bam")), false)
	g.AddStep("n2", "call", idx(1), digraph.NewTargetSet(digraph.NewFileTarget("a.bam")), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("a.vcf")), false)
	g.Build()

	wantErr := errors.New("boom")
	exec := &recordingExecutor{err: wantErr}
	d := NewDriver(g, exec, 2, nil)

	err := d.Run(context.Background(), nil)
	require.ErrorIs(t, err, wantErr)
}

func TestDriver_Run_NonBlockingFailureDoesNotAbort(t *testing.T) {
	g := NewGraph()
	n1 := g.AddStep("n1", "align", idx(0), digraph.NewTargetSet(), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("a.bam")), false)
	n1.NonBlocking = true
	g.AddStep("n2", "report", idx(1), digraph.NewTargetSet(), digraph.NewTargetSet(), digraph.NewTargetSet(), false)
	g.Build()

	wantErr := errors.New("boom")
	d := NewDriver(g, &failingExecutor{fail: "align", err: wantErr}, 2, nil)

	err := d.Run(context.Background(), nil)
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, NodeStatusCompleted, findNode(g, "report").Status())
}

type failingExecutor struct {
	fail string
	err  error
}

func (e *failingExecutor) Execute(_ context.Context, node *Node, _ map[string]digraph.Value) (ExecutionResult, error) {
	if node.Name == e.fail {
		return ExecutionResult{}, e.err
	}
	return ExecutionResult{Inputs: node.InputTargets, Outputs: node.OutputTargets}, nil
}

func findNode(g *Graph, name string) *Node {
	for _, n := range g.Nodes() {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func TestDriver_Run_ReplacesUndeterminedTargetsAndReEdges(t *testing.T) {
	g := NewGraph()
	g.AddStep("n1", "discover", idx(0), digraph.NewTargetSet(), digraph.NewTargetSet(), digraph.Undetermined(), false)
	g.AddStep("n2", "consume", idx(1), digraph.NewTargetSet(digraph.NewFileTarget("out.txt")), digraph.NewTargetSet(), digraph.NewTargetSet(), false)
	g.Build()

	exec := &recordingExecutor{
		results: map[string]ExecutionResult{
			"discover": {
				Inputs:  digraph.NewTargetSet(),
				Outputs: digraph.NewTargetSet(digraph.NewFileTarget("out.txt")),
			},
		},
	}
	d := NewDriver(g, exec, 1, nil)

	err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"discover", "consume"}, exec.ran)
}

func TestDriver_Run_SkipsOnSignatureMatch(t *testing.T) {
	g := NewGraph()
	g.AddStep("n1", "align", idx(0), digraph.NewTargetSet(), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("a.bam")), false)
	g.Build()

	src := &fakeSignatureSource{hashes: map[string]string{}}
	exec := &recordingExecutor{}
	d := NewDriver(g, exec, 1, nil,
		WithSignatures(src),
		WithFileProbe(func(string) bool { return true }),
	)

	// First run: no prior hash recorded, so it executes and pushes one.
	require.NoError(t, d.Run(context.Background(), nil))
	require.Equal(t, []string{"align"}, exec.ran)

	g2 := NewGraph()
	n := g2.AddStep("n1", "align", idx(0), digraph.NewTargetSet(), digraph.NewTargetSet(), digraph.NewTargetSet(digraph.NewFileTarget("a.bam")), false)
	n.Statement = ""
	d2 := NewDriver(g2, exec, 1, nil,
		WithSignatures(src),
		WithFileProbe(func(string) bool { return true }),
	)
	require.NoError(t, d2.Run(context.Background(), nil))
	require.Equal(t, []string{"align"}, exec.ran)
}

type fakeSignatureSource struct {
	mu     sync.Mutex
	hashes map[string]string
}

func (s *fakeSignatureSource) StepHash(_ context.Context, step string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[step]
	return h, ok
}

func (s *fakeSignatureSource) PushStepHash(step, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[step] = hash
}
