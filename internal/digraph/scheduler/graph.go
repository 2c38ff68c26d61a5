package scheduler

import (
	"fmt"
	"io"
	"sync"

	"github.com/pgcudahy/sos/internal/digraph"
)

// SchedulingFault is raised by FindExecutable when no node is ready to run
// but the graph is not yet fully completed — this signals a cycle or a
// target that nothing in the workflow can ever produce.
type SchedulingFault struct {
	NodeID string
}

func (e *SchedulingFault) Error() string {
	return fmt.Sprintf("scheduler: node %s is not completed yet has unresolved dependencies", e.NodeID)
}

// Graph is the dynamic dependency DAG: nodes in the order they were added
// (the order FindExecutable scans them in, giving deterministic tie
// breaking) plus the predecessor edges Build derives from DependsOn.
type Graph struct {
	mu           sync.RWMutex
	nodes        []*Node
	predecessors map[*Node][]*Node

	allDependentFiles map[string][]string
	allOutputFiles    map[string][]string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		predecessors:      map[*Node][]*Node{},
		allDependentFiles: map[string][]string{},
		allOutputFiles:    map[string][]string{},
	}
}

// AddStep appends a new node for one workflow step and records its file
// targets for later dangling-target detection.
func (g *Graph) AddStep(id, name string, index *int, input, depends, output digraph.TargetSet, changeContext bool) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := &Node{
		ID:             id,
		Name:           name,
		Index:          index,
		InputTargets:   input,
		DependsTargets: depends,
		OutputTargets:  output,
		ChangeContext:  changeContext,
	}
	g.nodes = append(g.nodes, node)

	if !input.IsUndetermined() {
		for _, t := range input.Items() {
			g.allDependentFiles[t.String()] = append(g.allDependentFiles[t.String()], name)
		}
	}
	if !depends.IsUndetermined() {
		for _, t := range depends.Items() {
			g.allDependentFiles[t.String()] = append(g.allDependentFiles[t.String()], name)
		}
	}
	if !output.IsUndetermined() {
		for _, t := range output.Items() {
			g.allOutputFiles[t.String()] = append(g.allOutputFiles[t.String()], name)
		}
	}
	return node
}

// Build computes the predecessor edges for every node by evaluating
// DependsOn pairwise, exactly as SoS_DAG.build's O(n^2) pass does. It may
// be called again after node status changes to re-derive edges, though in
// practice FindExecutable's in-edge check already accounts for completion.
func (g *Graph) Build() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.predecessors = map[*Node][]*Node{}
	for _, a := range g.nodes {
		for _, b := range g.nodes {
			if a == b {
				continue
			}
			if a.DependsOn(b) {
				g.predecessors[a] = append(g.predecessors[a], b)
			}
		}
	}
}

// ApplyExecutionResult replaces n's input and output target sets with what
// an Executor actually observed and re-derives every edge in the graph:
// edges are a pure function of node state (see DependsOn), so a change to
// any node's targets can change any other node's predecessors, not only
// those of nodes that were themselves Undetermined.
func (g *Graph) ApplyExecutionResult(n *Node, inputs, outputs digraph.TargetSet) {
	g.mu.Lock()
	n.InputTargets = inputs
	n.OutputTargets = outputs
	g.mu.Unlock()
	g.Build()
}

// FindExecutable returns the first not-yet-started node whose predecessors
// have all completed, in insertion order. It returns (nil, nil) once every
// node has completed, and a *SchedulingFault if no node is ready yet some
// remain incomplete — an unsatisfiable dependency.
func (g *Graph) FindExecutable() (*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, node := range g.nodes {
		if node.Status() != NodeStatusNone {
			continue
		}
		ready := true
		for _, pred := range g.predecessors[node] {
			if pred.Status() != NodeStatusCompleted {
				ready = false
				break
			}
		}
		if ready {
			return node, nil
		}
	}
	for _, node := range g.nodes {
		if node.Status() != NodeStatusCompleted {
			return nil, &SchedulingFault{NodeID: node.ID}
		}
	}
	return nil, nil
}

// Dangling returns the string form of every target that some node depends
// on, that no node produces, and that does not currently exist on disk per
// probe.
func (g *Graph) Dangling(probe func(target string) bool) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []string
	for target := range g.allDependentFiles {
		if _, produced := g.allOutputFiles[target]; produced {
			continue
		}
		if probe(target) {
			continue
		}
		out = append(out, target)
	}
	return out
}

// Dump writes a human-readable listing of every node's status and targets,
// the Go counterpart of SoS_DAG.show_nodes/SoS_Node.show used by the
// `sos parse --debug` CLI flag.
func (g *Graph) Dump(w io.Writer) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, n := range g.nodes {
		idx := "-"
		if n.Index != nil {
			idx = fmt.Sprintf("%d", *n.Index)
		}
		fmt.Fprintf(w, "%s (%s, %s): input %s, depends %s, output %s\n",
			n.Name, idx, n.Status(), n.InputTargets, n.DependsTargets, n.OutputTargets)
	}
}

// Nodes returns the graph's nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// MarkRunning transitions node to running.
func (g *Graph) MarkRunning(n *Node) { n.setStatus(NodeStatusRunning) }

// MarkCompleted transitions node to completed.
func (g *Graph) MarkCompleted(n *Node) { n.setStatus(NodeStatusCompleted) }

// MarkFailed transitions node to failed.
func (g *Graph) MarkFailed(n *Node) { n.setStatus(NodeStatusFailed) }
