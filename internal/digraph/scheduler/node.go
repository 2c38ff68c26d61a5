package scheduler

import (
	"sync"

	"github.com/pgcudahy/sos/internal/digraph"
)

// Node is one job in the dependency graph — the scheduler's counterpart of
// a materialised workflow step. Index is the step's position in the
// workflow body (nil for a node instantiated on demand to satisfy a
// dynamic target, matching an auxiliary section's lack of a header index).
type Node struct {
	ID             string
	Name           string
	Index          *int
	InputTargets   digraph.TargetSet
	DependsTargets digraph.TargetSet
	OutputTargets  digraph.TargetSet
	ChangeContext  bool
	// Statement is the step's action body, the shell text an Executor
	// runs when this node becomes ready.
	Statement string
	// Skip marks a node that must never be executed, regardless of
	// signature state, set from the section's `skip` option.
	Skip bool
	// NonBlocking, when true, tells the driver that a failure of this
	// node must not abort the run — other branches keep executing and
	// the failure is only reported once the run finishes. Derived from
	// the section's `blocking` option (absent or truthy means blocking,
	// the default; `blocking=false` means non-blocking).
	NonBlocking bool
	// NonConcurrent marks a node that must not run while any other node
	// is running, set from the section's `nonconcurrent` option.
	NonConcurrent bool

	mu     sync.Mutex
	status NodeStatus
}

// Status returns the node's current execution state.
func (n *Node) Status() NodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

func (n *Node) setStatus(s NodeStatus) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()
}

// DependsOn reports whether n must wait for other to complete before it
// can run. This is a direct translation of SoS_Node.depends_on's three
// numbered rules:
//
//	E1: other changes context (e.g. via an alias option) and precedes n —
//	    every later step depends on a context change.
//	E2: n's inputs are undetermined and other is the immediately preceding
//	    step — an undetermined step must run strictly after its
//	    predecessor, since it cannot otherwise be ordered.
//	E3: other produces a target that n consumes as input or dependency.
//
// A node that has already completed depends on nothing further.
func (n *Node) DependsOn(other *Node) bool {
	if n.Status() == NodeStatusCompleted {
		return false
	}

	// E1: change-of-context ordering.
	if other.ChangeContext && other.Index != nil && n.Index != nil && *other.Index < *n.Index {
		return true
	}

	// E2: undetermined input must follow its immediate predecessor.
	if n.InputTargets.IsUndetermined() && other.Index != nil && n.Index != nil && *other.Index == *n.Index-1 {
		return true
	}

	// E3: produce/consume relationship via input or depends targets.
	if !other.OutputTargets.IsUndetermined() {
		inputHit := !n.InputTargets.IsUndetermined() && n.InputTargets.Intersects(other.OutputTargets)
		dependsHit := n.DependsTargets.Intersects(other.OutputTargets)
		if inputHit || dependsHit {
			return true
		}
	}

	return false
}
