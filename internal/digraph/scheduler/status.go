// Package scheduler implements the dynamic dependency graph: edge
// inference between steps (node.go, graph.go) and the driver loop that
// repeatedly finds and runs executable nodes until the workflow completes
// (driver.go).
package scheduler

// NodeStatus is the execution state of one graph node.
type NodeStatus int

const (
	NodeStatusNone NodeStatus = iota
	NodeStatusRunning
	NodeStatusCompleted
	NodeStatusFailed
)

func (s NodeStatus) String() string {
	switch s {
	case NodeStatusRunning:
		return "running"
	case NodeStatusCompleted:
		return "completed"
	case NodeStatusFailed:
		return "failed"
	default:
		return "none"
	}
}

// WorkflowStatus is the overall state of a driver run.
type WorkflowStatus int

const (
	WorkflowStatusRunning WorkflowStatus = iota
	WorkflowStatusSuccess
	WorkflowStatusFailed
)

func (s WorkflowStatus) String() string {
	switch s {
	case WorkflowStatusSuccess:
		return "success"
	case WorkflowStatusFailed:
		return "failed"
	default:
		return "running"
	}
}
