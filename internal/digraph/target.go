// Package digraph holds the data types shared between the script parser,
// the workflow materialiser and the dependency scheduler: targets (the
// files and named resources that flow between steps) and the dynamically
// typed values produced by evaluating directive and parameter expressions.
package digraph

import "fmt"

// Target identifies something a step produces, consumes or depends on.
// The zero value is not a valid Target; use NewFileTarget/NewNamedTarget,
// or use Undetermined() for a step whose inputs could not be resolved at
// parse time.
type Target struct {
	kind  targetKind
	name  string
	label string
}

type targetKind int

const (
	targetFile targetKind = iota
	targetNamed
)

// NewFileTarget returns a Target backed by a path on disk.
func NewFileTarget(path string) Target {
	return Target{kind: targetFile, name: path}
}

// NewNamedTarget returns a Target identified by an opaque name rather than
// a file path (e.g. one listed in a section's `target` option, which
// engine.BuildGraph adds to the step's outputs).
func NewNamedTarget(name string) Target {
	return Target{kind: targetNamed, name: name, label: name}
}

// IsFile reports whether t refers to a path on disk.
func (t Target) IsFile() bool { return t.kind == targetFile }

// Path returns the filesystem path for a file target. It panics if called
// on a named target; callers must check IsFile first.
func (t Target) Path() string {
	if t.kind != targetFile {
		panic("digraph: Path called on a non-file target")
	}
	return t.name
}

// String returns a human-readable identifier for the target, used in logs
// and in the debug dump (see Graph.Dump).
func (t Target) String() string {
	if t.kind == targetNamed {
		return fmt.Sprintf("named:%s", t.name)
	}
	return t.name
}

// Equal reports whether t and other refer to the same concrete target.
// Two targets are equal only when they share kind and name; this is the
// comparison the produce/consume edge-inference rule (E3) relies on.
func (t Target) Equal(other Target) bool {
	return t.kind == other.kind && t.name == other.name
}

// TargetSet is an ordered, possibly-undetermined collection of targets.
// A zero-value TargetSet is determined and empty; use Undetermined() to
// build one representing "inputs not known until this step runs".
type TargetSet struct {
	undetermined bool
	items        []Target
}

// NewTargetSet returns a determined set containing items, in order.
func NewTargetSet(items ...Target) TargetSet {
	return TargetSet{items: items}
}

// Undetermined returns a TargetSet standing in for a step whose input
// targets could not be resolved statically (e.g. they depend on an
// expression evaluated at run time). This mirrors pysos's Undetermined
// sentinel and drives edge-inference rule E2.
func Undetermined() TargetSet {
	return TargetSet{undetermined: true}
}

// IsUndetermined reports whether the set represents unresolved inputs.
func (s TargetSet) IsUndetermined() bool { return s.undetermined }

// Items returns the targets in the set. It is meaningless to call on an
// undetermined set; callers must check IsUndetermined first.
func (s TargetSet) Items() []Target { return s.items }

// Contains reports whether any member of s equals t. An undetermined set
// never contains anything concrete.
func (s TargetSet) Contains(t Target) bool {
	for _, item := range s.items {
		if item.Equal(t) {
			return true
		}
	}
	return false
}

// Intersects reports whether s and other share at least one concrete
// member. Used directly by edge-inference rule E3.
func (s TargetSet) Intersects(other TargetSet) bool {
	if s.undetermined || other.undetermined {
		return false
	}
	for _, item := range s.items {
		if other.Contains(item) {
			return true
		}
	}
	return false
}

func (s TargetSet) String() string {
	if s.undetermined {
		return "<undetermined>"
	}
	out := "["
	for i, item := range s.items {
		if i > 0 {
			out += ", "
		}
		out += item.String()
	}
	return out + "]"
}
