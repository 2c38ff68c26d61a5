// Package executor runs a workflow step's action body, the concrete
// collaborator spec.md names only as an interface. It is grounded on the
// behavior the teacher's executor tests reveal (env-merging, command
// execution via os/exec) even though the teacher's own executor sources
// did not survive retrieval.
package executor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"

	"github.com/pgcudahy/sos/internal/digraph"
	"github.com/pgcudahy/sos/internal/digraph/scheduler"
)

// ShellExecutor runs a node's Statement through the system shell,
// injecting the bound parameter table as environment variables on top of
// the current process's own environment.
type ShellExecutor struct {
	// Shell is the interpreter invoked with "-c <statement>". Defaults
	// to "sh" when empty.
	Shell string
	// Stdout and Stderr, when non-nil, receive the step's standard
	// output and standard error respectively; a nil sink discards that
	// stream.
	Stdout, Stderr *bytes.Buffer
}

// Execute implements scheduler.Executor. Its targets are known statically
// by the time a node reaches the driver (see engine.BuildGraph), so this
// executor never itself discovers new ones; it reports the node's own
// target sets back unchanged, resolving only an Undetermined set to an
// empty determined one, since a completed node can no longer stand for
// "unresolved". Signatures are content hashes of whatever output files
// exist once the statement has run.
func (e ShellExecutor) Execute(ctx context.Context, node *scheduler.Node, bindings map[string]digraph.Value) (scheduler.ExecutionResult, error) {
	if node.Statement == "" {
		return scheduler.ExecutionResult{
			Inputs:  resolve(node.InputTargets),
			Outputs: resolve(node.OutputTargets),
		}, nil
	}

	shell := e.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", node.Statement)
	cmd.Env = append(os.Environ(), envFromBindings(bindings)...)
	if e.Stdout != nil {
		cmd.Stdout = e.Stdout
	}
	if e.Stderr != nil {
		cmd.Stderr = e.Stderr
	}

	if err := cmd.Run(); err != nil {
		return scheduler.ExecutionResult{}, fmt.Errorf("executor: step %q: %w", node.Name, err)
	}

	outputs := resolve(node.OutputTargets)
	return scheduler.ExecutionResult{
		Inputs:     resolve(node.InputTargets),
		Outputs:    outputs,
		Signatures: signaturesFor(outputs),
	}, nil
}

// resolve turns an Undetermined set into an empty determined one; a
// statically known set passes through unchanged. This is the executor's
// half of §4.6(ii): the driver applies whatever comes back verbatim.
func resolve(s digraph.TargetSet) digraph.TargetSet {
	if s.IsUndetermined() {
		return digraph.NewTargetSet()
	}
	return s
}

// signaturesFor hashes the current content of every file target in
// outputs, keyed by the target's string form; a target that does not
// exist on disk (e.g. a named, non-file target) is skipped.
func signaturesFor(outputs digraph.TargetSet) map[string]string {
	sigs := map[string]string{}
	for _, t := range outputs.Items() {
		if !t.IsFile() {
			continue
		}
		content, err := os.ReadFile(t.Path())
		if err != nil {
			continue
		}
		sum := sha256.Sum256(content)
		sigs[t.String()] = hex.EncodeToString(sum[:])
	}
	return sigs
}

func envFromBindings(bindings map[string]digraph.Value) []string {
	env := make([]string, 0, len(bindings))
	for name, val := range bindings {
		env = append(env, fmt.Sprintf("%s=%s", name, val.String()))
	}
	return env
}
