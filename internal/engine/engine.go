// Package engine wires the parser, workflow selector, parameter binder,
// dependency graph, driver, signature controller, and executor into the
// single entry point the CLI calls for `sos run` and `sos parse`.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pgcudahy/sos/internal/digraph"
	"github.com/pgcudahy/sos/internal/digraph/scheduler"
	"github.com/pgcudahy/sos/internal/dsl"
	"github.com/pgcudahy/sos/internal/eval"
	"github.com/pgcudahy/sos/internal/executor"
	"github.com/pgcudahy/sos/internal/probe"
	"github.com/pgcudahy/sos/internal/signature"
	"github.com/pgcudahy/sos/internal/workflow"
)

// Options configures a Run.
type Options struct {
	// Workflow is the name to materialise; empty selects the script's
	// only workflow if it defines exactly one.
	Workflow string
	// Params are raw `name=value` overrides, as repeated on the command
	// line.
	Params []string
	// NProcs bounds concurrent step execution.
	NProcs int
	// Controller receives step progress; may be nil to disable reporting.
	Controller *signature.Controller
}

// Materialized is the result of parsing and selecting a workflow, the
// shared prefix both `sos run` and `sos parse --debug` need.
type Materialized struct {
	Parsed   *dsl.ParseResult
	Workflow *workflow.Workflow
	Bindings map[string]digraph.Value
}

// Materialize parses content and selects opts.Workflow out of it,
// applying any parameter overrides. It performs C1–C4 without touching
// the scheduler, which is exactly what `sos parse` needs.
func Materialize(content []byte, source string, opts Options) (*Materialized, *eval.CELEvaluator, error) {
	evaluator, err := eval.NewCELEvaluator()
	if err != nil {
		return nil, nil, fmt.Errorf("engine: %w", err)
	}

	parser := dsl.NewParser(evaluator)
	parsed, err := parser.Parse(string(content), source)
	if err != nil {
		return nil, nil, err
	}

	workflowName := opts.Workflow
	if workflowName == "" {
		names := workflow.Names(parsed.Sections)
		if len(names) != 1 {
			return nil, nil, fmt.Errorf("engine: script defines %d workflows, --workflow is required", len(names))
		}
		workflowName = names[0]
	}

	wf, err := workflow.Select(parsed.Sections, workflowName)
	if err != nil {
		return nil, nil, err
	}

	globals, err := evalGlobals(evaluator, wf.GlobalSection)
	if err != nil {
		return nil, nil, err
	}

	binder := workflow.NewBinder(evaluator)
	bindings, err := binder.Defaults(wf.ParametersSection, globals)
	if err != nil {
		return nil, nil, err
	}
	for _, raw := range opts.Params {
		if err := workflow.ParseOverride(bindings, raw); err != nil {
			return nil, nil, err
		}
	}

	return &Materialized{Parsed: parsed, Workflow: wf, Bindings: bindings}, evaluator, nil
}

// evalGlobals evaluates a workflow's global section, in order, into a
// binding map: each assignment's value expression sees every global
// already evaluated before it, the same symbol-table-so-far rule
// parameter defaults rely on (see Binder.Defaults). A nil section (a
// script with no top-level assignments) yields an empty map.
func evalGlobals(evaluator eval.Evaluator, global *dsl.Section) (map[string]digraph.Value, error) {
	out := map[string]digraph.Value{}
	if global == nil {
		return out, nil
	}
	for _, a := range global.Assignments {
		v, err := evaluator.Eval(a.Value, out)
		if err != nil {
			return nil, fmt.Errorf("engine: global %q: %w", a.Key, err)
		}
		out[a.Key] = v
	}
	return out, nil
}

// Run materialises content into a workflow and drives it to completion.
func Run(ctx context.Context, content []byte, source string, opts Options) error {
	m, evaluator, err := Materialize(content, source, opts)
	if err != nil {
		return err
	}

	graph, err := BuildGraph(m.Workflow, evaluator, m.Bindings)
	if err != nil {
		return err
	}
	graph.Build()

	var progressCh chan scheduler.ProgressEvent
	if opts.Controller != nil {
		progressCh = make(chan scheduler.ProgressEvent, 64)
		defer close(progressCh)
		go opts.Controller.Run(ctx, progressCh)
	}

	driverOpts := []scheduler.DriverOption{scheduler.WithFileProbe(probe.OSFileProbe{}.Exists)}
	if opts.Controller != nil {
		driverOpts = append(driverOpts, scheduler.WithSignatures(opts.Controller))
	}
	driver := scheduler.NewDriver(graph, executor.ShellExecutor{}, opts.NProcs, progressCh, driverOpts...)
	return driver.Run(ctx, m.Bindings)
}

// BuildGraph turns a materialised workflow's body sections into a
// scheduler graph: each section becomes one node carrying its evaluated
// input/depends/output target sets, its change-context flag (derived
// from the input_alias/output_alias options), and its action statements
// joined into the text an Executor runs. Exported so `sos parse --debug`
// can render the same graph `sos run` would build, without driving it.
func BuildGraph(wf *workflow.Workflow, evaluator eval.Evaluator, bindings map[string]digraph.Value) (*scheduler.Graph, error) {
	graph := scheduler.NewGraph()
	for i, sect := range wf.Sections {
		index := wf.Indices[i]
		// A matching wildcard header is rewritten to the requested
		// workflow name, same as an exact-match header already is.
		name := wf.Name

		input, err := resolveDirective(evaluator, sect, "input", bindings)
		if err != nil {
			return nil, fmt.Errorf("engine: step %q: %w", name, err)
		}
		depends, err := resolveDirective(evaluator, sect, "depends", bindings)
		if err != nil {
			return nil, fmt.Errorf("engine: step %q: %w", name, err)
		}
		output, err := resolveDirective(evaluator, sect, "output", bindings)
		if err != nil {
			return nil, fmt.Errorf("engine: step %q: %w", name, err)
		}

		_, inputAlias := sect.Options["input_alias"]
		_, outputAlias := sect.Options["output_alias"]
		changeContext := inputAlias || outputAlias

		if targetExpr, ok := sect.Options["target"]; ok {
			extra, err := resolveTargetOption(evaluator, targetExpr, bindings)
			if err != nil {
				return nil, fmt.Errorf("engine: step %q: target option: %w", name, err)
			}
			output = mergeTargets(output, extra)
		}

		idx := index
		node := graph.AddStep(fmt.Sprintf("%s_%d", name, index), name, &idx, input, depends, output, changeContext)
		node.Statement = strings.Join(sect.Statements, "\n")
		node.Skip = boolOption(sect, "skip", false)
		node.NonBlocking = !boolOption(sect, "blocking", true)
		node.NonConcurrent = boolOption(sect, "nonconcurrent", false)
	}
	return graph, nil
}

// boolOption reads a section option whose value, per the closed option
// set in spec.md §3, is either absent, present with no expression (a bare
// `[step: skip]`, which counts as true), or present with an expression to
// evaluate as a boolean literal. dflt is returned when the option is
// absent.
func boolOption(sect *dsl.Section, name string, dflt bool) bool {
	v, ok := sect.Options[name]
	if !ok {
		return dflt
	}
	if strings.TrimSpace(v) == "" {
		return true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return true
	}
	return b
}

// resolveTargetOption evaluates a section's `target` option the same way
// an input/output/depends directive is evaluated: a CEL list literal of
// target names, each becoming a named (non-file) target the step
// additionally produces. Unlike a directive, `target` has no `dynamic()`
// sentinel — it always names concrete targets statically.
func resolveTargetOption(evaluator eval.Evaluator, expr string, bindings map[string]digraph.Value) (digraph.TargetSet, error) {
	if strings.TrimSpace(expr) == "" {
		return digraph.NewTargetSet(), nil
	}
	v, err := evaluator.Eval("["+expr+"]", bindings)
	if err != nil {
		return digraph.TargetSet{}, err
	}
	items, _ := v.AsList()
	targets := make([]digraph.Target, 0, len(items))
	for _, item := range items {
		if s, ok := item.AsStr(); ok {
			targets = append(targets, digraph.NewNamedTarget(s))
		}
	}
	return digraph.NewTargetSet(targets...), nil
}

// mergeTargets returns a determined set containing every item of a and b.
// An Undetermined a stays Undetermined: it already stands for "more than
// is listed here", so adding named targets to it would be misleading.
func mergeTargets(a, b digraph.TargetSet) digraph.TargetSet {
	if a.IsUndetermined() {
		return a
	}
	items := append([]digraph.Target(nil), a.Items()...)
	items = append(items, b.Items()...)
	return digraph.NewTargetSet(items...)
}

// resolveDirective evaluates a step's input/output/depends directive into
// a TargetSet. A literal `dynamic()` body marks the set Undetermined,
// mirroring the original's sentinel for "not knowable until run time". A
// missing directive yields an empty, fully-determined set. Anything else
// is evaluated as a CEL list literal and each resulting string becomes a
// file target.
func resolveDirective(evaluator eval.Evaluator, sect *dsl.Section, name string, bindings map[string]digraph.Value) (digraph.TargetSet, error) {
	var text string
	found := false
	for _, d := range sect.Directives {
		if d.Name == name {
			text = d.Value
			found = true
			break
		}
	}
	if !found || strings.TrimSpace(text) == "" {
		return digraph.NewTargetSet(), nil
	}
	if strings.TrimSpace(text) == "dynamic()" {
		return digraph.Undetermined(), nil
	}

	v, err := evaluator.Eval("["+text+"]", bindings)
	if err != nil {
		return digraph.TargetSet{}, fmt.Errorf("evaluating %s: %w", name, err)
	}
	items, _ := v.AsList()
	targets := make([]digraph.Target, 0, len(items))
	for _, item := range items {
		if s, ok := item.AsStr(); ok {
			targets = append(targets, digraph.NewFileTarget(s))
		}
	}
	return digraph.NewTargetSet(targets...), nil
}
