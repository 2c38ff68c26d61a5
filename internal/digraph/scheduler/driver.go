package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/pgcudahy/sos/internal/digraph"
)

// ExecutionResult is what a successful Executor.Execute call reports back
// to the driver: the concrete input/output target sets actually observed
// while running the step — replacing whatever the node carried into the
// run, Undetermined or not — plus a content signature per target the step
// produced, keyed by the target's string form.
type ExecutionResult struct {
	Inputs     digraph.TargetSet
	Outputs    digraph.TargetSet
	Signatures map[string]string
}

// Executor runs one node's step action. Concrete implementations live
// outside this package (see internal/executor); the driver only knows
// about the interface spec.md names as an external collaborator.
type Executor interface {
	Execute(ctx context.Context, node *Node, bindings map[string]digraph.Value) (ExecutionResult, error)
}

// SignatureSource lets the driver consult and update an external record of
// each step's last-observed content hash — the collaborator spec.md calls
// the signature controller (C7). A nil SignatureSource disables
// skip-on-match entirely; every node then always executes.
type SignatureSource interface {
	StepHash(ctx context.Context, step string) (hash string, ok bool)
	PushStepHash(step string, hash string)
}

// ProgressKind identifies which of the controller's progress events a
// ProgressEvent carries, mirroring the `ctl_push` message vocabulary.
type ProgressKind int

const (
	ProgressNProcs ProgressKind = iota
	ProgressSubstepIgnored
	ProgressSubstepCompleted
	ProgressStepCompleted
	ProgressStepFailed
	ProgressDone
)

// ProgressEvent is what the driver emits on its progress channel for the
// signature controller to render. Fraction is only meaningful for
// ProgressStepCompleted: 1 means the step was actually re-executed, 0
// means it was skipped outright (explicit skip option or a signature
// match), a value strictly between them means a partial step, and a
// negative value means no signature source is wired at all, so the
// skipped-vs-executed distinction is untracked.
type ProgressEvent struct {
	Kind     ProgressKind
	StepName string
	Count    int
	Fraction float64
}

// DriverOption configures optional driver collaborators.
type DriverOption func(*Driver)

// WithSignatures wires src into the driver: before running a node whose
// computed content hash matches src's last-recorded hash for that node,
// and whose output targets still exist, the driver skips execution
// entirely; after a node runs successfully, its newly observed hash is
// pushed back to src.
func WithSignatures(src SignatureSource) DriverOption {
	return func(d *Driver) { d.signatures = src }
}

// WithFileProbe wires probe into the driver, used to confirm a node's
// declared output targets still exist on disk before trusting a signature
// match enough to skip re-running it.
func WithFileProbe(probe func(target string) bool) DriverOption {
	return func(d *Driver) { d.probe = probe }
}

// Driver owns the dependency graph exclusively and repeatedly finds and
// runs executable nodes until the workflow completes or a step fails,
// bounding concurrent step execution with a semaphore and propagating
// blocking failures via errgroup — the same done-channel-driven
// orchestration shape as the teacher's agent run loop, expressed with
// x/sync primitives instead of a hand-rolled channel fan-in.
type Driver struct {
	graph      *Graph
	executor   Executor
	sem        *semaphore.Weighted
	nprocs     int64
	progress   chan<- ProgressEvent
	signatures SignatureSource
	probe      func(target string) bool
}

// NewDriver builds a Driver bounding concurrent step execution to nprocs
// and optionally reporting progress on progress (nil disables reporting).
func NewDriver(graph *Graph, executor Executor, nprocs int, progress chan<- ProgressEvent, opts ...DriverOption) *Driver {
	if nprocs < 1 {
		nprocs = 1
	}
	d := &Driver{
		graph:    graph,
		executor: executor,
		sem:      semaphore.NewWeighted(int64(nprocs)),
		nprocs:   int64(nprocs),
		progress: progress,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drives the graph to completion: each iteration asks FindExecutable
// for the next ready node, either skips it outright (explicit skip option,
// or a signature match against an already up-to-date output) or launches
// it once a worker slot is free, and waits to be woken by a finishing
// worker when nothing is currently ready but work remains in flight. A
// node whose section marked it non-blocking records its failure instead
// of aborting the run; every other failure cancels remaining work. The
// combined blocking error (if any) and every non-blocking failure are
// returned together once every already-running step has been allowed to
// finish. A failed node never completes, so a run with a non-blocking
// failure also ends with a *SchedulingFault joined to those failures, and
// steps that depend on the failed node never start.
func (d *Driver) Run(ctx context.Context, bindings map[string]digraph.Value) error {
	g, gctx := errgroup.WithContext(ctx)
	wake := make(chan struct{}, 1)
	notify := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	var mu sync.Mutex
	inFlight := 0
	var softErrors []error

	finish := func(primary error) error {
		mu.Lock()
		soft := append([]error(nil), softErrors...)
		mu.Unlock()
		return errors.Join(append([]error{primary}, soft...)...)
	}

	for {
		node, err := d.graph.FindExecutable()
		if err != nil {
			// A running node is not completed either, so the fault may only
			// mean work is still in flight: wait for a worker and rescan.
			mu.Lock()
			busy := inFlight > 0
			mu.Unlock()
			if busy {
				<-wake
				continue
			}
			if node, err = d.graph.FindExecutable(); err != nil {
				if werr := g.Wait(); werr != nil {
					err = werr
				}
				return finish(err)
			}
		}
		if node == nil {
			mu.Lock()
			drained := inFlight == 0
			mu.Unlock()
			if drained {
				break
			}
			select {
			case <-wake:
				continue
			case <-gctx.Done():
				_ = g.Wait()
				return finish(gctx.Err())
			}
		}

		if node.Skip || d.skippedBySignature(gctx, node) {
			d.graph.MarkCompleted(node)
			d.emit(ProgressEvent{Kind: ProgressSubstepIgnored, StepName: node.Name})
			d.emit(ProgressEvent{Kind: ProgressStepCompleted, StepName: node.Name, Fraction: 0})
			continue
		}

		weight := int64(1)
		if node.NonConcurrent {
			weight = d.nprocs
		}
		if err := d.sem.Acquire(gctx, weight); err != nil {
			_ = g.Wait()
			return finish(err)
		}
		mu.Lock()
		inFlight++
		d.emit(ProgressEvent{Kind: ProgressNProcs, Count: inFlight})
		mu.Unlock()

		d.graph.MarkRunning(node)
		n := node
		g.Go(func() error {
			defer d.sem.Release(weight)
			defer func() {
				mu.Lock()
				inFlight--
				d.emit(ProgressEvent{Kind: ProgressNProcs, Count: inFlight})
				mu.Unlock()
				notify()
			}()

			result, execErr := d.executor.Execute(gctx, n, bindings)
			if execErr != nil {
				d.graph.MarkFailed(n)
				d.emit(ProgressEvent{Kind: ProgressStepFailed, StepName: n.Name})
				if n.NonBlocking {
					mu.Lock()
					softErrors = append(softErrors, fmt.Errorf("step %q: %w", n.Name, execErr))
					mu.Unlock()
					return nil
				}
				return execErr
			}

			d.graph.ApplyExecutionResult(n, result.Inputs, result.Outputs)
			if d.signatures != nil {
				d.signatures.PushStepHash(n.ID, nodeDigest(n))
			}
			d.graph.MarkCompleted(n)
			fraction := 1.0
			if d.signatures == nil {
				fraction = -1
			}
			d.emit(ProgressEvent{Kind: ProgressSubstepCompleted, StepName: n.Name})
			d.emit(ProgressEvent{Kind: ProgressStepCompleted, StepName: n.Name, Fraction: fraction})
			return nil
		})
	}

	err := g.Wait()
	d.emit(ProgressEvent{Kind: ProgressDone})
	return finish(err)
}

// skippedBySignature reports whether node's declared outputs are already
// up to date: its current content hash matches the last one the signature
// source recorded for it, and every output target still exists on disk.
func (d *Driver) skippedBySignature(ctx context.Context, node *Node) bool {
	if d.signatures == nil {
		return false
	}
	prev, ok := d.signatures.StepHash(ctx, node.ID)
	if !ok || prev != nodeDigest(node) {
		return false
	}
	return outputsExist(node, d.probe)
}

func outputsExist(n *Node, probe func(target string) bool) bool {
	if probe == nil || n.OutputTargets.IsUndetermined() {
		return false
	}
	for _, t := range n.OutputTargets.Items() {
		if !t.IsFile() {
			continue
		}
		if !probe(t.Path()) {
			return false
		}
	}
	return true
}

// nodeDigest fingerprints the observable state a content change would show
// up in: the node's declared targets and the statement that produces them.
// Two runs of the same step against unchanged targets hash identically,
// which is exactly the signature-match condition skippedBySignature checks.
func nodeDigest(n *Node) string {
	h := sha256.New()
	h.Write([]byte(n.Name))
	h.Write([]byte(n.InputTargets.String()))
	h.Write([]byte(n.DependsTargets.String()))
	h.Write([]byte(n.OutputTargets.String()))
	h.Write([]byte(n.Statement))
	return hex.EncodeToString(h.Sum(nil))
}

func (d *Driver) emit(ev ProgressEvent) {
	if d.progress == nil {
		return
	}
	d.progress <- ev
}
