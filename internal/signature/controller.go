package signature

import (
	"context"
	"io"

	"github.com/pgcudahy/sos/internal/digraph/scheduler"
)

// defaultTargetCacheSize bounds the in-memory target signature cache.
const defaultTargetCacheSize = 4096

// Controller is the single actor owning the signature stores and the
// live progress display. It is reached only by calling its exported
// methods, each of which sends a message on one of four internal
// channels (sig_push, sig_req, ctl_push, ctl_req) and — for the request
// variants — blocks for a reply on a per-call channel. All store and
// renderer state is touched exclusively from the goroutine running Run,
// so none of it needs its own locking.
type Controller struct {
	targets   *targetStore
	steps     *stepStore
	workflows *workflowStore
	nprocs    int
	progress  *progressRenderer

	sigPush chan sigPushMessage
	sigReq  chan sigReqEnvelope
	ctlPush chan ctlPushMessage
	ctlReq  chan ctlReqEnvelope
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithOutput directs rendered progress lines to w instead of discarding
// them.
func WithOutput(w io.Writer) Option {
	return func(c *Controller) { c.progress.out = w }
}

// WithQuiet suppresses all progress rendering.
func WithQuiet(quiet bool) Option {
	return func(c *Controller) { c.progress.quiet = quiet }
}

// WithTargetCacheSize overrides the target signature cache's capacity.
func WithTargetCacheSize(n int) Option {
	return func(c *Controller) { c.targets = newTargetStore(n) }
}

// NewController builds a Controller. Call Run in its own goroutine
// before using any of the accessor methods; they block until Run is
// draining their channels.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		targets:   newTargetStore(defaultTargetCacheSize),
		steps:     newStepStore(),
		workflows: newWorkflowStore(),
		progress:  newProgressRenderer(nil, false),
		sigPush:   make(chan sigPushMessage, 64),
		sigReq:    make(chan sigReqEnvelope),
		ctlPush:   make(chan ctlPushMessage, 64),
		ctlReq:    make(chan ctlReqEnvelope),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is the controller's message loop: it polls the four logical
// channels plus an optional progress feed from a scheduler.Driver until
// ctx is canceled. It must run in its own goroutine; all other
// Controller methods communicate with it over channels and are safe to
// call concurrently from any number of goroutines.
func (c *Controller) Run(ctx context.Context, driverProgress <-chan scheduler.ProgressEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.sigPush:
			msg.apply(c)
		case env := <-c.sigReq:
			env.reply <- env.msg.apply(c)
		case msg := <-c.ctlPush:
			msg.apply(c)
		case env := <-c.ctlReq:
			env.reply <- env.msg.apply(c)
		case ev, ok := <-driverProgress:
			if !ok {
				driverProgress = nil
				continue
			}
			c.progress.handle(ev)
		}
	}
}

// PushTargetSignature records the signature observed for target.
func (c *Controller) PushTargetSignature(target string, rec TargetRecord) {
	c.sigPush <- targetSetMsg{target: target, record: rec}
}

// PushStepSignature records the signature observed for a completed step.
func (c *Controller) PushStepSignature(step string, rec StepRecord) {
	c.sigPush <- stepSetMsg{step: step, record: rec}
}

// PushWorkflowRecord appends rec to workflowID's signature log.
func (c *Controller) PushWorkflowRecord(workflowID string, rec WorkflowRecord) {
	c.sigPush <- workflowWriteMsg{workflowID: workflowID, record: rec}
}

// MarkWorkflowPlaceholder notes that target is expected but not yet
// signed for workflowID, so it shows up in WorkflowPlaceholders until a
// matching PushWorkflowRecord arrives for it.
func (c *Controller) MarkWorkflowPlaceholder(workflowID, target string) {
	c.sigPush <- workflowPlaceholderMsg{workflowID: workflowID, target: target}
}

// TargetSignature returns the most recently pushed signature for
// target, if any.
func (c *Controller) TargetSignature(ctx context.Context, target string) (TargetRecord, bool) {
	res, ok := c.request(ctx, c.sigReq, targetGetMsg{target: target})
	if !ok {
		return TargetRecord{}, false
	}
	lookup := res.(targetLookup)
	return lookup.record, lookup.ok
}

// StepSignature returns the most recently pushed signature for step, if
// any.
func (c *Controller) StepSignature(ctx context.Context, step string) (StepRecord, bool) {
	res, ok := c.request(ctx, c.sigReq, stepGetMsg{step: step})
	if !ok {
		return StepRecord{}, false
	}
	lookup := res.(stepLookup)
	return lookup.record, lookup.ok
}

// StepHash satisfies scheduler.SignatureSource: it returns the hash half
// of the step's last recorded StepRecord, letting the driver consult
// signatures without depending on this package's record types.
func (c *Controller) StepHash(ctx context.Context, step string) (string, bool) {
	rec, ok := c.StepSignature(ctx, step)
	if !ok {
		return "", false
	}
	return rec.Hash, true
}

// PushStepHash satisfies scheduler.SignatureSource: it records hash as
// the new signature for step, the same way PushStepSignature does.
func (c *Controller) PushStepHash(step string, hash string) {
	c.PushStepSignature(step, StepRecord{Hash: hash})
}

// WorkflowPlaceholders lists the targets still awaiting a signature for
// workflowID.
func (c *Controller) WorkflowPlaceholders(ctx context.Context, workflowID string) []string {
	res, ok := c.request(ctx, c.sigReq, workflowPlaceholdersMsg{workflowID: workflowID})
	if !ok {
		return nil
	}
	return res.([]string)
}

// WorkflowRecords returns the full signature log for workflowID.
func (c *Controller) WorkflowRecords(ctx context.Context, workflowID string) []WorkflowRecord {
	res, ok := c.request(ctx, c.sigReq, workflowRecordsMsg{workflowID: workflowID})
	if !ok {
		return nil
	}
	return res.([]WorkflowRecord)
}

// ClearWorkflowSignatures wipes every workflow's signature log and
// placeholder set.
func (c *Controller) ClearWorkflowSignatures(ctx context.Context) {
	c.request(ctx, c.sigReq, workflowClearMsg{})
}

// SetNProcs updates the worker count the controller reports back to
// callers of NProcs; it does not itself bound concurrency, that is the
// driver's job.
func (c *Controller) SetNProcs(n int) {
	c.ctlPush <- setNProcsMsg{n: n}
}

// NProcs returns the last value set via SetNProcs.
func (c *Controller) NProcs(ctx context.Context) int {
	res, ok := c.requestCtl(ctx, nprocsMsg{})
	if !ok {
		return 0
	}
	return res.(int)
}

func (c *Controller) request(ctx context.Context, ch chan sigReqEnvelope, msg sigReqMessage) (any, bool) {
	reply := make(chan any, 1)
	select {
	case ch <- sigReqEnvelope{msg: msg, reply: reply}:
	case <-ctx.Done():
		return nil, false
	}
	select {
	case res := <-reply:
		return res, true
	case <-ctx.Done():
		return nil, false
	}
}

func (c *Controller) requestCtl(ctx context.Context, msg ctlReqMessage) (any, bool) {
	reply := make(chan any, 1)
	select {
	case c.ctlReq <- ctlReqEnvelope{msg: msg, reply: reply}:
	case <-ctx.Done():
		return nil, false
	}
	select {
	case res := <-reply:
		return res, true
	case <-ctx.Done():
		return nil, false
	}
}
