package signature

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgcudahy/sos/internal/digraph/scheduler"
)

func startController(t *testing.T, opts ...Option) (*Controller, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c := NewController(opts...)
	go c.Run(ctx, nil)
	return c, ctx
}

func TestController_TargetSignatureRoundTrip(t *testing.T) {
	c, ctx := startController(t)

	_, ok := c.TargetSignature(ctx, "a.bam")
	assert.False(t, ok)

	c.PushTargetSignature("a.bam", TargetRecord{Hash: "deadbeef", Size: 42})

	require.Eventually(t, func() bool {
		rec, ok := c.TargetSignature(ctx, "a.bam")
		return ok && rec.Hash == "deadbeef" && rec.Size == 42
	}, time.Second, time.Millisecond)
}

func TestController_StepSignatureRoundTrip(t *testing.T) {
	c, ctx := startController(t)

	c.PushStepSignature("call_1", StepRecord{Hash: "abc123"})

	require.Eventually(t, func() bool {
		rec, ok := c.StepSignature(ctx, "call_1")
		return ok && rec.Hash == "abc123"
	}, time.Second, time.Millisecond)
}

func TestController_WorkflowRecordsAndPlaceholders(t *testing.T) {
	c, ctx := startController(t)

	c.MarkWorkflowPlaceholder("wf1", "a.vcf")
	require.Eventually(t, func() bool {
		return len(c.WorkflowPlaceholders(ctx, "wf1")) == 1
	}, time.Second, time.Millisecond)
	assert.Contains(t, c.WorkflowPlaceholders(ctx, "wf1"), "a.vcf")

	c.PushWorkflowRecord("wf1", WorkflowRecord{ID: "a.vcf", Data: map[string]string{"hash": "x"}})
	require.Eventually(t, func() bool {
		return len(c.WorkflowPlaceholders(ctx, "wf1")) == 0
	}, time.Second, time.Millisecond)
	assert.Len(t, c.WorkflowRecords(ctx, "wf1"), 1)

	c.ClearWorkflowSignatures(ctx)
	assert.Empty(t, c.WorkflowRecords(ctx, "wf1"))
}

func TestController_NProcsRoundTrip(t *testing.T) {
	c, ctx := startController(t)

	c.SetNProcs(4)
	require.Eventually(t, func() bool { return c.NProcs(ctx) == 4 }, time.Second, time.Millisecond)
}

func TestController_ConsumesDriverProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := make(chan scheduler.ProgressEvent, 4)
	c := NewController(WithQuiet(true))
	go c.Run(ctx, progress)

	progress <- scheduler.ProgressEvent{Kind: scheduler.ProgressStepCompleted, StepName: "align", Fraction: 1}
	progress <- scheduler.ProgressEvent{Kind: scheduler.ProgressDone}
	close(progress)

	// The controller should keep serving requests after the progress
	// channel is drained and closed.
	require.Eventually(t, func() bool {
		_, ok := c.TargetSignature(ctx, "anything")
		return !ok
	}, time.Second, time.Millisecond)
}
