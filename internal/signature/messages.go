package signature

// sigPushMessage is a fire-and-forget write against the target or step
// signature stores, or an append to a workflow's signature log — the
// Go-channel analogue of a message sent on sig_push.
type sigPushMessage interface {
	apply(c *Controller)
}

type targetSetMsg struct {
	target string
	record TargetRecord
}

func (m targetSetMsg) apply(c *Controller) { c.targets.Set(m.target, m.record) }

type stepSetMsg struct {
	step   string
	record StepRecord
}

func (m stepSetMsg) apply(c *Controller) { c.steps.Set(m.step, m.record) }

type workflowWriteMsg struct {
	workflowID string
	record     WorkflowRecord
}

func (m workflowWriteMsg) apply(c *Controller) { c.workflows.Write(m.workflowID, m.record) }

type workflowPlaceholderMsg struct {
	workflowID string
	target     string
}

func (m workflowPlaceholderMsg) apply(c *Controller) {
	c.workflows.MarkPlaceholder(m.workflowID, m.target)
}

// sigReqMessage is a read against a signature store that blocks the
// caller for a reply — the analogue of a sig_req round trip.
type sigReqMessage interface {
	apply(c *Controller) any
}

type targetLookup struct {
	record TargetRecord
	ok     bool
}

type targetGetMsg struct{ target string }

func (m targetGetMsg) apply(c *Controller) any {
	rec, ok := c.targets.Get(m.target)
	return targetLookup{rec, ok}
}

type stepLookup struct {
	record StepRecord
	ok     bool
}

type stepGetMsg struct{ step string }

func (m stepGetMsg) apply(c *Controller) any {
	rec, ok := c.steps.Get(m.step)
	return stepLookup{rec, ok}
}

type workflowPlaceholdersMsg struct{ workflowID string }

func (m workflowPlaceholdersMsg) apply(c *Controller) any {
	return c.workflows.Placeholders(m.workflowID)
}

type workflowRecordsMsg struct{ workflowID string }

func (m workflowRecordsMsg) apply(c *Controller) any {
	return c.workflows.Records(m.workflowID)
}

type workflowClearMsg struct{}

func (m workflowClearMsg) apply(c *Controller) any {
	c.workflows.Clear()
	return struct{}{}
}

// ctlPushMessage carries an engine-control update that needs no reply.
type ctlPushMessage interface {
	apply(c *Controller)
}

type setNProcsMsg struct{ n int }

func (m setNProcsMsg) apply(c *Controller) { c.nprocs = m.n }

// ctlReqMessage carries an engine-control read that blocks for a reply.
type ctlReqMessage interface {
	apply(c *Controller) any
}

type nprocsMsg struct{}

func (m nprocsMsg) apply(c *Controller) any { return c.nprocs }

type sigReqEnvelope struct {
	msg   sigReqMessage
	reply chan any
}

type ctlReqEnvelope struct {
	msg   ctlReqMessage
	reply chan any
}
