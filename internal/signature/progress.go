package signature

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/pgcudahy/sos/internal/digraph/scheduler"
)

// subProgressBarWidth is how many characters wide the per-step substep
// bar is drawn, matching the fixed 25-column bar the controller renders
// for a running step.
const subProgressBarWidth = 25

// renderThrottle is the minimum interval between two redraws of the same
// line, so a step with many fast substeps doesn't flood the terminal.
const renderThrottle = time.Second

var (
	colorCompleted = color.New(color.FgGreen)
	colorIgnored   = color.New(color.FgHiBlack)
	colorRunning   = color.New(color.FgCyan)
	colorNProcs    = color.New(color.FgYellow)
	colorUntracked = color.New(color.FgYellow)
	colorFailed    = color.New(color.FgRed)
)

// progressRenderer turns the driver's ProgressEvent stream into ANSI
// status lines: a running worker count, a substep bar per in-flight step,
// and a final colored summary line once a step finishes.
type progressRenderer struct {
	out     io.Writer
	quiet   bool
	last    map[string]time.Time
	sub     map[string]int
	ignored map[string]int
}

func newProgressRenderer(out io.Writer, quiet bool) *progressRenderer {
	return &progressRenderer{
		out:     out,
		quiet:   quiet,
		last:    map[string]time.Time{},
		sub:     map[string]int{},
		ignored: map[string]int{},
	}
}

func (r *progressRenderer) handle(ev scheduler.ProgressEvent) {
	if r.quiet || r.out == nil {
		return
	}
	switch ev.Kind {
	case scheduler.ProgressNProcs:
		colorNProcs.Fprintf(r.out, "[workers: %d]\n", ev.Count)
	case scheduler.ProgressSubstepCompleted:
		r.sub[ev.StepName]++
		r.maybeDrawBar(ev.StepName)
	case scheduler.ProgressSubstepIgnored:
		r.ignored[ev.StepName]++
		r.maybeDrawBar(ev.StepName)
	case scheduler.ProgressStepCompleted:
		r.drawSummary(ev)
		delete(r.sub, ev.StepName)
		delete(r.ignored, ev.StepName)
		delete(r.last, ev.StepName)
	case scheduler.ProgressStepFailed:
		colorFailed.Fprintf(r.out, "%s: failed\n", ev.StepName)
		delete(r.sub, ev.StepName)
		delete(r.ignored, ev.StepName)
		delete(r.last, ev.StepName)
	case scheduler.ProgressDone:
		colorCompleted.Fprintln(r.out, "workflow complete")
	}
}

func (r *progressRenderer) maybeDrawBar(step string) {
	now := time.Now()
	if t, ok := r.last[step]; ok && now.Sub(t) < renderThrottle {
		return
	}
	r.last[step] = now
	done := r.sub[step]
	ignored := r.ignored[step]
	total := done + ignored
	filled := 0
	if total > 0 {
		filled = done * subProgressBarWidth / total
	}
	bar := fmt.Sprintf("[%s%s]", repeat("#", filled), repeat(".", subProgressBarWidth-filled))
	colorRunning.Fprintf(r.out, "%s %s (%d done, %d ignored)\n", step, bar, done, ignored)
}

// drawSummary renders the single collapsed character/line a finished step
// gets, colored per spec.md §4.7's four cases: skipped (dim), fully
// re-executed (green), partially executed (cyan), or untracked — no
// signature source wired for this run at all (yellow).
func (r *progressRenderer) drawSummary(ev scheduler.ProgressEvent) {
	switch {
	case ev.Fraction < 0:
		colorUntracked.Fprintf(r.out, "%s: untracked\n", ev.StepName)
	case ev.Fraction == 0:
		colorIgnored.Fprintf(r.out, "%s: skipped\n", ev.StepName)
	case ev.Fraction < 1:
		colorRunning.Fprintf(r.out, "%s: partial (%.0f%%)\n", ev.StepName, ev.Fraction*100)
	default:
		colorCompleted.Fprintf(r.out, "%s: completed (%.0f%%)\n", ev.StepName, ev.Fraction*100)
	}
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
