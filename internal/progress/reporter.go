// Package progress emits the ordered event sequence for one orchestration
// run: monotonically non-decreasing percentages, exactly one terminal
// event (done or error), and best-effort delivery — once the transport to
// the caller is gone, events are dropped silently and the run continues.
package progress

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenthands/chainmap/internal/model"
)

const (
	StepResolve   = "resolve"
	StepClassify  = "classify"
	StepStructure = "structure"
	StepExpand    = "expand"
	StepCrosslink = "crosslink"
	StepAssemble  = "assemble"
	StepDone      = "done"
	StepError     = "error"
)

// Event is one progress update. Payload is step-specific; for the done
// event it is a Result, for error an ErrorResult.
type Event struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
	Payload any    `json:"payload,omitempty"`
}

// Result is the payload of the done event.
type Result struct {
	Graph  *model.Graph `json:"graph"`
	Source string       `json:"source"`
}

// ErrorResult is the payload of the error event. Fallback is present when
// a minimal usable graph could still be produced.
type ErrorResult struct {
	Message  string       `json:"message"`
	Fallback *model.Graph `json:"fallback,omitempty"`
}

// Sink receives events in emission order. Returning an error marks the
// transport closed; the reporter drops everything after that.
type Sink func(Event) error

type Reporter struct {
	mu     sync.Mutex
	sink   Sink
	runID  string
	last   int
	closed bool
	done   bool
	log    *zap.Logger
}

// NewReporter builds a reporter over sink. A nil sink produces a reporter
// that swallows everything, which is what non-streaming callers use.
func NewReporter(sink Sink, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		sink:  sink,
		runID: uuid.NewString(),
		log:   logger,
	}
}

// RunID identifies this run in logs and event payloads. Safe on a nil
// reporter, like every other method.
func (r *Reporter) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// Report emits a non-terminal event. Percentages below the last emitted
// value are clamped up to it, so any single subscriber observes a
// non-decreasing sequence regardless of stage interleaving.
func (r *Reporter) Report(step, message string, percent int, payload any) {
	r.emit(Event{Step: step, Message: message, Percent: percent, Payload: payload}, false)
}

// Done emits the successful terminal event.
func (r *Reporter) Done(g *model.Graph, source string) {
	r.emit(Event{
		Step:    StepDone,
		Message: "complete",
		Percent: 100,
		Payload: Result{Graph: g, Source: source},
	}, true)
}

// Error emits the failure terminal event.
func (r *Reporter) Error(message string, fallback *model.Graph) {
	r.emit(Event{
		Step:    StepError,
		Message: message,
		Percent: 100,
		Payload: ErrorResult{Message: message, Fallback: fallback},
	}, true)
}

func (r *Reporter) emit(ev Event, terminal bool) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		if terminal {
			r.log.Warn("second terminal event dropped",
				zap.String("run_id", r.runID), zap.String("step", ev.Step))
		}
		return
	}
	if terminal {
		r.done = true
	}

	if ev.Percent < r.last {
		ev.Percent = r.last
	}
	r.last = ev.Percent

	if r.closed || r.sink == nil {
		return
	}
	if err := r.sink(ev); err != nil {
		r.closed = true
		r.log.Debug("progress transport closed, dropping further events",
			zap.String("run_id", r.runID))
	}
}
