package progress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chainmap/internal/model"
)

func collectingSink(events *[]Event) Sink {
	return func(ev Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestPercentagesAreMonotonic(t *testing.T) {
	var events []Event
	r := NewReporter(collectingSink(&events), nil)

	r.Report(StepClassify, "classifying", 10, nil)
	r.Report(StepStructure, "structuring", 35, nil)
	// Out-of-order completion reports a lower percent; it must clamp up.
	r.Report(StepExpand, "expanding", 20, nil)
	r.Done(&model.Graph{}, "generate")

	require.Len(t, events, 4)
	last := -1
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Percent, last)
		last = ev.Percent
	}
	assert.Equal(t, 35, events[2].Percent)
}

func TestExactlyOneTerminalEvent(t *testing.T) {
	var events []Event
	r := NewReporter(collectingSink(&events), nil)

	r.Report(StepClassify, "classifying", 10, nil)
	r.Done(&model.Graph{}, "generate")
	r.Error("late failure", nil)
	r.Done(&model.Graph{}, "generate")
	r.Report(StepExpand, "late report", 50, nil)

	require.Len(t, events, 2)
	assert.Equal(t, StepDone, events[1].Step)
	assert.Equal(t, 100, events[1].Percent)

	payload, ok := events[1].Payload.(Result)
	require.True(t, ok)
	assert.Equal(t, "generate", payload.Source)
}

func TestErrorTerminalCarriesFallback(t *testing.T) {
	var events []Event
	r := NewReporter(collectingSink(&events), nil)

	fb := &model.Graph{Subject: "skeleton"}
	r.Error("collaborator unavailable", fb)

	require.Len(t, events, 1)
	assert.Equal(t, StepError, events[0].Step)
	payload, ok := events[0].Payload.(ErrorResult)
	require.True(t, ok)
	assert.Same(t, fb, payload.Fallback)
}

func TestClosedSinkDropsSilently(t *testing.T) {
	delivered := 0
	failing := func(ev Event) error {
		delivered++
		if delivered >= 2 {
			return errors.New("transport closed")
		}
		return nil
	}
	r := NewReporter(failing, nil)

	r.Report(StepClassify, "one", 10, nil)
	r.Report(StepStructure, "two", 20, nil) // sink errors here
	r.Report(StepExpand, "three", 30, nil)  // must not reach the sink
	r.Done(&model.Graph{}, "generate")      // nor this

	assert.Equal(t, 2, delivered)
}

func TestNilReporterAndNilSinkAreSafe(t *testing.T) {
	var r *Reporter
	r.Report(StepClassify, "ignored", 10, nil)
	r.Done(nil, "generate")

	r = NewReporter(nil, nil)
	r.Report(StepClassify, "swallowed", 10, nil)
	r.Error("swallowed", nil)
}
