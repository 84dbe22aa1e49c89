package execution

import (
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"
)

// RunState is the lifecycle state of a run.
type RunState string

const (
	RunNotStarted RunState = "not-started"
	RunInProgress RunState = "in-progress"
	RunSucceeded  RunState = "succeeded"
	RunAborted    RunState = "aborted"
)

// String returns the string representation of the state.
func (s RunState) String() string {
	return string(s)
}

// Event types for the run state machine.
const (
	EventStart  = "START"
	EventFinish = "FINISH"
	EventAbort  = "ABORT"
	EventReset  = "RESET"
)

// runTimes is written by machine actions through a captured pointer.
type runTimes struct {
	mu         sync.Mutex
	now        func() time.Time
	startedAt  time.Time
	finishedAt time.Time
	abortCause error
}

func (t *runTimes) recordStart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedAt = t.now()
	t.finishedAt = time.Time{}
	t.abortCause = nil
}

func (t *runTimes) recordFinish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishedAt = t.now()
}

func (t *runTimes) recordAbort(cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishedAt = t.now()
	t.abortCause = cause
}

func (t *runTimes) snapshot() (time.Time, time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt, t.finishedAt, t.abortCause
}

// machineContext is the statekit context type. Actions use the captured
// runTimes pointer instead, since statekit hands them a copy.
type machineContext struct{}

// runMachine tracks a run through not-started, in-progress and one of the
// terminal states. Terminal states only accept RESET.
type runMachine struct {
	interp *statekit.Interpreter[machineContext]
	times  *runTimes
}

func newRunMachine(now func() time.Time) (*runMachine, error) {
	times := &runTimes{now: now}

	machine, err := statekit.NewMachine[machineContext]("instancer-run").
		WithInitial(statekit.StateID(RunNotStarted)).
		WithContext(machineContext{}).
		WithAction("recordStart", func(_ *machineContext, _ statekit.Event) {
			times.recordStart()
		}).
		WithAction("recordFinish", func(_ *machineContext, _ statekit.Event) {
			times.recordFinish()
		}).
		WithAction("recordAbort", func(_ *machineContext, event statekit.Event) {
			if payload, ok := event.Payload.(map[string]interface{}); ok {
				if err, ok := payload["error"].(error); ok {
					times.recordAbort(err)
					return
				}
			}
			times.recordAbort(nil)
		}).
		State(statekit.StateID(RunNotStarted)).
		On(EventStart).Target(statekit.StateID(RunInProgress)).Done().
		State(statekit.StateID(RunInProgress)).
		OnEntry("recordStart").
		On(EventFinish).Target(statekit.StateID(RunSucceeded)).
		On(EventAbort).Target(statekit.StateID(RunAborted)).Done().
		State(statekit.StateID(RunSucceeded)).
		OnEntry("recordFinish").
		On(EventReset).Target(statekit.StateID(RunNotStarted)).Done().
		State(statekit.StateID(RunAborted)).
		OnEntry("recordAbort").
		On(EventReset).Target(statekit.StateID(RunNotStarted)).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build run state machine: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &runMachine{interp: interp, times: times}, nil
}

func (m *runMachine) State() RunState {
	return RunState(m.interp.State().Value)
}

func (m *runMachine) start() {
	m.interp.Send(statekit.Event{Type: EventStart})
}

func (m *runMachine) finish() {
	m.interp.Send(statekit.Event{Type: EventFinish})
}

func (m *runMachine) abort(cause error) {
	m.interp.Send(statekit.Event{
		Type:    EventAbort,
		Payload: map[string]interface{}{"error": cause},
	})
}

func (m *runMachine) reset() {
	m.interp.Send(statekit.Event{Type: EventReset})
}

func (m *runMachine) stop() {
	m.interp.Stop()
}
