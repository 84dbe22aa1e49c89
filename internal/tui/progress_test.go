package tui

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
)

func step(index int, label string) execution.StepInfo {
	return execution.StepInfo{Index: index, Label: label, Total: 3}
}

func feed(t *testing.T, m progressModel, msgs ...tea.Msg) progressModel {
	t.Helper()
	var model tea.Model = m
	for _, msg := range msgs {
		model, _ = model.Update(msg)
	}
	out, ok := model.(progressModel)
	require.True(t, ok)
	return out
}

func TestProgressModel_Init(t *testing.T) {
	t.Parallel()

	model := newProgressModel(nil)
	assert.NotNil(t, model.Init(), "Init should start the spinner")
}

func TestProgressModel_WindowResize(t *testing.T) {
	t.Parallel()

	m := feed(t, newProgressModel(nil), tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, m.width)
	assert.Equal(t, 60, m.bar.Width)
}

func TestProgressModel_TracksSteps(t *testing.T) {
	t.Parallel()

	m := feed(t, newProgressModel(nil),
		RunStartedMsg{Info: execution.RunInfo{Instance: "bob", Total: 3, ResumedFrom: 1}},
		StepSkippedMsg{Step: step(1, "Install database engine")},
		StepStartedMsg{Step: step(2, "Create instance user")},
	)

	require.NotNil(t, m.current)
	assert.Equal(t, 2, m.current.Index)
	assert.InDelta(t, 1.0/3.0, m.percent(), 0.001)

	view := m.View()
	assert.Contains(t, view, "Provisioning bob")
	assert.Contains(t, view, "Progress: 1/3 steps (resumed after step 1)")
	assert.Contains(t, view, "Install database engine")
	assert.Contains(t, view, "done earlier")
	assert.Contains(t, view, "Create instance user")
	assert.Contains(t, view, "Ctrl+C")

	m = feed(t, m, StepCompletedMsg{Step: step(2, "Create instance user"), Elapsed: time.Second})
	assert.Nil(t, m.current)
	assert.Equal(t, 2, m.finished())
}

func TestProgressModel_Failure(t *testing.T) {
	t.Parallel()

	report := &execution.Report{
		Instance:      "bob",
		State:         execution.RunAborted,
		Total:         3,
		LastCompleted: 1,
	}
	m := feed(t, newProgressModel(nil),
		RunStartedMsg{Info: execution.RunInfo{Instance: "bob", Total: 3}},
		StepStartedMsg{Step: step(1, "first")},
		StepCompletedMsg{Step: step(1, "first")},
		StepStartedMsg{Step: step(2, "second")},
		StepFailedMsg{Step: step(2, "second"), Err: errors.New("clone failed")},
		RunFinishedMsg{Report: report},
	)

	updated, cmd := m.Update(runDoneMsg{report: report, err: errors.New("step 2 failed")})
	m = updated.(progressModel)

	assert.True(t, m.done)
	assert.NotNil(t, cmd, "run completion should quit the program")
	assert.Equal(t, 1, m.finished())

	view := m.View()
	assert.Contains(t, view, "clone failed")
	assert.Contains(t, view, "Aborted after step 1. Re-run to resume from step 2.")
	assert.NotContains(t, view, "Ctrl+C")
}

func TestProgressModel_Success(t *testing.T) {
	t.Parallel()

	report := &execution.Report{
		Instance:      "bob",
		State:         execution.RunSucceeded,
		Total:         1,
		LastCompleted: 1,
		Results:       []execution.StepResult{{Index: 1, Label: "only", State: execution.StepCompleted}},
	}
	m := feed(t, newProgressModel(nil),
		RunStartedMsg{Info: execution.RunInfo{Instance: "bob", Total: 1}},
		StepCompletedMsg{Step: step(1, "only")},
		runDoneMsg{report: report},
	)

	assert.Contains(t, m.View(), "Succeeded: 1 steps run, 0 skipped.")
}

func TestProgressModel_CtrlCCancels(t *testing.T) {
	t.Parallel()

	calls := 0
	m := feed(t, newProgressModel(func() { calls++ }),
		tea.KeyMsg{Type: tea.KeyCtrlC},
		tea.KeyMsg{Type: tea.KeyCtrlC},
	)

	assert.Equal(t, 1, calls)
	assert.True(t, m.cancelled)
	assert.False(t, m.done, "the view waits for the run to return")
	assert.Contains(t, m.View(), "Interrupting")
}

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestProgramObserver_ForwardsEvents(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	obs := NewProgramObserver(rec.send)
	failure := errors.New("boom")

	obs.RunStarted(execution.RunInfo{Instance: "bob", Total: 2})
	obs.StepSkipped(step(1, "a"))
	obs.StepStarted(step(2, "b"))
	obs.StepFailed(step(2, "b"), failure, time.Millisecond)
	obs.RunFinished(&execution.Report{Instance: "bob"})

	require.Len(t, rec.msgs, 5)
	assert.IsType(t, RunStartedMsg{}, rec.msgs[0])
	assert.IsType(t, StepSkippedMsg{}, rec.msgs[1])
	assert.IsType(t, StepStartedMsg{}, rec.msgs[2])
	failed, ok := rec.msgs[3].(StepFailedMsg)
	require.True(t, ok)
	assert.Equal(t, failure, failed.Err)
	assert.Equal(t, 2, failed.Step.Index)
	assert.IsType(t, RunFinishedMsg{}, rec.msgs[4])
}
