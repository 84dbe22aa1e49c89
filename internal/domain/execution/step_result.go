package execution

import (
	"time"
)

// StepState is the runner's view of a single step.
type StepState string

const (
	StepPending   StepState = "pending"
	StepRunning   StepState = "running"
	StepCompleted StepState = "completed"
	StepFailed    StepState = "failed"
)

// String returns the string representation of the state.
func (s StepState) String() string {
	return string(s)
}

// StepResult captures the outcome of one step in one run.
type StepResult struct {
	Index    int
	Label    string
	State    StepState
	Skipped  bool
	Duration time.Duration
	Err      error
}

// Success reports whether the step ended completed, whether run or skipped.
func (r StepResult) Success() bool {
	return r.State == StepCompleted
}

// Report summarises a run.
type Report struct {
	RunID       string
	Instance    string
	State       RunState
	Total       int
	ResumedFrom int
	// LastCompleted is the highest index known complete when the run ended.
	LastCompleted int
	Results       []StepResult
	StartedAt     time.Time
	FinishedAt    time.Time
	// Err is the error that aborted the run, if any.
	Err error
	// ClearErr records a failure to remove the checkpoint after success.
	ClearErr error
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Executed returns how many bodies were invoked.
func (r *Report) Executed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Skipped {
			n++
		}
	}
	return n
}

// SkippedCount returns how many steps were skipped as already complete.
func (r *Report) SkippedCount() int {
	return len(r.Results) - r.Executed()
}

// Failed returns the failed step, if any.
func (r *Report) Failed() (StepResult, bool) {
	for _, res := range r.Results {
		if res.State == StepFailed {
			return res, true
		}
	}
	return StepResult{}, false
}

// Succeeded reports whether every step completed.
func (r *Report) Succeeded() bool {
	return r.State == RunSucceeded
}
