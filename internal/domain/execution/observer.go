package execution

import "time"

// RunInfo describes a run as it starts.
type RunInfo struct {
	RunID       string
	Instance    string
	Total       int
	ResumedFrom int
}

// StepInfo identifies a step within a run.
type StepInfo struct {
	Index int
	Label string
	Total int
}

// Observer receives progress callbacks synchronously on the runner goroutine.
// Implementations must not block for long.
type Observer interface {
	RunStarted(info RunInfo)
	StepStarted(step StepInfo)
	StepSkipped(step StepInfo)
	StepCompleted(step StepInfo, elapsed time.Duration)
	StepFailed(step StepInfo, err error, elapsed time.Duration)
	RunFinished(report *Report)
}

// NopObserver ignores every callback. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) RunStarted(RunInfo)                        {}
func (NopObserver) StepStarted(StepInfo)                      {}
func (NopObserver) StepSkipped(StepInfo)                      {}
func (NopObserver) StepCompleted(StepInfo, time.Duration)     {}
func (NopObserver) StepFailed(StepInfo, error, time.Duration) {}
func (NopObserver) RunFinished(*Report)                       {}

// Observers fans callbacks out in order.
type Observers []Observer

func (o Observers) RunStarted(info RunInfo) {
	for _, obs := range o {
		obs.RunStarted(info)
	}
}

func (o Observers) StepStarted(step StepInfo) {
	for _, obs := range o {
		obs.StepStarted(step)
	}
}

func (o Observers) StepSkipped(step StepInfo) {
	for _, obs := range o {
		obs.StepSkipped(step)
	}
}

func (o Observers) StepCompleted(step StepInfo, elapsed time.Duration) {
	for _, obs := range o {
		obs.StepCompleted(step, elapsed)
	}
}

func (o Observers) StepFailed(step StepInfo, err error, elapsed time.Duration) {
	for _, obs := range o {
		obs.StepFailed(step, err, elapsed)
	}
}

func (o Observers) RunFinished(report *Report) {
	for _, obs := range o {
		obs.RunFinished(report)
	}
}

var (
	_ Observer = NopObserver{}
	_ Observer = Observers(nil)
)
