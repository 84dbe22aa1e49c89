// Package metrics records provisioning runs as Prometheus metrics and
// exports them in the node exporter textfile format.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
)

const namespace = "instancer"

// Step results used as label values.
const (
	ResultCompleted = "completed"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// Recorder is an execution.Observer backed by its own registry, so that one
// run's textfile only carries that run's series.
type Recorder struct {
	registry *prometheus.Registry
	now      func() time.Time

	stepsTotal    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	lastCompleted *prometheus.GaugeVec
	runSuccess    *prometheus.GaugeVec
	runDuration   *prometheus.GaugeVec
	runTimestamp  *prometheus.GaugeVec

	mu       sync.Mutex
	instance string
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		now:      time.Now,

		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "steps_total",
				Help:      "Steps seen by the run by result",
			},
			[]string{"instance", "result"},
		),

		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "step",
				Name:      "duration_seconds",
				Help:      "Duration of executed steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4min
			},
			[]string{"instance", "step", "label"},
		),

		lastCompleted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "last_completed_step",
				Help:      "Highest step index known complete when the run ended",
			},
			[]string{"instance"},
		),

		runSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "success",
				Help:      "Whether the last run completed every step (1) or not (0)",
			},
			[]string{"instance"},
		),

		runDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "duration_seconds",
				Help:      "Wall time of the last run in seconds",
			},
			[]string{"instance"},
		),

		runTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "finished_timestamp_seconds",
				Help:      "Unix time the last run ended",
			},
			[]string{"instance"},
		),
	}

	r.registry.MustRegister(
		r.stepsTotal,
		r.stepDuration,
		r.lastCompleted,
		r.runSuccess,
		r.runDuration,
		r.runTimestamp,
	)
	return r
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) currentInstance() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instance
}

// RunStarted implements execution.Observer.
func (r *Recorder) RunStarted(info execution.RunInfo) {
	r.mu.Lock()
	r.instance = info.Instance
	r.mu.Unlock()

	r.lastCompleted.WithLabelValues(info.Instance).Set(float64(info.ResumedFrom))
}

// StepStarted implements execution.Observer.
func (r *Recorder) StepStarted(execution.StepInfo) {}

// StepSkipped implements execution.Observer.
func (r *Recorder) StepSkipped(execution.StepInfo) {
	r.stepsTotal.WithLabelValues(r.currentInstance(), ResultSkipped).Inc()
}

// StepCompleted implements execution.Observer.
func (r *Recorder) StepCompleted(step execution.StepInfo, elapsed time.Duration) {
	instance := r.currentInstance()
	r.stepsTotal.WithLabelValues(instance, ResultCompleted).Inc()
	r.stepDuration.WithLabelValues(instance, strconv.Itoa(step.Index), step.Label).Observe(elapsed.Seconds())
	r.lastCompleted.WithLabelValues(instance).Set(float64(step.Index))
}

// StepFailed implements execution.Observer.
func (r *Recorder) StepFailed(step execution.StepInfo, _ error, elapsed time.Duration) {
	instance := r.currentInstance()
	r.stepsTotal.WithLabelValues(instance, ResultFailed).Inc()
	r.stepDuration.WithLabelValues(instance, strconv.Itoa(step.Index), step.Label).Observe(elapsed.Seconds())
}

// RunFinished implements execution.Observer.
func (r *Recorder) RunFinished(report *execution.Report) {
	if report == nil {
		return
	}
	instance := report.Instance

	r.lastCompleted.WithLabelValues(instance).Set(float64(report.LastCompleted))
	r.runDuration.WithLabelValues(instance).Set(report.Duration().Seconds())
	r.runTimestamp.WithLabelValues(instance).Set(float64(r.now().Unix()))
	if report.Succeeded() {
		r.runSuccess.WithLabelValues(instance).Set(1)
	} else {
		r.runSuccess.WithLabelValues(instance).Set(0)
	}
}

// WriteTextfile writes every series to path for the node exporter textfile
// collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

var _ execution.Observer = (*Recorder)(nil)
