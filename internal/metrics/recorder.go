// Package metrics provides observability hooks for build and phase metrics.
//
// All components default to NoopRecorder, so metrics collection is optional
// and requires no nil checks at call sites. Injecting PrometheusRecorder
// activates real collection.
package metrics

import "time"

// ResultLabel enumerates phase result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
	ResultSkipped  ResultLabel = "skipped"
)

// Recorder defines observability hooks for build and phase metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObservePhaseDuration(phase string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncPhaseResult(phase string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|failed|canceled|skipped
	ObserveTransformDuration(stage string, d time.Duration)
	IncTransformResult(stage string, success bool)
	SetWorkerConcurrency(n int)
	SetGraphSize(nodes int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, time.Duration)     {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)             {}
func (NoopRecorder) IncPhaseResult(string, ResultLabel)             {}
func (NoopRecorder) IncBuildOutcome(string)                         {}
func (NoopRecorder) ObserveTransformDuration(string, time.Duration) {}
func (NoopRecorder) IncTransformResult(string, bool)                {}
func (NoopRecorder) SetWorkerConcurrency(int)                       {}
func (NoopRecorder) SetGraphSize(int)                               {}
