package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObservePhaseDuration("transforming", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncPhaseResult("transforming", ResultSuccess)
	pr.IncBuildOutcome("success")
	pr.ObserveTransformDuration("cssmin", 5*time.Millisecond)
	pr.IncTransformResult("cssmin", true)
	pr.SetWorkerConcurrency(4)
	pr.SetGraphSize(42)
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestNilRecorderSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObservePhaseDuration("hashing", time.Millisecond)
	pr.IncBuildOutcome("failed")
	pr.SetGraphSize(1)
}

func TestNoopRecorderImplementsRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveBuildDuration(time.Second)
	r.IncPhaseResult("emitting", ResultCanceled)
}
