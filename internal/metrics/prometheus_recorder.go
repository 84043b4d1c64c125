package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	phaseDuration     *prom.HistogramVec
	buildDuration     prom.Histogram
	phaseResults      *prom.CounterVec
	buildOutcome      *prom.CounterVec
	transformDuration *prom.HistogramVec
	transformResults  *prom.CounterVec
	workerConcurrency prom.Gauge
	graphSize         prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "assetpipe",
			Name:      "phase_duration_seconds",
			Help:      "Duration of individual build phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "assetpipe",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.phaseResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetpipe",
			Name:      "phase_results_total",
			Help:      "Phase result counts by outcome",
		}, []string{"phase", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetpipe",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.transformDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "assetpipe",
			Name:      "transform_duration_seconds",
			Help:      "Duration of individual stage transforms",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.transformResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetpipe",
			Name:      "transform_results_total",
			Help:      "Transform results by success/failure",
		}, []string{"stage", "result"})
		pr.workerConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "assetpipe",
			Name:      "worker_concurrency",
			Help:      "Configured transform worker concurrency for the last build",
		})
		pr.graphSize = prom.NewGauge(prom.GaugeOpts{
			Namespace: "assetpipe",
			Name:      "graph_nodes",
			Help:      "Number of nodes in the asset graph after discovery",
		})
		reg.MustRegister(pr.phaseDuration, pr.buildDuration, pr.phaseResults, pr.buildOutcome,
			pr.transformDuration, pr.transformResults, pr.workerConcurrency, pr.graphSize)
	})
	return pr
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	if p == nil || p.phaseDuration == nil {
		return
	}
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhaseResult(phase string, result ResultLabel) {
	if p == nil || p.phaseResults == nil {
		return
	}
	p.phaseResults.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveTransformDuration(stage string, d time.Duration) {
	if p == nil || p.transformDuration == nil {
		return
	}
	p.transformDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTransformResult(stage string, success bool) {
	if p == nil || p.transformResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.transformResults.WithLabelValues(stage, res).Inc()
}

func (p *PrometheusRecorder) SetWorkerConcurrency(n int) {
	if p == nil || p.workerConcurrency == nil {
		return
	}
	p.workerConcurrency.Set(float64(n))
}

func (p *PrometheusRecorder) SetGraphSize(nodes int) {
	if p == nil || p.graphSize == nil {
		return
	}
	p.graphSize.Set(float64(nodes))
}
