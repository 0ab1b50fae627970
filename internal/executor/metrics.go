package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "e2erunner",
		Name:      "runs_total",
		Help:      "Executions finished, by kind (single, batch) and status.",
	}, []string{"kind", "status"})
	metricRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "e2erunner",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of executions.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"kind"})
	metricSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "e2erunner",
		Name:      "steps_total",
		Help:      "Executed steps, by step type and status.",
	}, []string{"type", "status"})
	metricArtifactErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "e2erunner",
		Name:      "artifact_errors_total",
		Help:      "Swallowed screenshot, video, trace and cleanup errors.",
	})
)

func recordRun(kind, status string, seconds float64) {
	metricRuns.WithLabelValues(kind, status).Inc()
	metricRunDuration.WithLabelValues(kind).Observe(seconds)
}

func recordStep(stepType, status string) {
	metricSteps.WithLabelValues(stepType, status).Inc()
}

func recordArtifactError() {
	metricArtifactErrors.Inc()
}
