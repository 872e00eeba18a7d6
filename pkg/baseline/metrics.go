package baseline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "baseline",
		Name:      "recoveries_total",
		Help:      "Recovery runs by outcome (reached, failed).",
	}, []string{"outcome"})
	metricSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "baseline",
		Name:      "steps_total",
		Help:      "Recovery steps by state and status.",
	}, []string{"state", "status"})
	metricDrainTaps = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "baseline",
		Name:      "drain_taps",
		Help:      "Taps needed to drain a navigation stack.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 25},
	}, []string{"state"})
	metricDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "baseline",
		Name:      "recovery_duration_seconds",
		Help:      "Wall time of a recovery run.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
	})
)

func recordRun(r *Report) {
	outcome := "reached"
	if r.Err != nil {
		outcome = "failed"
	}
	metricRuns.WithLabelValues(outcome).Inc()
	metricDuration.Observe(r.Duration.Seconds())
}

func recordStep(res StepResult) {
	metricSteps.WithLabelValues(string(res.State), res.Status.String()).Inc()
	if res.State == StateBackStack || res.State == StateCloseStack {
		metricDrainTaps.WithLabelValues(string(res.State)).Observe(float64(res.Taps))
	}
}
