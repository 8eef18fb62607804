// Package prometheus provides Prometheus metrics for the silence-analysis
// pipeline.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "silencekit"

// Status label values for run and trim outcomes.
const (
	StatusCompletedFlagged = "completed_flagged"
	StatusCompletedClean   = "completed_clean"
	StatusErrored          = "errored"
	StatusRejected         = "rejected"
	StatusSuccess          = "success"
	StatusError            = "error"
)

var (
	// runsTotal counts analysis runs by outcome.
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of analysis runs by outcome",
		},
		[]string{"status"}, // completed_flagged, completed_clean, errored, rejected
	)

	// runDuration is a histogram of end-to-end analysis run duration.
	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Histogram of end-to-end analysis run duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// stageDuration is a histogram of per-stage duration.
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Histogram of per-stage processing duration in seconds",
			Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"stage"}, // normalize, segment, classify, alert
	)

	// runsActive is a gauge of analysis runs currently in flight.
	runsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of analysis runs currently in flight",
		},
	)

	// unnaturalSilencesTotal counts flagged silence intervals.
	unnaturalSilencesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unnatural_silences_total",
			Help:      "Total number of unnatural silence intervals detected",
		},
	)

	// alertFailuresTotal counts alerts that could not be delivered.
	alertFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_failures_total",
			Help:      "Total number of alert delivery failures",
		},
	)

	// sweepDeletedTotal counts recordings removed by the retention sweeper.
	sweepDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_deleted_total",
			Help:      "Total number of expired recordings deleted by the sweeper",
		},
	)

	// trimsTotal counts trim operations by outcome.
	trimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trims_total",
			Help:      "Total number of trim operations by outcome",
		},
		[]string{"status"}, // success, error
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		runsTotal,
		runDuration,
		stageDuration,
		runsActive,
		unnaturalSilencesTotal,
		alertFailuresTotal,
		sweepDeletedTotal,
		trimsTotal,
	}
)

// RecordRunStart records an analysis run entering flight.
func RecordRunStart() {
	runsActive.Inc()
}

// RecordRunEnd records an analysis run leaving flight with its outcome.
func RecordRunEnd(status string, durationSeconds float64) {
	runsActive.Dec()
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(durationSeconds)
}

// RecordRunRejected records a run rejected because the recording was already
// being processed. Rejected runs never enter flight.
func RecordRunRejected() {
	runsTotal.WithLabelValues(StatusRejected).Inc()
}

// RecordStageDuration records the duration of one pipeline stage.
func RecordStageDuration(stage string, durationSeconds float64) {
	stageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordUnnaturalSilences records flagged silence intervals from one run.
func RecordUnnaturalSilences(count int) {
	if count > 0 {
		unnaturalSilencesTotal.Add(float64(count))
	}
}

// RecordAlertFailure records a failed alert delivery.
func RecordAlertFailure() {
	alertFailuresTotal.Inc()
}

// RecordSweepDeleted records recordings removed by a retention sweep.
func RecordSweepDeleted(count int) {
	if count > 0 {
		sweepDeletedTotal.Add(float64(count))
	}
}

// RecordTrim records a trim operation outcome.
func RecordTrim(status string) {
	trimsTotal.WithLabelValues(status).Inc()
}
