package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successfully produced fix plans.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analysis runs.
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_remediate",
			Name:      "analyses_total",
			Help:      "Total number of error analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_remediate",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	analyzerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_remediate",
			Name:      "analyzer_failures_total",
			Help:      "Analyzer invocations that errored or timed out, partitioned by analyzer.",
		},
		[]string{"analyzer"},
	)

	deploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_remediate",
			Name:      "deployments_total",
			Help:      "Completed deployments, partitioned by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	deploymentDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_remediate",
			Name:      "deployment_seconds",
			Help:      "Wall-clock deployment duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	alarmsFiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_remediate",
			Name:      "alarms_fired_total",
			Help:      "Health alarms raised, partitioned by alarm name.",
		},
		[]string{"alarm"},
	)

	activeAlarms = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mirador_remediate",
			Name:      "active_alarms",
			Help:      "Whether a health alarm is currently raised (1) or clear (0).",
		},
		[]string{"alarm"},
	)
)

// Register attaches mirador-remediate collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		analyzerFailuresTotal,
		deploymentsTotal,
		deploymentDurationSeconds,
		alarmsFiredTotal,
		activeAlarms,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// RecordAnalyzerFailure counts a failed analyzer invocation.
func RecordAnalyzerFailure(analyzer string) {
	analyzerFailuresTotal.WithLabelValues(analyzer).Inc()
}

// ObserveDeployment records a finished deployment.
func ObserveDeployment(strategy, outcome string, duration time.Duration) {
	deploymentsTotal.WithLabelValues(strategy, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	deploymentDurationSeconds.Observe(duration.Seconds())
}

// AlarmRaised marks an alarm as active and counts the firing.
func AlarmRaised(alarm string) {
	alarmsFiredTotal.WithLabelValues(alarm).Inc()
	activeAlarms.WithLabelValues(alarm).Set(1)
}

// AlarmCleared marks an alarm as resolved.
func AlarmCleared(alarm string) {
	activeAlarms.WithLabelValues(alarm).Set(0)
}
