// Package metrics holds the provisioning metrics. The tool is short-lived, so
// instead of serving them they are written to a node-exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry collects only the provisioning metrics, no process or Go runtime ones.
var Registry = prometheus.NewRegistry()

var (
	// RunsTotal counts finished runs.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nvsprov_runs_total",
			Help: "Total number of provisioning runs by mode and result.",
		},
		[]string{"mode", "result"}, // result: success or the error kind
	)

	// StepDuration records how long each workflow step took.
	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nvsprov_step_duration_seconds",
			Help:    "Duration of provisioning workflow steps.",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"step", "result"},
	)

	// LastSuccess is the unix time of the last successful run per mode.
	LastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nvsprov_last_success_timestamp_seconds",
			Help: "Unix time of the last successful provisioning run.",
		},
		[]string{"mode"},
	)
)

func init() {
	Registry.MustRegister(RunsTotal)
	Registry.MustRegister(StepDuration)
	Registry.MustRegister(LastSuccess)
}

// Recorder feeds the package metrics. It satisfies the workflow observer.
type Recorder struct{}

func (Recorder) ObserveStep(step string, d time.Duration, result string) {
	StepDuration.WithLabelValues(step, result).Observe(d.Seconds())
}

func (Recorder) ObserveRun(mode, result string, finished time.Time) {
	RunsTotal.WithLabelValues(mode, result).Inc()
	if result == ResultSuccess {
		LastSuccess.WithLabelValues(mode).Set(float64(finished.Unix()))
	}
}

// ResultSuccess is the result label of a run or step without error.
const ResultSuccess = "success"

// WriteTextfile atomically writes the current metrics in text format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
