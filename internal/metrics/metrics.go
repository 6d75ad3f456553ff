// Package metrics counts tool invocations and toolchain installs.
//
// dsdn is a short-lived command, so metrics are exported by writing the
// registry to a node_exporter textfile rather than serving them.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	installs *prometheus.CounterVec
}

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dsdn",
			Name:      "process_runs_total",
			Help:      "External tool invocations by tool and exit code.",
		}, []string{"tool", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dsdn",
			Name:      "process_duration_seconds",
			Help:      "Wall time of external tool invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
		}, []string{"tool"}),
		installs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dsdn",
			Name:      "toolchain_installs_total",
			Help:      "Toolchain install checks by tool and outcome.",
		}, []string{"tool", "outcome"}),
	}
	r.registry.MustRegister(r.runs, r.duration, r.installs)
	return r
}

// ObserveRun records one finished process.
func (r *Recorder) ObserveRun(tool string, code int, d time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(tool, strconv.Itoa(code)).Inc()
	r.duration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveInstall records the outcome of an install check: "present",
// "installed" or "failed".
func (r *Recorder) ObserveInstall(tool, outcome string) {
	if r == nil {
		return
	}
	r.installs.WithLabelValues(tool, outcome).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile atomically writes the current metrics to path in the text
// exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
