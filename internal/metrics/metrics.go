// Package metrics exposes the engine's Prometheus instrumentation: call
// counters, a termination-reason breakdown, and cumulative bytes
// processed, mirroring how aistore wires prometheus/client_golang
// counters/gauges into its target and proxy stats.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector registered for the engine. A nil
// *Metrics is never passed around; callers wire a concrete instance at
// startup and hold it for the process lifetime.
type Metrics struct {
	CallsStarted         prometheus.Counter
	CallsFinished        prometheus.Counter
	ActiveCalls          prometheus.Gauge
	TerminationsByReason *prometheus.CounterVec
	ProcessedInputBytes  prometheus.Counter
	ProcessedOutputBytes prometheus.Counter
}

// New constructs a Metrics bundle and registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	var m = &Metrics{
		CallsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gsttransformer",
			Name:      "calls_started_total",
			Help:      "Total number of Transform calls accepted.",
		}),
		CallsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gsttransformer",
			Name:      "calls_finished_total",
			Help:      "Total number of Transform calls that returned.",
		}),
		ActiveCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gsttransformer",
			Name:      "active_calls",
			Help:      "Number of Transform calls currently in flight.",
		}),
		TerminationsByReason: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gsttransformer",
			Name:      "terminations_total",
			Help:      "Total number of calls terminated, by reason.",
		}, []string{"reason"}),
		ProcessedInputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gsttransformer",
			Name:      "processed_input_bytes_total",
			Help:      "Cumulative bytes handed to pipelines via addData.",
		}),
		ProcessedOutputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gsttransformer",
			Name:      "processed_output_bytes_total",
			Help:      "Cumulative bytes pulled from pipeline sinks.",
		}),
	}
	reg.MustRegister(
		m.CallsStarted,
		m.CallsFinished,
		m.ActiveCalls,
		m.TerminationsByReason,
		m.ProcessedInputBytes,
		m.ProcessedOutputBytes,
	)
	return m
}
