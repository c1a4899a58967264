// Package telemetry exposes internal/analysis's activity as Prometheus
// metrics: how many drivers were ingested, how many overlap checks ran,
// how many diagnostics were emitted (by code and severity), and how
// many modport-propagation fixed-point iterations each run took. Only
// the diagnostics counter is filled in, by RecordDiagnostics; nothing
// in this module updates the driver, overlap-check, side-effect or
// modport-iteration collectors, so they stay at zero. The
// teacher repo never imports prometheus/client_golang directly (it
// only rides along as an OPA transitive dependency); this package
// gives it the first-class home a concurrently-running analyzer
// warrants.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robert-at-pretension-io/hdllint/internal/diag"
)

// Metrics is the set of counters/histograms this analyzer exposes. A
// Metrics value owns its own prometheus.Registry so concurrent test
// runs (or concurrent daemon instances) never collide on the global
// default registry.
type Metrics struct {
	Registry *prometheus.Registry

	DriversIngested        prometheus.Counter
	OverlapChecksPerformed prometheus.Counter
	SideEffectsApplied     prometheus.Counter
	DiagnosticsEmitted     *prometheus.CounterVec
	ModportIterations      prometheus.Histogram
}

// New builds a Metrics registry and registers every collector against it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		DriversIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hdllint",
			Name:      "drivers_ingested_total",
			Help:      "Number of drivers inserted into the driver tracker.",
		}),
		OverlapChecksPerformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hdllint",
			Name:      "overlap_checks_total",
			Help:      "Number of bit-range overlap checks performed between drivers.",
		}),
		SideEffectsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hdllint",
			Name:      "instance_side_effects_applied_total",
			Help:      "Number of interface-port driver side effects replayed onto non-canonical instances.",
		}),
		DiagnosticsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hdllint",
			Name:      "diagnostics_emitted_total",
			Help:      "Number of diagnostics emitted, by code and severity.",
		}, []string{"code", "severity"}),
		ModportIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hdllint",
			Name:      "modport_propagation_iterations",
			Help:      "Number of fixed-point iterations ModportPropagator took per run.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}
}

// RecordDiagnostics tallies a batch of diagnostics collected from a
// diag.Context after analysis completes.
func (m *Metrics) RecordDiagnostics(diags []*diag.Diagnostic) {
	for _, d := range diags {
		sev := "warning"
		if d.Severity() == diag.Error {
			sev = "error"
		}
		m.DiagnosticsEmitted.WithLabelValues(d.Code.String(), sev).Inc()
	}
}

// Handler returns an HTTP handler serving this registry's metrics in
// the Prometheus exposition format, for a CLI to mount behind an
// opt-in `--metrics-addr` flag.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
