package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/robert-at-pretension-io/hdllint/internal/diag"
)

func TestRecordDiagnosticsIncrementsByCodeAndSeverity(t *testing.T) {
	m := New()

	diags := []*diag.Diagnostic{
		{Code: diag.MultipleContAssigns},
		{Code: diag.MultipleContAssigns},
		{Code: diag.InputPortCoercion},
	}
	m.RecordDiagnostics(diags)

	if got := testutil.ToFloat64(m.DiagnosticsEmitted.WithLabelValues("MultipleContAssigns", "error")); got != 2 {
		t.Fatalf("expected 2 MultipleContAssigns/error, got %v", got)
	}
	if got := testutil.ToFloat64(m.DiagnosticsEmitted.WithLabelValues("InputPortCoercion", "warning")); got != 1 {
		t.Fatalf("expected 1 InputPortCoercion/warning, got %v", got)
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	m := New()
	m.DriversIngested.Inc()

	if h := m.Handler(); h == nil {
		t.Fatal("expected non-nil handler")
	}
}
