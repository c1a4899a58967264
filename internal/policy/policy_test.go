package policy

import (
	"testing"

	"github.com/robert-at-pretension-io/hdllint/internal/facts"
)

func TestInputFromTables(t *testing.T) {
	tables := facts.Tables{
		Modules: []facts.ModuleRow{
			{Name: "leaf", File: "a.hdldesign", Line: 1},
		},
		Diagnostics: []facts.DiagnosticRow{
			{Code: "MultipleContAssigns", Severity: "error", File: "a.hdldesign", Line: 5},
		},
	}

	in := InputFromTables(tables)

	if len(in.Modules) != 1 || in.Modules[0].Name != "leaf" {
		t.Fatalf("expected 1 module named leaf, got %#v", in.Modules)
	}
	if len(in.Diagnostics) != 1 || in.Diagnostics[0].Code != "MultipleContAssigns" {
		t.Fatalf("expected 1 diagnostic row, got %#v", in.Diagnostics)
	}
}

func TestNewRequiresPolicyFiles(t *testing.T) {
	if _, err := New(t.TempDir()); err == nil {
		t.Fatal("expected error for directory with no .rego files")
	}
}
