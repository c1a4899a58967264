package facts

import (
	"testing"

	"github.com/robert-at-pretension-io/hdllint/internal/design"
	"github.com/robert-at-pretension-io/hdllint/internal/diag"
)

const tablesTestSrc = `
module leaf
  port in a
  port out b
  net wire w
  always_comb
    assign b = a
  end
endmodule

instance u1 leaf
instance u2 leaf
`

func TestBuildTablesPopulatesCoreRelations(t *testing.T) {
	d, err := design.Load(tablesTestSrc, "test.hdldesign")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tables := BuildTables(d, nil)

	if len(tables.Modules) != 1 || tables.Modules[0].Name != "leaf" {
		t.Fatalf("expected 1 module row named leaf, got %#v", tables.Modules)
	}
	if len(tables.Instances) != 2 {
		t.Fatalf("expected 2 instance rows, got %d", len(tables.Instances))
	}
	if len(tables.Ports) != 2 {
		t.Fatalf("expected 2 port rows, got %d", len(tables.Ports))
	}
	if len(tables.Signals) != 1 || tables.Signals[0].Kind != "net" {
		t.Fatalf("expected 1 net signal row, got %#v", tables.Signals)
	}
	if len(tables.Procedures) != 1 || tables.Procedures[0].Kind != "always_comb" {
		t.Fatalf("expected 1 always_comb procedure row, got %#v", tables.Procedures)
	}
}

func TestBuildTablesIncludesDiagnostics(t *testing.T) {
	d, err := design.Load(tablesTestSrc, "test.hdldesign")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	diags := []*diag.Diagnostic{
		{Code: diag.MultipleContAssigns, Args: []any{"w"}},
	}

	tables := BuildTables(d, diags)
	if len(tables.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic row, got %d", len(tables.Diagnostics))
	}
	if tables.Diagnostics[0].Code != "MultipleContAssigns" {
		t.Fatalf("unexpected code: %q", tables.Diagnostics[0].Code)
	}
	if tables.Diagnostics[0].Severity != "error" {
		t.Fatalf("unexpected severity: %q", tables.Diagnostics[0].Severity)
	}
}
