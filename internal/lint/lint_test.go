package lint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-at-pretension-io/hdllint/internal/config"
)

const lintTestSrc = `
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

func writeTestSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "leaf.hdldesign")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunBuildsTablesFromSingleFile(t *testing.T) {
	path := writeTestSource(t, lintTestSrc)

	result, err := Run([]string{path}, Options{Config: config.DefaultConfig()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Tables.Modules) != 1 || result.Tables.Modules[0].Name != "leaf" {
		t.Fatalf("expected 1 module row named leaf, got %#v", result.Tables.Modules)
	}
	if len(result.Tables.Instances) != 2 {
		t.Fatalf("expected 2 instance rows, got %d", len(result.Tables.Instances))
	}
	if len(result.Tables.Ports) != 2 {
		t.Fatalf("expected 2 port rows, got %d", len(result.Tables.Ports))
	}
	if result.Policy != nil {
		t.Fatalf("expected nil Policy with no PolicyDir configured")
	}
}

func TestRunErrorsOnNoSources(t *testing.T) {
	dir := t.TempDir()
	_, err := Run([]string{dir}, Options{Config: config.DefaultConfig()})
	if err == nil {
		t.Fatal("expected error when no .hdldesign files are found")
	}
}

func TestRunWithPolicyDirEvaluatesPolicy(t *testing.T) {
	path := writeTestSource(t, lintTestSrc)

	policyDir := t.TempDir()
	rego := `package hdllint.compliance

violations[v] {
	false
	v := {}
}

all_violations[v] { violations[v] }

summary = {"total_violations": 0, "errors": 0, "warnings": 0, "info": 0}
`
	if err := os.WriteFile(filepath.Join(policyDir, "empty.rego"), []byte(rego), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, err := Run([]string{path}, Options{Config: config.DefaultConfig(), PolicyDir: policyDir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Policy == nil {
		t.Fatal("expected non-nil Policy with PolicyDir configured")
	}
}
