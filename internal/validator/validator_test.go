package validator

import (
	"testing"

	"github.com/robert-at-pretension-io/hdllint/internal/facts"
	"github.com/robert-at-pretension-io/hdllint/internal/policy"
)

func TestFactsValidatorAcceptsWellFormedTables(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("NewFactsValidator: %v", err)
	}

	tables := facts.Tables{
		Modules:     []facts.ModuleRow{{Name: "leaf", File: "a.hdldesign", Line: 1}},
		Instances:   []facts.InstanceRow{},
		Ports:       []facts.PortRow{},
		Signals:     []facts.SignalRow{},
		Procedures:  []facts.ProcedureRow{},
		Connections: []facts.ConnectionRow{},
		Diagnostics: []facts.DiagnosticRow{},
	}

	if err := v.Validate(tables); err != nil {
		t.Fatalf("expected valid tables, got error: %v", err)
	}
}

func TestFactsValidatorRejectsUnknownField(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("NewFactsValidator: %v", err)
	}

	bad := map[string]any{
		"modules":      []any{},
		"instances":    []any{},
		"ports":        []any{},
		"signals":      []any{},
		"procedures":   []any{},
		"connections":  []any{},
		"diagnostics":  []any{},
		"unknownField": "surprise",
	}

	if err := v.Validate(bad); err == nil {
		t.Fatal("expected validation error for unknown field")
	}
}

func TestOutputValidatorAcceptsWellFormedResult(t *testing.T) {
	v, err := NewOutputValidator()
	if err != nil {
		t.Fatalf("NewOutputValidator: %v", err)
	}

	result := policy.Result{
		Violations: []policy.Violation{
			{Rule: "module_naming_convention", Severity: "warning", File: "a.hdldesign", Line: 1, Message: "bad name"},
		},
		Summary: policy.Summary{TotalViolations: 1, Warnings: 1},
	}

	if err := v.Validate(result); err != nil {
		t.Fatalf("expected valid result, got error: %v", err)
	}
}
