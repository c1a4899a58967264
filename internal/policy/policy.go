// Package policy evaluates organizational lint policy (naming
// conventions, structural conventions, anything beyond the hard-wired
// driver-legality checks in internal/analysis) against a design
// snapshot using Open Policy Agent's rego engine, the same "Go facts in,
// OPA rules out" shape the teacher's internal/policy uses for VHDL.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/open-policy-agent/opa/rego"

	"github.com/robert-at-pretension-io/hdllint/internal/facts"
)

// Engine evaluates OPA policies against a design's fact tables.
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
}

// Violation represents a policy violation.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// Result contains the evaluation results.
type Result struct {
	Violations []Violation
	Summary    Summary
}

// Summary provides aggregate counts.
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// Input is the data structure passed to OPA. It mirrors facts.Tables
// with its own field set (rather than importing facts.Tables
// directly) so rego rule field names stay stable even if the internal
// table shapes change.
type Input struct {
	Modules     []Module     `json:"modules"`
	Instances   []Instance   `json:"instances"`
	Ports       []Port       `json:"ports"`
	Signals     []Signal     `json:"signals"`
	Procedures  []Procedure  `json:"procedures"`
	Connections []Connection `json:"connections"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type Module struct {
	Name        string `json:"name"`
	IsInterface bool   `json:"is_interface"`
	File        string `json:"file"`
	Line        int    `json:"line"`
}

type Instance struct {
	Label    string `json:"label"`
	Template string `json:"template"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

type Port struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type Signal struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

type Procedure struct {
	Module string `json:"module"`
	Kind   string `json:"kind"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

type Connection struct {
	Instance string `json:"instance"`
	Port     string `json:"port"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

type Diagnostic struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Symbol   string `json:"symbol"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// InputFromTables converts a facts.Tables snapshot into policy Input.
func InputFromTables(t facts.Tables) Input {
	in := Input{
		Modules:     make([]Module, len(t.Modules)),
		Instances:   make([]Instance, len(t.Instances)),
		Ports:       make([]Port, len(t.Ports)),
		Signals:     make([]Signal, len(t.Signals)),
		Procedures:  make([]Procedure, len(t.Procedures)),
		Connections: make([]Connection, len(t.Connections)),
		Diagnostics: make([]Diagnostic, len(t.Diagnostics)),
	}
	for i, r := range t.Modules {
		in.Modules[i] = Module{Name: r.Name, IsInterface: r.IsInterface, File: r.File, Line: r.Line}
	}
	for i, r := range t.Instances {
		in.Instances[i] = Instance{Label: r.Label, Template: r.Template, File: r.File, Line: r.Line}
	}
	for i, r := range t.Ports {
		in.Ports[i] = Port{Module: r.Module, Name: r.Name, Direction: r.Direction, File: r.File, Line: r.Line}
	}
	for i, r := range t.Signals {
		in.Signals[i] = Signal{Module: r.Module, Name: r.Name, Kind: r.Kind, File: r.File, Line: r.Line}
	}
	for i, r := range t.Procedures {
		in.Procedures[i] = Procedure{Module: r.Module, Kind: r.Kind, File: r.File, Line: r.Line}
	}
	for i, r := range t.Connections {
		in.Connections[i] = Connection{Instance: r.Instance, Port: r.Port, File: r.File, Line: r.Line}
	}
	for i, r := range t.Diagnostics {
		in.Diagnostics[i] = Diagnostic{Code: r.Code, Severity: r.Severity, Symbol: r.Symbol, File: r.File, Line: r.Line, Message: r.Message}
	}
	return in
}

// New creates a new policy engine, loading every *.rego file in policyDir.
func New(policyDir string) (*Engine, error) {
	engine := &Engine{
		queries: make(map[string]rego.PreparedEvalQuery),
	}

	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", policyDir)
	}

	var modules []func(*rego.Rego)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		modules = append(modules, rego.Module(f, string(content)))
	}

	opts := append(modules, rego.Query("data.hdllint.compliance.all_violations"))
	query, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}
	engine.queries["violations"] = query

	opts = append(modules, rego.Query("data.hdllint.compliance.summary"))
	query, err = rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing summary query: %w", err)
	}
	engine.queries["summary"] = query

	return engine, nil
}

// Evaluate runs the policies against the input data.
func (e *Engine) Evaluate(input Input) (*Result, error) {
	ctx := context.Background()

	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	result := &Result{}

	rs, err := e.queries["violations"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if violations, ok := rs[0].Expressions[0].Value.([]interface{}); ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					File:     getString(vmap, "file"),
					Line:     getInt(vmap, "line"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				TotalViolations: getInt(smap, "total_violations"),
				Errors:          getInt(smap, "errors"),
				Warnings:        getInt(smap, "warnings"),
				Info:            getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
