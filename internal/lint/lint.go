// Package lint orchestrates one end-to-end analysis run: load every
// configured .hdldesign source, feed it through analysis.DriverTracker,
// flatten the result into fact tables, and optionally evaluate
// organizational policy against them. It plays the role the teacher's
// internal/indexer plays between extraction and policy evaluation, but
// sized to this domain's much shorter pipeline (elaboration is already
// done by internal/design.Load; there is no cross-file symbol table or
// dependency resolution to build).
package lint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/hdllint/internal/analysis"
	"github.com/robert-at-pretension-io/hdllint/internal/config"
	"github.com/robert-at-pretension-io/hdllint/internal/design"
	"github.com/robert-at-pretension-io/hdllint/internal/diag"
	"github.com/robert-at-pretension-io/hdllint/internal/facts"
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
	"github.com/robert-at-pretension-io/hdllint/internal/policy"
	"github.com/robert-at-pretension-io/hdllint/internal/procedure"
	"github.com/robert-at-pretension-io/hdllint/internal/telemetry"
)

// Options configures one Run.
type Options struct {
	Config    *config.Config
	PolicyDir string // empty disables policy evaluation
	Metrics   *telemetry.Metrics
}

// Result is the outcome of one Run: every diagnostic the driver
// tracker reported, the flattened fact tables built from the merged
// design, and (if a policy directory was configured) the organizational
// policy evaluation result.
type Result struct {
	Diagnostics []*diag.Diagnostic
	Tables      facts.Tables
	Policy      *policy.Result
}

// Run loads every source path (file or directory; directories are
// walked for *.hdldesign files), analyzes the merged design, and
// returns the combined result.
func Run(sources []string, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	files, err := collectFiles(sources, cfg)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hdldesign files found")
	}

	manager := &diag.Manager{}
	manager.AllowDupInitialDrivers, manager.MaxModportIterations = cfg.ToManagerFlags()
	ctx := diag.NewContext(nil, manager)
	tracker := analysis.NewDriverTracker(ctx)

	result := &Result{Tables: facts.Tables{
		Modules:     []facts.ModuleRow{},
		Instances:   []facts.InstanceRow{},
		Ports:       []facts.PortRow{},
		Signals:     []facts.SignalRow{},
		Procedures:  []facts.ProcedureRow{},
		Connections: []facts.ConnectionRow{},
		Diagnostics: []facts.DiagnosticRow{},
	}}

	for _, file := range files {
		if cfg.ShouldIgnoreFile(file) {
			continue
		}
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}

		d, err := design.Load(string(src), file)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}

		analyzeDesign(d, tracker)

		fileTables := facts.BuildTables(d, nil)
		appendTables(&result.Tables, fileTables)
	}

	tracker.PropagateModportDrivers()

	diags := ctx.Diagnostics()
	result.Diagnostics = diags
	result.Tables.Diagnostics = diagnosticRows(diags, cfg)

	if opts.Metrics != nil {
		opts.Metrics.RecordDiagnostics(diags)
	}

	if opts.PolicyDir != "" {
		engine, err := policy.New(opts.PolicyDir)
		if err != nil {
			return nil, fmt.Errorf("loading policy: %w", err)
		}
		pr, err := engine.Evaluate(policy.InputFromTables(result.Tables))
		if err != nil {
			return nil, fmt.Errorf("evaluating policy: %w", err)
		}
		result.Policy = pr
	}

	return result, nil
}

// analyzeDesign feeds every fact in d through tracker, in the order
// the specification's add() overloads assume: ports first (so a
// port's own internal-facing drive is recorded regardless of whether
// anything instantiates the module), then procedures, then instance
// port connections, then non-canonical-instance replay.
func analyzeDesign(d *design.Design, tracker *analysis.DriverTracker) {
	for _, body := range d.Modules {
		for _, port := range body.Ports() {
			if p, ok := port.(*hdlast.PortSymbol); ok {
				tracker.AddPort(p, body)
			}
		}
	}

	for _, pb := range d.Procedures {
		for _, pd := range procedure.Analyze(pb.ToProcedureBlock()) {
			tracker.AddProcedure(pd)
		}
	}

	for _, pc := range d.PortConnections {
		tracker.AddPortConnection(pc.Port, pc.Expr, pc.ContainingSymbol)
	}

	for _, inst := range d.NonCanonicalInstances() {
		tracker.Instances.NoteNonCanonicalInstance(inst)
	}
}

func diagnosticRows(diags []*diag.Diagnostic, cfg *config.Config) []facts.DiagnosticRow {
	rows := make([]facts.DiagnosticRow, 0, len(diags))
	for _, d := range diags {
		if !cfg.IsRuleEnabled(d.Code.String()) {
			continue
		}
		symName := ""
		if d.Symbol != nil {
			symName = d.Symbol.Name()
		}
		defaultSeverity := "warning"
		if d.Severity() == diag.Error {
			defaultSeverity = "error"
		}
		severity := cfg.GetRuleSeverity(d.Code.String(), defaultSeverity)
		rows = append(rows, facts.DiagnosticRow{
			Code:     d.Code.String(),
			Severity: severity,
			Symbol:   symName,
			File:     d.Range.Start.File,
			Line:     d.Range.Start.Line,
			Message:  d.Message(),
		})
	}
	return rows
}

func appendTables(dst *facts.Tables, src facts.Tables) {
	dst.Modules = append(dst.Modules, src.Modules...)
	dst.Instances = append(dst.Instances, src.Instances...)
	dst.Ports = append(dst.Ports, src.Ports...)
	dst.Signals = append(dst.Signals, src.Signals...)
	dst.Procedures = append(dst.Procedures, src.Procedures...)
	dst.Connections = append(dst.Connections, src.Connections...)
}

// collectFiles expands sources (files or directories) into a sorted,
// deduped list of .hdldesign file paths. When sources is empty, it
// defers entirely to cfg.Sources (a list of glob patterns, honoring
// "**" for recursive matching) via cfg.ResolveSources.
func collectFiles(sources []string, cfg *config.Config) ([]string, error) {
	if len(sources) == 0 {
		return cfg.ResolveSources(".")
	}

	seen := make(map[string]bool)
	var out []string
	for _, src := range sources {
		matches, err := filepath.Glob(src)
		if err != nil {
			return nil, fmt.Errorf("bad source pattern %q: %w", src, err)
		}
		if matches == nil {
			matches = []string{src}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				continue
			}
			if info.IsDir() {
				err := filepath.Walk(m, func(path string, fi os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					if !fi.IsDir() && filepath.Ext(path) == ".hdldesign" && !seen[path] {
						seen[path] = true
						out = append(out, path)
					}
					return nil
				})
				if err != nil {
					return nil, err
				}
				continue
			}
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}
