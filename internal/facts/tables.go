// Package facts flattens a loaded design and its reported diagnostics
// into a relational table model, the same "normalize everything into
// flat rows a Datalog/SQL engine can join" role the teacher's
// internal/facts plays for VHDL entities/architectures/signals — but
// fed from internal/design and internal/diag instead of
// internal/extractor.
package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/hdllint/internal/design"
	"github.com/robert-at-pretension-io/hdllint/internal/diag"
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
)

// Tables is the relational fact model for this design snapshot.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Modules     []ModuleRow     `json:"modules"`
	Instances   []InstanceRow   `json:"instances"`
	Ports       []PortRow       `json:"ports"`
	Signals     []SignalRow     `json:"signals"`
	Procedures  []ProcedureRow  `json:"procedures"`
	Connections []ConnectionRow `json:"connections"`
	Diagnostics []DiagnosticRow `json:"diagnostics"`
}

type ModuleRow struct {
	Name        string `json:"name"`
	IsInterface bool   `json:"is_interface"`
	File        string `json:"file"`
	Line        int    `json:"line"`
}

type InstanceRow struct {
	Label    string `json:"label"`
	Template string `json:"template"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

type PortRow struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type SignalRow struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Kind   string `json:"kind"` // "net" or "var"
	File   string `json:"file"`
	Line   int    `json:"line"`
}

type ProcedureRow struct {
	Module string `json:"module"`
	Kind   string `json:"kind"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

type ConnectionRow struct {
	Instance string `json:"instance"`
	Port     string `json:"port"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

type DiagnosticRow struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Symbol   string `json:"symbol"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// BuildTables flattens a loaded design and the diagnostics reported
// against it into a normalized relational model.
func BuildTables(d *design.Design, diags []*diag.Diagnostic) Tables {
	tables := emptyTables()

	addModuleBodies(&tables, d.Modules, false)
	addModuleBodies(&tables, d.Interfaces, true)

	for _, inst := range d.TopInstances {
		loc := inst.Location()
		template := ""
		if inst.Body != nil {
			template = inst.Body.Name()
		}
		tables.Instances = append(tables.Instances, InstanceRow{
			Label:    inst.Name(),
			Template: template,
			File:     loc.File,
			Line:     loc.Line,
		})
	}

	for _, p := range d.Procedures {
		module := ""
		if p.ContainingSymbol != nil {
			module = p.ContainingSymbol.Name()
		}
		loc := hdlast.NoLocation
		if p.ContainingSymbol != nil {
			loc = p.ContainingSymbol.Location()
		}
		tables.Procedures = append(tables.Procedures, ProcedureRow{
			Module: module,
			Kind:   p.Kind.String(),
			File:   loc.File,
			Line:   loc.Line,
		})
	}

	for _, pc := range d.PortConnections {
		instance := ""
		if pc.ContainingSymbol != nil {
			instance = pc.ContainingSymbol.Name()
		}
		portName := ""
		loc := hdlast.NoLocation
		if pc.Port != nil {
			portName = pc.Port.Name()
			loc = pc.Port.Location()
		}
		tables.Connections = append(tables.Connections, ConnectionRow{
			Instance: instance,
			Port:     portName,
			File:     loc.File,
			Line:     loc.Line,
		})
	}

	for _, diagnostic := range diags {
		symName := ""
		if diagnostic.Symbol != nil {
			symName = diagnostic.Symbol.Name()
		}
		tables.Diagnostics = append(tables.Diagnostics, DiagnosticRow{
			Code:     diagnostic.Code.String(),
			Severity: severityName(diagnostic.Severity()),
			Symbol:   symName,
			File:     diagnostic.Range.Start.File,
			Line:     diagnostic.Range.Start.Line,
			Message:  diagnostic.Message(),
		})
	}

	sort.Slice(tables.Modules, func(i, j int) bool { return tables.Modules[i].Name < tables.Modules[j].Name })
	sort.Slice(tables.Instances, func(i, j int) bool { return tables.Instances[i].Label < tables.Instances[j].Label })

	return tables
}

func addModuleBodies(tables *Tables, bodies map[string]*hdlast.InstanceBodySymbol, isInterface bool) {
	for name, body := range bodies {
		loc := body.Location()
		tables.Modules = append(tables.Modules, ModuleRow{
			Name:        name,
			IsInterface: isInterface,
			File:        loc.File,
			Line:        loc.Line,
		})

		for _, port := range body.Ports() {
			tables.Ports = append(tables.Ports, PortRow{
				Module:    name,
				Name:      port.Name(),
				Direction: portDirection(port),
				File:      port.Location().File,
				Line:      port.Location().Line,
			})
		}

		for _, member := range body.Members() {
			switch sym := member.(type) {
			case *hdlast.NetSymbol:
				tables.Signals = append(tables.Signals, SignalRow{
					Module: name,
					Name:   sym.Name(),
					Kind:   "net",
					File:   sym.Location().File,
					Line:   sym.Location().Line,
				})
			case *hdlast.VariableSymbol:
				tables.Signals = append(tables.Signals, SignalRow{
					Module: name,
					Name:   sym.Name(),
					Kind:   "var",
					File:   sym.Location().File,
					Line:   sym.Location().Line,
				})
			}
		}
	}
}

func portDirection(sym hdlast.Symbol) string {
	port, ok := sym.(*hdlast.PortSymbol)
	if !ok {
		return ""
	}
	switch port.Direction {
	case hdlast.DirIn:
		return "in"
	case hdlast.DirOut:
		return "out"
	case hdlast.DirInOut:
		return "inout"
	case hdlast.DirRef:
		return "ref"
	default:
		return ""
	}
}

func severityName(s diag.Severity) string {
	if s == diag.Error {
		return "error"
	}
	return "warning"
}

func emptyTables() Tables {
	return Tables{
		Modules:     []ModuleRow{},
		Instances:   []InstanceRow{},
		Ports:       []PortRow{},
		Signals:     []SignalRow{},
		Procedures:  []ProcedureRow{},
		Connections: []ConnectionRow{},
		Diagnostics: []DiagnosticRow{},
	}
}
