// Package design loads the small, line-oriented ".hdldesign" text
// format into the internal/hdlast symbol graph. It exists because the
// real HDL elaborator is explicitly out of scope (spec §1): this
// loader plays the same "text source -> structured facts" role the
// teacher's internal/extractor plays for VHDL, but for a purpose-built
// minimal format instead of a full VHDL/SystemVerilog grammar.
package design

import "github.com/robert-at-pretension-io/hdllint/internal/hdlast"

// Design is the loaded, elaborated result of one or more .hdldesign
// sources: every module/interface template parsed (keyed by name),
// every top-level instance created from an `instance` directive
// outside any module body, and the flattened procedural/port-
// connection facts the driver tracker consumes.
type Design struct {
	Modules      map[string]*hdlast.InstanceBodySymbol
	Interfaces   map[string]*hdlast.InstanceBodySymbol
	TopInstances []*hdlast.InstanceSymbol

	Procedures      []ProcedureBlock
	PortConnections []PortConnection
}

// ProcedureBlock is one parsed procedural block, ready to hand to
// internal/procedure.Analyze.
type ProcedureBlock struct {
	Kind             hdlast.ProceduralBlockKind
	ContainingSymbol hdlast.Symbol
	Statements       []hdlast.Expression
}

// PortConnection is one parsed instance port connection, ready to hand
// to analysis.DriverTracker.AddPortConnection.
type PortConnection struct {
	Port             *hdlast.PortSymbol
	Expr             hdlast.Expression
	ContainingSymbol hdlast.Symbol
}

// AllInstances returns every instance in the design, top-level only
// (this format has no nested generate blocks).
func (d *Design) AllInstances() []*hdlast.InstanceSymbol {
	return d.TopInstances
}

// NonCanonicalInstances returns every TopInstance except the first one
// seen per distinct Body — the "representative" instance Load uses to
// resolve each interface port's own connection while parsing that
// module's procedures (see loader.go's resolveIfacePortChain). The
// representative's interface-port-mediated drivers are already
// correctly attributed during normal analysis, so only the instances
// returned here should be passed to
// analysis.InstanceSideEffectGraph.NoteNonCanonicalInstance: replaying
// onto the representative too would double-insert its own driver and
// report a spurious overlap.
func (d *Design) NonCanonicalInstances() []*hdlast.InstanceSymbol {
	seen := make(map[*hdlast.InstanceBodySymbol]bool, len(d.TopInstances))
	var out []*hdlast.InstanceSymbol
	for _, inst := range d.TopInstances {
		if seen[inst.Body] {
			out = append(out, inst)
			continue
		}
		seen[inst.Body] = true
	}
	return out
}
