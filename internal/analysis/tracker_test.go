package analysis

import (
	"testing"

	"github.com/robert-at-pretension-io/hdllint/internal/diag"
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
)

func testType() *hdlast.DeclaredType {
	return &hdlast.DeclaredType{SelectableWidth: 1}
}

func namedRef(sym hdlast.ValueSymbol, line int) *hdlast.NamedValueExpression {
	loc := hdlast.SourceLocation{File: "t.hdldesign", Line: line}
	return &hdlast.NamedValueExpression{Sym: sym, Range: hdlast.SourceRange{Start: loc, End: loc}}
}

func newTracker() (*DriverTracker, *diag.Context) {
	ctx := diag.NewContext(nil, &diag.Manager{})
	return NewDriverTracker(ctx), ctx
}

// A plain wire is never overlap-checked: hardware wired-logic lets more
// than one continuous driver resolve onto it, so two output-port
// connections to the same wire must not be flagged.
func TestAddPortConnection_PlainWireIgnoresOverlap(t *testing.T) {
	tracker, ctx := newTracker()
	wire := &hdlast.NetSymbol{Base: hdlast.Base{SymName: "w"}, DeclType: testType(), NetInfo: &hdlast.NetType{NetKind: hdlast.NetWire}}

	portA := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "a"}, Direction: hdlast.DirOut, DeclType: testType()}
	portB := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "b"}, Direction: hdlast.DirOut, DeclType: testType()}

	tracker.AddPortConnection(portA, namedRef(wire, 1), wire)
	tracker.AddPortConnection(portB, namedRef(wire, 2), wire)

	if diags := ctx.Diagnostics(); len(diags) != 0 {
		t.Fatalf("expected no diagnostics for plain wire, got %#v", diags)
	}
}

// A uwire net is overlap-checked; two continuous drivers onto it are a
// hard error regardless of port direction.
func TestAddPortConnection_UWireMultipleDriversReported(t *testing.T) {
	tracker, ctx := newTracker()
	uw := &hdlast.NetSymbol{Base: hdlast.Base{SymName: "u"}, DeclType: testType(), NetInfo: &hdlast.NetType{NetKind: hdlast.NetUWire}}

	portA := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "a"}, Direction: hdlast.DirOut, DeclType: testType()}
	portB := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "b"}, Direction: hdlast.DirOut, DeclType: testType()}

	tracker.AddPortConnection(portA, namedRef(uw, 1), uw)
	tracker.AddPortConnection(portB, namedRef(uw, 2), uw)

	diags := ctx.Diagnostics()
	if len(diags) != 1 || diags[0].Code != diag.MultipleUWireDrivers {
		t.Fatalf("expected one MultipleUWireDrivers diagnostic, got %#v", diags)
	}
}

// A single-driver user-defined net type (no resolution function) is
// likewise overlap-checked.
func TestAddPortConnection_SingleDriverUDNTReported(t *testing.T) {
	tracker, ctx := newTracker()
	udnt := &hdlast.NetSymbol{
		Base:     hdlast.Base{SymName: "n"},
		DeclType: testType(),
		NetInfo:  &hdlast.NetType{Name: "my_nettype", NetKind: hdlast.NetUserDefined, HasResolutionFunction: false},
	}
	portA := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "a"}, Direction: hdlast.DirOut, DeclType: testType()}
	portB := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "b"}, Direction: hdlast.DirOut, DeclType: testType()}

	tracker.AddPortConnection(portA, namedRef(udnt, 1), udnt)
	tracker.AddPortConnection(portB, namedRef(udnt, 2), udnt)

	diags := ctx.Diagnostics()
	if len(diags) != 1 || diags[0].Code != diag.MultipleUDNTDrivers {
		t.Fatalf("expected one MultipleUDNTDrivers diagnostic, got %#v", diags)
	}
}

// A user-defined net type with a resolution function behaves like an
// ordinary wire and is not overlap-checked.
func TestAddPortConnection_ResolvedUDNTIgnoresOverlap(t *testing.T) {
	tracker, ctx := newTracker()
	udnt := &hdlast.NetSymbol{
		Base:     hdlast.Base{SymName: "n"},
		DeclType: testType(),
		NetInfo:  &hdlast.NetType{Name: "my_nettype", NetKind: hdlast.NetUserDefined, HasResolutionFunction: true},
	}
	portA := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "a"}, Direction: hdlast.DirOut, DeclType: testType()}
	portB := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "b"}, Direction: hdlast.DirOut, DeclType: testType()}

	tracker.AddPortConnection(portA, namedRef(udnt, 1), udnt)
	tracker.AddPortConnection(portB, namedRef(udnt, 2), udnt)

	if diags := ctx.Diagnostics(); len(diags) != 0 {
		t.Fatalf("expected no diagnostics for resolved UDNT, got %#v", diags)
	}
}

// A static variable driven by two instance port connections (both
// continuous drivers, via inout ports so neither carries a port flag)
// triggers MultipleContAssigns.
func TestAddPortConnection_StaticVarMultipleContinuousReported(t *testing.T) {
	tracker, ctx := newTracker()
	v := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "n"}, DeclType: testType(), Lifetime: hdlast.LifetimeStatic}

	portA := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "c"}, Direction: hdlast.DirInOut, DeclType: testType()}
	portB := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "c"}, Direction: hdlast.DirInOut, DeclType: testType()}

	tracker.AddPortConnection(portA, namedRef(v, 1), v)
	tracker.AddPortConnection(portB, namedRef(v, 2), v)

	diags := ctx.Diagnostics()
	if len(diags) != 1 || diags[0].Code != diag.MultipleContAssigns {
		t.Fatalf("expected one MultipleContAssigns diagnostic, got %#v", diags)
	}
}

// The same static variable driven once continuously (through an inout
// port connection) and once procedurally triggers MixedVarAssigns.
func TestAddProcedure_StaticVarMixedContinuousAndProceduralReported(t *testing.T) {
	tracker, ctx := newTracker()
	v := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "n"}, DeclType: testType(), Lifetime: hdlast.LifetimeStatic}

	port := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "c"}, Direction: hdlast.DirInOut, DeclType: testType()}
	tracker.AddPortConnection(port, namedRef(v, 1), v)

	procContaining := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "__proc_owner"}, DeclType: testType()}
	tracker.AddProcedure(ProcedureDrivers{
		Symbol: v,
		Drivers: []*ValueDriver{{
			DriverKind:       Procedural,
			PrefixExpression: namedRef(v, 2),
			ContainingSymbol: procContaining,
			Source:           hdlast.SourceAlwaysComb,
		}},
	})

	diags := ctx.Diagnostics()
	if len(diags) != 1 || diags[0].Code != diag.MixedVarAssigns {
		t.Fatalf("expected one MixedVarAssigns diagnostic, got %#v", diags)
	}
}

// Two always_ff-sourced procedural drivers on the same static variable,
// attributed to different containing symbols (as a replayed
// cross-instance driver would be), trigger MultipleAlwaysAssigns.
func TestAddProcedure_MultipleAlwaysFFOnStaticVarReported(t *testing.T) {
	tracker, ctx := newTracker()
	v := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "q"}, DeclType: testType(), Lifetime: hdlast.LifetimeStatic}

	instanceA := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "__inst_a"}}
	instanceB := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "__inst_b"}}

	tracker.AddProcedure(ProcedureDrivers{
		Symbol: v,
		Drivers: []*ValueDriver{{
			DriverKind:       Procedural,
			PrefixExpression: namedRef(v, 1),
			ContainingSymbol: instanceA,
			Source:           hdlast.SourceAlwaysFF,
		}},
	})
	tracker.AddProcedure(ProcedureDrivers{
		Symbol: v,
		Drivers: []*ValueDriver{{
			DriverKind:       Procedural,
			PrefixExpression: namedRef(v, 2),
			ContainingSymbol: instanceB,
			Source:           hdlast.SourceAlwaysFF,
		}},
	})

	diags := ctx.Diagnostics()
	if len(diags) != 1 || diags[0].Code != diag.MultipleAlwaysAssigns {
		t.Fatalf("expected one MultipleAlwaysAssigns diagnostic, got %#v", diags)
	}
}

// Two always_ff drivers sharing the SAME containing symbol (the normal
// case for two procedures elaborated against one canonical module body)
// do not trigger MultipleAlwaysAssigns: the rule is specifically about
// cross-instance conflicts, not same-instance ones.
func TestAddProcedure_MultipleAlwaysFFSameContainingSymbolNotReported(t *testing.T) {
	tracker, ctx := newTracker()
	v := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "q"}, DeclType: testType(), Lifetime: hdlast.LifetimeStatic}
	owner := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "__owner"}}

	tracker.AddProcedure(ProcedureDrivers{
		Symbol: v,
		Drivers: []*ValueDriver{{
			DriverKind:       Procedural,
			PrefixExpression: namedRef(v, 1),
			ContainingSymbol: owner,
			Source:           hdlast.SourceAlwaysFF,
		}},
	})
	tracker.AddProcedure(ProcedureDrivers{
		Symbol: v,
		Drivers: []*ValueDriver{{
			DriverKind:       Procedural,
			PrefixExpression: namedRef(v, 2),
			ContainingSymbol: owner,
			Source:           hdlast.SourceAlwaysFF,
		}},
	})

	if diags := ctx.Diagnostics(); len(diags) != 0 {
		t.Fatalf("expected no diagnostics when drivers share a containing symbol, got %#v", diags)
	}
}

// An input port driven both externally and by an internal assignment
// is always flagged, independent of checkOverlap: port-direction
// mismatches are checked before the overlap category is even consulted.
// Per handleOverlap's range-swap logic, the primary diagnostic belongs
// at the assigning driver's range (not the port's), with a
// NoteDeclarationHere note pointing back at the port.
func TestAddPort_InputPortAssignedInternallyReported(t *testing.T) {
	tracker, ctx := newTracker()
	v := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "x"}, DeclType: testType()}
	port := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "in1"}, Direction: hdlast.DirIn, DeclType: testType(), InternalSymbolRef: v}

	tracker.AddPort(port, port)
	assignRef := namedRef(v, 1)
	tracker.AddProcedure(ProcedureDrivers{
		Symbol: v,
		Drivers: []*ValueDriver{{
			DriverKind:       Procedural,
			PrefixExpression: assignRef,
			ContainingSymbol: port,
			Source:           hdlast.SourceAlwaysComb,
		}},
	})

	diags := ctx.Diagnostics()
	if len(diags) != 1 || diags[0].Code != diag.InputPortAssign {
		t.Fatalf("expected one InputPortAssign diagnostic, got %#v", diags)
	}
	if diags[0].Range != assignRef.SourceRange() {
		t.Fatalf("expected the primary diagnostic at the assigning range, got %#v", diags[0].Range)
	}
	if len(diags[0].Notes) != 1 || diags[0].Notes[0].Code != diag.NoteDeclarationHere {
		t.Fatalf("expected one NoteDeclarationHere note, got %#v", diags[0].Notes)
	}
	if diags[0].Notes[0].Range != port.InternalExpression().SourceRange() {
		t.Fatalf("expected the note at the port's own range, got %#v", diags[0].Notes[0].Range)
	}
}

// A non-uwire net with one side an output port and the other a plain
// continuous driver is a coercion warning (the scan continues). Unlike
// the input-port case, the primary diagnostic lands at the output
// port's own range: per handleOverlap's swap logic, output ports show
// up at the instantiation site and that is preferred as the reported
// location, with a NoteDrivenHere note at the other driver's range.
func TestAddPortConnection_OutputPortCoercionReported(t *testing.T) {
	tracker, ctx := newTracker()
	wire := &hdlast.NetSymbol{Base: hdlast.Base{SymName: "w"}, DeclType: testType(), NetInfo: &hdlast.NetType{NetKind: hdlast.NetWire}}

	outPort := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "a"}, Direction: hdlast.DirOut, DeclType: testType()}
	inoutPort := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "b"}, Direction: hdlast.DirInOut, DeclType: testType()}

	portRef := namedRef(wire, 1)
	otherRef := namedRef(wire, 2)
	tracker.AddPortConnection(outPort, portRef, wire)
	tracker.AddPortConnection(inoutPort, otherRef, wire)

	diags := ctx.Diagnostics()
	if len(diags) != 1 || diags[0].Code != diag.OutputPortCoercion {
		t.Fatalf("expected one OutputPortCoercion diagnostic, got %#v", diags)
	}
	if diags[0].Range != portRef.SourceRange() {
		t.Fatalf("expected the primary diagnostic at the output port's own range, got %#v", diags[0].Range)
	}
	if len(diags[0].Notes) != 1 || diags[0].Notes[0].Code != diag.NoteDrivenHere {
		t.Fatalf("expected one NoteDrivenHere note, got %#v", diags[0].Notes)
	}
	if diags[0].Notes[0].Range != otherRef.SourceRange() {
		t.Fatalf("expected the note at the other driver's range, got %#v", diags[0].Notes[0].Range)
	}
}

// An input port driven internally (AddPort) and externally by a plain
// inout connection is likewise a coercion warning on a non-uwire net,
// reported at the external driver's range with a NoteDeclarationHere
// note pointing back at the port. AddPortConnection can never itself
// produce a FlagInputPort driver (it no-ops for DirIn ports), so the
// input side here must come from AddPort.
func TestAddPortConnection_InputPortCoercionReported(t *testing.T) {
	tracker, ctx := newTracker()
	wire := &hdlast.NetSymbol{Base: hdlast.Base{SymName: "w"}, DeclType: testType(), NetInfo: &hdlast.NetType{NetKind: hdlast.NetWire}}

	inPort := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "a"}, Direction: hdlast.DirIn, DeclType: testType(), InternalSymbolRef: wire}
	inoutPort := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "b"}, Direction: hdlast.DirInOut, DeclType: testType()}

	tracker.AddPort(inPort, inPort)
	assignRef := namedRef(wire, 1)
	tracker.AddPortConnection(inoutPort, assignRef, wire)

	diags := ctx.Diagnostics()
	if len(diags) != 1 || diags[0].Code != diag.InputPortCoercion {
		t.Fatalf("expected one InputPortCoercion diagnostic, got %#v", diags)
	}
	if diags[0].Range != assignRef.SourceRange() {
		t.Fatalf("expected the primary diagnostic at the assigning range, got %#v", diags[0].Range)
	}
	if len(diags[0].Notes) != 1 || diags[0].Notes[0].Code != diag.NoteDeclarationHere {
		t.Fatalf("expected one NoteDeclarationHere note, got %#v", diags[0].Notes)
	}
	if diags[0].Notes[0].Range != inPort.InternalExpression().SourceRange() {
		t.Fatalf("expected the note at the port's own range, got %#v", diags[0].Notes[0].Range)
	}
}

func TestPropagateModportDrivers_RetargetsThroughConnectionExpr(t *testing.T) {
	tracker, _ := newTracker()
	target := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "target"}, DeclType: testType()}
	mp := &hdlast.ModportPortSymbol{
		Base:     hdlast.Base{SymName: "mp"},
		DeclType: testType(),
		ConnExpr: namedRef(target, 1),
	}
	owner := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "__owner"}}
	tracker.AddProcedure(ProcedureDrivers{
		Symbol: mp,
		Drivers: []*ValueDriver{{
			DriverKind:       Procedural,
			PrefixExpression: namedRef(mp, 1),
			ContainingSymbol: owner,
			Source:           hdlast.SourceAlwaysComb,
		}},
	})
	if got := len(tracker.GetDrivers(target)); got != 0 {
		t.Fatalf("expected no drivers on target before propagation, got %d", got)
	}
	tracker.PropagateModportDrivers()
	if got := len(tracker.GetDrivers(target)); got != 1 {
		t.Fatalf("expected 1 driver on target after modport propagation, got %d", got)
	}
}

func TestGetDrivers_ReturnsSnapshotIncludingBoth(t *testing.T) {
	tracker, _ := newTracker()
	wire := &hdlast.NetSymbol{Base: hdlast.Base{SymName: "w"}, DeclType: testType(), NetInfo: &hdlast.NetType{NetKind: hdlast.NetWire}}

	portA := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "a"}, Direction: hdlast.DirOut, DeclType: testType()}
	portB := &hdlast.PortSymbol{Base: hdlast.Base{SymName: "b"}, Direction: hdlast.DirOut, DeclType: testType()}
	tracker.AddPortConnection(portA, namedRef(wire, 1), wire)
	tracker.AddPortConnection(portB, namedRef(wire, 2), wire)

	if got := len(tracker.GetDrivers(wire)); got != 2 {
		t.Fatalf("expected 2 recorded drivers, got %d", got)
	}
}
