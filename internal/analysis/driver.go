// Package analysis implements the driver tracker: the subsystem that
// records every assignment to every storage-bearing symbol in an
// elaborated design, detects illegal multi-driver configurations, and
// propagates drivers across hierarchical boundaries (module instances,
// interface ports, modport selections).
//
// It is a direct, generalized port of
// _examples/original_source/source/analysis/DriverTracker.cpp, built
// on internal/hdlast (the elaborated design model), internal/lsp (the
// longest-static-prefix utilities), internal/diag (the diagnostic
// sink), internal/concurrentmap (the per-entry-locking concurrent map
// contract) and internal/arena (driver/expression node ownership).
package analysis

import (
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
)

// DriverKind distinguishes a continuous (`assign`) driver from one
// that originates inside a procedural block or subroutine.
type DriverKind int

const (
	Continuous DriverKind = iota
	Procedural
)

func (k DriverKind) String() string {
	if k == Continuous {
		return "continuous"
	}
	return "procedural"
}

// DriverFlags is a bitmask of the special roles a driver can play.
type DriverFlags uint8

const (
	FlagInputPort DriverFlags = 1 << iota
	FlagOutputPort
	FlagClockVar
	FlagInitializer
)

func (f DriverFlags) Has(bit DriverFlags) bool { return f&bit != 0 }

// DriverBitRange is a closed interval [Lo, Hi] over a symbol's
// selectable bit width.
type DriverBitRange struct {
	Lo, Hi int
}

// Overlaps reports whether r and o share at least one bit.
func (r DriverBitRange) Overlaps(o DriverBitRange) bool {
	return r.Lo <= o.Hi && o.Lo <= r.Hi
}

// ValueDriver is an immutable record describing one assignment site.
// The tracker allocates them with Go's own allocator, not from the
// diag.Context arena, and only ever holds references to them.
type ValueDriver struct {
	DriverKind        DriverKind
	PrefixExpression  hdlast.Expression
	ContainingSymbol  hdlast.Symbol
	Flags             DriverFlags
	Source            hdlast.DriverSource
	IsFromSideEffect  bool
	ProcCallRange     *hdlast.SourceRange
}

// shouldIgnore reports whether vd is exempt from the "different
// containing symbols + single-driver procedure" overlap rule (§4.2
// step 7's shouldIgnore predicate).
func shouldIgnore(vd *ValueDriver, allowDupInitial bool) bool {
	if vd.Source == hdlast.SourceSubroutine {
		return true
	}
	if vd.Flags.Has(FlagInitializer) {
		return true
	}
	if vd.Source == hdlast.SourceInitial && allowDupInitial {
		return true
	}
	return false
}

// DriverEntry pairs a stored driver with the bit range it was
// inserted under.
type DriverEntry struct {
	Driver *ValueDriver
	Bounds DriverBitRange
}

// DriverList is a snapshot of a symbol's drivers, as returned by
// DriverTracker.GetDrivers.
type DriverList []DriverEntry

// ProcedureDrivers is the result of per-procedure analysis (an
// external collaborator, per §6): for each symbol the procedure
// drives, the list of drivers it contributes.
type ProcedureDrivers struct {
	Symbol  hdlast.ValueSymbol
	Drivers []*ValueDriver
}

// newInitializerDriver synthesizes the first-driver initializer
// participant described in §4.2 step 4.
func newInitializerDriver(sym hdlast.ValueSymbol) *ValueDriver {
	kind := Procedural
	if sym.Kind() == hdlast.KindNet {
		kind = Continuous
	}
	return &ValueDriver{
		DriverKind:       kind,
		PrefixExpression: sym.Initializer(),
		ContainingSymbol: sym,
		Flags:            FlagInitializer,
		Source:           sourceForInitializer(kind),
	}
}

func sourceForInitializer(kind DriverKind) hdlast.DriverSource {
	if kind == Continuous {
		return hdlast.SourceContinuous
	}
	return hdlast.SourceOther
}
