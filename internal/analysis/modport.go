package analysis

import (
	"github.com/robert-at-pretension-io/hdllint/internal/diag"
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
	"github.com/robert-at-pretension-io/hdllint/internal/lsp"
)

// PropagateModportDrivers drains modportPortDrivers to a fixed point
// (§4.4): each pass atomically swaps the shared map with a fresh one,
// then re-targets every recorded driver through its modport port's
// connection expression and resubmits it as a fresh driver. Because
// resubmission can itself produce new modport-port drivers, the loop
// repeats until a pass finds the map already empty.
//
// The upstream algorithm has no explicit iteration bound, relying on
// the modport/interface-port connection graph being finite and
// acyclic (see DESIGN.md's Open Question entry); this port adds one,
// defaulting to 8 plus four times the number of modport ports holding
// drivers going into the loop, and reports ModportPropagationOverflow rather than
// looping forever if a malformed input produces a propagation cycle.
func (t *DriverTracker) PropagateModportDrivers() {
	maxIter := t.Ctx.Manager.MaxModportIterations
	if maxIter <= 0 {
		maxIter = 8 + 4*t.modportDrivers.Len()
	}

	for iterations := 0; !t.modportDrivers.Empty(); iterations++ {
		if iterations >= maxIter {
			t.Ctx.AddDiag(nil, diag.ModportPropagationOverflow, hdlast.SourceRange{})
			return
		}
		local := t.modportDrivers.Swap()
		local.CVisitAll(func(mp *hdlast.ModportPortSymbol, list *[]modportEntry) {
			connExpr := mp.ConnectionExpr()
			if connExpr == nil {
				return
			}
			for _, entry := range *list {
				t.resubmitSplicedDriver(connExpr, entry)
			}
		})
	}
}

// resubmitSplicedDriver implements one modport-driver re-target:
// splice entry's prefix expression onto connExpr, recompute bit
// bounds against the new root's type, and insert the resulting driver
// through the normal addDriver path (which may itself discover a
// further modport-port or interface-port entry, feeding the next
// fixed-point pass).
func (t *DriverTracker) resubmitSplicedDriver(connExpr hdlast.Expression, entry modportEntry) {
	spliced := spliceRoot(entry.Driver.PrefixExpression, connExpr)
	rootSym, ok := hdlast.RootValueSymbol(spliced)
	if !ok {
		return
	}
	evalCtx := lsp.NewEvalContext(entry.Driver.ContainingSymbol)
	bounds, ok := lsp.GetBounds(spliced, evalCtx, rootSym.DeclaredType())
	if !ok {
		return
	}
	fresh := &ValueDriver{
		DriverKind:       entry.Driver.DriverKind,
		PrefixExpression: spliced,
		ContainingSymbol: entry.Driver.ContainingSymbol,
		Flags:            entry.Driver.Flags,
		Source:           entry.Driver.Source,
		IsFromSideEffect: entry.Driver.IsFromSideEffect,
		ProcCallRange:    entry.Driver.ProcCallRange,
	}
	t.addDriverLocked(rootSym, DriverBitRange{Lo: bounds.Lo, Hi: bounds.Hi}, fresh)
}

// spliceRoot replaces expr's root (the modport port reference) with
// conn, preserving the outermost select per §4.4. Unsupported select
// shapes fall back to driving the connection expression directly, the
// behavior the upstream source notes as an open question for nested
// select chains (see DESIGN.md and spec §9's Open Question).
func spliceRoot(expr hdlast.Expression, conn hdlast.Expression) hdlast.Expression {
	switch e := expr.(type) {
	case *hdlast.ElementSelectExpression:
		clone := *e
		clone.Val = conn
		return &clone
	case *hdlast.RangeSelectExpression:
		clone := *e
		clone.Val = conn
		return &clone
	case *hdlast.MemberAccessExpression:
		clone := *e
		clone.Val = conn
		return &clone
	default:
		return conn
	}
}
