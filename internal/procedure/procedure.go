// Package procedure is a minimal stand-in for the "per-procedure
// analyzer" collaborator the driver tracker is specified against
// (spec §6): it walks a procedural block's assignment statements and
// produces the (symbol, driver-list) pairs DriverTracker.AddProcedure
// expects, tagging each driver with the DriverSource the block kind
// implies.
package procedure

import (
	"github.com/robert-at-pretension-io/hdllint/internal/analysis"
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
	"github.com/robert-at-pretension-io/hdllint/internal/lsp"
)

// Statement is one assignment (or assignment-shaped) expression inside
// a procedural block body, with an optional source range for the
// enclosing procedural call (used for MultipleAlwaysAssigns'
// "original assignment" note).
type Statement struct {
	Expr      hdlast.Expression
	CallRange *hdlast.SourceRange
}

// Block is a procedural block (or subroutine body) to analyze:
// always_comb/always_ff/always_latch/always/initial/final, or a
// function/task body when IsSubroutine is set (subroutine drivers are
// exempt from the single-driver-procedure overlap rule regardless of
// the caller's enclosing block, per shouldIgnore in spec §4.2).
type Block struct {
	BlockKind        hdlast.ProceduralBlockKind
	IsSubroutine     bool
	ContainingSymbol hdlast.Symbol
	Statements       []Statement
}

func (b Block) source() hdlast.DriverSource {
	if b.IsSubroutine {
		return hdlast.SourceSubroutine
	}
	switch b.BlockKind {
	case hdlast.ProcAlwaysComb:
		return hdlast.SourceAlwaysComb
	case hdlast.ProcAlwaysFF:
		return hdlast.SourceAlwaysFF
	case hdlast.ProcAlwaysLatch:
		return hdlast.SourceAlwaysLatch
	case hdlast.ProcAlways:
		return hdlast.SourceAlways
	case hdlast.ProcInitial:
		return hdlast.SourceInitial
	case hdlast.ProcFinal:
		return hdlast.SourceFinal
	default:
		return hdlast.SourceOther
	}
}

// Analyze walks every statement in b, decomposing each assignment's
// left-hand side into (symbol, lsp) pairs via internal/lsp, and groups
// the resulting drivers by symbol in first-touched order so the
// result is suitable to hand directly to DriverTracker.AddProcedure
// (one call per returned entry) or a caller's own fan-out across
// worker goroutines, one per entry.
func Analyze(b Block) []analysis.ProcedureDrivers {
	evalCtx := lsp.NewEvalContext(b.ContainingSymbol)
	src := b.source()

	order := make([]hdlast.ValueSymbol, 0, len(b.Statements))
	bySymbol := make(map[hdlast.ValueSymbol][]*analysis.ValueDriver)

	for _, stmt := range b.Statements {
		lsp.VisitLSPs(stmt.Expr, evalCtx, func(symbol hdlast.ValueSymbol, lspExpr hdlast.Expression, isLValue bool) {
			if !isLValue {
				return
			}
			drv := &analysis.ValueDriver{
				DriverKind:       analysis.Procedural,
				PrefixExpression: lspExpr,
				ContainingSymbol: b.ContainingSymbol,
				Source:           src,
				ProcCallRange:    stmt.CallRange,
			}
			if _, seen := bySymbol[symbol]; !seen {
				order = append(order, symbol)
			}
			bySymbol[symbol] = append(bySymbol[symbol], drv)
		}, nil)
	}

	out := make([]analysis.ProcedureDrivers, 0, len(order))
	for _, sym := range order {
		out = append(out, analysis.ProcedureDrivers{Symbol: sym, Drivers: bySymbol[sym]})
	}
	return out
}
