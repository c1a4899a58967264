// Package lsp implements the "LSP utilities" external collaborator
// from the specification: decomposing a left-hand-side expression
// into (symbol, longest-static-prefix, bit-range) tuples. The upstream
// analyzer treats this as a full constant-expression evaluator; this
// module implements just enough of it (constant index/range selects)
// to exercise every branch the driver tracker depends on.
package lsp

import (
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
)

// EvalContext is the (here, trivial) evaluation context an expression
// visit happens under. The upstream type threads constant-folding
// state through recursive evaluation; this module has no expressions
// that require folding beyond the literal selectors already stored on
// select nodes, so EvalContext only carries the containing symbol for
// potential future extension and diagnostic context.
type EvalContext struct {
	ContainingSymbol hdlast.Symbol
}

// NewEvalContext builds an EvalContext rooted at containingSymbol.
func NewEvalContext(containingSymbol hdlast.Symbol) *EvalContext {
	return &EvalContext{ContainingSymbol: containingSymbol}
}

// Visitor is called once per storage-touching sub-expression reached
// while walking an expression tree, with the value symbol it reaches,
// the longest-static-prefix expression for that reach, and whether the
// reach occurs in an lvalue (driven) context.
type Visitor func(symbol hdlast.ValueSymbol, lsp hdlast.Expression, isLValue bool)

// VisitLSPs enumerates each storage-touching sub-expression of expr,
// calling visit once per reached value symbol. If initialLSP is
// non-nil, it overrides the LSP passed to visit for every leaf reached
// outside a concatenation; operands of a concatenation are reported
// with their own expression as the LSP.
func VisitLSPs(expr hdlast.Expression, evalCtx *EvalContext, visit Visitor, initialLSP hdlast.Expression) {
	visitExpr(expr, evalCtx, visit, true, initialLSP)
}

func visitExpr(expr hdlast.Expression, evalCtx *EvalContext, visit Visitor, isLValue bool, overrideLSP hdlast.Expression) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hdlast.ConcatExpression:
		for _, p := range e.Parts {
			visitExpr(p, evalCtx, visit, isLValue, nil)
		}
	case *hdlast.AssignmentExpression:
		visitExpr(e.LHS, evalCtx, visit, true, overrideLSP)
	default:
		sym, ok := hdlast.RootValueSymbol(expr)
		if !ok {
			return
		}
		lsp := expr
		if overrideLSP != nil {
			lsp = overrideLSP
		}
		visit(sym, lsp, isLValue)
	}
}

// Bounds is a closed bit interval [Lo, Hi].
type Bounds struct {
	Lo, Hi int
}

// GetBounds computes the static bit interval an LSP expression
// touches on symType. It returns ok=false if any selector along the
// chain is not a compile-time constant, in which case callers must
// conservatively drop the driver (a design decision inherited from
// the upstream analyzer, see §6).
func GetBounds(lspExpr hdlast.Expression, evalCtx *EvalContext, symType *hdlast.DeclaredType) (Bounds, bool) {
	switch e := lspExpr.(type) {
	case *hdlast.NamedValueExpression:
		return fullWidth(symType)
	case *hdlast.HierarchicalValueExpression:
		return fullWidth(symType)
	case *hdlast.ArbitrarySymbolExpression:
		return fullWidth(symType)
	case *hdlast.ElementSelectExpression:
		if e.Index == nil {
			return Bounds{}, false
		}
		return Bounds{Lo: *e.Index, Hi: *e.Index}, true
	case *hdlast.RangeSelectExpression:
		if e.Left == nil || e.Right == nil {
			return Bounds{}, false
		}
		lo, hi := *e.Left, *e.Right
		if lo > hi {
			lo, hi = hi, lo
		}
		return Bounds{Lo: lo, Hi: hi}, true
	case *hdlast.MemberAccessExpression:
		return fullWidth(e.Typ)
	default:
		return Bounds{}, false
	}
}

func fullWidth(t *hdlast.DeclaredType) (Bounds, bool) {
	if t == nil {
		return Bounds{}, false
	}
	w := t.SelectableWidth
	if w <= 0 {
		w = 1
	}
	return Bounds{Lo: 0, Hi: w - 1}, true
}

// StringifyLSP renders a canonical textual form of an LSP expression
// for diagnostics.
func StringifyLSP(expr hdlast.Expression) string {
	return hdlast.StringifyLSP(expr)
}

// VisitComponents enumerates expr's sub-expressions (see
// hdlast.VisitComponents); re-exported here so callers only need to
// import the lsp package for the full LSP-utilities contract.
func VisitComponents(expr hdlast.Expression, includeRoot bool, fn func(hdlast.Expression)) {
	hdlast.VisitComponents(expr, includeRoot, fn)
}
