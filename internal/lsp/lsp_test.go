package lsp

import (
	"testing"

	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
)

func testVar(name string, width int) *hdlast.VariableSymbol {
	return &hdlast.VariableSymbol{Base: hdlast.Base{SymName: name}, DeclType: &hdlast.DeclaredType{SelectableWidth: width}}
}

func namedRef(sym hdlast.ValueSymbol) *hdlast.NamedValueExpression {
	return &hdlast.NamedValueExpression{Sym: sym}
}

func TestVisitLSPsNamedValueIsLValueByDefault(t *testing.T) {
	v := testVar("a", 8)
	var got hdlast.ValueSymbol
	var lvalue bool
	VisitLSPs(namedRef(v), NewEvalContext(nil), func(sym hdlast.ValueSymbol, lsp hdlast.Expression, isLValue bool) {
		got = sym
		lvalue = isLValue
	}, nil)
	if got != hdlast.ValueSymbol(v) || !lvalue {
		t.Fatalf("expected (a, true), got (%v, %v)", got, lvalue)
	}
}

func TestVisitLSPsAssignmentOnlyVisitsLHS(t *testing.T) {
	lhs, rhs := testVar("out", 1), testVar("in", 1)
	assign := &hdlast.AssignmentExpression{LHS: namedRef(lhs), RHS: namedRef(rhs)}

	var visited []string
	VisitLSPs(assign, NewEvalContext(nil), func(sym hdlast.ValueSymbol, lsp hdlast.Expression, isLValue bool) {
		visited = append(visited, sym.Name())
	}, nil)
	if len(visited) != 1 || visited[0] != "out" {
		t.Fatalf("expected only the assignment target visited, got %v", visited)
	}
}

func TestVisitLSPsConcatVisitsEachPartAsLValue(t *testing.T) {
	hi, lo := testVar("hi", 4), testVar("lo", 4)
	concat := &hdlast.ConcatExpression{Parts: []hdlast.Expression{namedRef(hi), namedRef(lo)}}
	assign := &hdlast.AssignmentExpression{LHS: concat, RHS: namedRef(hi)}

	var visited []string
	VisitLSPs(assign, NewEvalContext(nil), func(sym hdlast.ValueSymbol, lsp hdlast.Expression, isLValue bool) {
		if !isLValue {
			t.Fatalf("expected concat parts to be driven as lvalues")
		}
		visited = append(visited, sym.Name())
	}, nil)
	if len(visited) != 2 || visited[0] != "hi" || visited[1] != "lo" {
		t.Fatalf("expected [hi lo] visited in order, got %v", visited)
	}
}

func TestVisitLSPsOverrideLSPReplacesReportedExpression(t *testing.T) {
	v := testVar("a", 1)
	override := namedRef(testVar("override_target", 1))

	var got hdlast.Expression
	VisitLSPs(namedRef(v), NewEvalContext(nil), func(sym hdlast.ValueSymbol, lsp hdlast.Expression, isLValue bool) {
		got = lsp
	}, override)
	if got != hdlast.Expression(override) {
		t.Fatalf("expected the override LSP to be reported instead of the original expression")
	}
}

func TestGetBoundsNamedValueReturnsFullWidth(t *testing.T) {
	typ := &hdlast.DeclaredType{SelectableWidth: 8}
	b, ok := GetBounds(&hdlast.NamedValueExpression{}, NewEvalContext(nil), typ)
	if !ok || b.Lo != 0 || b.Hi != 7 {
		t.Fatalf("expected [0,7], got %#v ok=%v", b, ok)
	}
}

func TestGetBoundsZeroWidthFallsBackToOneBit(t *testing.T) {
	typ := &hdlast.DeclaredType{SelectableWidth: 0}
	b, ok := GetBounds(&hdlast.NamedValueExpression{}, NewEvalContext(nil), typ)
	if !ok || b.Lo != 0 || b.Hi != 0 {
		t.Fatalf("expected [0,0] for a zero-width declared type, got %#v ok=%v", b, ok)
	}
}

func TestGetBoundsNilTypeFails(t *testing.T) {
	_, ok := GetBounds(&hdlast.NamedValueExpression{}, NewEvalContext(nil), nil)
	if ok {
		t.Fatalf("expected GetBounds to fail for a nil declared type")
	}
}

func TestGetBoundsElementSelectRequiresConstantIndex(t *testing.T) {
	_, ok := GetBounds(&hdlast.ElementSelectExpression{Index: nil}, NewEvalContext(nil), nil)
	if ok {
		t.Fatalf("expected a non-constant element select to fail")
	}
	idx := 3
	b, ok := GetBounds(&hdlast.ElementSelectExpression{Index: &idx}, NewEvalContext(nil), nil)
	if !ok || b.Lo != 3 || b.Hi != 3 {
		t.Fatalf("expected [3,3], got %#v ok=%v", b, ok)
	}
}

func TestGetBoundsRangeSelectNormalizesReversedBounds(t *testing.T) {
	lo, hi := 2, 6
	b, ok := GetBounds(&hdlast.RangeSelectExpression{Left: &hi, Right: &lo}, NewEvalContext(nil), nil)
	if !ok || b.Lo != 2 || b.Hi != 6 {
		t.Fatalf("expected bounds normalized to [2,6] regardless of Left/Right order, got %#v ok=%v", b, ok)
	}
}

func TestGetBoundsRangeSelectRequiresBothConstants(t *testing.T) {
	hi := 6
	_, ok := GetBounds(&hdlast.RangeSelectExpression{Left: &hi, Right: nil}, NewEvalContext(nil), nil)
	if ok {
		t.Fatalf("expected a partially-constant range select to fail")
	}
}
