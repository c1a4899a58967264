package hdlast

import (
	"fmt"
	"strings"
)

// Expression is the minimal expression algebra the driver tracker and
// LSP utilities walk: named/hierarchical value references, the three
// select forms modport splicing knows how to rebuild, concatenation,
// and assignment.
type Expression interface {
	Kind() ExpressionKind
	Type() *DeclaredType
	SourceRange() SourceRange
}

// NamedValueExpression is a direct reference to a value symbol in the
// current scope.
type NamedValueExpression struct {
	Sym   ValueSymbol
	Range SourceRange
}

func (e *NamedValueExpression) Kind() ExpressionKind   { return ExprNamedValue }
func (e *NamedValueExpression) Type() *DeclaredType     { return e.Sym.DeclaredType() }
func (e *NamedValueExpression) SourceRange() SourceRange { return e.Range }

// HierarchicalValueExpression is a reference reached via a
// hierarchical path (`foo.bar.baz`), possibly through an interface
// port.
type HierarchicalValueExpression struct {
	Ref   *HierarchicalReference
	Range SourceRange
}

func (e *HierarchicalValueExpression) Kind() ExpressionKind { return ExprHierarchicalValue }
func (e *HierarchicalValueExpression) Type() *DeclaredType {
	if vs, ok := e.Ref.Target.(ValueSymbol); ok {
		return vs.DeclaredType()
	}
	return nil
}
func (e *HierarchicalValueExpression) SourceRange() SourceRange { return e.Range }

// ElementSelectExpression is a single-bit/element select `v[i]`.
// Index is nil when the selector is not a compile-time constant, in
// which case bounds computation conservatively fails per §6.
type ElementSelectExpression struct {
	Val   Expression
	Index *int
	Typ   *DeclaredType
	Range SourceRange
}

func (e *ElementSelectExpression) Kind() ExpressionKind   { return ExprElementSelect }
func (e *ElementSelectExpression) Type() *DeclaredType     { return e.Typ }
func (e *ElementSelectExpression) SourceRange() SourceRange { return e.Range }

// RangeSelectExpression is a part-select `v[l:r]`. Left/Right are nil
// when not compile-time constants.
type RangeSelectExpression struct {
	SelKind     RangeSelectKind
	Val         Expression
	Left, Right *int
	Typ         *DeclaredType
	Range       SourceRange
}

func (e *RangeSelectExpression) Kind() ExpressionKind   { return ExprRangeSelect }
func (e *RangeSelectExpression) Type() *DeclaredType     { return e.Typ }
func (e *RangeSelectExpression) SourceRange() SourceRange { return e.Range }

// MemberAccessExpression is `v.member`.
type MemberAccessExpression struct {
	Val    Expression
	Member string
	Typ    *DeclaredType
	Range  SourceRange
}

func (e *MemberAccessExpression) Kind() ExpressionKind   { return ExprMemberAccess }
func (e *MemberAccessExpression) Type() *DeclaredType     { return e.Typ }
func (e *MemberAccessExpression) SourceRange() SourceRange { return e.Range }

// ArbitrarySymbolExpression wraps a hierarchical reference used purely
// as a connection target (e.g. an interface port's own connection
// expression), rather than as a driven lvalue.
type ArbitrarySymbolExpression struct {
	HierRef *HierarchicalReference
	Range   SourceRange
}

func (e *ArbitrarySymbolExpression) Kind() ExpressionKind { return ExprArbitrarySymbol }
func (e *ArbitrarySymbolExpression) Type() *DeclaredType {
	if vs, ok := e.HierRef.Target.(ValueSymbol); ok {
		return vs.DeclaredType()
	}
	return nil
}
func (e *ArbitrarySymbolExpression) SourceRange() SourceRange { return e.Range }

// AssignmentExpression is `lhs = rhs` (or `lhs <= rhs`); only the left
// side is ever driven.
type AssignmentExpression struct {
	LHS, RHS Expression
	Range    SourceRange
}

func (e *AssignmentExpression) Kind() ExpressionKind   { return ExprAssignment }
func (e *AssignmentExpression) Type() *DeclaredType     { return e.LHS.Type() }
func (e *AssignmentExpression) SourceRange() SourceRange { return e.Range }
func (e *AssignmentExpression) Left() Expression         { return e.LHS }

// ConcatExpression is `{a, b, c}` used as an assignment target; each
// part is driven independently.
type ConcatExpression struct {
	Parts []Expression
	Range SourceRange
}

func (e *ConcatExpression) Kind() ExpressionKind   { return ExprConcat }
func (e *ConcatExpression) Type() *DeclaredType     { return nil }
func (e *ConcatExpression) SourceRange() SourceRange { return e.Range }

// RootValueSymbol walks down through select/member/hierarchical
// wrappers to the value symbol an expression ultimately reaches, if
// any.
func RootValueSymbol(expr Expression) (ValueSymbol, bool) {
	switch e := expr.(type) {
	case *NamedValueExpression:
		return e.Sym, true
	case *HierarchicalValueExpression:
		vs, ok := e.Ref.Target.(ValueSymbol)
		return vs, ok
	case *ElementSelectExpression:
		return RootValueSymbol(e.Val)
	case *RangeSelectExpression:
		return RootValueSymbol(e.Val)
	case *MemberAccessExpression:
		return RootValueSymbol(e.Val)
	case *ArbitrarySymbolExpression:
		vs, ok := e.HierRef.Target.(ValueSymbol)
		return vs, ok
	default:
		return nil, false
	}
}

// VisitComponents enumerates expr and (if includeRoot) itself, calling
// fn once per sub-expression reached by walking into Val/Parts. This
// is used for the interface-port pre-scan, which must notice a
// HierarchicalValueExpression anywhere in the prefix chain, not only
// at the root.
func VisitComponents(expr Expression, includeRoot bool, fn func(Expression)) {
	if expr == nil {
		return
	}
	if includeRoot {
		fn(expr)
	}
	switch e := expr.(type) {
	case *ElementSelectExpression:
		VisitComponents(e.Val, true, fn)
	case *RangeSelectExpression:
		VisitComponents(e.Val, true, fn)
	case *MemberAccessExpression:
		VisitComponents(e.Val, true, fn)
	case *AssignmentExpression:
		VisitComponents(e.LHS, true, fn)
		VisitComponents(e.RHS, true, fn)
	case *ConcatExpression:
		for _, p := range e.Parts {
			VisitComponents(p, true, fn)
		}
	}
}

// StringifyLSP renders a canonical textual form of a longest-static-
// prefix expression for diagnostics, e.g. "w[3:0]" or "i.mem".
func StringifyLSP(expr Expression) string {
	var b strings.Builder
	stringifyInto(&b, expr)
	return b.String()
}

func stringifyInto(b *strings.Builder, expr Expression) {
	switch e := expr.(type) {
	case *NamedValueExpression:
		b.WriteString(e.Sym.Name())
	case *HierarchicalValueExpression:
		b.WriteString(hierPathString(e.Ref))
	case *ElementSelectExpression:
		stringifyInto(b, e.Val)
		if e.Index != nil {
			fmt.Fprintf(b, "[%d]", *e.Index)
		} else {
			b.WriteString("[?]")
		}
	case *RangeSelectExpression:
		stringifyInto(b, e.Val)
		if e.Left != nil && e.Right != nil {
			fmt.Fprintf(b, "[%d:%d]", *e.Left, *e.Right)
		} else {
			b.WriteString("[?:?]")
		}
	case *MemberAccessExpression:
		stringifyInto(b, e.Val)
		b.WriteString(".")
		b.WriteString(e.Member)
	case *ArbitrarySymbolExpression:
		b.WriteString(hierPathString(e.HierRef))
	case *ConcatExpression:
		b.WriteString("{")
		for i, p := range e.Parts {
			if i > 0 {
				b.WriteString(", ")
			}
			stringifyInto(b, p)
		}
		b.WriteString("}")
	default:
		b.WriteString("<expr>")
	}
}

func hierPathString(ref *HierarchicalReference) string {
	var parts []string
	for _, step := range ref.Path {
		if step.Sym != nil {
			parts = append(parts, step.Sym.Name())
		}
	}
	return strings.Join(parts, ".")
}
