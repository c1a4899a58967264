package analysis

import (
	"testing"

	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
)

// retargetIfacePort must dereference an instance reached mid-path (an
// instance-array element select, here) down to its body before the
// next step can look a name up in it — an *hdlast.InstanceSymbol does
// not itself implement hdlast.Scope, only its Body does.
func TestRetargetIfacePort_ThroughInstanceArrayElementThenName(t *testing.T) {
	outer := hdlast.NewInstanceBody("outer", hdlast.SourceLocation{}, nil)

	elemBody := hdlast.NewInstanceBody("elem", hdlast.SourceLocation{}, nil)
	sig := &hdlast.VariableSymbol{Base: hdlast.Base{SymName: "sig"}, DeclType: testType()}
	elemBody.Declare(sig)
	elem := &hdlast.InstanceSymbol{Base: hdlast.Base{SymName: "elem"}, Body: elemBody}

	arr := &hdlast.InstanceArraySymbol{Base: hdlast.Base{SymName: "arr"}, Elements: []hdlast.Symbol{elem}}

	port := &hdlast.InterfacePortSymbol{Base: hdlast.Base{SymName: "p"}, ConnSymbol: arr}
	outer.DeclarePort(port)

	inst := &hdlast.InstanceSymbol{Base: hdlast.Base{SymName: "inst"}, Body: outer}

	ref := &hdlast.HierarchicalReference{
		IsViaIfacePort: true,
		Path: []hdlast.PathStep{
			{Sym: port},
			{Sel: hdlast.Selector{SelKind: hdlast.SelectorIndex, Index: 0}},
			{Sel: hdlast.Selector{SelKind: hdlast.SelectorName, Name: "sig"}},
		},
	}

	got, ok := retargetIfacePort(ref, inst)
	if !ok {
		t.Fatalf("expected retargetIfacePort to resolve through the array element")
	}
	if got != sig {
		t.Fatalf("expected to resolve to the element body's sig member, got %#v", got)
	}
}

// A module can never be instantiated inside an interface, so walking
// onto one mid-path is always a resolution failure rather than a panic
// or a silently-wrong symbol.
func TestRetargetIfacePort_ModuleInstanceMidPathFails(t *testing.T) {
	outer := hdlast.NewInstanceBody("outer", hdlast.SourceLocation{}, nil)

	modBody := hdlast.NewInstanceBody("mod", hdlast.SourceLocation{}, nil)
	modBody.IsModuleKind = true
	elem := &hdlast.InstanceSymbol{Base: hdlast.Base{SymName: "mod"}, Body: modBody}

	port := &hdlast.InterfacePortSymbol{Base: hdlast.Base{SymName: "p"}, ConnSymbol: elem}
	outer.DeclarePort(port)

	inst := &hdlast.InstanceSymbol{Base: hdlast.Base{SymName: "inst"}, Body: outer}

	ref := &hdlast.HierarchicalReference{
		IsViaIfacePort: true,
		Path: []hdlast.PathStep{
			{Sym: port},
			{Sel: hdlast.Selector{SelKind: hdlast.SelectorName, Name: "sig"}},
		},
	}

	if _, ok := retargetIfacePort(ref, inst); ok {
		t.Fatalf("expected retargetIfacePort to fail when it walks onto a module instance")
	}
}
