package hdlast

import (
	"sort"
	"strings"
)

// Symbol is an elaborated declaration. The interface is intentionally
// thin: callers type-switch on Kind() (mirroring the upstream
// analyzer's SymbolKind dispatch) to reach kind-specific data rather
// than growing one interface with every accessor every kind might need.
type Symbol interface {
	Name() string
	Kind() SymbolKind
	Location() SourceLocation
	ParentScope() Scope
}

// ValueSymbol is a Symbol that can carry a declared type and
// initializer, and therefore can be a driver-map key.
type ValueSymbol interface {
	Symbol
	DeclaredType() *DeclaredType
	Initializer() Expression
}

// Scope is a Symbol that can be searched by name, used when walking
// hierarchical references through instances and modports.
type Scope interface {
	Symbol
	Find(name string) Symbol
	FindPort(name string) Symbol
}

// Base holds the fields common to every symbol kind.
type Base struct {
	SymName string
	Loc      SourceLocation
	Parent   Scope
}

func (b *Base) Name() string          { return b.SymName }
func (b *Base) Location() SourceLocation { return b.Loc }
func (b *Base) ParentScope() Scope    { return b.Parent }

// DeclaredType carries just enough type information for bit-range
// computation: selectable width in bits, and whether this is a class
// handle (class-typed symbols never participate in driver tracking).
type DeclaredType struct {
	SelectableWidth int
	IsClass         bool
}

// NetType describes a net's resolution behavior.
type NetType struct {
	Name                  string
	NetKind               NetKind
	HasResolutionFunction bool
}

// IsClassTyped reports whether sym's declared type (if any) is a class
// handle, per invariant 6: class-typed symbols never appear as driver
// map keys.
func IsClassTyped(sym Symbol) bool {
	vs, ok := sym.(ValueSymbol)
	if !ok {
		return false
	}
	dt := vs.DeclaredType()
	return dt != nil && dt.IsClass
}

// HierarchicalPath renders a dotted hierarchical path by walking the
// ParentScope chain, used only for diagnostic notes that need to name
// two distinct instantiation contexts.
func HierarchicalPath(sym Symbol) string {
	var parts []string
	for s := sym; s != nil; {
		parts = append(parts, s.Name())
		scope := s.ParentScope()
		if scope == nil {
			break
		}
		s = scope
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// --- Value symbols -----------------------------------------------------

// NetSymbol is a `Net` declaration (wire/uwire/user-defined net type).
type NetSymbol struct {
	Base
	DeclType *DeclaredType
	Init     Expression
	NetInfo  *NetType
}

func (s *NetSymbol) Kind() SymbolKind           { return KindNet }
func (s *NetSymbol) DeclaredType() *DeclaredType { return s.DeclType }
func (s *NetSymbol) Initializer() Expression    { return s.Init }

// VariableSymbol is a `Variable` declaration.
type VariableSymbol struct {
	Base
	DeclType *DeclaredType
	Init     Expression
	Lifetime Lifetime
}

func (s *VariableSymbol) Kind() SymbolKind           { return KindVariable }
func (s *VariableSymbol) DeclaredType() *DeclaredType { return s.DeclType }
func (s *VariableSymbol) Initializer() Expression    { return s.Init }

// FieldSymbol is a packed/unpacked struct or union member.
type FieldSymbol struct {
	Base
	DeclType *DeclaredType
	Init     Expression
}

func (s *FieldSymbol) Kind() SymbolKind           { return KindField }
func (s *FieldSymbol) DeclaredType() *DeclaredType { return s.DeclType }
func (s *FieldSymbol) Initializer() Expression    { return s.Init }

// ClassPropertySymbol is a class member variable.
type ClassPropertySymbol struct {
	Base
	DeclType *DeclaredType
	Init     Expression
}

func (s *ClassPropertySymbol) Kind() SymbolKind           { return KindClassProperty }
func (s *ClassPropertySymbol) DeclaredType() *DeclaredType { return s.DeclType }
func (s *ClassPropertySymbol) Initializer() Expression    { return s.Init }

// LocalAssertionVarSymbol is a formal argument of a sequence/property,
// bound as a local variable for the duration of the assertion.
type LocalAssertionVarSymbol struct {
	Base
	DeclType *DeclaredType
}

func (s *LocalAssertionVarSymbol) Kind() SymbolKind           { return KindLocalAssertionVar }
func (s *LocalAssertionVarSymbol) DeclaredType() *DeclaredType { return s.DeclType }
func (s *LocalAssertionVarSymbol) Initializer() Expression    { return nil }

// PortSymbol is a module/interface port declared with an explicit
// direction and (optionally) an internal-facing expression that it
// drives.
type PortSymbol struct {
	Base
	Direction         Direction
	DeclType          *DeclaredType
	InternalExpr      Expression
	InternalSymbolRef ValueSymbol
}

func (s *PortSymbol) Kind() SymbolKind           { return KindPort }
func (s *PortSymbol) DeclaredType() *DeclaredType { return s.DeclType }
func (s *PortSymbol) Initializer() Expression    { return nil }

// InternalExpression returns the expression this port drives
// internally, synthesizing a zero-length named-value reference to
// InternalSymbolRef if no explicit internal expression was recorded.
func (s *PortSymbol) InternalExpression() Expression {
	if s.InternalExpr != nil {
		return s.InternalExpr
	}
	if s.InternalSymbolRef != nil {
		return &NamedValueExpression{
			Sym:   s.InternalSymbolRef,
			Range: SourceRange{Start: s.Loc, End: s.Loc},
		}
	}
	return nil
}

// MultiPortSymbol represents a port formed by concatenating several
// underlying port declarations; only its direction matters here.
type MultiPortSymbol struct {
	Base
	Direction Direction
}

func (s *MultiPortSymbol) Kind() SymbolKind { return KindMultiPort }

// InterfacePortSymbol is a module port whose type is an interface (or
// a modport of one); drivers can flow through it into the
// instantiator's scope.
type InterfacePortSymbol struct {
	Base
	ConnSymbol  Symbol   // the connected instance body or modport
	ConnModport *ModportSymbol
	ConnExpr    Expression // the port connection expression, for chaining
}

func (s *InterfacePortSymbol) Kind() SymbolKind { return KindInterfacePort }

// Connection returns the symbol (and, if selected, modport) this
// interface port resolves to.
func (s *InterfacePortSymbol) Connection() (Symbol, *ModportSymbol) {
	return s.ConnSymbol, s.ConnModport
}

// ConnectionAndExpr returns the connection symbol alongside the raw
// connection expression, used to detect chained interface ports.
func (s *InterfacePortSymbol) ConnectionAndExpr() (Symbol, Expression) {
	return s.ConnSymbol, s.ConnExpr
}

// ModportPortSymbol is one member exposed through a modport view.
type ModportPortSymbol struct {
	Base
	DeclType *DeclaredType
	ConnExpr Expression
}

func (s *ModportPortSymbol) Kind() SymbolKind           { return KindModportPort }
func (s *ModportPortSymbol) DeclaredType() *DeclaredType { return s.DeclType }
func (s *ModportPortSymbol) Initializer() Expression    { return nil }

// ConnectionExpr returns the expression the modport port is ultimately
// wired to, once the enclosing interface instance is connected.
func (s *ModportPortSymbol) ConnectionExpr() Expression { return s.ConnExpr }

// ClockVarSymbol is a clocking-block signal.
type ClockVarSymbol struct {
	Base
	Direction Direction
	DeclType  *DeclaredType
	Init      Expression
}

func (s *ClockVarSymbol) Kind() SymbolKind           { return KindClockVar }
func (s *ClockVarSymbol) DeclaredType() *DeclaredType { return s.DeclType }
func (s *ClockVarSymbol) Initializer() Expression    { return s.Init }

// --- Hierarchy symbols --------------------------------------------------

// InstanceSymbol is one instantiation of a module/interface/program.
// Body may be shared with other InstanceSymbols of the same
// definition (the "canonical body" dedup described in §9's glossary):
// structural members live on the shared body, but each instance's
// interface-port CONNECTIONS are necessarily per-instance (two
// instances sharing a body can still be wired to different external
// interfaces), so they are tracked here rather than on the body.
type InstanceSymbol struct {
	Base
	Body                 *InstanceBodySymbol
	IfacePortConnections map[string]*InterfacePortSymbol
}

func (s *InstanceSymbol) Kind() SymbolKind { return KindInstance }

// CanonicalBody returns the deduplicated elaboration this instance
// shares with any other structurally-identical instance.
func (s *InstanceSymbol) CanonicalBody() *InstanceBodySymbol {
	if s.Body == nil {
		return nil
	}
	if s.Body.Canonical != nil {
		return s.Body.Canonical
	}
	return s.Body
}

// InstanceBodySymbol is the elaborated body shared by every instance
// with the same definition and parameterization.
type InstanceBodySymbol struct {
	Base
	scope          *scopeData
	Canonical      *InstanceBodySymbol // nil (or self) if this body is canonical
	IsModuleKind   bool
}

func (s *InstanceBodySymbol) Kind() SymbolKind { return KindInstanceBody }

func (s *InstanceBodySymbol) Find(name string) Symbol     { return s.scope.find(name) }
func (s *InstanceBodySymbol) FindPort(name string) Symbol { return s.scope.findPort(name) }

// Members returns every symbol declared directly in this body, sorted
// by name for deterministic fact-table output.
func (s *InstanceBodySymbol) Members() []Symbol {
	names := make([]string, 0, len(s.scope.members))
	for name := range s.scope.members {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Symbol, 0, len(names))
	for _, name := range names {
		out = append(out, s.scope.members[name])
	}
	return out
}

// Ports returns every port declared directly in this body, sorted by
// name for deterministic fact-table output.
func (s *InstanceBodySymbol) Ports() []Symbol {
	names := make([]string, 0, len(s.scope.ports))
	for name := range s.scope.ports {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Symbol, 0, len(names))
	for _, name := range names {
		out = append(out, s.scope.ports[name])
	}
	return out
}

// Declare registers a member symbol in this body's scope.
func (s *InstanceBodySymbol) Declare(sym Symbol) { s.scope.declare(sym) }

// DeclarePort registers a port symbol, separately searchable via FindPort.
func (s *InstanceBodySymbol) DeclarePort(sym Symbol) { s.scope.declarePort(sym) }

// NewInstanceBody constructs an instance body with its own scope.
func NewInstanceBody(name string, loc SourceLocation, parent Scope) *InstanceBodySymbol {
	return &InstanceBodySymbol{Base: Base{SymName: name, Loc: loc, Parent: parent}, scope: newScopeData()}
}

// InstanceArraySymbol is a generate-style array of instances.
type InstanceArraySymbol struct {
	Base
	Elements []Symbol
}

func (s *InstanceArraySymbol) Kind() SymbolKind { return KindInstanceArray }

// ModportSymbol is a named, direction-restricted view over an
// interface's members.
type ModportSymbol struct {
	Base
	scope *scopeData
}

func (s *ModportSymbol) Kind() SymbolKind { return KindModport }

func (s *ModportSymbol) Find(name string) Symbol     { return s.scope.find(name) }
func (s *ModportSymbol) FindPort(name string) Symbol { return s.scope.findPort(name) }
func (s *ModportSymbol) Declare(sym Symbol)          { s.scope.declare(sym) }

// NewModport constructs a modport with its own (small) scope of
// modport ports.
func NewModport(name string, loc SourceLocation, parent Scope) *ModportSymbol {
	return &ModportSymbol{Base: Base{SymName: name, Loc: loc, Parent: parent}, scope: newScopeData()}
}

// GenerateBlockArraySymbol is a generate-for block's array of
// generated instances/entries.
type GenerateBlockArraySymbol struct {
	Base
	Valid   bool
	Entries []Symbol
}

func (s *GenerateBlockArraySymbol) Kind() SymbolKind { return KindGenerateBlockArray }

// SubroutineSymbol is a function/task, used as a containing-symbol
// context for drivers made from within subroutine bodies.
type SubroutineSymbol struct {
	Base
}

func (s *SubroutineSymbol) Kind() SymbolKind { return KindSubroutine }

// --- Scope helper --------------------------------------------------------

// scopeData is the shared member table backing InstanceBodySymbol and
// ModportSymbol.
type scopeData struct {
	members map[string]Symbol
	ports   map[string]Symbol
}

func newScopeData() *scopeData {
	return &scopeData{members: make(map[string]Symbol), ports: make(map[string]Symbol)}
}

func (s *scopeData) declare(sym Symbol)     { s.members[sym.Name()] = sym }
func (s *scopeData) declarePort(sym Symbol) { s.ports[sym.Name()] = sym; s.members[sym.Name()] = sym }

func (s *scopeData) find(name string) Symbol {
	if sym, ok := s.members[name]; ok {
		return sym
	}
	return nil
}

func (s *scopeData) findPort(name string) Symbol {
	if sym, ok := s.ports[name]; ok {
		return sym
	}
	return nil
}

// AnonymousScope is a simple named container (used for top-level
// "$root"/package-like scopes in tests) implementing Scope.
type AnonymousScope struct {
	Base
	scope *scopeData
}

func NewAnonymousScope(name string, parent Scope) *AnonymousScope {
	return &AnonymousScope{Base: Base{SymName: name, Parent: parent}, scope: newScopeData()}
}

func (s *AnonymousScope) Kind() SymbolKind           { return KindScope }
func (s *AnonymousScope) Find(name string) Symbol     { return s.scope.find(name) }
func (s *AnonymousScope) FindPort(name string) Symbol { return s.scope.findPort(name) }
func (s *AnonymousScope) Declare(sym Symbol)          { s.scope.declare(sym) }
