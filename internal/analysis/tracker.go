package analysis

import (
	"reflect"

	"github.com/robert-at-pretension-io/hdllint/internal/concurrentmap"
	"github.com/robert-at-pretension-io/hdllint/internal/diag"
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
	"github.com/robert-at-pretension-io/hdllint/internal/lsp"
)

// symbolHash hashes a Symbol by its underlying pointer identity; every
// concrete symbol type in internal/hdlast is used by pointer, so this
// gives stable, well-distributed shard assignment without requiring
// symbols to expose a numeric ID of their own.
func symbolHash(s hdlast.Symbol) uint64 {
	v := reflect.ValueOf(s)
	if !v.IsValid() || v.Kind() != reflect.Pointer {
		return 0
	}
	return fnvMix(uint64(v.Pointer()))
}

func fnvMix(v uint64) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= prime64
		v >>= 8
	}
	return h
}

type modportEntry struct {
	Driver *ValueDriver
	Bounds DriverBitRange
}

// DriverTracker is the concurrent index from symbol to
// IntervalDriverMap described in §4.2. It ingests drivers from
// procedures, port connections, initializers, modports, and interface
// ports, and runs the overlap-legality check on every insertion.
type DriverTracker struct {
	Ctx *diag.Context

	symbolDrivers  *concurrentmap.Map[hdlast.Symbol, IntervalDriverMap]
	modportDrivers *concurrentmap.Map[*hdlast.ModportPortSymbol, []modportEntry]
	Instances      *InstanceSideEffectGraph
}

// NewDriverTracker constructs an empty tracker reporting through ctx.
func NewDriverTracker(ctx *diag.Context) *DriverTracker {
	t := &DriverTracker{
		Ctx:            ctx,
		symbolDrivers:  concurrentmap.New[hdlast.Symbol, IntervalDriverMap](symbolHash),
		modportDrivers: concurrentmap.New[*hdlast.ModportPortSymbol, []modportEntry](concurrentmap.PointerHash[hdlast.ModportPortSymbol]()),
	}
	t.Instances = newInstanceSideEffectGraph(t)
	return t
}

// AddProcedure ingests every driver a per-procedure analyzer produced
// for one symbol (§4.2 `add(procedure)`). Interface-port side effects
// discovered while the per-symbol visitor holds its lock are collected
// and replayed afterward, outside that critical section, honoring the
// re-entrancy discipline in §5.
func (t *DriverTracker) AddProcedure(pd ProcedureDrivers) {
	var sideEffects []*hdlast.HierarchicalReference
	t.symbolDrivers.TryEmplaceAndVisit(pd.Symbol,
		func(m *IntervalDriverMap) {
			for _, drv := range pd.Drivers {
				if ref := t.insertDriver(pd.Symbol, m, drv); ref != nil {
					sideEffects = append(sideEffects, ref)
				}
			}
		},
		func(m *IntervalDriverMap) {
			for _, drv := range pd.Drivers {
				if ref := t.insertDriver(pd.Symbol, m, drv); ref != nil {
					sideEffects = append(sideEffects, ref)
				}
			}
		},
	)
	for _, ref := range sideEffects {
		t.Instances.noteInterfacePortDriver(ref, driverForRef(pd.Drivers, ref))
	}
}

// driverForRef finds the driver in list whose prefix expression
// contains ref (by identity of the hierarchical value expression),
// falling back to the first driver if none matches exactly — callers
// only ever pass a ref captured from one of these very drivers during
// the pre-scan, so this always finds a match in practice.
func driverForRef(list []*ValueDriver, ref *hdlast.HierarchicalReference) *ValueDriver {
	for _, d := range list {
		found := false
		hdlast.VisitComponents(d.PrefixExpression, true, func(e hdlast.Expression) {
			if hv, ok := e.(*hdlast.HierarchicalValueExpression); ok && hv.Ref == ref {
				found = true
			}
		})
		if found {
			return d
		}
	}
	if len(list) > 0 {
		return list[0]
	}
	return nil
}

// AddPortConnection ingests the connection-site side of a port
// connection (§4.2 `add(portConnection, containingSymbol)`).
// Input-direction ports, interface ports, and expressions that failed
// to elaborate contribute no driver.
func (t *DriverTracker) AddPortConnection(port *hdlast.PortSymbol, connExpr hdlast.Expression, containingSymbol hdlast.Symbol) {
	if port.Direction == hdlast.DirIn || connExpr == nil {
		return
	}
	target := connExpr
	if asn, ok := connExpr.(*hdlast.AssignmentExpression); ok {
		target = asn.Left()
	}
	flags := DriverFlags(0)
	if port.Direction == hdlast.DirOut {
		flags |= FlagOutputPort
	}
	t.addDrivers(target, containingSymbol, Continuous, hdlast.SourceContinuous, flags, nil)
}

// AddPort treats the port itself as a driver of its internal-facing
// expression (§4.2 `add(portSymbol)`); input and inout ports drive
// their internal symbol, output ports do not.
func (t *DriverTracker) AddPort(port *hdlast.PortSymbol, containingSymbol hdlast.Symbol) {
	if port.Direction == hdlast.DirOut {
		return
	}
	internal := port.InternalExpression()
	if internal == nil {
		return
	}
	flags := DriverFlags(0)
	if port.Direction == hdlast.DirIn {
		flags |= FlagInputPort
	}
	t.addDrivers(internal, containingSymbol, Continuous, hdlast.SourceContinuous, flags, nil)
}

// AddClockVar drives a clockvar's initializer expression, unless the
// clockvar is input-direction (§4.2 `add(clockVarSymbol)`).
func (t *DriverTracker) AddClockVar(cv *hdlast.ClockVarSymbol, containingSymbol hdlast.Symbol) {
	if cv.Direction == hdlast.DirIn {
		return
	}
	if cv.Init == nil {
		return
	}
	t.addDrivers(cv.Init, containingSymbol, Continuous, hdlast.SourceContinuous, FlagClockVar, nil)
}

// AddExpression is the generic continuous-driver entry point (§4.2
// `add(expression, containingSymbol)`).
func (t *DriverTracker) AddExpression(expr hdlast.Expression, containingSymbol hdlast.Symbol) {
	t.addDrivers(expr, containingSymbol, Continuous, hdlast.SourceContinuous, 0, nil)
}

// AddSymbolDriverList bulk-inserts a pre-built driver list (§4.2
// `add(symbolDriverList)`), e.g. already-projected modport drivers.
// Callers must guarantee no interface-port side effect can arise from
// this list; AddSymbolDriverList panics if one is discovered anyway,
// since that would silently violate invariant 4.
func (t *DriverTracker) AddSymbolDriverList(list []ProcedureDrivers) {
	for _, pd := range list {
		t.symbolDrivers.TryEmplaceAndVisit(pd.Symbol,
			func(m *IntervalDriverMap) { t.insertAssertNoSideEffect(pd.Symbol, m, pd.Drivers) },
			func(m *IntervalDriverMap) { t.insertAssertNoSideEffect(pd.Symbol, m, pd.Drivers) },
		)
	}
}

func (t *DriverTracker) insertAssertNoSideEffect(sym hdlast.Symbol, m *IntervalDriverMap, drivers []*ValueDriver) {
	for _, drv := range drivers {
		if ref := t.insertDriver(sym, m, drv); ref != nil {
			panic("analysis: AddSymbolDriverList produced an unexpected interface-port side effect")
		}
	}
}

// GetDrivers returns a snapshot of every driver stored for sym,
// including any synthesized initializer driver.
func (t *DriverTracker) GetDrivers(sym hdlast.ValueSymbol) DriverList {
	var out DriverList
	t.symbolDrivers.CVisit(sym, func(m *IntervalDriverMap) {
		for _, e := range m.All() {
			out = append(out, e)
		}
	})
	return out
}

// addDrivers decomposes expr into LSPs via internal/lsp and inserts
// one driver per reached value symbol, the shared tail of every public
// add() overload above.
func (t *DriverTracker) addDrivers(expr hdlast.Expression, containingSymbol hdlast.Symbol, kind DriverKind, source hdlast.DriverSource, flags DriverFlags, procCall *hdlast.SourceRange) {
	evalCtx := lsp.NewEvalContext(containingSymbol)
	type pending struct {
		sym hdlast.ValueSymbol
		lsp hdlast.Expression
	}
	var leaves []pending
	lsp.VisitLSPs(expr, evalCtx, func(symbol hdlast.ValueSymbol, lspExpr hdlast.Expression, isLValue bool) {
		if !isLValue {
			return
		}
		leaves = append(leaves, pending{sym: symbol, lsp: lspExpr})
	}, nil)

	for _, p := range leaves {
		bounds, ok := lsp.GetBounds(p.lsp, evalCtx, p.sym.DeclaredType())
		if !ok {
			continue
		}
		drv := &ValueDriver{
			DriverKind:       kind,
			PrefixExpression: p.lsp,
			ContainingSymbol: containingSymbol,
			Flags:            flags,
			Source:           source,
			ProcCallRange:    procCall,
		}
		t.addDriverLocked(p.sym, DriverBitRange{Lo: bounds.Lo, Hi: bounds.Hi}, drv)
	}
}

// addDriverLocked takes the per-symbol lock via TryEmplaceAndVisit and
// inserts a single driver, replaying any resulting interface-port side
// effect after the lock is released.
func (t *DriverTracker) addDriverLocked(sym hdlast.ValueSymbol, bounds DriverBitRange, drv *ValueDriver) {
	var sideEffect *hdlast.HierarchicalReference
	t.symbolDrivers.TryEmplaceAndVisit(sym,
		func(m *IntervalDriverMap) { sideEffect = t.addDriver(sym, m, drv, bounds) },
		func(m *IntervalDriverMap) { sideEffect = t.addDriver(sym, m, drv, bounds) },
	)
	if sideEffect != nil {
		t.Instances.noteInterfacePortDriver(sideEffect, drv)
	}
}

// insertDriver is addDriver's entry point for a ready-made driver
// whose bounds are not yet known (AddProcedure and
// AddSymbolDriverList): it computes them from the driver's own prefix
// expression via lsp.GetBounds, dropping the driver if that fails.
func (t *DriverTracker) insertDriver(sym hdlast.Symbol, m *IntervalDriverMap, drv *ValueDriver) *hdlast.HierarchicalReference {
	vs, ok := sym.(hdlast.ValueSymbol)
	if !ok {
		return nil
	}
	evalCtx := lsp.NewEvalContext(drv.ContainingSymbol)
	bounds, ok := lsp.GetBounds(drv.PrefixExpression, evalCtx, vs.DeclaredType())
	if !ok {
		return nil
	}
	return t.addDriver(sym, m, drv, DriverBitRange{Lo: bounds.Lo, Hi: bounds.Hi})
}

// addDriver implements the core algorithm from §4.2. It returns the
// hierarchical reference to register as an instance side effect, if
// the driver's prefix expression traversed an interface port.
func (t *DriverTracker) addDriver(sym hdlast.Symbol, m *IntervalDriverMap, drv *ValueDriver, bounds DriverBitRange) *hdlast.HierarchicalReference {
	// Step 1: reject class-typed symbols.
	if hdlast.IsClassTyped(sym) {
		return nil
	}

	// Step 2: pre-scan for an interface-port-mediated reference.
	var sideEffectRef *hdlast.HierarchicalReference
	if !drv.IsFromSideEffect {
		hdlast.VisitComponents(drv.PrefixExpression, true, func(e hdlast.Expression) {
			if sideEffectRef != nil {
				return
			}
			if hv, ok := e.(*hdlast.HierarchicalValueExpression); ok && hv.Ref != nil && hv.Ref.IsViaIfacePort {
				sideEffectRef = hv.Ref
			}
		})
	}

	// Step 3: modport-port short-circuit.
	if mp, ok := sym.(*hdlast.ModportPortSymbol); ok {
		t.modportDrivers.TryEmplaceAndVisit(mp,
			func(list *[]modportEntry) { *list = append(*list, modportEntry{Driver: drv, Bounds: bounds}) },
			func(list *[]modportEntry) { *list = append(*list, modportEntry{Driver: drv, Bounds: bounds}) },
		)
		return sideEffectRef
	}

	vs, isValueSymbol := sym.(hdlast.ValueSymbol)

	// Step 4: first-driver initializer synthesis.
	if m.Empty() && isValueSymbol && vs.Initializer() != nil {
		switch sym.Kind() {
		case hdlast.KindNet, hdlast.KindVariable, hdlast.KindClassProperty, hdlast.KindField:
			initDrv := newInitializerDriver(vs)
			width := fullWidth(vs.DeclaredType())
			m.Insert(DriverBitRange{Lo: 0, Hi: width - 1}, initDrv)
		}
	}

	// Step 5.
	if m.Empty() {
		m.Insert(bounds, drv)
		return sideEffectRef
	}

	// Step 6: overlap-check predicates.
	isNet := sym.Kind() == hdlast.KindNet
	isUWire := false
	isSingleDriverUDNT := false
	netTypeName := ""
	if netSym, ok := sym.(*hdlast.NetSymbol); ok && netSym.NetInfo != nil {
		isUWire = netSym.NetInfo.NetKind == hdlast.NetUWire
		isSingleDriverUDNT = netSym.NetInfo.NetKind == hdlast.NetUserDefined && !netSym.NetInfo.HasResolutionFunction
		netTypeName = netSym.NetInfo.Name
	}
	isStaticVar := false
	if varSym, ok := sym.(*hdlast.VariableSymbol); ok {
		isStaticVar = varSym.Lifetime == hdlast.LifetimeStatic
	}
	_, isLocalAssertionVar := sym.(*hdlast.LocalAssertionVarSymbol)
	checkOverlap := isStaticVar || isUWire || isSingleDriverUDNT || isLocalAssertionVar

	allowDup := t.Ctx.Manager.HasAllowDupInitialDrivers()

	// Steps 7-8.
	for _, entry := range m.Find(bounds) {
		curr := entry.Driver
		if isProblem(curr, drv, checkOverlap, allowDup) {
			if !handleOverlap(t.Ctx, sym, bounds, curr, drv, isNet, isUWire, isSingleDriverUDNT, netTypeName) {
				break
			}
		}
	}

	// Step 9.
	m.Insert(bounds, drv)
	return sideEffectRef
}

func fullWidth(t *hdlast.DeclaredType) int {
	if t == nil || t.SelectableWidth <= 0 {
		return 1
	}
	return t.SelectableWidth
}
