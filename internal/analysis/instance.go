package analysis

import (
	"github.com/robert-at-pretension-io/hdllint/internal/concurrentmap"
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
	"github.com/robert-at-pretension-io/hdllint/internal/lsp"
)

// ifacePortDriverEntry pairs a hierarchical reference reached through
// an interface port with the driver it represents.
type ifacePortDriverEntry struct {
	Ref    *hdlast.HierarchicalReference
	Driver *ValueDriver
}

// InstanceState is the record stored per canonical instance body: the
// non-canonical instances sharing that body, and the interface-port
// drivers discovered against it so far.
type InstanceState struct {
	NonCanonicalInstances []*hdlast.InstanceSymbol
	IfacePortDrivers      []ifacePortDriverEntry
}

// InstanceSideEffectGraph is the concurrent index from canonical
// instance body to InstanceState described in §4.3. Because a driver
// discovered through an interface port on the canonical body applies
// equally to every structurally-identical instance, this graph fans
// each newly-discovered driver out to every known non-canonical
// instance, and each newly-registered instance back-fills every
// previously-discovered driver.
type InstanceSideEffectGraph struct {
	tracker   *DriverTracker
	instances *concurrentmap.Map[*hdlast.InstanceBodySymbol, InstanceState]
}

func newInstanceSideEffectGraph(t *DriverTracker) *InstanceSideEffectGraph {
	return &InstanceSideEffectGraph{
		tracker:   t,
		instances: concurrentmap.New[*hdlast.InstanceBodySymbol, InstanceState](concurrentmap.PointerHash[hdlast.InstanceBodySymbol]()),
	}
}

// NoteNonCanonicalInstance registers inst as sharing its canonical
// body's elaboration, replaying every interface-port driver already
// recorded against that body onto inst.
func (g *InstanceSideEffectGraph) NoteNonCanonicalInstance(inst *hdlast.InstanceSymbol) {
	canonical := inst.CanonicalBody()
	var snapshot []ifacePortDriverEntry
	g.instances.TryEmplaceAndVisit(canonical,
		func(s *InstanceState) {
			s.NonCanonicalInstances = append(s.NonCanonicalInstances, inst)
			snapshot = append(snapshot, s.IfacePortDrivers...)
		},
		func(s *InstanceState) {
			s.NonCanonicalInstances = append(s.NonCanonicalInstances, inst)
			snapshot = append(snapshot, s.IfacePortDrivers...)
		},
	)
	for _, e := range snapshot {
		g.applyInstanceSideEffect(e, inst)
	}
}

// noteInterfacePortDriver resolves ref.Path[0].Sym to its owning
// instance body, records the (ref, driver) pair, and replays it onto
// every already-known non-canonical instance of that body. If the
// port's own connection is itself reached through another interface
// port, it recurses with the joined reference, threading the driver
// through chained interface ports.
func (g *InstanceSideEffectGraph) noteInterfacePortDriver(ref *hdlast.HierarchicalReference, driver *ValueDriver) {
	if driver == nil || len(ref.Path) == 0 {
		return
	}
	owner := ownerInstanceBody(ref.Path[0].Sym)
	if owner == nil {
		return
	}

	entry := ifacePortDriverEntry{Ref: ref, Driver: driver}
	var snapshot []*hdlast.InstanceSymbol
	g.instances.TryEmplaceAndVisit(owner,
		func(s *InstanceState) {
			s.IfacePortDrivers = append(s.IfacePortDrivers, entry)
			snapshot = append(snapshot, s.NonCanonicalInstances...)
		},
		func(s *InstanceState) {
			s.IfacePortDrivers = append(s.IfacePortDrivers, entry)
			snapshot = append(snapshot, s.NonCanonicalInstances...)
		},
	)
	for _, inst := range snapshot {
		g.applyInstanceSideEffect(entry, inst)
	}

	if ifp, ok := ref.Path[0].Sym.(*hdlast.InterfacePortSymbol); ok {
		if _, connExpr := ifp.ConnectionAndExpr(); connExpr != nil {
			if asExpr, ok := connExpr.(*hdlast.ArbitrarySymbolExpression); ok &&
				asExpr.HierRef != nil && asExpr.HierRef.IsViaIfacePort {
				joined := asExpr.HierRef.Join(ref)
				g.noteInterfacePortDriver(joined, driver)
			}
		}
	}
}

func ownerInstanceBody(sym hdlast.Symbol) *hdlast.InstanceBodySymbol {
	scope := sym.ParentScope()
	for scope != nil {
		if ib, ok := scope.(*hdlast.InstanceBodySymbol); ok {
			return ib
		}
		scope = scope.ParentScope()
	}
	return nil
}

// applyInstanceSideEffect resolves e.Ref against instance via
// retargetIfacePort; if a corresponding value symbol is found, a clone
// of e.Driver is inserted on it with isFromSideEffect set, which
// prevents the clone from ever re-triggering another fan-out (the
// cycle-breaker called out in §9).
func (g *InstanceSideEffectGraph) applyInstanceSideEffect(e ifacePortDriverEntry, instance *hdlast.InstanceSymbol) {
	target, ok := retargetIfacePort(e.Ref, instance)
	if !ok {
		return
	}
	vs, ok := target.(hdlast.ValueSymbol)
	if !ok {
		return
	}
	cloned := &ValueDriver{
		DriverKind:       e.Driver.DriverKind,
		PrefixExpression: e.Driver.PrefixExpression,
		ContainingSymbol: instance,
		Flags:            e.Driver.Flags,
		Source:           e.Driver.Source,
		IsFromSideEffect: true,
		ProcCallRange:    e.Driver.ProcCallRange,
	}
	evalCtx := lsp.NewEvalContext(cloned.ContainingSymbol)
	bounds, ok := lsp.GetBounds(cloned.PrefixExpression, evalCtx, vs.DeclaredType())
	if !ok {
		return
	}
	g.tracker.addDriverLocked(vs, DriverBitRange{Lo: bounds.Lo, Hi: bounds.Hi}, cloned)
}

// retargetIfacePort walks ref's path starting from instance's own
// port of the same name, following the algorithm in §4.3: dereferences
// chains of interface-port connections, consumes range-selects of
// instance arrays into a pending element slice, resolves modport-
// qualified name lookups with parent-scope fallback, and bounds-checks
// generate-block-array element selects. Any unresolved step returns
// not-found, silently dropping the side effect (§7).
func retargetIfacePort(ref *hdlast.HierarchicalReference, instance *hdlast.InstanceSymbol) (hdlast.Symbol, bool) {
	if len(ref.Path) == 0 || instance.Body == nil {
		return nil, false
	}
	// Interface-port connections are necessarily per-instance even when
	// Body is a canonical body shared with other instances (two
	// instances of the same definition can still be wired to different
	// external interfaces), so they're consulted before falling back to
	// the (possibly shared) body's own port list.
	var cur hdlast.Symbol
	if instance.IfacePortConnections != nil {
		if p, ok := instance.IfacePortConnections[ref.Path[0].Sym.Name()]; ok {
			cur = p
		}
	}
	if cur == nil {
		cur = instance.Body.FindPort(ref.Path[0].Sym.Name())
	}
	if cur == nil {
		return nil, false
	}

	var modport *hdlast.ModportSymbol
	var arrayElems []hdlast.Symbol

	for _, step := range ref.Path[1:] {
		for {
			ifp, ok := cur.(*hdlast.InterfacePortSymbol)
			if !ok {
				break
			}
			connSym, connModport := ifp.Connection()
			if connSym == nil {
				return nil, false
			}
			cur = connSym
			if connModport != nil {
				modport = connModport
			}
		}

		// A prior step may have landed on an instance rather than its
		// body (an array element select, or a plain name lookup that
		// resolved to a named instance); dereference to the body before
		// continuing the walk, exactly as an interface-port unwrap does.
		if len(arrayElems) == 0 {
			if inst, ok := cur.(*hdlast.InstanceSymbol); ok {
				if inst.Body == nil {
					return nil, false
				}
				cur = inst.Body
				if inst.Body.IsModuleKind {
					return nil, false
				}
				if modport != nil {
					found := inst.Body.Find(modport.Name())
					if found == nil {
						return nil, false
					}
					cur = found
					modport = nil
				}
			}
		}

		if len(arrayElems) > 0 {
			switch step.Sel.SelKind {
			case hdlast.SelectorRange:
				lo, hi := int(step.Sel.RangeLo), int(step.Sel.RangeHi)
				if lo < 0 || hi >= len(arrayElems) || lo > hi {
					return nil, false
				}
				arrayElems = arrayElems[lo : hi+1]
			case hdlast.SelectorIndex:
				idx := int(step.Sel.Index)
				if idx < 0 || idx >= len(arrayElems) {
					return nil, false
				}
				cur = arrayElems[idx]
				arrayElems = nil
			default:
				return nil, false
			}
			continue
		}

		switch step.Sel.SelKind {
		case hdlast.SelectorName:
			if ib, ok := cur.(*hdlast.InstanceBodySymbol); ok && ib.IsModuleKind {
				return nil, false
			}
			scope, ok := cur.(hdlast.Scope)
			if !ok {
				return nil, false
			}
			var found hdlast.Symbol
			if modport != nil {
				found = modport.Find(step.Sel.Name)
				if found == nil || !allowedInModport(found) {
					found = scope.Find(step.Sel.Name)
					modport = nil
				}
			} else {
				found = scope.Find(step.Sel.Name)
			}
			if found == nil {
				return nil, false
			}
			if m, ok := found.(*hdlast.ModportSymbol); ok {
				modport = m
				continue
			}
			cur = found
			if modport != nil && cur.Kind() == hdlast.KindInstance {
				if inst, ok := cur.(*hdlast.InstanceSymbol); ok && inst.Body != nil {
					if mp := inst.Body.Find(modport.Name()); mp != nil {
						if m2, ok := mp.(*hdlast.ModportSymbol); ok {
							modport = m2
						}
					}
				}
			}
		case hdlast.SelectorIndex:
			switch arr := cur.(type) {
			case *hdlast.InstanceArraySymbol:
				idx := int(step.Sel.Index)
				if idx < 0 || idx >= len(arr.Elements) {
					return nil, false
				}
				cur = arr.Elements[idx]
			case *hdlast.GenerateBlockArraySymbol:
				idx := int(step.Sel.Index)
				if !arr.Valid || idx < 0 || idx >= len(arr.Entries) {
					return nil, false
				}
				cur = arr.Entries[idx]
			default:
				return nil, false
			}
		case hdlast.SelectorRange:
			arr, ok := cur.(*hdlast.InstanceArraySymbol)
			if !ok {
				return nil, false
			}
			lo, hi := int(step.Sel.RangeLo), int(step.Sel.RangeHi)
			if lo < 0 || hi >= len(arr.Elements) || lo > hi {
				return nil, false
			}
			arrayElems = arr.Elements[lo : hi+1]
		default:
			return nil, false
		}
	}

	if len(arrayElems) > 0 {
		return nil, false
	}
	return cur, true
}

// allowedInModport reports whether sym's kind is one a modport view
// can directly expose (a modport port, or a nested modport itself).
func allowedInModport(sym hdlast.Symbol) bool {
	return sym.Kind() == hdlast.KindModportPort || sym.Kind() == hdlast.KindModport
}
