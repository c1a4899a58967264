package hdlast

// SelectorKind distinguishes the shapes a hierarchical path step's
// selector can take.
type SelectorKind int

const (
	SelectorNone SelectorKind = iota
	SelectorIndex
	SelectorRange
	SelectorName
)

// Selector is one step's index/range/name selector, a closed sum type
// kept as a struct (rather than an interface) since callers need to
// switch on Kind anyway and there are only three shapes.
type Selector struct {
	SelKind  SelectorKind
	Index    int32
	RangeLo  int32
	RangeHi  int32
	Name     string
}

// PathStep is one `(symbol, selector)` pair along a hierarchical
// reference. Path[0].Sym is the reference's base symbol (e.g. the
// interface port); Path[i].Sel for i>=1 is the selector used to step
// from Path[i-1] to Path[i].
type PathStep struct {
	Sym Symbol
	Sel Selector
}

// HierarchicalReference is an ordered path of (symbol, selector) steps
// resolved by the elaborator, with a flag marking whether resolution
// passed through an interface port and the final resolved target.
type HierarchicalReference struct {
	Path           []PathStep
	IsViaIfacePort bool
	Target         Symbol
	Expr           Expression
}

// Join threads a reference reached via a chained interface port: the
// receiver is the reference from the interface port's own connection
// expression, and other is the original reference whose Path[0] is
// that port. The joined path is the receiver's path followed by
// other's path minus its duplicate leading element.
func (r *HierarchicalReference) Join(other *HierarchicalReference) *HierarchicalReference {
	joined := make([]PathStep, 0, len(r.Path)+len(other.Path)-1)
	joined = append(joined, r.Path...)
	if len(other.Path) > 1 {
		joined = append(joined, other.Path[1:]...)
	}
	return &HierarchicalReference{
		Path:           joined,
		IsViaIfacePort: true,
		Target:         other.Target,
		Expr:           other.Expr,
	}
}
