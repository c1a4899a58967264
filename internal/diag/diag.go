// Package diag provides the diagnostic sink and analysis context the
// driver tracker reports legality violations through. It plays the
// role the specification calls an external collaborator ("the
// diagnostic sink that renders reports"); this module gives it a
// concrete, minimal implementation instead of leaving it hand-waved.
package diag

import (
	"fmt"
	"sync"

	"github.com/robert-at-pretension-io/hdllint/internal/arena"
	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
)

// Note is a secondary source location attached to a Diagnostic.
type Note struct {
	Code    NoteCode
	Range   hdlast.SourceRange
	Args    []any
}

func (n Note) Message() string {
	if len(n.Args) == 0 {
		return n.Code.String()
	}
	return fmt.Sprintf(n.Code.String()+": %v", n.Args)
}

// Diagnostic is one reported legality violation.
type Diagnostic struct {
	Symbol hdlast.Symbol
	Code   Code
	Range  hdlast.SourceRange
	Args   []any
	Notes  []Note
}

// AddNote appends a note and returns it (mirroring the upstream
// builder-style `diag.addNote(...)` call chain).
func (d *Diagnostic) AddNote(code NoteCode, rng hdlast.SourceRange, args ...any) *Note {
	n := Note{Code: code, Range: rng, Args: args}
	d.Notes = append(d.Notes, n)
	return &d.Notes[len(d.Notes)-1]
}

// Message renders a one-line human-readable form of the diagnostic,
// not including its notes.
func (d *Diagnostic) Message() string {
	if len(d.Args) == 0 {
		return d.Code.String()
	}
	return fmt.Sprintf("%s: %v", d.Code, d.Args)
}

// Severity returns the diagnostic's reported severity. It is derived
// from Code alone; the net vs. variable input-port split is expressed
// by reporting different codes (InputPortCoercion vs. InputPortAssign).
func (d *Diagnostic) Severity() Severity {
	return d.Code.Severity()
}

// Manager carries the small set of configuration flags the tracker
// consults (`AnalysisFlags` in the upstream design).
type Manager struct {
	// AllowDupInitialDrivers exempts drivers from `initial` blocks from
	// the check against overlapping always_comb/always_ff/always_latch
	// drivers in a different containing symbol.
	AllowDupInitialDrivers bool

	// MaxModportIterations bounds ModportPropagator's fixed-point
	// loop. Zero means "compute a default from the observed modport
	// port count" (see analysis.DriverTracker.PropagateModportDrivers).
	MaxModportIterations int
}

func (m *Manager) HasAllowDupInitialDrivers() bool {
	return m != nil && m.AllowDupInitialDrivers
}

// Context is the AnalysisContext collaborator: it owns an arena,
// reports diagnostics, and exposes the manager's flags. The tracker
// does not allocate driver or expression nodes from the arena.
type Context struct {
	Arena   *arena.Arena
	Manager *Manager

	mu    sync.Mutex
	diags []*Diagnostic
}

// NewContext constructs a Context with its own arena if none is given.
func NewContext(a *arena.Arena, m *Manager) *Context {
	if a == nil {
		a = arena.New()
	}
	if m == nil {
		m = &Manager{}
	}
	return &Context{Arena: a, Manager: m}
}

// AddDiag records a new diagnostic and returns it so the caller can
// chain AddNote calls, mirroring `context.addDiag(...)` in the source.
func (c *Context) AddDiag(sym hdlast.Symbol, code Code, rng hdlast.SourceRange, args ...any) *Diagnostic {
	d := &Diagnostic{Symbol: sym, Code: code, Range: rng, Args: args}
	c.mu.Lock()
	c.diags = append(c.diags, d)
	c.mu.Unlock()
	return d
}

// Diagnostics returns a snapshot of every diagnostic reported so far.
func (c *Context) Diagnostics() []*Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}
