package diag

import (
	"sync"
	"testing"

	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
)

type fakeSymbol struct{ name string }

func (s *fakeSymbol) Name() string                  { return s.name }
func (s *fakeSymbol) Location() hdlast.SourceLocation { return hdlast.SourceLocation{} }
func (s *fakeSymbol) ParentScope() hdlast.Scope      { return nil }
func (s *fakeSymbol) Kind() hdlast.SymbolKind        { return hdlast.KindVariable }

func TestNewContextDefaultsArenaAndManager(t *testing.T) {
	ctx := NewContext(nil, nil)
	if ctx.Arena == nil {
		t.Fatalf("expected a default arena when nil is passed")
	}
	if ctx.Manager == nil {
		t.Fatalf("expected a default manager when nil is passed")
	}
}

func TestAddDiagAndDiagnosticsSnapshot(t *testing.T) {
	ctx := NewContext(nil, nil)
	sym := &fakeSymbol{name: "w"}
	rng := hdlast.SourceRange{Start: hdlast.SourceLocation{File: "t.hdldesign", Line: 3}}

	d := ctx.AddDiag(sym, MultipleContAssigns, rng, "w")
	d.AddNote(NoteDrivenHere, rng)

	diags := ctx.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	if diags[0].Code != MultipleContAssigns {
		t.Fatalf("expected MultipleContAssigns, got %v", diags[0].Code)
	}
	if len(diags[0].Notes) != 1 || diags[0].Notes[0].Code != NoteDrivenHere {
		t.Fatalf("expected one NoteDrivenHere note, got %#v", diags[0].Notes)
	}

	// The snapshot must not alias the context's internal slice.
	diags[0] = nil
	if ctx.Diagnostics()[0] == nil {
		t.Fatalf("mutating the returned slice must not affect the context's own diagnostics")
	}
}

func TestDiagnosticSeverityMatchesCode(t *testing.T) {
	d := &Diagnostic{Code: InputPortCoercion}
	if d.Severity() != Warning {
		t.Fatalf("expected InputPortCoercion to default to Warning, got %v", d.Severity())
	}
	d2 := &Diagnostic{Code: MultipleUWireDrivers}
	if d2.Severity() != Error {
		t.Fatalf("expected MultipleUWireDrivers to default to Error, got %v", d2.Severity())
	}
}

func TestDiagnosticMessageIncludesArgsWhenPresent(t *testing.T) {
	d := &Diagnostic{Code: MultipleUDNTDrivers, Args: []any{"my_nettype"}}
	if got, want := d.Message(), "MultipleUDNTDrivers: [my_nettype]"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	bare := &Diagnostic{Code: MultipleUWireDrivers}
	if got, want := bare.Message(), "MultipleUWireDrivers"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestManagerHasAllowDupInitialDriversNilSafe(t *testing.T) {
	var m *Manager
	if m.HasAllowDupInitialDrivers() {
		t.Fatalf("expected a nil manager to report false")
	}
	m = &Manager{AllowDupInitialDrivers: true}
	if !m.HasAllowDupInitialDrivers() {
		t.Fatalf("expected true once the flag is set")
	}
}

func TestAddDiagIsConcurrencySafe(t *testing.T) {
	ctx := NewContext(nil, nil)
	sym := &fakeSymbol{name: "w"}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx.AddDiag(sym, MultipleContAssigns, hdlast.SourceRange{})
		}()
	}
	wg.Wait()
	if got := len(ctx.Diagnostics()); got != 100 {
		t.Fatalf("expected 100 diagnostics, got %d", got)
	}
}
