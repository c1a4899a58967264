package facts

import "testing"

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	prev := Tables{
		Modules: []ModuleRow{
			{Name: "a", File: "f.hdldesign", Line: 1},
		},
		Signals: []SignalRow{
			{Module: "a", Name: "w", Kind: "net", File: "f.hdldesign", Line: 2},
		},
	}
	next := Tables{
		Modules: []ModuleRow{
			{Name: "b", File: "f.hdldesign", Line: 3},
		},
		Signals: []SignalRow{
			{Module: "b", Name: "v", Kind: "var", File: "f.hdldesign", Line: 4},
		},
	}

	delta := ComputeDelta(prev, next)

	if len(delta.Added.Modules) != 1 || delta.Added.Modules[0].Name != "b" {
		t.Fatalf("expected module b added, got %+v", delta.Added.Modules)
	}
	if len(delta.Removed.Modules) != 1 || delta.Removed.Modules[0].Name != "a" {
		t.Fatalf("expected module a removed, got %+v", delta.Removed.Modules)
	}
	if len(delta.Added.Signals) != 1 || delta.Added.Signals[0].Name != "v" {
		t.Fatalf("expected signal v added, got %+v", delta.Added.Signals)
	}
	if len(delta.Removed.Signals) != 1 || delta.Removed.Signals[0].Name != "w" {
		t.Fatalf("expected signal w removed, got %+v", delta.Removed.Signals)
	}
}
