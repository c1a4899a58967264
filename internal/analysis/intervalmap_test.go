package analysis

import "testing"

func TestIntervalDriverMapInsertKeepsInsertionOrder(t *testing.T) {
	var m IntervalDriverMap
	d1, d2, d3 := &ValueDriver{}, &ValueDriver{}, &ValueDriver{}
	m.Insert(DriverBitRange{Lo: 4, Hi: 7}, d1)
	m.Insert(DriverBitRange{Lo: 0, Hi: 3}, d2)
	m.Insert(DriverBitRange{Lo: 8, Hi: 9}, d3)

	all := m.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].Driver != d1 || all[1].Driver != d2 || all[2].Driver != d3 {
		t.Fatalf("expected entries in call order regardless of Lo bound, got %#v", all)
	}
}

// Same-Lo entries are a case sort.Search's leftmost-match tie-breaking
// used to get backwards; pin insertion order down directly for that
// case since it's what handleOverlap's stop-on-hard-error scan depends
// on.
func TestIntervalDriverMapInsertPreservesOrderForSharedLowerBound(t *testing.T) {
	var m IntervalDriverMap
	d1, d2, d3 := &ValueDriver{}, &ValueDriver{}, &ValueDriver{}
	m.Insert(DriverBitRange{Lo: 5, Hi: 9}, d1)
	m.Insert(DriverBitRange{Lo: 5, Hi: 5}, d2)
	m.Insert(DriverBitRange{Lo: 5, Hi: 12}, d3)

	all := m.All()
	if len(all) != 3 || all[0].Driver != d1 || all[1].Driver != d2 || all[2].Driver != d3 {
		t.Fatalf("expected same-Lo entries to come back in call order, got %#v", all)
	}
}

func TestIntervalDriverMapFindReturnsOnlyOverlapping(t *testing.T) {
	var m IntervalDriverMap
	low, high := &ValueDriver{}, &ValueDriver{}
	m.Insert(DriverBitRange{Lo: 0, Hi: 3}, low)
	m.Insert(DriverBitRange{Lo: 10, Hi: 15}, high)

	found := m.Find(DriverBitRange{Lo: 2, Hi: 2})
	if len(found) != 1 || found[0].Driver != low {
		t.Fatalf("expected only the low entry to overlap [2,2], got %#v", found)
	}

	found = m.Find(DriverBitRange{Lo: 20, Hi: 25})
	if len(found) != 0 {
		t.Fatalf("expected no overlaps for a disjoint range, got %#v", found)
	}
}

func TestIntervalDriverMapEmpty(t *testing.T) {
	var m IntervalDriverMap
	if !m.Empty() {
		t.Fatalf("expected a fresh map to be empty")
	}
	m.Insert(DriverBitRange{Lo: 0, Hi: 0}, &ValueDriver{})
	if m.Empty() {
		t.Fatalf("expected a non-empty map after Insert")
	}
}

func TestIntervalDriverMapAllReturnsACopy(t *testing.T) {
	var m IntervalDriverMap
	m.Insert(DriverBitRange{Lo: 0, Hi: 0}, &ValueDriver{})
	all := m.All()
	all[0] = DriverEntry{}
	if m.All()[0].Driver == nil {
		t.Fatalf("expected All() to return a defensive copy, not alias internal storage")
	}
}
