package analysis

// IntervalDriverMap is the per-symbol ordered map from bit intervals
// to driver records described in §4.1. It is not thread-safe on its
// own; the concurrent-map visitor contract one level up (DriverTracker
// via internal/concurrentmap) is what makes concurrent access to a
// single symbol's map safe. Entries are never deleted, matching the
// upstream container's append-only discipline.
type IntervalDriverMap struct {
	entries []DriverEntry
}

// Insert appends a new (bounds, driver) entry. Storage order is
// insertion order, not sorted by bound: handleOverlap's scan can stop
// partway through on a hard error, so which overlap is visited first
// is load-bearing and must match the order drivers were actually
// recorded in, not a bound-sorted order that can reshuffle same-Lo
// entries.
func (m *IntervalDriverMap) Insert(bounds DriverBitRange, driver *ValueDriver) {
	m.entries = append(m.entries, DriverEntry{Driver: driver, Bounds: bounds})
}

// Find returns every stored entry overlapping bounds, in storage
// (insertion) order, mirroring "find(range) positions at the first
// overlap; iteration continues through all overlaps in storage order."
func (m *IntervalDriverMap) Find(bounds DriverBitRange) []DriverEntry {
	var out []DriverEntry
	for _, e := range m.entries {
		if e.Bounds.Overlaps(bounds) {
			out = append(out, e)
		}
	}
	return out
}

// Empty reports whether the map holds no entries.
func (m *IntervalDriverMap) Empty() bool { return len(m.entries) == 0 }

// All returns every stored entry, in storage order.
func (m *IntervalDriverMap) All() []DriverEntry {
	out := make([]DriverEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
