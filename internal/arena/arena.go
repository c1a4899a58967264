// Package arena provides bump allocation for the analysis-time object
// graph (drivers, synthesized expression nodes). Everything allocated
// from an Arena shares the arena's lifetime; nothing is ever freed
// individually, matching the upstream analyzer's allocation discipline.
package arena

import "sync"

// Arena is a simple concurrent-safe bump allocator. It never reclaims
// memory; callers release the whole arena by dropping their reference
// to it.
type Arena struct {
	mu    sync.Mutex
	count int
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{}
}

// Alloc allocates a zero-valued T from the arena and returns a pointer
// to it. Go's own allocator backs the storage; Arena only tracks
// provenance and count so callers (and tests) can reason about
// allocation volume without owning a free-list.
func Alloc[T any](a *Arena) *T {
	a.mu.Lock()
	a.count++
	a.mu.Unlock()
	v := new(T)
	return v
}

// Clone allocates a copy of v from the arena.
func Clone[T any](a *Arena, v T) *T {
	p := Alloc[T](a)
	*p = v
	return p
}

// Count returns the number of objects allocated so far. Intended for
// tests and diagnostics, not for production control flow.
func (a *Arena) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}
