// Package concurrentmap provides a sharded, per-entry-locking
// concurrent map implementing the visitor contract the driver tracker
// is specified against (`try_emplace_and_visit`, `cvisit`,
// `cvisit_all`). It generalizes the teacher repo's single
// sync.RWMutex-guarded SymbolTable (internal/indexer.SymbolTable) into
// a sharded map with per-key visitor callbacks, since no ready-made
// sharded concurrent map appears anywhere in the reference corpus
// (see DESIGN.md).
package concurrentmap

import (
	"sync"
	"unsafe"
)

const defaultShardCount = 32

// Map is a concurrent map from K to V. Each shard is guarded by its
// own sync.RWMutex; TryEmplaceAndVisit/CVisit hold that single shard's
// lock for the duration of the callback, giving per-entry exclusivity
// without a single global lock across the whole map.
type Map[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
}

type shard[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]*V
}

// New constructs a Map with the default shard count, hashing keys with
// hashFn (callers supply a hash suited to K; see PointerHash for
// pointer-identity keys, which are the common case here).
func New[K comparable, V any](hashFn func(K) uint64) *Map[K, V] {
	return NewWithShards[K, V](defaultShardCount, hashFn)
}

// NewWithShards constructs a Map with an explicit shard count,
// primarily for tests that want to force contention onto a single
// shard.
func NewWithShards[K comparable, V any](shardCount int, hashFn func(K) uint64) *Map[K, V] {
	if shardCount < 1 {
		shardCount = 1
	}
	m := &Map[K, V]{shards: make([]*shard[K, V], shardCount), hash: hashFn}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{data: make(map[K]*V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	h := m.hash(key)
	return m.shards[h%uint64(len(m.shards))]
}

// TryEmplaceAndVisit looks up key; if absent, it inserts a new zero
// value and invokes insertFn on it, otherwise it invokes updateFn on
// the existing value. Exactly one callback runs, under the shard's
// exclusive lock, so no other goroutine can observe or mutate the
// entry while it runs. Callers must not call back into the same Map
// for the same key from within the callback (re-entrant insertion is
// forbidden, per the concurrency model in §5); to touch another entry,
// copy what's needed out and act after the callback returns.
func (m *Map[K, V]) TryEmplaceAndVisit(key K, insertFn, updateFn func(value *V)) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		v = new(V)
		s.data[key] = v
		insertFn(v)
		return
	}
	updateFn(v)
}

// CVisit invokes fn on the value stored for key under a shared
// (reader) lock, if present. It is a no-op if key is absent.
func (m *Map[K, V]) CVisit(key K, fn func(value *V)) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.data[key]; ok {
		// Callers that need read/modify consistency should use
		// TryEmplaceAndVisit instead. CVisit is for snapshot reads.
		fn(v)
	}
}

// CVisitAll invokes fn once per entry, each under that entry's shard's
// shared lock. Shards are visited in index order; entries within a
// shard are visited in Go's unspecified map iteration order.
func (m *Map[K, V]) CVisitAll(fn func(key K, value *V)) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.data {
			fn(k, v)
		}
		s.mu.RUnlock()
	}
}

// Swap atomically replaces the entire map's contents with an empty
// map and returns a Map containing what was previously stored,
// mirroring `std::swap(modportPortDrivers, localCopy)` in the
// specification's ModportPropagator.
func (m *Map[K, V]) Swap() *Map[K, V] {
	old := NewWithShards[K, V](len(m.shards), m.hash)
	for i, s := range m.shards {
		s.mu.Lock()
		old.shards[i].data = s.data
		s.data = make(map[K]*V)
		s.mu.Unlock()
	}
	return old
}

// Empty reports whether the map currently holds no entries. Intended
// for the fixed-point loop's termination check; like any concurrent
// size check, it is a snapshot.
func (m *Map[K, V]) Empty() bool {
	for _, s := range m.shards {
		s.mu.RLock()
		n := len(s.data)
		s.mu.RUnlock()
		if n > 0 {
			return false
		}
	}
	return true
}

// Len returns the total number of entries across all shards.
func (m *Map[K, V]) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.RLock()
		total += len(s.data)
		s.mu.RUnlock()
	}
	return total
}

// PointerHash returns a hash function suitable for Map keys that are
// pointers (the common case: symbol pointers used as map identity).
// It mixes the pointer's bit pattern with the FNV-1a constants so
// nearby allocations don't pile onto the same shard.
func PointerHash[T any]() func(*T) uint64 {
	return func(p *T) uint64 {
		return hashUintptr(uintptr(unsafe.Pointer(p)))
	}
}

func hashUintptr(u uintptr) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	v := uint64(u)
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= prime64
		v >>= 8
	}
	return h
}
