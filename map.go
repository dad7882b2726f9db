// Copyright 2025 The Chainmap Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chainmap implements a string-keyed hash map with open hashing via
// chaining, average O(1) insert, find and erase, explicit control over load
// factor and bucket count, and iterators that stay valid across growth.
//
// # Design
//
// All entries live in a single ordered sequence backed by a block arena.
// The sequence is maintained so that every bucket's entries form one
// contiguous run within it. The bucket index is then just an array with one
// run-start reference per bucket: finding a key walks forward from its
// bucket's run-start and stops as soon as it reaches an entry belonging to
// a different bucket. Insertion splices the new entry to the front of its
// bucket's run, which is O(1) regardless of bucket size.
//
// Rehashing walks the sequence once and regroups the entries by their new
// bucket assignment. Entries are spliced, never copied: an entry's identity
// and address are stable from insert until erase, so rehashing and
// unrelated insertions do not invalidate existing iterators. Only erasing
// an entry (or clearing the map) invalidates iterators to it, and stale
// iterators are detected rather than dereferenced.
//
// Bucket counts are drawn from a fixed table of primes rather than doubled,
// trading memory headroom for predictable rehash cadence.
//
// # Concurrency
//
// A Map is NOT goroutine-safe. Multiple concurrent readers are safe only
// while no writer is active; callers must synchronize any concurrent
// writer externally.
package chainmap

import (
	"fmt"
	"math"
	"strings"
)

const (
	debug = false

	// bucketCountInitial is the bucket count of a newly constructed map.
	bucketCountInitial = 5

	// loadFactorFloor is the smallest accepted max load factor. Lower
	// values would over-allocate buckets pathologically.
	loadFactorFloor = 0.25

	defaultMaxLoadFactor = 1.0

	// floatMantBits bounds the size/load-factor arithmetic: integers
	// above 1<<24 are not exactly representable in a float32, so a target
	// bucket count computed from a larger ratio would silently lose
	// precision. Such requests are rejected with ErrOverflow instead.
	floatMantBits = 24

	// mapSizeMax is the absolute maximum element count. One handle value
	// is reserved as the end sentinel.
	mapSizeMax = math.MaxUint32 - 1
)

// bucketSizes is an arbitrary ascending subset of the primes, trading
// memory overhead against rehash cost. Growth never skips to a size the
// table doesn't contain, and the last size is the hard bucket-count
// ceiling.
var bucketSizes = [...]int{
	5, 11, 23,
	47, 53, 97,
	193, 389, 769,
	1543, 3079, 6151,
	12289, 24593, 49157,
	98317, 196613, 393241,
	786433, 1572869, 3145739,
	6291469, 12582917, 25165843,
	50331653, 100663319, 201326611,
	402653189, 805306457, 1610612741,
}

const bucketCountMax = 1610612741

// Map is a hash map from string keys to values of type V. Use New to
// construct one; the zero value of a Map is not usable.
//
// Read-only queries degrade to zero values on a nil *Map; mutating
// operations on a nil *Map return ErrInvalidArgument.
type Map[V any] struct {
	hash  HashFunc
	store store[V]
	// buckets[b] holds the run-start of bucket b: the first entry of the
	// contiguous run of entries whose hash maps to b. noneHandle for an
	// empty bucket. Invariant: the referenced entry's hash mod
	// len(buckets) == b.
	buckets       []handle
	maxLoadFactor float32

	// initialCap is only consulted during New; see WithCapacity.
	initialCap int
}

// New constructs an empty Map with bucket count 5 and max load factor 1.0.
func New[V any](opts ...Option[V]) *Map[V] {
	m := &Map[V]{
		hash:          defaultHash,
		maxLoadFactor: defaultMaxLoadFactor,
	}
	m.store.init()
	for _, opt := range opts {
		opt.apply(m)
	}

	m.buckets = make([]handle, bucketCountInitial)
	for b := range m.buckets {
		m.buckets[b] = noneHandle
	}

	if m.initialCap > 0 {
		// A construction-time capacity beyond the representable range is
		// clamped to the initial bucket count rather than reported; use
		// Reserve directly to observe the error.
		_ = m.Reserve(m.initialCap)
	}
	m.checkInvariants()
	return m
}

// Len returns the number of entries in the map, or 0 for a nil map.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return m.store.count
}

// Empty reports whether the map holds no entries. A nil map is empty.
func (m *Map[V]) Empty() bool {
	return m.Len() == 0
}

// bucketOf returns the bucket id for a cached hash under n buckets.
func bucketOf(hash uint64, n int) int {
	return int(hash % uint64(n))
}

// Insert looks up key and, if absent, creates an entry for it holding the
// zero value of V. It returns an iterator to the entry (existing or new)
// and whether a new entry was created. The key is never aliased beyond the
// call. On error, no entry is created and the map is unchanged.
//
// Inserting may grow the bucket index so that the map stays at or below
// its max load factor; growth relocates entries into new runs but does not
// invalidate iterators.
func (m *Map[V]) Insert(key string) (Iterator[V], bool, error) {
	if m == nil {
		return Iterator[V]{}, false, ErrInvalidArgument
	}

	if it := m.Find(key); it != m.End() {
		// Already present. Lookup-or-create semantics: hand back the
		// existing entry.
		return it, false, nil
	}

	if uint64(m.store.count) >= mapSizeMax {
		return m.End(), false, ErrOverflow
	}
	if err := m.rehashIfNeeded(m.store.count + 1); err != nil {
		return m.End(), false, err
	}

	hash := m.hash(key)
	h := m.store.alloc(key, hash)

	// Splice the new entry to the front of its bucket's run. A previously
	// empty bucket starts a fresh run at the tail of the sequence, which
	// cannot extend any other bucket's run.
	b := bucketOf(hash, len(m.buckets))
	if rs := m.buckets[b]; rs != noneHandle {
		m.store.insertBefore(rs, h)
	} else {
		m.store.pushBack(h)
	}
	m.buckets[b] = h

	m.checkInvariants()
	return m.iter(h), true, nil
}

// Find returns an iterator to the entry for key, or the end sentinel if
// the key is absent. Find on a nil map returns the end sentinel; absence
// is never an error.
func (m *Map[V]) Find(key string) Iterator[V] {
	if m == nil {
		return Iterator[V]{}
	}

	hash := m.hash(key)
	b := bucketOf(hash, len(m.buckets))
	for h := m.buckets[b]; h != noneHandle; h = m.store.next(h) {
		sl := m.store.at(h)
		if bucketOf(sl.hash, len(m.buckets)) != b {
			// Walked off the end of this bucket's run.
			break
		}
		if sl.hash == hash && sl.key == key {
			return m.iter(h)
		}
	}
	return m.End()
}

// Erase removes the entry referenced by it, invalidating it and only it;
// iterators to other entries remain valid. Returns ErrInvalidArgument if
// it does not reference a live entry of this map.
func (m *Map[V]) Erase(it Iterator[V]) error {
	if m == nil || it.m != m || !m.store.valid(it.h, it.gen) {
		return ErrInvalidArgument
	}

	// Repair the run-start before unlinking so the bucket index never
	// references a freed entry.
	sl := m.store.at(it.h)
	b := bucketOf(sl.hash, len(m.buckets))
	if m.buckets[b] == it.h {
		next := m.store.next(it.h)
		if next != noneHandle && bucketOf(m.store.at(next).hash, len(m.buckets)) == b {
			m.buckets[b] = next
		} else {
			m.buckets[b] = noneHandle
		}
	}

	m.store.unlink(it.h)
	m.store.free(it.h)
	m.checkInvariants()
	return nil
}

// Clear removes all entries, invalidating all iterators. The bucket count
// is retained.
func (m *Map[V]) Clear() error {
	if m == nil {
		return ErrInvalidArgument
	}
	m.store.clear()
	for b := range m.buckets {
		m.buckets[b] = noneHandle
	}
	m.checkInvariants()
	return nil
}

// Put inserts key if absent and sets its value. Equivalent to Insert
// followed by storing through the value handle.
func (m *Map[V]) Put(key string, value V) error {
	it, _, err := m.Insert(key)
	if err != nil {
		return err
	}
	*it.Value() = value
	return nil
}

// Get returns the value stored for key, or the zero value and false if the
// key is absent.
func (m *Map[V]) Get(key string) (V, bool) {
	it := m.Find(key)
	if !it.Valid() {
		var zero V
		return zero, false
	}
	return *it.Value(), true
}

// Delete removes the entry for key if present, reporting whether an entry
// was removed.
func (m *Map[V]) Delete(key string) bool {
	it := m.Find(key)
	if !it.Valid() {
		return false
	}
	return m.Erase(it) == nil
}

// Bucket returns the bucket id key maps to under the current bucket count.
func (m *Map[V]) Bucket(key string) (int, error) {
	if m == nil {
		return 0, ErrInvalidArgument
	}
	return bucketOf(m.hash(key), len(m.buckets)), nil
}

// BucketCount returns the number of buckets, or 0 for a nil map.
func (m *Map[V]) BucketCount() int {
	if m == nil {
		return 0
	}
	return len(m.buckets)
}

// MaxBucketCount returns the maximum number of buckets the map can hold,
// or 0 for a nil map.
func (m *Map[V]) MaxBucketCount() int {
	if m == nil {
		return 0
	}
	return bucketCountMax
}

// BucketSize returns the number of entries in bucket b, or 0 if b is out
// of range or the map is nil. O(run length).
func (m *Map[V]) BucketSize(b int) int {
	if m == nil || b < 0 || b >= len(m.buckets) {
		return 0
	}
	var n int
	for h := m.buckets[b]; h != noneHandle; h = m.store.next(h) {
		if bucketOf(m.store.at(h).hash, len(m.buckets)) != b {
			break
		}
		n++
	}
	return n
}

// LoadFactor returns Len()/BucketCount(), or 0 for a nil map.
func (m *Map[V]) LoadFactor() float32 {
	if m == nil || len(m.buckets) == 0 {
		return 0
	}
	return float32(m.store.count) / float32(len(m.buckets))
}

// MaxLoadFactor returns the configured maximum load factor, or 0 for a
// nil map.
func (m *Map[V]) MaxLoadFactor() float32 {
	if m == nil {
		return 0
	}
	return m.maxLoadFactor
}

// SetMaxLoadFactor sets the maximum load factor, clamped to a floor of
// 0.25, and immediately grows the bucket index if the current size exceeds
// the new factor. Lowering the factor can therefore itself trigger a
// rehash.
func (m *Map[V]) SetMaxLoadFactor(z float32) error {
	if m == nil {
		return ErrInvalidArgument
	}
	if z < loadFactorFloor {
		z = loadFactorFloor
	}
	prev := m.maxLoadFactor
	m.maxLoadFactor = z
	if err := m.rehashIfNeeded(m.store.count); err != nil {
		m.maxLoadFactor = prev
		return err
	}
	return nil
}

// Rehash grows the bucket index to exactly buckets buckets and regroups
// all entries. It is a no-op if the current bucket count is already
// sufficient; the bucket index never shrinks. Entry identity is preserved:
// outstanding iterators remain valid.
func (m *Map[V]) Rehash(buckets int) error {
	if m == nil || buckets < 0 {
		return ErrInvalidArgument
	}
	if buckets <= len(m.buckets) {
		return nil
	}
	if buckets > bucketCountMax {
		return ErrOverflow
	}
	m.rehashTo(buckets)
	return nil
}

// Reserve ensures the bucket count is large enough that inserting up to n
// total entries will not trigger further growth at the current max load
// factor. It never shrinks.
func (m *Map[V]) Reserve(n int) error {
	if m == nil || n < 0 {
		return ErrInvalidArgument
	}
	capacity := int(math.Ceil(float64(float32(len(m.buckets)) * m.maxLoadFactor)))
	if n <= capacity {
		return nil
	}
	return m.rehashIfNeeded(n)
}

// All calls yield for each entry in sequence order until yield returns
// false. The value pointer is the entry's in-place mutation handle. The
// map must not be mutated during iteration.
func (m *Map[V]) All(yield func(key string, value *V) bool) {
	if m == nil {
		return
	}
	for h := m.store.head; h != noneHandle; h = m.store.next(h) {
		sl := m.store.at(h)
		if !yield(sl.key, &sl.value) {
			return
		}
	}
}

// idealBucketCount returns the smallest tabulated bucket count >= n,
// saturating at the table maximum.
func idealBucketCount(n int) int {
	ret := bucketCountInitial
	for i := 0; i < len(bucketSizes) && ret < n; i++ {
		ret = bucketSizes[i]
	}
	return ret
}

// rehashIfNeeded grows the bucket index if it is too small to hold n
// entries at the current max load factor.
func (m *Map[V]) rehashIfNeeded(n int) error {
	count := float32(n) / m.maxLoadFactor
	if count > 1<<floatMantBits {
		return ErrOverflow
	}
	required := idealBucketCount(int(count))
	if required <= len(m.buckets) {
		return nil
	}
	if required > bucketCountMax {
		return ErrOverflow
	}
	m.rehashTo(required)
	return nil
}

// rehashTo rebuilds the bucket index at n buckets and regroups every entry
// into its new bucket's run in a single pass over the sequence. Each entry
// is spliced to the front of its new run (or to the tail for the first
// entry of a bucket), which re-establishes the contiguity invariant.
// Entries are never copied, so their identity and addresses survive.
func (m *Map[V]) rehashTo(n int) {
	if debug {
		fmt.Printf("rehash: buckets=%d->%d len=%d\n", len(m.buckets), n, m.store.count)
	}

	buckets := make([]handle, n)
	for b := range buckets {
		buckets[b] = noneHandle
	}

	for h := m.store.takeAll(); h != noneHandle; {
		// The old links survive takeAll; save next before this entry's
		// links are rewritten by relinking.
		next := m.store.next(h)
		b := bucketOf(m.store.at(h).hash, n)
		if rs := buckets[b]; rs != noneHandle {
			m.store.insertBefore(rs, h)
		} else {
			m.store.pushBack(h)
		}
		buckets[b] = h
		h = next
	}

	m.buckets = buckets
	m.checkInvariants()
}

// checkInvariants verifies the structural invariants of the map. Enabled
// by the invariants build tag; compiled away otherwise.
func (m *Map[V]) checkInvariants() {
	if !invariantsEnabled {
		return
	}

	// The sequence is a well-formed doubly linked chain of live slots.
	var walked int
	prev := noneHandle
	for h := m.store.head; h != noneHandle; h = m.store.next(h) {
		sl := m.store.at(h)
		if !sl.live {
			panic(fmt.Sprintf("invariant failed: linked slot %d is not live\n%s", h, m.debugString()))
		}
		if sl.prev != prev {
			panic(fmt.Sprintf("invariant failed: slot %d prev=%d, expected %d\n%s", h, sl.prev, prev, m.debugString()))
		}
		prev = h
		walked++
	}
	if prev != m.store.tail {
		panic(fmt.Sprintf("invariant failed: tail=%d, expected %d\n%s", m.store.tail, prev, m.debugString()))
	}
	if walked != m.store.count {
		panic(fmt.Sprintf("invariant failed: walked %d slots, count is %d\n%s", walked, m.store.count, m.debugString()))
	}

	// Bucket contiguity: scanning the sequence, bucket ids change only at
	// run boundaries, each run's first entry is its bucket's run-start,
	// and no bucket id recurs in a later run.
	seen := make(map[int]bool)
	lastBucket := -1
	for h := m.store.head; h != noneHandle; h = m.store.next(h) {
		b := bucketOf(m.store.at(h).hash, len(m.buckets))
		if b != lastBucket {
			if seen[b] {
				panic(fmt.Sprintf("invariant failed: bucket %d split across runs\n%s", b, m.debugString()))
			}
			seen[b] = true
			if m.buckets[b] != h {
				panic(fmt.Sprintf("invariant failed: bucket %d run-start=%d, expected %d\n%s", b, m.buckets[b], h, m.debugString()))
			}
			lastBucket = b
		}
	}

	// The bucket index references exactly the buckets that have runs.
	for b, rs := range m.buckets {
		if rs == noneHandle && seen[b] {
			panic(fmt.Sprintf("invariant failed: bucket %d has a run but no run-start\n%s", b, m.debugString()))
		}
		if rs != noneHandle && !seen[b] {
			panic(fmt.Sprintf("invariant failed: bucket %d run-start=%d but no run\n%s", b, rs, m.debugString()))
		}
	}

	// Every entry is reachable through Find.
	for h := m.store.head; h != noneHandle; h = m.store.next(h) {
		sl := m.store.at(h)
		if it := m.Find(sl.key); it.h != h {
			panic(fmt.Sprintf("invariant failed: find(%q) = %d, expected %d\n%s", sl.key, it.h, h, m.debugString()))
		}
	}
}

func (m *Map[V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "len=%d buckets=%d load-factor=%f\n", m.store.count, len(m.buckets), m.LoadFactor())
	for h := m.store.head; h != noneHandle; h = m.store.next(h) {
		sl := m.store.at(h)
		fmt.Fprintf(&buf, "  %4d: %q [hash=%d bucket=%d]\n", h, sl.key, sl.hash, bucketOf(sl.hash, len(m.buckets)))
	}
	for b, rs := range m.buckets {
		if rs != noneHandle {
			fmt.Fprintf(&buf, "  bucket %4d: run-start=%d\n", b, rs)
		}
	}
	return buf.String()
}
