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

package chainmap

// Iterator is a position in a map's entry sequence. Iterators are
// comparable with ==; the end sentinel of a map compares equal to itself.
//
// An iterator stays valid until the entry it references is erased, the map
// is cleared, or the map is discarded. Rehashing and unrelated insertions
// do not invalidate it; they can change which entry is adjacent, but never
// which entry the iterator references. A stale iterator reports
// Valid() == false and degrades to zero values instead of misbehaving.
type Iterator[V any] struct {
	m   *Map[V]
	h   handle
	gen uint32
}

// iter wraps a handle into an Iterator, snapshotting the slot generation.
func (m *Map[V]) iter(h handle) Iterator[V] {
	if h == noneHandle {
		return m.End()
	}
	return Iterator[V]{m: m, h: h, gen: m.store.at(h).gen}
}

// Begin returns an iterator to the first entry in sequence order, or the
// end sentinel if the map is empty or nil.
func (m *Map[V]) Begin() Iterator[V] {
	if m == nil {
		return Iterator[V]{}
	}
	return m.iter(m.store.head)
}

// End returns the end sentinel: the position one past the last entry.
func (m *Map[V]) End() Iterator[V] {
	if m == nil {
		return Iterator[V]{}
	}
	return Iterator[V]{m: m, h: noneHandle}
}

// Valid reports whether the iterator references a live entry.
func (it Iterator[V]) Valid() bool {
	return it.m != nil && it.m.store.valid(it.h, it.gen)
}

// Key returns the referenced entry's key, or "" for an invalid iterator.
func (it Iterator[V]) Key() string {
	if !it.Valid() {
		return ""
	}
	return it.m.store.at(it.h).key
}

// Value returns a pointer through which the entry's value is read and
// mutated in place. The pointer stays valid until the entry is erased.
// Returns nil for an invalid iterator.
func (it Iterator[V]) Value() *V {
	if !it.Valid() {
		return nil
	}
	return &it.m.store.at(it.h).value
}

// Next returns an iterator to the following entry in sequence order, or
// the end sentinel. Next on the end sentinel or an invalid iterator
// returns the end sentinel.
func (it Iterator[V]) Next() Iterator[V] {
	return it.Advance(1)
}

// Advance returns the iterator offset positions forward in sequence order
// (backward for negative offsets). Advancing from the end sentinel walks
// backward from one past the last entry, so End().Advance(-1) is the last
// entry. Reaching either end of the sequence stops at the end sentinel.
// O(offset).
func (it Iterator[V]) Advance(offset int) Iterator[V] {
	if it.m == nil {
		return it
	}
	if it.h != noneHandle && !it.m.store.valid(it.h, it.gen) {
		return it.m.End()
	}

	h := it.h
	for ; offset > 0 && h != noneHandle; offset-- {
		h = it.m.store.next(h)
	}
	for ; offset < 0; offset++ {
		if h == noneHandle {
			h = it.m.store.tail
		} else {
			h = it.m.store.prev(h)
		}
		if h == noneHandle {
			break
		}
	}
	return it.m.iter(h)
}
