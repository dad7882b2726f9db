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

import "math"

// handle is a stable reference to a slot in a store. A handle never moves:
// slots are allocated in fixed-size blocks and blocks are never reallocated,
// so pointers into a slot stay valid until the slot is freed.
type handle uint32

// noneHandle is the nil handle. It doubles as the end sentinel of the entry
// sequence.
const noneHandle = handle(math.MaxUint32)

const (
	blockShift = 8
	blockSize  = 1 << blockShift // slots per block
	blockMask  = blockSize - 1
)

// slot holds one entry plus its intrusive sequence links. The key is copied
// into the slot at allocation (Go strings are immutable, so assignment is
// the copy); the hash is computed once and cached; the value starts as the
// zero value of V and is mutated in place by the caller.
type slot[V any] struct {
	key   string
	hash  uint64
	value V

	// gen is bumped every time the slot is freed. An iterator snapshots
	// the generation at creation; a mismatch means the entry it referenced
	// has been erased and the slot possibly reused.
	gen  uint32
	live bool

	prev, next handle
}

// store is an arena-backed doubly linked sequence of entries. The map owns
// exactly one store and consumes a small surface from it: allocate a slot,
// link it at the back or before a position, unlink it, free it, walk it.
// All link operations are O(1).
type store[V any] struct {
	blocks [][]slot[V]
	// allocated counts slots ever handed out; handles are allocated
	// densely in [0, allocated).
	allocated int
	// freeHead chains freed slots through their next field.
	freeHead handle

	head, tail handle
	// count is the number of linked slots, i.e. the size of the sequence.
	count int
}

func (s *store[V]) init() {
	s.freeHead = noneHandle
	s.head = noneHandle
	s.tail = noneHandle
}

func (s *store[V]) at(h handle) *slot[V] {
	return &s.blocks[h>>blockShift][h&blockMask]
}

// alloc takes a slot from the free list, or carves a new one, and
// initializes it as an unlinked live entry holding key and its cached hash.
func (s *store[V]) alloc(key string, hash uint64) handle {
	var h handle
	if s.freeHead != noneHandle {
		h = s.freeHead
		s.freeHead = s.at(h).next
	} else {
		if s.allocated == len(s.blocks)*blockSize {
			s.blocks = append(s.blocks, make([]slot[V], blockSize))
		}
		h = handle(s.allocated)
		s.allocated++
	}

	sl := s.at(h)
	sl.key = key
	sl.hash = hash
	var zero V
	sl.value = zero
	sl.live = true
	sl.prev = noneHandle
	sl.next = noneHandle
	return h
}

// free releases an unlinked slot back to the free list, invalidating any
// outstanding handles to it via the generation bump. The key and value are
// cleared so the garbage collector can reclaim what they reference.
func (s *store[V]) free(h handle) {
	sl := s.at(h)
	sl.gen++
	sl.live = false
	sl.key = ""
	var zero V
	sl.value = zero
	sl.prev = noneHandle
	sl.next = s.freeHead
	s.freeHead = h
}

// valid reports whether h references a live slot whose generation matches.
func (s *store[V]) valid(h handle, gen uint32) bool {
	if h == noneHandle || int(h) >= s.allocated {
		return false
	}
	sl := s.at(h)
	return sl.live && sl.gen == gen
}

// pushBack links an unlinked slot at the back of the sequence.
func (s *store[V]) pushBack(h handle) {
	sl := s.at(h)
	sl.prev = s.tail
	sl.next = noneHandle
	if s.tail != noneHandle {
		s.at(s.tail).next = h
	} else {
		s.head = h
	}
	s.tail = h
	s.count++
}

// insertBefore links an unlinked slot immediately before pos, which must be
// a linked slot.
func (s *store[V]) insertBefore(pos, h handle) {
	at := s.at(pos)
	sl := s.at(h)
	sl.prev = at.prev
	sl.next = pos
	if at.prev != noneHandle {
		s.at(at.prev).next = h
	} else {
		s.head = h
	}
	at.prev = h
	s.count++
}

// unlink removes a linked slot from the sequence without freeing it.
func (s *store[V]) unlink(h handle) {
	sl := s.at(h)
	if sl.prev != noneHandle {
		s.at(sl.prev).next = sl.next
	} else {
		s.head = sl.next
	}
	if sl.next != noneHandle {
		s.at(sl.next).prev = sl.prev
	} else {
		s.tail = sl.prev
	}
	sl.prev = noneHandle
	sl.next = noneHandle
	s.count--
}

func (s *store[V]) next(h handle) handle {
	return s.at(h).next
}

func (s *store[V]) prev(h handle) handle {
	return s.at(h).prev
}

// takeAll detaches the entire sequence, returning its old head. The slots
// remain allocated and keep their old links until relinked; the caller must
// relink every detached slot (saving each slot's next before relinking it)
// or the store is left inconsistent. Used by rehash to rebuild the sequence
// grouped by new bucket assignment in a single pass.
func (s *store[V]) takeAll() handle {
	h := s.head
	s.head = noneHandle
	s.tail = noneHandle
	s.count = 0
	return h
}

// clear frees every linked slot and empties the sequence.
func (s *store[V]) clear() {
	for h := s.head; h != noneHandle; {
		next := s.at(h).next
		s.free(h)
		h = next
	}
	s.head = noneHandle
	s.tail = noneHandle
	s.count = 0
}
