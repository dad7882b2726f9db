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

// Option provides an interface to do work on a Map while it is being
// created.
type Option[V any] interface {
	apply(m *Map[V])
}

type hashOption[V any] struct {
	hash HashFunc
}

func (op hashOption[V]) apply(m *Map[V]) {
	m.hash = op.hash
}

// WithHash is an option to replace the default djb2 hash. The replacement
// must be deterministic; a poor hash degrades runs to O(n) scans but does
// not affect correctness.
func WithHash[V any](hash HashFunc) Option[V] {
	return hashOption[V]{hash}
}

type maxLoadFactorOption[V any] struct {
	z float32
}

func (op maxLoadFactorOption[V]) apply(m *Map[V]) {
	if op.z < loadFactorFloor {
		op.z = loadFactorFloor
	}
	m.maxLoadFactor = op.z
}

// WithMaxLoadFactor is an option to set the maximum load factor at
// construction, clamped to the same 0.25 floor as SetMaxLoadFactor.
func WithMaxLoadFactor[V any](z float32) Option[V] {
	return maxLoadFactorOption[V]{z}
}

type capacityOption[V any] struct {
	n int
}

func (op capacityOption[V]) apply(m *Map[V]) {
	m.initialCap = op.n
}

// WithCapacity is an option to size the bucket index at construction so
// that n entries can be inserted without further growth, as if by Reserve.
func WithCapacity[V any](n int) Option[V] {
	return capacityOption[V]{n}
}
