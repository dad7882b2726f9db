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

// HashFunc hashes a key to a 64-bit value. The hash of a key is computed
// once at insertion time and cached for the lifetime of the entry, so a
// HashFunc must be deterministic for the lifetime of the map.
type HashFunc func(key string) uint64

// hashSeed is the djb2 offset basis.
//
// See http://www.cse.yorku.ca/~oz/hash.html.
const hashSeed = 5381

// defaultHash is the djb2 string hash: hash = hash*33 + byte, per byte.
// It is unseeded and allocation-free. Collision resistance is not a goal;
// even bucket distribution is.
func defaultHash(key string) uint64 {
	h := uint64(hashSeed)
	for i := 0; i < len(key); i++ {
		h = ((h << 5) + h) + uint64(key[i])
	}
	return h
}
