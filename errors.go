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

import "errors"

var (
	// ErrInvalidArgument is returned for a nil map receiver on mutating
	// operations, and for an iterator that does not reference a live entry
	// of the map it is passed to.
	ErrInvalidArgument = errors.New("chainmap: invalid argument")

	// ErrOverflow is returned when the element count would exceed the
	// maximum map size, when a requested bucket count exceeds
	// MaxBucketCount, or when a size/load-factor ratio exceeds the
	// precision available to compute a target bucket count.
	ErrOverflow = errors.New("chainmap: overflow")
)

// Allocation failure has no error value: like the builtin map, running out
// of memory while growing panics. Every operation that returns an error
// leaves the map exactly as it was before the call.
