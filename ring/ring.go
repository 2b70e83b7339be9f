// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ring implements the index algebra of a single-producer
// single-consumer circular buffer.
//
// Indices live in the doubled space [0, 2n) for a buffer of capacity n.
// An index modulo n is a buffer offset; the extra mirror bit distinguishes
// the full ring (|p-c| == n) from the empty ring (p == c) without wasting
// a slot. Both indices advance modulo 2n. Because of the mirror bit the
// capacity must not exceed half the index range (MaxSize).
//
// The package is pure arithmetic; atomicity and memory ordering are the
// caller's concern.
package ring

import "math"

// MaxSize is the largest supported ring capacity.
const MaxSize = math.MaxUint32 / 2

// Offset maps an index in [0, 2n) to a buffer offset in [0, n).
func Offset(i, n uint32) uint32 {
	if i >= n {
		return i - n
	}
	return i
}

// Advance moves index i forward by count slots, wrapping in [0, 2n).
// count must not exceed n.
func Advance(i, count, n uint32) uint32 {
	if 2*n-i > count {
		return i + count
	}
	return i - n + count - n
}

// ProducerFree returns the number of slots the producer may fill.
func ProducerFree(p, c, n uint32) uint32 {
	if p >= c {
		return n - (p - c)
	}
	return c - n - p
}

// ConsumerFree returns the number of slots the consumer may drain.
func ConsumerFree(p, c, n uint32) uint32 {
	if c <= p {
		return p - c
	}
	return 2*n - c + p
}

// HasData reports whether the consumer has at least one readable slot.
func HasData(p, c uint32) bool {
	return p != c
}

// ContinuousSlots bounds count to the contiguous run starting at offset,
// i.e. the longest span that does not wrap around the buffer end.
func ContinuousSlots(offset, count, n uint32) uint32 {
	if m := n - offset; count > m {
		return m
	}
	return count
}

// Ranges splits an available span of count slots starting at index i into
// the contiguous head run and the wrapped tail run.
func Ranges(i, count, n uint32) (first, second uint32) {
	first = ContinuousSlots(Offset(i, n), count, n)
	return first, count - first
}
