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

package ring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetAdvance(t *testing.T) {
	const n = uint32(7)
	for i := uint32(0); i < 2*n; i++ {
		off := Offset(i, n)
		assert.Less(t, off, n)
		for k := uint32(0); k <= n; k++ {
			ni := Advance(i, k, n)
			assert.Less(t, ni, 2*n, "advance must stay in the doubled index space")
			assert.Equal(t, (off+k)%n, Offset(ni, n),
				"offset of advanced index must advance modulo n (i=%d k=%d)", i, k)
		}
	}
}

func TestEmptyAndFull(t *testing.T) {
	const n = uint32(16)

	// Empty: p == c.
	for _, i := range []uint32{0, 3, n, 2*n - 1} {
		assert.False(t, HasData(i, i))
		assert.Equal(t, n, ProducerFree(i, i, n))
		assert.Equal(t, uint32(0), ConsumerFree(i, i, n))
	}

	// Full: advancing the producer by n from any index.
	for _, c := range []uint32{0, 5, n, 2*n - 1} {
		p := Advance(c, n, n)
		assert.True(t, HasData(p, c))
		assert.Equal(t, uint32(0), ProducerFree(p, c, n))
		assert.Equal(t, n, ConsumerFree(p, c, n))
	}
}

func TestFreeSlotsComplement(t *testing.T) {
	// For every reachable (p, c) pair, producer and consumer views must
	// partition the capacity.
	rng := rand.New(rand.NewSource(1))
	for _, n := range []uint32{1, 2, 7, 64, 65536} {
		p, c := uint32(0), uint32(0)
		for step := 0; step < 2000; step++ {
			require.Equal(t, n, ProducerFree(p, c, n)+ConsumerFree(p, c, n),
				"n=%d p=%d c=%d", n, p, c)

			if rng.Intn(2) == 0 {
				free := ProducerFree(p, c, n)
				if free == 0 {
					continue
				}
				k := uint32(rng.Int63n(int64(free))) + 1
				before := ConsumerFree(p, c, n)
				p = Advance(p, k, n)
				require.Equal(t, before+k, ConsumerFree(p, c, n))
			} else {
				free := ConsumerFree(p, c, n)
				if free == 0 {
					continue
				}
				k := uint32(rng.Int63n(int64(free))) + 1
				before := ProducerFree(p, c, n)
				c = Advance(c, k, n)
				require.Equal(t, before+k, ProducerFree(p, c, n))
			}
		}
	}
}

func TestContinuousSlots(t *testing.T) {
	const n = uint32(16)
	assert.Equal(t, uint32(10), ContinuousSlots(0, 10, n))
	assert.Equal(t, uint32(4), ContinuousSlots(12, 10, n), "span is cut at the wrap point")
	assert.Equal(t, uint32(0), ContinuousSlots(0, 0, n))
	assert.Equal(t, uint32(1), ContinuousSlots(15, 8, n))
}

func TestRanges(t *testing.T) {
	const n = uint32(16)

	first, second := Ranges(12, 10, n)
	assert.Equal(t, uint32(4), first)
	assert.Equal(t, uint32(6), second)

	// Index in the mirrored half maps to the same offsets.
	first, second = Ranges(n+12, 10, n)
	assert.Equal(t, uint32(4), first)
	assert.Equal(t, uint32(6), second)

	first, second = Ranges(2, 5, n)
	assert.Equal(t, uint32(5), first)
	assert.Equal(t, uint32(0), second)
}

func TestMaxSizeRoundTrip(t *testing.T) {
	// The largest capacity still distinguishes empty from full.
	n := uint32(MaxSize)
	p := Advance(0, n, n)
	assert.Equal(t, uint32(0), ProducerFree(p, 0, n))
	assert.Equal(t, n, ConsumerFree(p, 0, n))
	c := Advance(uint32(0), n, n)
	assert.Equal(t, n, ProducerFree(p, c, n))
}
