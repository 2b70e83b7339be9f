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

package bytebuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValue(t *testing.T) {
	var b Buffer
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Cap())
	assert.Empty(t, b.Bytes())
	b.Reset()
	b.Close()
}

func TestAppendAndBytes(t *testing.T) {
	b := New(8)
	defer b.Close()

	require.True(t, b.Append([]byte("hello")))
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, "hello", string(b.Bytes()))

	require.True(t, b.Append([]byte(" world")))
	assert.Equal(t, "hello world", string(b.Bytes()))
}

func TestSpareCommit(t *testing.T) {
	b := New(16)
	defer b.Close()

	spare := b.Spare()
	require.GreaterOrEqual(t, len(spare), 16)
	n := copy(spare, "abc")
	b.Commit(n)
	assert.Equal(t, "abc", string(b.Bytes()))

	spare = b.Spare()
	copy(spare, "def")
	b.Commit(3)
	assert.Equal(t, "abcdef", string(b.Bytes()))
}

func TestCommitOutOfRange(t *testing.T) {
	b := New(8)
	defer b.Close()
	assert.Panics(t, func() { b.Commit(b.Cap() + 1) })
	assert.Panics(t, func() { b.Commit(-1) })
}

func TestReserveGrowth(t *testing.T) {
	b := New(4)
	defer b.Close()

	require.True(t, b.Append([]byte("0123")))
	require.True(t, b.Reserve(1<<16))
	assert.GreaterOrEqual(t, b.Cap()-b.Len(), 1<<16)
	assert.Equal(t, "0123", string(b.Bytes()), "growth preserves committed data")
}

func TestGrowReserve(t *testing.T) {
	var b Buffer
	defer b.Close()

	require.True(t, b.GrowReserve())
	require.Greater(t, len(b.Spare()), 0)

	// Fill the storage completely, then grow again.
	n := len(b.Spare())
	for i := range b.Spare() {
		b.Spare()[i] = byte(i)
	}
	b.Commit(n)
	require.Equal(t, 0, len(b.Spare()))
	require.True(t, b.GrowReserve())
	assert.Greater(t, len(b.Spare()), 0)
	assert.Equal(t, n, b.Len())
}

func TestTake(t *testing.T) {
	b := New(8)
	require.True(t, b.Append([]byte("payload")))

	data := b.Take()
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Cap())
}

func TestReset(t *testing.T) {
	b := New(8)
	defer b.Close()

	require.True(t, b.Append([]byte("data")))
	c := b.Cap()
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, c, b.Cap(), "reset keeps the storage")
}
