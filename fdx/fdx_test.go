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

//go:build linux

package fdx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/cloudwego/streamx/iovec"
)

func mustPipe(t *testing.T) (r, w int) {
	t.Helper()
	r, w, err := Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		Close(r)
		Close(w)
	})
	return r, w
}

func TestPipeReadWrite(t *testing.T) {
	r, w := mustPipe(t)

	n, err := Write(w, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = Read(r, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestNonblockFlags(t *testing.T) {
	r, _ := mustPipe(t)

	nb, err := IsNonblock(r)
	require.NoError(t, err)
	assert.False(t, nb)

	require.NoError(t, SetNonblock(r, true))
	nb, err = IsNonblock(r)
	require.NoError(t, err)
	assert.True(t, nb)

	// Empty pipe in non-blocking mode reports would-block.
	_, err = Read(r, make([]byte, 1))
	assert.Equal(t, unix.EAGAIN, err)

	require.NoError(t, SetNonblock(r, false))
	nb, err = IsNonblock(r)
	require.NoError(t, err)
	assert.False(t, nb)
}

func TestCloexecFlags(t *testing.T) {
	r, _ := mustPipe(t)

	on, err := IsCloexec(r)
	require.NoError(t, err)
	assert.True(t, on, "Pipe opens with O_CLOEXEC")

	require.NoError(t, SetCloexec(r, false))
	on, err = IsCloexec(r)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestVectoredIO(t *testing.T) {
	r, w := mustPipe(t)

	n, err := Writev(w, iovec.Vector{[]byte("scatter"), []byte(" "), []byte("gather")})
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	a := make([]byte, 7)
	b := make([]byte, 7)
	n, err = Readv(r, iovec.Vector{a, b})
	require.NoError(t, err)
	assert.Equal(t, 14, n)
	assert.Equal(t, "scatter", string(a))
	assert.Equal(t, " gather", string(b))
}

func TestReadWriteFull(t *testing.T) {
	r, w := mustPipe(t)

	require.NoError(t, WriteFull(w, []byte("0123456789")))
	buf := make([]byte, 10)
	require.NoError(t, ReadFull(r, buf))
	assert.Equal(t, "0123456789", string(buf))

	// Premature end of stream is an error for a full read.
	_, err := Write(w, []byte("xy"))
	require.NoError(t, err)
	require.NoError(t, Close(w))
	err = ReadFull(r, make([]byte, 5))
	assert.Equal(t, unix.EIO, err)
}

func TestEventfdCounter(t *testing.T) {
	fd, err := EventfdNonblock()
	require.NoError(t, err)
	defer Close(fd)

	// Empty counter would block.
	_, err = EventfdRead(fd)
	assert.Equal(t, unix.EAGAIN, err)

	require.NoError(t, EventfdWrite(fd, 3))
	require.NoError(t, EventfdWrite(fd, 4))

	v, err := EventfdRead(fd)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v, "reads drain the accumulated counter")

	_, err = EventfdRead(fd)
	assert.Equal(t, unix.EAGAIN, err)
}

func TestEventfdSaturation(t *testing.T) {
	fd, err := EventfdNonblock()
	require.NoError(t, err)
	defer Close(fd)

	require.NoError(t, EventfdWrite(fd, EventfdMax))

	// The counter is saturated: further writes would block...
	err = EventfdWrite(fd, 1)
	assert.Equal(t, unix.EAGAIN, err)

	// ...and the descriptor stays readable until drained.
	require.NoError(t, WaitReadable(fd))
	v, err := EventfdRead(fd)
	require.NoError(t, err)
	assert.Equal(t, uint64(EventfdMax), v)

	// Drained again, writes are possible.
	require.NoError(t, EventfdWrite(fd, 1))
}

func TestWaitEvent(t *testing.T) {
	r, w := mustPipe(t)

	// An empty pipe is writable immediately.
	require.NoError(t, WaitWritable(w))

	_, err := Write(w, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, WaitReadable(r))
}
