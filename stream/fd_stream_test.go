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

package stream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/streamx/fdx"
	"github.com/cloudwego/streamx/iovec"
)

func testPipe(t *testing.T) (r, w int) {
	t.Helper()
	r, w, err := fdx.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		fdx.Close(r)
		fdx.Close(w)
	})
	return r, w
}

func TestFdInput_PolicyConflict(t *testing.T) {
	r, _ := testPipe(t)
	s := NewFdInputStream(make([]byte, 64), r, AlwaysBlocking)

	n, err := s.Read(make([]byte, 4), NonBlocking)
	assert.Equal(t, 0, n)
	assert.Equal(t, ErrPolicyConflict, err)
	assert.True(t, s.HasError())
	assert.Equal(t, ErrPolicyConflict, s.Err())

	// The error is sticky: a well-formed call still fails.
	_, err = s.Read(make([]byte, 4), Blocking)
	assert.Equal(t, ErrPolicyConflict, err)
}

func TestFdOutput_PolicyConflict(t *testing.T) {
	_, w := testPipe(t)
	s := NewFdOutputStream(make([]byte, 64), w, AlwaysNonBlocking)

	// Filling the buffer is fine; the conflict surfaces on the flush.
	_, err := s.Write(bytes.Repeat([]byte("x"), 64), NonBlocking)
	require.NoError(t, err)
	_, err = s.Flush(Blocking)
	assert.Equal(t, ErrPolicyConflict, err)
	assert.True(t, s.HasError())
}

func TestFdInput_ScatterAcrossBufferBoundary(t *testing.T) {
	r, w := testPipe(t)

	src := make([]byte, 200)
	for i := range src {
		src[i] = byte(i * 7)
	}
	require.NoError(t, fdx.WriteFull(w, src))
	require.NoError(t, fdx.Close(w))

	s := NewFdInputStream(make([]byte, 64), r, Automatic)
	dst := make([]byte, 200)
	n, err := s.Read(dst, Blocking)
	require.NoError(t, err)
	assert.Equal(t, 200, n)
	assert.Equal(t, src, dst)
}

func TestFdInput_BufferRefillAndDrain(t *testing.T) {
	r, w := testPipe(t)
	require.NoError(t, fdx.WriteFull(w, []byte("abcdefghij")))

	s := NewFdInputStream(make([]byte, 64), r, Automatic)

	// A small read fills the internal buffer in the same syscall.
	buf := make([]byte, 2)
	n, err := s.Read(buf, Blocking)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "ab", string(buf))

	// The rest is served from the buffer without touching the pipe.
	require.NoError(t, fdx.Close(w))
	rest := make([]byte, 8)
	n, err = s.Read(rest, Blocking)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, "cdefghij", string(rest))
}

func TestFdInput_EndOfStream(t *testing.T) {
	r, w := testPipe(t)
	require.NoError(t, fdx.WriteFull(w, []byte("abc")))
	require.NoError(t, fdx.Close(w))

	s := NewFdInputStream(make([]byte, 64), r, Automatic)
	buf := make([]byte, 10)
	n, err := s.Read(buf, Blocking)
	require.NoError(t, err, "a buffered stream ends with a partial count, not an error")
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buf[:n]))
	assert.True(t, s.AtEnd())
	assert.False(t, s.HasError())

	n, err = s.Read(buf, Blocking)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFdInput_NonBlockingEmpty(t *testing.T) {
	r, _ := testPipe(t)
	s := NewFdInputStream(make([]byte, 64), r, Automatic)

	n, err := s.Read(make([]byte, 4), NonBlocking)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, s.AtEnd())
	assert.False(t, s.HasError())
}

func TestFdInput_UnbufferedDirectRead(t *testing.T) {
	r, w := testPipe(t)
	require.NoError(t, fdx.WriteFull(w, []byte("scatterme")))

	s := NewFdInputStream(nil, r, Automatic)
	require.False(t, s.ManagesBuffer())

	a := make([]byte, 7)
	b := make([]byte, 2)
	n, err := s.DirectRead(iovec.Vector{a, b}, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "scatter", string(a))
	assert.Equal(t, "me", string(b))

	// Required read past the end of an unbuffered stream is a hard error.
	require.NoError(t, fdx.Close(w))
	_, err = s.DirectRead(iovec.Vector{a}, len(a))
	assert.Error(t, err)
	assert.True(t, s.HasError())
	assert.True(t, s.AtEnd())
}

func TestFdInput_ZeroCopyWindow(t *testing.T) {
	r, w := testPipe(t)
	require.NoError(t, fdx.WriteFull(w, []byte("windowed")))

	s := NewFdInputStream(make([]byte, 64), r, Automatic)
	win := s.GetBuffer(Blocking)
	require.Equal(t, "windowed", string(win))
	s.AdvanceBuffer(6)

	buf := make([]byte, 2)
	n, err := s.Read(buf, Blocking)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "ed", string(buf))
}

func TestFdOutput_BufferedWriteAndFlush(t *testing.T) {
	r, w := testPipe(t)
	s := NewFdOutputStream(make([]byte, 64), w, Automatic)

	n, err := s.Write([]byte("buffered"), Blocking)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	// Nothing reaches the pipe before the flush.
	require.NoError(t, fdx.SetNonblock(r, true))
	_, err = fdx.Read(r, make([]byte, 1))
	assert.Error(t, err)

	done, err := s.Flush(Blocking)
	require.NoError(t, err)
	assert.True(t, done)

	got := make([]byte, 8)
	require.NoError(t, fdx.SetNonblock(r, false))
	require.NoError(t, fdx.ReadFull(r, got))
	assert.Equal(t, "buffered", string(got))
}

func TestFdOutput_DrainAndAppendLargeWrite(t *testing.T) {
	r, w := testPipe(t)
	s := NewFdOutputStream(make([]byte, 16), w, Automatic)

	// Partially fill the buffer, then write past its capacity: the slow
	// path must drain the buffered prefix and the new data in order.
	_, err := s.Write([]byte("0123456789"), Blocking)
	require.NoError(t, err)

	big := bytes.Repeat([]byte("ABCDEFGH"), 8) // 64 bytes > capacity
	n, err := s.Write(big, Blocking)
	require.NoError(t, err)
	assert.Equal(t, len(big), n)

	done, err := s.Flush(Blocking)
	require.NoError(t, err)
	assert.True(t, done)

	got := make([]byte, 10+len(big))
	require.NoError(t, fdx.ReadFull(r, got))
	assert.Equal(t, append([]byte("0123456789"), big...), got)
}

func TestFdOutput_NonBlockingBackpressure(t *testing.T) {
	r, w := testPipe(t)
	s := NewFdOutputStream(make([]byte, 64), w, Automatic)

	// Fill the pipe until a non-blocking write makes no progress.
	chunk := bytes.Repeat([]byte("z"), 32*1024)
	wrote := 0
	for i := 0; i < 100; i++ {
		n, err := s.Write(chunk, NonBlocking)
		require.NoError(t, err)
		wrote += n
		if n == 0 {
			break
		}
	}
	require.Greater(t, wrote, 0)
	assert.False(t, s.HasError(), "would-block is not an error")

	// Draining the pipe unblocks the stream.
	drained := 0
	tmp := make([]byte, 64*1024)
	for drained < wrote {
		n, err := fdx.Read(r, tmp)
		require.NoError(t, err)
		drained += n
	}
}

func TestFdOutput_ZeroCopyWindow(t *testing.T) {
	r, w := testPipe(t)
	s := NewFdOutputStream(make([]byte, 8), w, Automatic)

	win := s.GetBuffer(Blocking)
	require.Len(t, win, 8)
	copy(win, "abcdefgh")
	s.AdvanceWholeBuffer()

	// Requesting a window from a full buffer flushes the committed bytes
	// and hands back the whole storage.
	win = s.GetBuffer(Blocking)
	require.Len(t, win, 8)

	got := make([]byte, 8)
	require.NoError(t, fdx.ReadFull(r, got))
	assert.Equal(t, "abcdefgh", string(got))
}

func TestSocketStreamPair(t *testing.T) {
	// A pipe pair stands in for a socket: read side on one descriptor,
	// write side on the other, each via its own pair object.
	r, w := testPipe(t)

	rp := NewSocketStreamPair(64, 64)
	defer rp.Close()
	wp := NewSocketStreamPair(64, 64)
	defer wp.Close()

	// Hand over descriptor ownership; keep the test pipe cleanup from
	// double-closing by duplicating nothing (TakeReset returns the old
	// invalid descriptor).
	assert.Equal(t, fdx.InvalidFd, rp.TakeReset(r, Automatic))
	assert.Equal(t, fdx.InvalidFd, wp.TakeReset(w, Automatic))

	_, err := wp.Output().Write([]byte("pair"), Blocking)
	require.NoError(t, err)
	done, err := wp.Output().Flush(Blocking)
	require.NoError(t, err)
	require.True(t, done)

	buf := make([]byte, 4)
	n, err := rp.Input().Read(buf, Blocking)
	require.NoError(t, err)
	assert.Equal(t, "pair", string(buf[:n]))

	// Detach before Close so the test cleanup owns the descriptors again.
	assert.Equal(t, r, rp.TakeReset(fdx.InvalidFd, Automatic))
	assert.Equal(t, w, wp.TakeReset(fdx.InvalidFd, Automatic))
}

func TestManagedFdStreams(t *testing.T) {
	r, w, err := fdx.Pipe()
	require.NoError(t, err)

	in := NewManagedFdInputStream(r, Automatic, 64)
	out := NewManagedFdOutputStream(w, Automatic, 64)

	_, err = out.Stream().Write([]byte("managed"), Blocking)
	require.NoError(t, err)
	done, err := out.Stream().Flush(Blocking)
	require.NoError(t, err)
	require.True(t, done)

	buf := make([]byte, 7)
	n, err := in.Stream().Read(buf, Blocking)
	require.NoError(t, err)
	assert.Equal(t, "managed", string(buf[:n]))

	require.NoError(t, out.Close())
	require.NoError(t, in.Close())
}
