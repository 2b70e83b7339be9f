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

package stream

import (
	"math"

	"github.com/cloudwego/streamx/bytebuf"
	"github.com/cloudwego/streamx/iovec"
)

// BytesInputStream is an input stream over a caller-provided byte range.
// The range is read-only for the stream; once exhausted the stream is at
// end of stream. Mainly useful for tests and for feeding parsed-out
// regions through stream-consuming code.
type BytesInputStream struct {
	InputStream
}

// NewBytesInputStream returns a stream reading from buf.
func NewBytesInputStream(buf []byte) *BytesInputStream {
	s := &BytesInputStream{}
	s.initInput(s, true)
	s.Reset(buf)
	return s
}

// Reset rebinds the stream to buf and clears all status. Ranges whose
// size cannot be tracked in 32 bits are rejected with a sticky error.
func (s *BytesInputStream) Reset(buf []byte) {
	s.buf = buf
	s.off = 0
	s.err = nil
	if uint64(len(buf)) <= math.MaxUint32 {
		s.avail = len(buf)
		s.flags = 0
	} else {
		s.avail = 0
		s.flags = statusError
		s.err = errTooLarge
	}
}

func (s *BytesInputStream) readStream(vec iovec.Vector, _ int) (int, error) {
	if s.HasError() {
		return 0, s.err
	}
	// The fast path handles every request the window can satisfy, so a
	// slow-path call means the remaining bytes run out here.
	n := s.avail
	if n > 0 {
		copy(vec[0], s.window())
		s.advance(n)
	}
	s.flags |= statusEndOfStream
	return n, nil
}

func (s *BytesInputStream) readBuffer(Mode) []byte {
	s.flags |= statusEndOfStream
	return nil
}

// BytesOutputStream is an output stream that accumulates into a growable
// bytebuf.Buffer.
type BytesOutputStream struct {
	OutputStream
	buffer bytebuf.Buffer
}

// NewBytesOutputStream returns a stream writing into buf.
func NewBytesOutputStream(buf bytebuf.Buffer) *BytesOutputStream {
	s := &BytesOutputStream{}
	s.initOutput(s, true)
	s.Reset(buf)
	return s
}

// Reset rebinds the stream to buf and clears all status.
func (s *BytesOutputStream) Reset(buf bytebuf.Buffer) {
	s.buffer = buf
	s.flags = 0
	s.err = nil
	s.syncState()
}

// Release commits any pending window writes and hands the accumulated
// buffer to the caller, leaving the stream over an empty buffer.
func (s *BytesOutputStream) Release() bytebuf.Buffer {
	if s.flags == 0 {
		s.commitPending()
	}
	b := s.buffer
	s.Reset(bytebuf.Buffer{})
	return b
}

// commitPending folds bytes written through the fast-path window into the
// buffer's committed size.
func (s *BytesOutputStream) commitPending() {
	s.buffer.Commit(s.off - s.buffer.Len())
}

func (s *BytesOutputStream) syncState() {
	b := s.buffer.Bytes()
	s.buf = b[:cap(b)]
	s.off = s.buffer.Len()
	s.avail = s.buffer.Cap() - s.buffer.Len()
}

func (s *BytesOutputStream) writeStream(vec iovec.Vector, _ Mode) (int, error) {
	if s.flags != 0 {
		return 0, s.err
	}
	s.commitPending()
	p := vec[0]
	if !s.buffer.Append(p) {
		s.setError(errTooLarge)
		return 0, s.err
	}
	s.syncState()
	return len(p), nil
}

func (s *BytesOutputStream) writeBuffer(Mode) []byte {
	if s.flags != 0 {
		return nil
	}
	s.commitPending()
	if !s.buffer.GrowReserve() {
		s.setError(errTooLarge)
		return nil
	}
	s.syncState()
	return s.window()
}

func (s *BytesOutputStream) flushBuffer(Mode) (bool, error) {
	if s.flags != 0 {
		return false, s.err
	}
	s.commitPending()
	return true, nil
}
