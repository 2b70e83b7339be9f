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

// Package stream provides sequential byte streams with an inlined fast
// path and pluggable slow-path transports.
//
// The design differs from io.Reader/io.Writer in a few deliberate ways:
//
//   - Streams are strictly input or output and strictly sequential; there
//     is no seeking and no polymorphic close. Closing the underlying
//     resource belongs to the concrete transport.
//   - Blocking behavior is explicit per call. Instead of inheriting
//     whatever state the descriptor happens to be in, every operation
//     takes a Mode.
//   - The common case is a buffered stream whose buffer is not empty
//     (resp. not full). For that case Read and Write are a plain copy
//     against the stream's window state with no interface dispatch.
//   - Buffered streams expose their internal window for zero-copy
//     access via GetBuffer/AdvanceBuffer; unbuffered streams expose
//     scatter/gather access via DirectRead/DirectWrite.
//   - Errors and end-of-stream are sticky flags on the stream, reported
//     alongside per-call results. Flushing is always explicit.
package stream

import (
	"errors"

	"github.com/cloudwego/streamx/iovec"
)

// Mode selects blocking behavior for a single call.
type Mode uint8

const (
	// Blocking calls return only after the full request completed, the
	// stream ended, or an error occurred.
	Blocking Mode = iota
	// NonBlocking calls complete whatever is possible without waiting.
	NonBlocking
)

// DefaultBufferSize is a buffer size with a good memcpy/syscall ratio for
// the fd-backed streams.
const DefaultBufferSize = 1 << 14

const (
	statusError uint8 = 1 << iota
	statusEndOfStream
)

var (
	errBadRequest  = errors.New("stream: required read with empty vector")
	errTooLarge    = errors.New("stream: buffer exceeds size limit")
	errEndOfStream = errors.New("stream: write past end of stream")
)

// state is the fast-path record every stream carries. buf[off:off+avail]
// is the current window: the next readable bytes of an input stream, or
// the free space of an output stream.
type state struct {
	buf     []byte
	off     int
	avail   int
	flags   uint8
	manages bool
	err     error
}

func (s *state) window() []byte { return s.buf[s.off : s.off+s.avail] }

func (s *state) advance(n int) {
	if n < 0 || n > s.avail {
		panic("stream: advance past end of buffer window")
	}
	s.off += n
	s.avail -= n
}

func (s *state) setError(err error) {
	s.flags |= statusError
	if s.err == nil {
		s.err = err
	}
}

// HasError reports whether the stream is in the sticky error state.
func (s *state) HasError() bool { return s.flags&statusError != 0 }

// AtEnd reports whether the stream reached its sticky end-of-stream state.
func (s *state) AtEnd() bool { return s.flags&statusEndOfStream != 0 }

// Err returns the preserved cause of the sticky error state, nil if none.
func (s *state) Err() error { return s.err }

// ManagesBuffer reports whether the stream exposes an internal buffer for
// zero-copy access. Fixed at construction time.
func (s *state) ManagesBuffer() bool { return s.manages }

// source is the slow-path contract of input transports.
type source interface {
	// readStream transfers bytes into vec. required > 0 selects blocking
	// behavior and is the total byte count the call must deliver unless
	// the stream ends or fails. The implementation may reslice vec
	// elements to track progress.
	readStream(vec iovec.Vector, required int) (int, error)
	// readBuffer refills the internal window and returns it, or nil when
	// no data is available (error, end of stream, or would-block).
	readBuffer(mode Mode) []byte
}

// InputStream is a sequential byte source. Concrete transports embed it
// and register themselves as the slow path; all methods are safe for use
// by exactly one goroutine.
type InputStream struct {
	state
	src source
}

func (s *InputStream) initInput(src source, manages bool) {
	s.src = src
	s.manages = manages
}

// Read transfers up to len(p) bytes into p.
//
// In Blocking mode it returns len(p) on success, a smaller count when the
// stream ends mid-read, and a non-nil error on stream failure. In
// NonBlocking mode any count in [0, len(p)] may be returned without
// error. After end of stream, reads return (0, nil) and AtEnd is true.
func (s *InputStream) Read(p []byte, mode Mode) (int, error) {
	if len(p) == 0 {
		if s.HasError() {
			return 0, s.err
		}
		return 0, nil
	}
	if n := len(p); s.avail >= n && s.avail > 0 {
		copy(p, s.window())
		s.advance(n)
		return n, nil
	}
	required := 0
	if mode == Blocking {
		required = len(p)
	}
	return s.src.readStream(iovec.Vector{p}, required)
}

// GetBuffer returns the stream's internal window for zero-copy reading.
// Only valid on streams that manage a buffer. In Blocking mode an empty
// result means error or end of stream; in NonBlocking mode it may also
// mean no data is available yet. The view is read-only, carries no
// alignment guarantee, and is invalidated by the next Read. Consume it
// with AdvanceBuffer.
func (s *InputStream) GetBuffer(mode Mode) []byte {
	if !s.manages {
		panic("stream: GetBuffer on a stream without internal buffer")
	}
	if s.avail > 0 {
		return s.window()
	}
	return s.src.readBuffer(mode)
}

// AdvanceBuffer moves the read position forward by n bytes of the window
// returned by GetBuffer.
func (s *InputStream) AdvanceBuffer(n int) { s.advance(n) }

// AdvanceWholeBuffer consumes the rest of the current window.
func (s *InputStream) AdvanceWholeBuffer() { s.advance(s.avail) }

// DirectRead performs a scatter read on a stream without internal buffer.
// required > 0 selects blocking behavior, exactly as in Read. vec may be
// resliced in place to track partial progress. required == 0 with an
// empty vector returns 0.
func (s *InputStream) DirectRead(vec iovec.Vector, required int) (int, error) {
	if s.manages {
		panic("stream: DirectRead on a stream with internal buffer")
	}
	return s.src.readStream(vec, required)
}

// sink is the slow-path contract of output transports.
type sink interface {
	writeStream(vec iovec.Vector, mode Mode) (int, error)
	// writeBuffer makes room in the internal window and returns it, or
	// nil when that is not possible (error or would-block).
	writeBuffer(mode Mode) []byte
	// flushBuffer pushes buffered bytes down. It reports true when
	// nothing remains buffered; false with a nil error means the flush
	// would block.
	flushBuffer(mode Mode) (bool, error)
}

// OutputStream is a sequential byte sink, symmetric to InputStream.
type OutputStream struct {
	state
	dst sink
}

func (s *OutputStream) initOutput(dst sink, manages bool) {
	s.dst = dst
	s.manages = manages
}

// Write transfers up to len(p) bytes from p into the stream.
//
// In Blocking mode it returns len(p) on success and a non-nil error on
// stream failure. In NonBlocking mode any count in [0, len(p)] may be
// returned without error.
func (s *OutputStream) Write(p []byte, mode Mode) (int, error) {
	if len(p) == 0 {
		if s.HasError() {
			return 0, s.err
		}
		return 0, nil
	}
	if n := len(p); s.avail >= n && s.avail > 0 {
		copy(s.window(), p)
		s.advance(n)
		return n, nil
	}
	return s.dst.writeStream(iovec.Vector{p}, mode)
}

// GetBuffer returns the stream's internal free window for zero-copy
// writing. Only valid on streams that manage a buffer. The caller must
// fill the window contiguously from its start and then call
// AdvanceBuffer with exactly the byte count written; the view is
// invalidated by the next Write.
func (s *OutputStream) GetBuffer(mode Mode) []byte {
	if !s.manages {
		panic("stream: GetBuffer on a stream without internal buffer")
	}
	if s.avail > 0 {
		return s.window()
	}
	return s.dst.writeBuffer(mode)
}

// AdvanceBuffer commits n bytes written into the window returned by
// GetBuffer.
func (s *OutputStream) AdvanceBuffer(n int) { s.advance(n) }

// AdvanceWholeBuffer commits the rest of the current window.
func (s *OutputStream) AdvanceWholeBuffer() { s.advance(s.avail) }

// Flush pushes all buffered bytes to the transport. It reports true when
// nothing remains buffered; in NonBlocking mode false with a nil error
// means the flush would block rather than that it failed. Streams never
// flush implicitly: callers flush before tearing a stream down.
func (s *OutputStream) Flush(mode Mode) (bool, error) {
	if !s.manages {
		return true, nil
	}
	return s.dst.flushBuffer(mode)
}

// DirectWrite performs a gather write on a stream without internal
// buffer. In Blocking mode vec may be resliced in place to track partial
// progress.
func (s *OutputStream) DirectWrite(vec iovec.Vector, mode Mode) (int, error) {
	if s.manages {
		panic("stream: DirectWrite on a stream with internal buffer")
	}
	return s.dst.writeStream(vec, mode)
}
