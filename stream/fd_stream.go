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
	"errors"

	"github.com/bytedance/gopkg/lang/mcache"
	"golang.org/x/sys/unix"

	"github.com/cloudwego/streamx/fdx"
	"github.com/cloudwego/streamx/iovec"
)

// BlockingPolicy states how a stream reconciles its descriptor's
// O_NONBLOCK flag with the Mode of each call.
type BlockingPolicy uint8

const (
	// Automatic toggles the descriptor's non-blocking flag whenever a
	// call's Mode differs from the current flag state.
	Automatic BlockingPolicy = iota
	// AlwaysBlocking assumes a permanently blocking descriptor; a
	// NonBlocking call is an error.
	AlwaysBlocking
	// AlwaysNonBlocking assumes a permanently non-blocking descriptor; a
	// Blocking call is an error.
	AlwaysNonBlocking
)

// ErrPolicyConflict is the sticky error recorded when a call's Mode
// contradicts the stream's BlockingPolicy.
var ErrPolicyConflict = errors.New("stream: call mode conflicts with descriptor blocking policy")

type fdFlagState uint8

const (
	fdFlagUnknown fdFlagState = iota
	fdFlagBlocking
	fdFlagNonblocking
)

// reconcileBlocking brings the descriptor's O_NONBLOCK flag in line with
// the requested mode. Any mismatch against a fixed policy and any fcntl
// failure is an error; the caller records it as sticky.
func reconcileBlocking(fd int, mode Mode, policy BlockingPolicy, cur *fdFlagState) error {
	switch policy {
	case AlwaysBlocking:
		if mode == NonBlocking {
			return ErrPolicyConflict
		}
		return nil
	case AlwaysNonBlocking:
		if mode == Blocking {
			return ErrPolicyConflict
		}
		return nil
	}
	want := fdFlagBlocking
	if mode == NonBlocking {
		want = fdFlagNonblocking
	}
	if *cur == want {
		return nil
	}
	if err := fdx.SetNonblock(fd, want == fdFlagNonblocking); err != nil {
		return err
	}
	*cur = want
	return nil
}

// FdInputStream reads from a file descriptor through an optional
// caller-provided buffer. A nil or empty buffer yields an unbuffered
// stream usable with DirectRead. The stream does not own the descriptor.
type FdInputStream struct {
	InputStream
	fd       int
	policy   BlockingPolicy
	flagSt   fdFlagState
	capacity int
}

// NewFdInputStream returns an input stream over fd using buffer as its
// internal read buffer.
func NewFdInputStream(buffer []byte, fd int, policy BlockingPolicy) *FdInputStream {
	s := &FdInputStream{}
	s.initFd(buffer, fd, policy)
	return s
}

func (s *FdInputStream) initFd(buffer []byte, fd int, policy BlockingPolicy) {
	s.initInput(s, len(buffer) > 0)
	s.buf = buffer
	s.capacity = len(buffer)
	s.fd = fdx.InvalidFd
	if fd >= 0 {
		s.SetDescriptor(fd, policy)
	}
}

// SetDescriptor rebinds the stream to a descriptor and clears all status.
func (s *FdInputStream) SetDescriptor(fd int, policy BlockingPolicy) {
	s.fd = fd
	s.policy = policy
	s.flagSt = fdFlagUnknown
	s.off = 0
	s.avail = 0
	s.flags = 0
	s.err = nil
}

// Descriptor returns the bound descriptor, InvalidFd if none.
func (s *FdInputStream) Descriptor() int { return s.fd }

func (s *FdInputStream) storage() []byte { return s.buf[:s.capacity] }

func (s *FdInputStream) readStream(vec iovec.Vector, required int) (int, error) {
	mode := NonBlocking
	if required > 0 {
		mode = Blocking
	}
	if s.HasError() {
		return 0, s.err
	}
	if s.AtEnd() && s.avail == 0 {
		return 0, nil
	}
	if err := reconcileBlocking(s.fd, mode, s.policy, &s.flagSt); err != nil {
		s.setError(err)
		return 0, err
	}

	drained := 0
	if s.manages {
		// Leftover window bytes go to the caller before any syscall.
		if s.avail > 0 {
			c := copy(vec[0], s.window())
			s.advance(c)
			drained = c
			vec = iovec.Advance(vec, c)
			if iovec.Empty(vec) {
				return drained, nil
			}
		}
		// Refill the internal buffer in the same syscall, but only when
		// the remaining request fits in it. Larger block reads are likely
		// followed by more block reads, where going through the buffer
		// buys nothing.
		if len(vec[0]) <= s.capacity {
			vec = iovec.Vector{vec[0], s.storage()}
		}
	} else if len(vec) == 0 {
		if mode == Blocking {
			s.setError(errBadRequest)
			return 0, s.err
		}
		return 0, nil
	}

	firstReq := len(vec[0])
	count := 0
	for {
		r, err := fdx.Readv(s.fd, vec)
		if r > 0 {
			count += r
			if drained+count < required {
				vec = iovec.Advance(vec, r)
				continue
			}
			if s.manages && count > firstReq {
				s.off = 0
				s.avail = count - firstReq
				return drained + firstReq, nil
			}
			return drained + count, nil
		}
		if err == nil { // r == 0: end of stream
			if mode == Blocking {
				if iovec.Empty(vec) {
					s.setError(errBadRequest)
					return drained + count, s.err
				}
				if s.manages {
					s.flags |= statusEndOfStream
					return drained + count, nil
				}
				// A required read past the end of an unbuffered stream is
				// a hard error.
				s.flags |= statusEndOfStream
				s.setError(unix.EIO)
				return drained + count, s.err
			}
			if !iovec.Empty(vec) {
				s.flags |= statusEndOfStream
			}
			return drained + count, nil
		}
		if err == unix.EAGAIN && mode == NonBlocking {
			return drained + count, nil
		}
		s.setError(err)
		return drained + count, err
	}
}

func (s *FdInputStream) readBuffer(mode Mode) []byte {
	if s.HasError() {
		return nil
	}
	if err := reconcileBlocking(s.fd, mode, s.policy, &s.flagSt); err != nil {
		s.setError(err)
		return nil
	}
	r, err := fdx.Read(s.fd, s.storage())
	switch {
	case r > 0:
		s.off = 0
		s.avail = r
		return s.window()
	case err == nil:
		s.flags |= statusEndOfStream
	case err == unix.EAGAIN && mode == NonBlocking:
	default:
		s.setError(err)
	}
	return nil
}

// FdOutputStream writes to a file descriptor through an optional
// caller-provided buffer. The stream does not own the descriptor.
type FdOutputStream struct {
	OutputStream
	fd       int
	policy   BlockingPolicy
	flagSt   fdFlagState
	capacity int
	writeOff int // start of the unflushed region in the buffer
}

// NewFdOutputStream returns an output stream over fd using buffer as its
// internal write buffer.
func NewFdOutputStream(buffer []byte, fd int, policy BlockingPolicy) *FdOutputStream {
	s := &FdOutputStream{}
	s.initFd(buffer, fd, policy)
	return s
}

func (s *FdOutputStream) initFd(buffer []byte, fd int, policy BlockingPolicy) {
	s.initOutput(s, len(buffer) > 0)
	s.buf = buffer
	s.capacity = len(buffer)
	s.fd = fdx.InvalidFd
	if fd >= 0 {
		s.SetDescriptor(fd, policy)
	}
}

// SetDescriptor rebinds the stream to a descriptor and clears all status.
// Buffered bytes not flushed before rebinding are dropped.
func (s *FdOutputStream) SetDescriptor(fd int, policy BlockingPolicy) {
	s.fd = fd
	s.policy = policy
	s.flagSt = fdFlagUnknown
	s.flags = 0
	s.err = nil
	s.resetBuffer()
}

// Descriptor returns the bound descriptor, InvalidFd if none.
func (s *FdOutputStream) Descriptor() int { return s.fd }

func (s *FdOutputStream) resetBuffer() {
	s.off = 0
	s.writeOff = 0
	if s.manages {
		s.avail = s.capacity
	} else {
		s.avail = 0
	}
}

func (s *FdOutputStream) writeStream(vec iovec.Vector, mode Mode) (int, error) {
	return s.writeFd(vec, mode)
}

func (s *FdOutputStream) writeFd(vec iovec.Vector, mode Mode) (int, error) {
	if s.HasError() {
		return 0, s.err
	}
	if err := reconcileBlocking(s.fd, mode, s.policy, &s.flagSt); err != nil {
		s.setError(err)
		return 0, err
	}

	internalSize := 0
	if s.manages {
		// Unflushed buffer bytes lead the vector so one writev drains
		// them together with the caller's data.
		internalSize = s.off - s.writeOff
		if internalSize > 0 {
			vec = iovec.Vector{s.buf[s.writeOff:s.off], vec[0]}
		}
	}

	if mode == Blocking {
		sum := iovec.Sum(vec)
		count := 0
		for count < sum {
			r, err := fdx.Writev(s.fd, vec)
			if err != nil {
				s.setError(err)
				return 0, err
			}
			count += r
			vec = iovec.Advance(vec, r)
		}
		if s.manages {
			s.resetBuffer()
		}
		return sum - internalSize, nil
	}

	r, err := fdx.Writev(s.fd, vec)
	if err == unix.EAGAIN {
		return 0, nil
	}
	if err != nil {
		s.setError(err)
		return 0, err
	}
	if r >= internalSize {
		if s.manages {
			s.resetBuffer()
		}
		return r - internalSize, nil
	}
	s.writeOff += r
	return 0, nil
}

func (s *FdOutputStream) writeBuffer(mode Mode) []byte {
	s.bufferFlush(mode)
	if s.avail > 0 {
		return s.window()
	}
	return nil
}

func (s *FdOutputStream) flushBuffer(mode Mode) (bool, error) {
	return s.bufferFlush(mode)
}

func (s *FdOutputStream) bufferFlush(mode Mode) (bool, error) {
	if _, err := s.writeFd(iovec.Vector{nil}, mode); err != nil {
		return false, err
	}
	return s.off-s.writeOff == 0, nil
}

// SocketStreamPair couples a buffered input and output stream over one
// descriptor, typically a connected socket. The pair owns the descriptor
// and its mcache-backed buffers.
type SocketStreamPair struct {
	in   FdInputStream
	out  FdOutputStream
	rbuf []byte
	wbuf []byte
}

// NewSocketStreamPair allocates a pair with separate read and write
// buffer sizes.
func NewSocketStreamPair(readBufSize, writeBufSize int) *SocketStreamPair {
	p := &SocketStreamPair{
		rbuf: mcache.Malloc(readBufSize),
		wbuf: mcache.Malloc(writeBufSize),
	}
	p.in.initFd(p.rbuf, fdx.InvalidFd, Automatic)
	p.out.initFd(p.wbuf, fdx.InvalidFd, Automatic)
	return p
}

// Reset adopts a new descriptor, closing the previous one if any.
func (p *SocketStreamPair) Reset(fd int, policy BlockingPolicy) {
	if old := p.TakeReset(fd, policy); old >= 0 {
		fdx.Close(old)
	}
}

// TakeReset adopts a new descriptor and returns the previous one to the
// caller instead of closing it.
func (p *SocketStreamPair) TakeReset(fd int, policy BlockingPolicy) int {
	old := p.in.Descriptor()
	p.in.SetDescriptor(fd, policy)
	p.out.SetDescriptor(fd, policy)
	return old
}

// Input returns the read side.
func (p *SocketStreamPair) Input() *FdInputStream { return &p.in }

// Output returns the write side.
func (p *SocketStreamPair) Output() *FdOutputStream { return &p.out }

// Descriptor returns the shared descriptor.
func (p *SocketStreamPair) Descriptor() int { return p.in.Descriptor() }

// Close closes the descriptor and releases the buffers. It does not
// flush; flush explicitly first.
func (p *SocketStreamPair) Close() error {
	var err error
	if fd := p.in.Descriptor(); fd >= 0 {
		err = fdx.Close(fd)
	}
	p.in.SetDescriptor(fdx.InvalidFd, Automatic)
	p.out.SetDescriptor(fdx.InvalidFd, Automatic)
	mcache.Free(p.rbuf)
	mcache.Free(p.wbuf)
	p.rbuf, p.wbuf = nil, nil
	return err
}

// ManagedFdInputStream is an FdInputStream that owns its descriptor and
// an mcache-backed buffer.
type ManagedFdInputStream struct {
	in  FdInputStream
	buf []byte
}

// NewManagedFdInputStream adopts fd with a buffer of the given size.
func NewManagedFdInputStream(fd int, policy BlockingPolicy, bufSize int) *ManagedFdInputStream {
	s := &ManagedFdInputStream{buf: mcache.Malloc(bufSize)}
	s.in.initFd(s.buf, fd, policy)
	return s
}

// Stream returns the underlying stream.
func (s *ManagedFdInputStream) Stream() *FdInputStream { return &s.in }

// Reset adopts a new descriptor, closing the previous one.
func (s *ManagedFdInputStream) Reset(fd int, policy BlockingPolicy) {
	if old := s.in.Descriptor(); old >= 0 {
		fdx.Close(old)
	}
	s.in.SetDescriptor(fd, policy)
}

// Close closes the descriptor and releases the buffer.
func (s *ManagedFdInputStream) Close() error {
	var err error
	if fd := s.in.Descriptor(); fd >= 0 {
		err = fdx.Close(fd)
	}
	s.in.SetDescriptor(fdx.InvalidFd, Automatic)
	mcache.Free(s.buf)
	s.buf = nil
	return err
}

// ManagedFdOutputStream is an FdOutputStream that owns its descriptor and
// an mcache-backed buffer.
type ManagedFdOutputStream struct {
	out FdOutputStream
	buf []byte
}

// NewManagedFdOutputStream adopts fd with a buffer of the given size.
func NewManagedFdOutputStream(fd int, policy BlockingPolicy, bufSize int) *ManagedFdOutputStream {
	s := &ManagedFdOutputStream{buf: mcache.Malloc(bufSize)}
	s.out.initFd(s.buf, fd, policy)
	return s
}

// Stream returns the underlying stream.
func (s *ManagedFdOutputStream) Stream() *FdOutputStream { return &s.out }

// Reset adopts a new descriptor, closing the previous one. Unflushed
// bytes are dropped; flush explicitly first.
func (s *ManagedFdOutputStream) Reset(fd int, policy BlockingPolicy) {
	if old := s.out.Descriptor(); old >= 0 {
		fdx.Close(old)
	}
	s.out.SetDescriptor(fd, policy)
}

// Close closes the descriptor and releases the buffer without flushing.
func (s *ManagedFdOutputStream) Close() error {
	var err error
	if fd := s.out.Descriptor(); fd >= 0 {
		err = fdx.Close(fd)
	}
	s.out.SetDescriptor(fdx.InvalidFd, Automatic)
	mcache.Free(s.buf)
	s.buf = nil
	return err
}
