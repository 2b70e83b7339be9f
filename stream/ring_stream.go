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
	"sync/atomic"

	"github.com/bytedance/gopkg/lang/mcache"
	"golang.org/x/sys/unix"

	"github.com/cloudwego/streamx/fdx"
	"github.com/cloudwego/streamx/iovec"
	"github.com/cloudwego/streamx/ring"
)

// DefaultSegmentLimit bounds the contiguous window a ring stream hands
// out in one buffer request. Limiting the segment keeps each side
// checking the peer often enough for the wake protocol to stay tight and
// keeps the zero-copy window cache friendly.
const DefaultSegmentLimit = 1 << 14

// DefaultRingSize is a ring capacity of two default-size segments.
// NewRingController does not fall back to it: it uses the size it is
// given, clamped to at least one byte.
const DefaultRingSize = 2 * DefaultSegmentLimit

// RingShared is the state both ring streams share. One instance is
// referenced by exactly one RingOutputStream (producer thread) and one
// RingInputStream (consumer thread).
//
// The producer publishes with a store to producerIndex that the consumer
// acquires, so all ring bytes written before a publish happen before the
// consumer reads them; symmetrically for consumerIndex. The wake flags
// and eos use the default sequentially consistent ordering, which keeps
// the flag stores ordered after the index stores they must follow.
type RingShared struct {
	producerIndex atomic.Uint32
	consumerIndex atomic.Uint32
	producerWake  atomic.Bool
	consumerWake  atomic.Bool
	eos           atomic.Bool
}

// Reset brings the record to its initial state: both indices zero, no
// end of stream, and the consumer marked as waiting (the consumer side
// starts with nothing to read). Only call while no stream is attached.
func (s *RingShared) Reset() {
	s.producerIndex.Store(0)
	s.consumerIndex.Store(0)
	s.producerWake.Store(false)
	s.consumerWake.Store(true)
	s.eos.Store(false)
}

// The eventfd is used purely as an edge-triggered wake counter: a write
// makes it readable, a read drains it. Writing EventfdMax additionally
// saturates the counter so the descriptor stays non-writable until the
// peer drains it, which is what lets the producer sleep in poll(POLLOUT).
// Draining an already-empty counter is not an event of interest, so
// EAGAIN counts as success on both operations.

func eventDrain(fd int) error {
	if _, err := fdx.EventfdRead(fd); err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

func eventSignal(fd int) error {
	if err := fdx.EventfdWrite(fd, fdx.EventfdMax); err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

type ringSide struct {
	shared *RingShared
	n      uint32 // ring capacity
	efd    int
	limit  uint32
	last   uint32 // this side's index, in [0, 2n)
}

func ringCapacity(buf []byte) uint32 {
	if uint64(len(buf)) > ring.MaxSize {
		return ring.MaxSize
	}
	return uint32(len(buf))
}

// RingInputStream is the consumer half of an SPSC ring stream pair.
type RingInputStream struct {
	InputStream
	ringSide
}

// NewRingInputStream binds the consumer half to a ring buffer, a wake
// eventfd (non-blocking) and the shared record. The producer half must
// be bound to the very same triple.
func NewRingInputStream(buffer []byte, eventFd int, shared *RingShared) *RingInputStream {
	s := &RingInputStream{}
	s.initInput(s, true)
	s.limit = DefaultSegmentLimit
	s.Reset(buffer, eventFd, shared)
	return s
}

// Reset rebinds the stream. The shared record's current consumer index is
// adopted as the local position.
func (s *RingInputStream) Reset(buffer []byte, eventFd int, shared *RingShared) {
	s.buf = buffer
	s.n = ringCapacity(buffer)
	s.shared = shared
	s.efd = eventFd
	s.flags = 0
	s.err = nil
	s.last = shared.consumerIndex.Load()
	s.updateWindow(shared.producerIndex.Load(), s.last)
}

// SegmentLimit returns the configured segment limit.
func (s *RingInputStream) SegmentLimit() int { return int(s.limit) }

// SetSegmentLimit bounds the contiguous window handed out per buffer
// request. The floor is one byte.
func (s *RingInputStream) SetSegmentLimit(limit int) {
	if limit < 1 {
		limit = 1
	}
	s.limit = uint32(limit)
	if s.avail > limit {
		s.avail = limit
	}
}

// EventFd returns the wake descriptor.
func (s *RingInputStream) EventFd() int { return s.efd }

func (s *RingInputStream) updateWindow(p, c uint32) {
	off := ring.Offset(c, s.n)
	b := ring.ContinuousSlots(off, ring.ConsumerFree(p, c, s.n), s.n)
	if b > s.limit {
		b = s.limit
	}
	s.off = int(off)
	s.avail = int(b)
}

// checkEnd runs after an availability check came up empty: only then may
// the consumer act on eos, so bytes published before the producer
// finalized are always delivered first.
func (s *RingInputStream) checkEnd() bool {
	if s.shared.eos.Load() {
		s.flags |= statusEndOfStream
		return true
	}
	return false
}

func (s *RingInputStream) fail(err error) {
	s.setError(err)
	s.avail = 0
}

// nextBuffer publishes consumed bytes and returns the next readable
// segment, empty when none is available under the given mode.
func (s *RingInputStream) nextBuffer(mode Mode) []byte {
	if s.flags != 0 {
		return nil
	}
	sh := s.shared

	// Publish what the fast path consumed since the last slow-path call.
	count := uint32(s.off) - ring.Offset(s.last, s.n)
	idx := ring.Advance(s.last, count, s.n)
	s.last = idx
	sh.consumerIndex.Store(idx)

	// The producer parks only after setting producerWake; clearing the
	// flag makes this side responsible for draining the counter so the
	// producer's poll(POLLOUT) can complete once space exists.
	producerParked := sh.producerWake.CompareAndSwap(true, false)
	if producerParked && count > 0 {
		if err := eventDrain(s.efd); err != nil {
			s.fail(err)
			return nil
		}
	}

	s.updateWindow(sh.producerIndex.Load(), idx)
	if s.avail > 0 {
		return s.window()
	}
	if s.checkEnd() {
		return nil
	}

	if !producerParked {
		// The producer may be arming its wake flag right now; drain once
		// more so a concurrent saturating signal cannot keep it blocked,
		// then re-check.
		if err := eventDrain(s.efd); err != nil {
			s.fail(err)
			return nil
		}
		s.updateWindow(sh.producerIndex.Load(), idx)
		if s.avail > 0 {
			return s.window()
		}
		if s.checkEnd() {
			return nil
		}
	}

	// Announce intent to sleep, then look again: either this side sees
	// the producer's newest publish here, or the producer sees the flag
	// and signals. One of the two always happens.
	sh.consumerWake.Store(true)
	s.updateWindow(sh.producerIndex.Load(), idx)
	if s.avail > 0 {
		return s.window()
	}
	if s.checkEnd() {
		return nil
	}
	if mode == NonBlocking {
		return nil
	}

	for {
		if err := fdx.WaitReadable(s.efd); err != nil {
			s.fail(err)
			return nil
		}
		s.updateWindow(sh.producerIndex.Load(), idx)
		if s.avail > 0 {
			return s.window()
		}
		if s.checkEnd() {
			return nil
		}
		if err := eventDrain(s.efd); err != nil {
			s.fail(err)
			return nil
		}
		s.updateWindow(sh.producerIndex.Load(), idx)
		if s.avail > 0 {
			return s.window()
		}
		if s.checkEnd() {
			return nil
		}
	}
}

func (s *RingInputStream) readStream(vec iovec.Vector, required int) (int, error) {
	mode := NonBlocking
	if required > 0 {
		mode = Blocking
	}
	dst := vec[0]
	count := 0
	for {
		buf := s.nextBuffer(mode)
		if len(buf) == 0 {
			if s.HasError() {
				return count, s.err
			}
			return count, nil
		}
		if len(buf) >= len(dst) {
			c := copy(dst, buf)
			s.advance(c)
			return count + c, nil
		}
		c := copy(dst, buf)
		s.AdvanceWholeBuffer()
		count += c
		dst = dst[c:]
	}
}

func (s *RingInputStream) readBuffer(mode Mode) []byte {
	return s.nextBuffer(mode)
}

// RingOutputStream is the producer half of an SPSC ring stream pair.
type RingOutputStream struct {
	OutputStream
	ringSide
}

// NewRingOutputStream binds the producer half to a ring buffer, a wake
// eventfd (non-blocking) and the shared record.
func NewRingOutputStream(buffer []byte, eventFd int, shared *RingShared) *RingOutputStream {
	s := &RingOutputStream{}
	s.initOutput(s, true)
	s.limit = DefaultSegmentLimit
	s.Reset(buffer, eventFd, shared)
	return s
}

// Reset rebinds the stream. The shared record's current producer index is
// adopted as the local position.
func (s *RingOutputStream) Reset(buffer []byte, eventFd int, shared *RingShared) {
	s.buf = buffer
	s.n = ringCapacity(buffer)
	s.shared = shared
	s.efd = eventFd
	s.flags = 0
	s.err = nil
	s.last = shared.producerIndex.Load()
	s.updateWindow(s.last, shared.consumerIndex.Load())
}

// SegmentLimit returns the configured segment limit.
func (s *RingOutputStream) SegmentLimit() int { return int(s.limit) }

// SetSegmentLimit bounds the contiguous window handed out per buffer
// request. The floor is one byte.
func (s *RingOutputStream) SetSegmentLimit(limit int) {
	if limit < 1 {
		limit = 1
	}
	s.limit = uint32(limit)
	if s.avail > limit {
		s.avail = limit
	}
}

// EventFd returns the wake descriptor.
func (s *RingOutputStream) EventFd() int { return s.efd }

func (s *RingOutputStream) updateWindow(p, c uint32) {
	off := ring.Offset(p, s.n)
	b := ring.ContinuousSlots(off, ring.ProducerFree(p, c, s.n), s.n)
	if b > s.limit {
		b = s.limit
	}
	s.off = int(off)
	s.avail = int(b)
}

func (s *RingOutputStream) fail(err error) {
	s.setError(err)
	s.avail = 0
}

// publish advances the shared producer index by the bytes the fast path
// wrote since the last slow-path call and returns that count.
func (s *RingOutputStream) publish() uint32 {
	count := uint32(s.off) - ring.Offset(s.last, s.n)
	s.last = ring.Advance(s.last, count, s.n)
	s.shared.producerIndex.Store(s.last)
	return count
}

// nextBuffer publishes pending writes and returns the next writable
// segment, empty when no space is available under the given mode.
func (s *RingOutputStream) nextBuffer(mode Mode) []byte {
	if s.flags != 0 {
		return nil
	}
	sh := s.shared

	count := s.publish()
	idx := s.last

	// Wake a parked consumer, but only when this call actually made new
	// bytes visible; clearing the flag alone is harmless because the
	// consumer re-arms it before every sleep.
	consumerParked := sh.consumerWake.CompareAndSwap(true, false)
	if consumerParked && count > 0 {
		if err := eventSignal(s.efd); err != nil {
			s.fail(err)
			return nil
		}
	}

	s.updateWindow(idx, sh.consumerIndex.Load())
	if s.avail > 0 {
		return s.window()
	}

	if !consumerParked {
		// The consumer may be arming its wake flag right now; signal
		// unconditionally to cover that window, then re-check.
		if err := eventSignal(s.efd); err != nil {
			s.fail(err)
			return nil
		}
		s.updateWindow(idx, sh.consumerIndex.Load())
		if s.avail > 0 {
			return s.window()
		}
	}

	sh.producerWake.Store(true)
	s.updateWindow(idx, sh.consumerIndex.Load())
	if s.avail > 0 {
		return s.window()
	}
	if mode == NonBlocking {
		return nil
	}

	for {
		// The counter is saturated whenever this side parked itself, so
		// POLLOUT completes exactly when the consumer drains it.
		if err := fdx.WaitWritable(s.efd); err != nil {
			s.fail(err)
			return nil
		}
		s.updateWindow(idx, sh.consumerIndex.Load())
		if s.avail > 0 {
			return s.window()
		}
		if err := eventSignal(s.efd); err != nil {
			s.fail(err)
			return nil
		}
		s.updateWindow(idx, sh.consumerIndex.Load())
		if s.avail > 0 {
			return s.window()
		}
	}
}

func (s *RingOutputStream) writeStream(vec iovec.Vector, mode Mode) (int, error) {
	if s.AtEnd() {
		return 0, errEndOfStream
	}
	src := vec[0]
	count := 0
	if s.avail > 0 {
		// The fast path rejected the write, so the current window is
		// smaller than src; top it off before moving on.
		c := copy(s.window(), src)
		s.AdvanceWholeBuffer()
		count = c
		src = src[c:]
	}
	for {
		buf := s.nextBuffer(mode)
		if len(buf) == 0 {
			if s.HasError() {
				return count, s.err
			}
			return count, nil
		}
		if len(buf) >= len(src) {
			c := copy(buf, src)
			s.advance(c)
			return count + c, nil
		}
		c := copy(buf, src)
		s.AdvanceWholeBuffer()
		count += c
		src = src[c:]
	}
}

func (s *RingOutputStream) writeBuffer(mode Mode) []byte {
	if s.AtEnd() {
		return nil
	}
	return s.nextBuffer(mode)
}

// flushBuffer publishes pending bytes; the ring has no deeper layer to
// push to, so flushing never blocks.
func (s *RingOutputStream) flushBuffer(Mode) (bool, error) {
	s.nextBuffer(NonBlocking)
	if s.HasError() {
		return false, s.err
	}
	return true, nil
}

// SetEndOfStream publishes any pending writes, marks the shared record
// finalized and wakes the consumer. Afterwards the stream is at end and
// writes fail. Must only be called from the producer goroutine, never
// concurrently with another producer-side call.
func (s *RingOutputStream) SetEndOfStream() {
	if s.flags != 0 {
		return
	}
	s.publish()
	s.shared.eos.Store(true)
	if err := eventSignal(s.efd); err != nil {
		s.fail(err)
	}
	s.flags |= statusEndOfStream
	s.avail = 0
}

// RingController owns everything a ring stream pair shares: the buffer,
// the shared record and the wake eventfd. It must outlive both streams.
type RingController struct {
	shared RingShared
	buf    []byte
	efd    int
}

// NewRingController allocates a ring of the given size (clamped to
// [1, ring.MaxSize]) and opens the wake eventfd.
func NewRingController(size int) (*RingController, error) {
	if size < 1 {
		size = 1
	}
	if uint64(size) > ring.MaxSize {
		size = ring.MaxSize
	}
	efd, err := fdx.EventfdNonblock()
	if err != nil {
		return nil, err
	}
	c := &RingController{
		buf: mcache.Malloc(size),
		efd: efd,
	}
	c.shared.Reset()
	return c, nil
}

// Pair returns a fresh producer/consumer stream pair over the
// controller's ring. A non-positive segmentLimit selects
// DefaultSegmentLimit. The two streams must go to at most one goroutine
// each; pairing anew while old streams are still in use is invalid.
func (c *RingController) Pair(segmentLimit int) (*RingOutputStream, *RingInputStream) {
	if segmentLimit <= 0 {
		segmentLimit = DefaultSegmentLimit
	}
	out := NewRingOutputStream(c.buf, c.efd, &c.shared)
	out.SetSegmentLimit(segmentLimit)
	in := NewRingInputStream(c.buf, c.efd, &c.shared)
	in.SetSegmentLimit(segmentLimit)
	return out, in
}

// Close releases the eventfd and the ring buffer. Only call after both
// streams are done.
func (c *RingController) Close() error {
	err := fdx.Close(c.efd)
	c.efd = fdx.InvalidFd
	mcache.Free(c.buf)
	c.buf = nil
	return err
}
