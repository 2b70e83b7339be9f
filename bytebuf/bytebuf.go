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

// Package bytebuf implements a growable byte buffer with explicit
// commit semantics, backed by the mcache allocator.
//
// Unlike bytes.Buffer it exposes its spare capacity for in-place writes:
// callers fill Spare() and then Commit() the written prefix. This is the
// storage behind the in-memory output stream.
package bytebuf

import (
	"math"

	"github.com/bytedance/gopkg/lang/mcache"
)

// MaxSize is the largest committed size a Buffer may reach.
const MaxSize = math.MaxUint32

const minCapacity = 1 << 12

// Buffer is a growable byte buffer. The zero value is an empty buffer
// with no storage.
type Buffer struct {
	buf []byte // buf[:len] is committed data, buf[len:cap] is spare
}

// New returns a buffer with at least the given spare capacity.
func New(capacity int) Buffer {
	if capacity <= 0 {
		return Buffer{}
	}
	return Buffer{buf: mcache.Malloc(0, capacity)}
}

// Bytes returns the committed data. The slice is invalidated by any
// growing operation.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the committed size.
func (b *Buffer) Len() int { return len(b.buf) }

// Cap returns the storage capacity.
func (b *Buffer) Cap() int { return cap(b.buf) }

// Spare returns the uncommitted tail of the storage. Bytes written there
// become part of the buffer once Commit is called.
func (b *Buffer) Spare() []byte { return b.buf[len(b.buf):cap(b.buf)] }

// Commit extends the committed size by n bytes previously written into
// Spare. n must not exceed len(Spare()).
func (b *Buffer) Commit(n int) {
	if n < 0 || n > cap(b.buf)-len(b.buf) {
		panic("bytebuf: commit out of range")
	}
	b.buf = b.buf[:len(b.buf)+n]
}

// Reserve ensures at least n bytes of spare capacity. It reports false
// when that would push the buffer past MaxSize.
func (b *Buffer) Reserve(n int) bool {
	if n <= cap(b.buf)-len(b.buf) {
		return true
	}
	if uint64(len(b.buf))+uint64(n) > MaxSize {
		return false
	}
	ncap := int64(cap(b.buf)) * 2
	if ncap < minCapacity {
		ncap = minCapacity
	}
	for ncap < int64(len(b.buf))+int64(n) {
		ncap *= 2
	}
	if ncap > MaxSize {
		ncap = MaxSize
	}
	nbuf := mcache.Malloc(len(b.buf), int(ncap))
	copy(nbuf, b.buf)
	if cap(b.buf) > 0 {
		mcache.Free(b.buf)
	}
	b.buf = nbuf
	return true
}

// GrowReserve makes sure some spare capacity exists, doubling the storage
// when the buffer is full.
func (b *Buffer) GrowReserve() bool {
	if cap(b.buf)-len(b.buf) > 0 {
		return true
	}
	return b.Reserve(minCapacity)
}

// Append commits a copy of p at the end of the buffer. It reports false
// when the buffer cannot grow to hold p.
func (b *Buffer) Append(p []byte) bool {
	if !b.Reserve(len(p)) {
		return false
	}
	b.buf = append(b.buf, p...)
	return true
}

// Take detaches and returns the committed data, leaving the buffer empty
// with no storage. The returned slice is mcache-allocated; pass it back
// to a Buffer or free it via mcache when done.
func (b *Buffer) Take() []byte {
	buf := b.buf
	b.buf = nil
	return buf
}

// Reset drops the committed data but keeps the storage.
func (b *Buffer) Reset() {
	if b.buf != nil {
		b.buf = b.buf[:0]
	}
}

// Close releases the storage back to the allocator.
func (b *Buffer) Close() {
	if cap(b.buf) > 0 {
		mcache.Free(b.buf[:0])
	}
	b.buf = nil
}
