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
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// EventfdMax is the largest value an eventfd write may carry. Writing it
// saturates the kernel counter, which makes the descriptor non-writable
// until the peer drains it; the ring transport relies on exactly that.
const EventfdMax = 1<<64 - 2

// Eventfd creates an eventfd counter. The ring transport opens it with
// EFD_NONBLOCK|EFD_CLOEXEC.
func Eventfd(initval uint, flags int) (int, error) {
	return unix.Eventfd(initval, flags)
}

// EventfdNonblock creates the non-blocking close-on-exec counter used as
// the wake primitive of the SPSC ring.
func EventfdNonblock() (int, error) {
	return unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
}

// EventfdRead drains the counter and returns its value. When the counter
// is zero and the descriptor is non-blocking, the error is unix.EAGAIN.
func EventfdRead(fd int) (uint64, error) {
	var buf [8]byte
	n, err := Read(fd, buf[:])
	if err != nil {
		return 0, err
	}
	if n != len(buf) {
		return 0, unix.EIO
	}
	return binary.NativeEndian.Uint64(buf[:]), nil
}

// EventfdWrite adds v to the counter. When the addition would overflow and
// the descriptor is non-blocking, the error is unix.EAGAIN.
func EventfdWrite(fd int, v uint64) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], v)
	n, err := Write(fd, buf[:])
	if err != nil {
		return err
	}
	if n != len(buf) {
		return unix.EIO
	}
	return nil
}
