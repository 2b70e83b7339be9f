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

// Package fdx provides thin file-descriptor helpers: EINTR-retrying IO,
// status-flag manipulation, pipes, eventfd and poll based waiting.
//
// All wrappers operate on raw descriptors; ownership and closing remain
// with the caller.
package fdx

import (
	"golang.org/x/sys/unix"
)

// InvalidFd is the canonical invalid descriptor value.
const InvalidFd = -1

// IsNonblock reports whether O_NONBLOCK is set on fd.
func IsNonblock(fd int) (bool, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return false, err
	}
	return flags&unix.O_NONBLOCK != 0, nil
}

// SetNonblock sets or clears O_NONBLOCK on fd.
func SetNonblock(fd int, nonblock bool) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return err
	}
	if nonblock {
		flags |= unix.O_NONBLOCK
	} else {
		flags &^= unix.O_NONBLOCK
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags)
	return err
}

// IsCloexec reports whether FD_CLOEXEC is set on fd.
func IsCloexec(fd int) (bool, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return false, err
	}
	return flags&unix.FD_CLOEXEC != 0, nil
}

// SetCloexec sets or clears FD_CLOEXEC on fd.
func SetCloexec(fd int, cloexec bool) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return err
	}
	if cloexec {
		flags |= unix.FD_CLOEXEC
	} else {
		flags &^= unix.FD_CLOEXEC
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags)
	return err
}

// Close closes fd, retrying is deliberately not attempted: on Linux the
// descriptor is released even when close reports EINTR.
func Close(fd int) error {
	return unix.Close(fd)
}

// Pipe returns a connected (read, write) descriptor pair with FD_CLOEXEC
// set on both ends.
func Pipe() (r, w int, err error) {
	var p [2]int
	if err = unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return InvalidFd, InvalidFd, err
	}
	return p[0], p[1], nil
}
