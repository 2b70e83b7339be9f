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
	"golang.org/x/sys/unix"

	"github.com/cloudwego/streamx/iovec"
)

// Read reads into p, retrying on EINTR. A would-block condition is
// reported as unix.EAGAIN.
func Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// Write writes p, retrying on EINTR.
func Write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// Readv performs one vectored read, retrying on EINTR.
func Readv(fd int, vec iovec.Vector) (int, error) {
	for {
		n, err := unix.Readv(fd, vec)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// Writev performs one vectored write, retrying on EINTR.
func Writev(fd int, vec iovec.Vector) (int, error) {
	for {
		n, err := unix.Writev(fd, vec)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// ReadFull reads exactly len(p) bytes. Hitting end of stream before the
// buffer is filled is an EIO error, matching the contract that callers of
// a full read never want a partial result.
func ReadFull(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Read(fd, p)
		if n > 0 {
			p = p[n:]
			continue
		}
		if n == 0 && err == nil {
			return unix.EIO
		}
		if err != unix.EINTR {
			return err
		}
	}
	return nil
}

// WriteFull writes all of p.
func WriteFull(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		if n > 0 {
			p = p[n:]
			continue
		}
		if n == 0 && err == nil {
			return unix.EIO
		}
		if err != unix.EINTR {
			return err
		}
	}
	return nil
}
