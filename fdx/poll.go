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
)

// Poll event flags.
const (
	PollIn  = unix.POLLIN
	PollOut = unix.POLLOUT
)

// WaitEvent blocks until fd reports one of the requested events, with no
// timeout, retrying on EINTR. POLLERR/POLLNVAL results surface as errors
// so the caller's wait loop terminates; POLLHUP alone is not an error.
func WaitEvent(fd int, events int16) error {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		n, err := unix.Poll(pfd, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if pfd[0].Revents&(unix.POLLNVAL|unix.POLLERR) != 0 {
			return unix.EBADF
		}
		return nil
	}
}

// WaitReadable blocks until fd is readable.
func WaitReadable(fd int) error { return WaitEvent(fd, PollIn) }

// WaitWritable blocks until fd is writable.
func WaitWritable(fd int) error { return WaitEvent(fd, PollOut) }
