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

// Package pcm provides sample-format math for linear PCM audio: per
// format byte widths, frame sizes and sample codecs. It covers the
// signed-linear and float formats, including the packed 3-byte layouts
// with 18, 20 and 24 significant bits.
//
// Device access is out of scope; this package only computes.
package pcm

import (
	"github.com/cloudwego/streamx/endianx"
)

// Format identifies a linear PCM sample layout.
type Format uint8

const (
	FormatInvalid Format = iota
	FormatS8
	FormatS16LE
	FormatS16BE
	FormatS24LE // 24 significant bits in a 4-byte container
	FormatS24BE
	FormatS32LE
	FormatS32BE
	FormatS18_3LE // 18 significant bits packed into 3 bytes
	FormatS18_3BE
	FormatS20_3LE
	FormatS20_3BE
	FormatS24_3LE
	FormatS24_3BE
	FormatFloat32LE
	FormatFloat32BE
	FormatFloat64LE
	FormatFloat64BE
)

var formatNames = [...]string{
	FormatInvalid:   "INVALID",
	FormatS8:        "S8",
	FormatS16LE:     "S16_LE",
	FormatS16BE:     "S16_BE",
	FormatS24LE:     "S24_LE",
	FormatS24BE:     "S24_BE",
	FormatS32LE:     "S32_LE",
	FormatS32BE:     "S32_BE",
	FormatS18_3LE:   "S18_3LE",
	FormatS18_3BE:   "S18_3BE",
	FormatS20_3LE:   "S20_3LE",
	FormatS20_3BE:   "S20_3BE",
	FormatS24_3LE:   "S24_3LE",
	FormatS24_3BE:   "S24_3BE",
	FormatFloat32LE: "FLOAT_LE",
	FormatFloat32BE: "FLOAT_BE",
	FormatFloat64LE: "FLOAT64_LE",
	FormatFloat64BE: "FLOAT64_BE",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "INVALID"
}

// Valid reports whether f names a known format.
func (f Format) Valid() bool {
	return f > FormatInvalid && int(f) < len(formatNames)
}

// BytesPerSample returns the storage width of one sample, 0 for invalid
// formats.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatS8:
		return 1
	case FormatS16LE, FormatS16BE:
		return 2
	case FormatS18_3LE, FormatS18_3BE, FormatS20_3LE, FormatS20_3BE, FormatS24_3LE, FormatS24_3BE:
		return 3
	case FormatS24LE, FormatS24BE, FormatS32LE, FormatS32BE, FormatFloat32LE, FormatFloat32BE:
		return 4
	case FormatFloat64LE, FormatFloat64BE:
		return 8
	default:
		return 0
	}
}

// SignificantBits returns the number of meaningful sample bits, 0 for
// invalid formats.
func (f Format) SignificantBits() int {
	switch f {
	case FormatS8:
		return 8
	case FormatS16LE, FormatS16BE:
		return 16
	case FormatS18_3LE, FormatS18_3BE:
		return 18
	case FormatS20_3LE, FormatS20_3BE:
		return 20
	case FormatS24LE, FormatS24BE, FormatS24_3LE, FormatS24_3BE:
		return 24
	case FormatS32LE, FormatS32BE, FormatFloat32LE, FormatFloat32BE:
		return 32
	case FormatFloat64LE, FormatFloat64BE:
		return 64
	default:
		return 0
	}
}

// IsFloat reports whether f stores floating-point samples.
func (f Format) IsFloat() bool {
	switch f {
	case FormatFloat32LE, FormatFloat32BE, FormatFloat64LE, FormatFloat64BE:
		return true
	default:
		return false
	}
}

// FrameBytes returns the storage width of one frame (one sample per
// channel), 0 when the format is invalid or channels is not positive.
func FrameBytes(f Format, channels int) int {
	if channels <= 0 {
		return 0
	}
	return f.BytesPerSample() * channels
}

// FramesToBytes converts a frame count to a byte count.
func FramesToBytes(f Format, channels, frames int) int {
	return FrameBytes(f, channels) * frames
}

// BytesToFrames converts a byte count to a whole frame count.
func BytesToFrames(f Format, channels, bytes int) int {
	fb := FrameBytes(f, channels)
	if fb == 0 {
		return 0
	}
	return bytes / fb
}

// DecodeInt32 reads one integer sample from b and returns it
// sign-extended at its native significance. Float formats and invalid
// formats report false. b must hold at least BytesPerSample bytes.
func DecodeInt32(f Format, b []byte) (int32, bool) {
	switch f {
	case FormatS8:
		return int32(int8(b[0])), true
	case FormatS16LE:
		return int32(int16(endianx.LoadU16LE(b))), true
	case FormatS16BE:
		return int32(int16(endianx.LoadU16BE(b))), true
	case FormatS24LE:
		return endianx.SignExtend32(endianx.LoadU32LE(b), 24), true
	case FormatS24BE:
		return endianx.SignExtend32(endianx.LoadU32BE(b), 24), true
	case FormatS32LE:
		return int32(endianx.LoadU32LE(b)), true
	case FormatS32BE:
		return int32(endianx.LoadU32BE(b)), true
	case FormatS18_3LE:
		return endianx.SignExtend32(endianx.LoadU24LE(b), 18), true
	case FormatS18_3BE:
		return endianx.SignExtend32(endianx.LoadU24BE(b), 18), true
	case FormatS20_3LE:
		return endianx.SignExtend32(endianx.LoadU24LE(b), 20), true
	case FormatS20_3BE:
		return endianx.SignExtend32(endianx.LoadU24BE(b), 20), true
	case FormatS24_3LE:
		return endianx.LoadS24LE(b), true
	case FormatS24_3BE:
		return endianx.LoadS24BE(b), true
	default:
		return 0, false
	}
}

// EncodeInt32 writes one integer sample at its native significance into
// b. Out-of-range values are truncated to the significant width. Float
// formats and invalid formats report false.
func EncodeInt32(f Format, b []byte, v int32) bool {
	switch f {
	case FormatS8:
		b[0] = byte(v)
	case FormatS16LE:
		endianx.StoreU16LE(b, uint16(v))
	case FormatS16BE:
		endianx.StoreU16BE(b, uint16(v))
	case FormatS24LE:
		endianx.StoreU32LE(b, uint32(v)&0x00ffffff)
	case FormatS24BE:
		endianx.StoreU32BE(b, uint32(v)&0x00ffffff)
	case FormatS32LE:
		endianx.StoreU32LE(b, uint32(v))
	case FormatS32BE:
		endianx.StoreU32BE(b, uint32(v))
	case FormatS18_3LE:
		endianx.StoreU24LE(b, uint32(v)&0x0003ffff)
	case FormatS18_3BE:
		endianx.StoreU24BE(b, uint32(v)&0x0003ffff)
	case FormatS20_3LE:
		endianx.StoreU24LE(b, uint32(v)&0x000fffff)
	case FormatS20_3BE:
		endianx.StoreU24BE(b, uint32(v)&0x000fffff)
	case FormatS24_3LE:
		endianx.StoreS24LE(b, v)
	case FormatS24_3BE:
		endianx.StoreS24BE(b, v)
	default:
		return false
	}
	return true
}

// DecodeFloat64 reads one sample from b normalized to [-1, 1): integer
// samples are scaled by their significant width, float samples are
// converted directly.
func DecodeFloat64(f Format, b []byte) (float64, bool) {
	switch f {
	case FormatFloat32LE:
		return float64(endianx.LoadF32LE(b)), true
	case FormatFloat32BE:
		return float64(endianx.LoadF32BE(b)), true
	case FormatFloat64LE:
		return endianx.LoadF64LE(b), true
	case FormatFloat64BE:
		return endianx.LoadF64BE(b), true
	default:
		v, ok := DecodeInt32(f, b)
		if !ok {
			return 0, false
		}
		scale := float64(int64(1) << uint(f.SignificantBits()-1))
		return float64(v) / scale, true
	}
}

// EncodeFloat64 writes one sample from the normalized [-1, 1) range into
// b. Integer formats clip at the positive rail.
func EncodeFloat64(f Format, b []byte, v float64) bool {
	switch f {
	case FormatFloat32LE:
		endianx.StoreF32LE(b, float32(v))
		return true
	case FormatFloat32BE:
		endianx.StoreF32BE(b, float32(v))
		return true
	case FormatFloat64LE:
		endianx.StoreF64LE(b, v)
		return true
	case FormatFloat64BE:
		endianx.StoreF64BE(b, v)
		return true
	default:
		bits := f.SignificantBits()
		if bits == 0 {
			return false
		}
		scale := float64(int64(1) << uint(bits-1))
		s := v * scale
		max := scale - 1
		if s > max {
			s = max
		} else if s < -scale {
			s = -scale
		}
		return EncodeInt32(f, b, int32(s))
	}
}
