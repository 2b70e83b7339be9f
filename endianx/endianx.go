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

// Package endianx provides byte-order loads and stores, including the
// packed 24-bit accessors and narrow sign extensions that PCM sample
// formats need on top of encoding/binary.
package endianx

import (
	"encoding/binary"
	"math"
)

// 16-bit accessors.

func LoadU16LE(b []byte) uint16     { return binary.LittleEndian.Uint16(b) }
func LoadU16BE(b []byte) uint16     { return binary.BigEndian.Uint16(b) }
func StoreU16LE(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func StoreU16BE(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }

// 32-bit accessors.

func LoadU32LE(b []byte) uint32     { return binary.LittleEndian.Uint32(b) }
func LoadU32BE(b []byte) uint32     { return binary.BigEndian.Uint32(b) }
func StoreU32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func StoreU32BE(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// 64-bit accessors.

func LoadU64LE(b []byte) uint64     { return binary.LittleEndian.Uint64(b) }
func LoadU64BE(b []byte) uint64     { return binary.BigEndian.Uint64(b) }
func StoreU64LE(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func StoreU64BE(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }

// Packed 24-bit accessors: three bytes on the wire, no padding byte.

// LoadU24LE loads a little-endian 3-byte unsigned integer.
func LoadU24LE(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// LoadU24BE loads a big-endian 3-byte unsigned integer.
func LoadU24BE(b []byte) uint32 {
	_ = b[2]
	return uint32(b[2]) | uint32(b[1])<<8 | uint32(b[0])<<16
}

// StoreU24LE stores the low 24 bits of v as three little-endian bytes.
func StoreU24LE(b []byte, v uint32) {
	_ = b[2]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// StoreU24BE stores the low 24 bits of v as three big-endian bytes.
func StoreU24BE(b []byte, v uint32) {
	_ = b[2]
	b[2] = byte(v)
	b[1] = byte(v >> 8)
	b[0] = byte(v >> 16)
}

// SignExtend32 interprets the low bits of v as a two's-complement integer
// of the given width (1..32) and extends it to int32. PCM formats use
// widths 18, 20 and 24.
func SignExtend32(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// LoadS24LE loads a packed little-endian 24-bit signed sample.
func LoadS24LE(b []byte) int32 { return SignExtend32(LoadU24LE(b), 24) }

// LoadS24BE loads a packed big-endian 24-bit signed sample.
func LoadS24BE(b []byte) int32 { return SignExtend32(LoadU24BE(b), 24) }

// StoreS24LE stores the low 24 bits of v as a packed little-endian sample.
func StoreS24LE(b []byte, v int32) { StoreU24LE(b, uint32(v)) }

// StoreS24BE stores the low 24 bits of v as a packed big-endian sample.
func StoreS24BE(b []byte, v int32) { StoreU24BE(b, uint32(v)) }

// Float accessors via the bit-pattern loads.

func LoadF32LE(b []byte) float32     { return math.Float32frombits(LoadU32LE(b)) }
func LoadF32BE(b []byte) float32     { return math.Float32frombits(LoadU32BE(b)) }
func StoreF32LE(b []byte, v float32) { StoreU32LE(b, math.Float32bits(v)) }
func StoreF32BE(b []byte, v float32) { StoreU32BE(b, math.Float32bits(v)) }

func LoadF64LE(b []byte) float64     { return math.Float64frombits(LoadU64LE(b)) }
func LoadF64BE(b []byte) float64     { return math.Float64frombits(LoadU64BE(b)) }
func StoreF64LE(b []byte, v float64) { StoreU64LE(b, math.Float64bits(v)) }
func StoreF64BE(b []byte, v float64) { StoreU64BE(b, math.Float64bits(v)) }
