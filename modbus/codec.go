// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"encoding/binary"
	"math"
)

// ByteOrder selects which byte of a 16-bit register goes on the wire first.
type ByteOrder int

const (
	// BigEndian is the Modbus default: high byte first.
	BigEndian ByteOrder = iota
	// LittleEndian is used by Enron-style devices: low byte first.
	LittleEndian
)

// WordOrder selects which register of a 32-bit value goes on the wire first.
type WordOrder int

const (
	HighWordFirst WordOrder = iota
	LowWordFirst
)

func (o ByteOrder) binary() binary.ByteOrder {
	if o == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little-endian"
	}
	return "big-endian"
}

func (o WordOrder) String() string {
	if o == LowWordFirst {
		return "low-word-first"
	}
	return "high-word-first"
}

// EncodeUint16 writes v into out[0:2].
func EncodeUint16(v uint16, order ByteOrder, out []byte) {
	order.binary().PutUint16(out[:2], v)
}

// DecodeUint16 reassembles a register from its two wire bytes.
func DecodeUint16(b0, b1 byte, order ByteOrder) uint16 {
	return order.binary().Uint16([]byte{b0, b1})
}

// EncodeUint32 writes v into out[0:4] as two registers.
func EncodeUint32(v uint32, bo ByteOrder, wo WordOrder, out []byte) {
	hi, lo := uint16(v>>16), uint16(v)
	if wo == LowWordFirst {
		hi, lo = lo, hi
	}
	EncodeUint16(hi, bo, out[0:2])
	EncodeUint16(lo, bo, out[2:4])
}

// DecodeUint32 reassembles a 32-bit value from b[0:4].
func DecodeUint32(b []byte, bo ByteOrder, wo WordOrder) uint32 {
	first := DecodeUint16(b[0], b[1], bo)
	second := DecodeUint16(b[2], b[3], bo)
	if wo == LowWordFirst {
		first, second = second, first
	}
	return uint32(first)<<16 | uint32(second)
}

// EncodeFloat32 writes the IEEE-754 bit pattern of v into out[0:4].
func EncodeFloat32(v float32, bo ByteOrder, wo WordOrder, out []byte) {
	EncodeUint32(math.Float32bits(v), bo, wo, out)
}

// DecodeFloat32 reinterprets b[0:4] as an IEEE-754 single.
func DecodeFloat32(b []byte, bo ByteOrder, wo WordOrder) float32 {
	return math.Float32frombits(DecodeUint32(b, bo, wo))
}

// EncodeRegisters packs values two bytes each.
func EncodeRegisters(values []uint16, order ByteOrder) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		EncodeUint16(v, order, out[2*i:])
	}
	return out
}

// DecodeRegisters unpacks len(b)/2 registers; a trailing odd byte is ignored.
func DecodeRegisters(b []byte, order ByteOrder) []uint16 {
	values := make([]uint16, len(b)/2)
	for i := range values {
		values[i] = DecodeUint16(b[2*i], b[2*i+1], order)
	}
	return values
}

// PackBits packs booleans eight per byte, least significant bit first.
// The unused high bits of the last byte are zero.
func PackBits(values []bool) []byte {
	out := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// UnpackBits returns the first count bits of b, least significant bit first.
func UnpackBits(b []byte, count int) []bool {
	values := make([]bool, count)
	for i := range values {
		values[i] = b[i/8]&(1<<uint(i%8)) != 0
	}
	return values
}
