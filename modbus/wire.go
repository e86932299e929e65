// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

// FloatCountMode tells float accessors what their count argument means.
type FloatCountMode int

const (
	// CountFloats means a count of 32-bit floats (two registers each).
	CountFloats FloatCountMode = iota
	// CountRegisters means a count of 16-bit registers.
	CountRegisters
)

// WireFormat holds the per-device encoding options applied to every frame a
// master, slave or framer produces or parses. The zero value is the Modbus
// default: big-endian registers, high word first, float counts.
type WireFormat struct {
	ByteOrder  ByteOrder
	WordOrder  WordOrder
	FloatCount FloatCountMode
	// FloatRange, when set, is the register window float accesses must stay inside.
	FloatRange *AddressSpan
}

// Clone returns a copy that shares no memory with f.
func (f WireFormat) Clone() WireFormat {
	if f.FloatRange != nil {
		r := *f.FloatRange
		f.FloatRange = &r
	}
	return f
}

// FloatRegisters converts a float count argument to a register count.
func (f WireFormat) FloatRegisters(count uint16) int {
	if f.FloatCount == CountRegisters {
		return int(count)
	}
	return 2 * int(count)
}

// AllowsFloatAccess reports whether registers [start, start+registers) lie
// inside FloatRange. Without a FloatRange every access is allowed.
func (f WireFormat) AllowsFloatAccess(start uint16, registers int) bool {
	if f.FloatRange == nil {
		return true
	}
	lo := int(f.FloatRange.Start)
	hi := lo + int(f.FloatRange.Count)
	return int(start) >= lo && int(start)+registers <= hi
}
