// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the CRC-16 used by Modbus RTU frames.
package crc

import (
	"github.com/sigurn/crc16"
)

// Size is the number of CRC bytes trailing an RTU frame.
const Size = 2

var table = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC is a running CRC-16/MODBUS accumulator.
// The zero value must be Reset before use.
type CRC struct {
	state uint16
}

// Reset restarts the accumulator at the initial value 0xFFFF.
func (crc *CRC) Reset() *CRC {
	crc.state = crc16.Init(table)
	return crc
}

// PushBytes feeds data into the accumulator.
func (crc *CRC) PushBytes(data []byte) *CRC {
	crc.state = crc16.Update(crc.state, data, table)
	return crc
}

// Value returns the checksum of all bytes pushed since the last Reset.
func (crc *CRC) Value() uint16 {
	return crc16.Complete(crc.state, table)
}

// Checksum returns the CRC-16/MODBUS of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, table)
}

// Append appends the checksum of frame to frame, low byte first.
func Append(frame []byte) []byte {
	sum := Checksum(frame)
	return append(frame, byte(sum), byte(sum>>8))
}

// Verify reports whether the trailing two bytes of frame hold the
// checksum of the bytes before them.
func Verify(frame []byte) bool {
	if len(frame) < Size {
		return false
	}
	n := len(frame) - Size
	want := uint16(frame[n]) | uint16(frame[n+1])<<8
	return Checksum(frame[:n]) == want
}
