// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package lrc implements the longitudinal redundancy check of Modbus ASCII frames.
package lrc

// LRC is a running LRC-8 accumulator. The zero value is ready to use.
type LRC struct {
	sum byte
}

func (lrc *LRC) Reset() *LRC {
	lrc.sum = 0
	return lrc
}

func (lrc *LRC) PushByte(b byte) *LRC {
	lrc.sum += b
	return lrc
}

func (lrc *LRC) PushBytes(data []byte) *LRC {
	for _, b := range data {
		lrc.sum += b
	}
	return lrc
}

// Value returns the two's complement of the 8-bit sum pushed so far.
func (lrc *LRC) Value() byte {
	return ^lrc.sum + 1
}

// Checksum returns the LRC of data.
func Checksum(data []byte) byte {
	var lrc LRC
	return lrc.PushBytes(data).Value()
}

// Verify reports whether data, whose last byte is the LRC, sums to zero.
func Verify(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum == 0
}
