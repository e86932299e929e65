// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package crc

import (
	"bytes"
	"testing"
)

func TestCRC(t *testing.T) {
	var crc CRC
	crc.Reset()
	crc.PushBytes([]byte{0x02, 0x07})

	if crc.Value() != 0x1241 {
		t.Fatalf("crc expected %v, actual %v", 0x1241, crc.Value())
	}
}

func TestCRCStreaming(t *testing.T) {
	data := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	var crc CRC
	crc.Reset().PushBytes(data[:2]).PushBytes(data[2:])
	if crc.Value() != Checksum(data) {
		t.Fatalf("streaming %04X != one-shot %04X", crc.Value(), Checksum(data))
	}
}

func TestChecksumReadHoldingRegisters(t *testing.T) {
	data := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	// Tables quoting 0xC5CD list the wire bytes C5 CD, low byte first.
	if got := Checksum(data); got != 0xCDC5 {
		t.Fatalf("Checksum = 0x%04X, want 0xCDC5", got)
	}
	frame := Append(append([]byte(nil), data...))
	want := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A, 0xC5, 0xCD}
	if !bytes.Equal(frame, want) {
		t.Fatalf("Append = % X, want % X", frame, want)
	}
	if !Verify(frame) {
		t.Fatal("Verify returned false for a valid frame")
	}
}

func TestVerifyDetectsSingleBitFlips(t *testing.T) {
	frame := Append([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A})
	for i := range frame {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), frame...)
			corrupt[i] ^= 1 << bit
			if Verify(corrupt) {
				t.Fatalf("Verify accepted frame with byte %d bit %d flipped", i, bit)
			}
		}
	}
}

func TestVerifyShortInput(t *testing.T) {
	if Verify(nil) {
		t.Error("Verify(nil) = true")
	}
	if Verify([]byte{0xFF}) {
		t.Error("Verify(1 byte) = true")
	}
}
