// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "errors"

// Framing and integrity errors.
var (
	ErrFrameTooShort = errors.New("modbus: frame too short")
	ErrBadCRC        = errors.New("modbus: crc mismatch")
	ErrBadLRC        = errors.New("modbus: lrc mismatch")
	ErrBadStart      = errors.New("modbus: missing start of frame")
	ErrBadEnd        = errors.New("modbus: missing end of frame")
	ErrBadHex        = errors.New("modbus: invalid hex encoding")
)

// Payload construction errors.
var (
	ErrLengthMismatch   = errors.New("modbus: value count does not match quantity")
	ErrTooManyValues    = errors.New("modbus: payload exceeds 255 bytes")
	ErrEmptyFileRecords = errors.New("modbus: no file records given")
	ErrBadReferenceType = errors.New("modbus: bad file record reference type")
)

// Protocol errors reported by masters and slaves.
var (
	ErrShortWrite        = errors.New("modbus: short write")
	ErrSlaveIDMismatch   = errors.New("modbus: response from unexpected slave")
	ErrFunctionMismatch  = errors.New("modbus: response for unexpected function")
	ErrEchoMismatch      = errors.New("modbus: echoed fields differ from request")
	ErrShortResponse     = errors.New("modbus: response payload too short")
	ErrOutOfRange        = errors.New("modbus: access outside float range")
	ErrBroadcastRejected = errors.New("modbus: function not allowed in broadcast")
	ErrNotAddressed      = errors.New("modbus: frame addressed to another slave")
)
