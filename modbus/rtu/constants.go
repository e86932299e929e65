// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	MinSize = 4
	MaxSize = 256

	ExceptionSize = 5

	// headerSize is slave id plus function code.
	headerSize = 2
	crcSize    = 2
)

// Fixed request sizes, checksum included.
const (
	readRequestSize      = 8  // address, quantity
	diagnosticsSize      = 8  // sub-function, data word
	maskWriteRequestSize = 10 // address, and mask, or mask
	fifoRequestSize      = 6  // FIFO pointer address
)

// Fixed response sizes, checksum included.
const (
	echoResponseSize            = 8 // echoed address and value or quantity
	exceptionStatusResponseSize = 5
	maskWriteResponseSize       = 10
)
