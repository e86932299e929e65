// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "fmt"

// ExceptionCode is the outcome carried by a Response.
//
// ExceptionInvalid is the zero value and means the outcome is not known yet.
// ExceptionAcknowledge marks a normal (successful) response. Every other
// value is a Modbus exception reported by the slave.
type ExceptionCode byte

const (
	ExceptionInvalid ExceptionCode = 0x00

	ExceptionIllegalFunction              ExceptionCode = 0x01
	ExceptionIllegalDataAddress           ExceptionCode = 0x02
	ExceptionIllegalDataValue             ExceptionCode = 0x03
	ExceptionSlaveDeviceFailure           ExceptionCode = 0x04
	ExceptionAcknowledge                  ExceptionCode = 0x05
	ExceptionSlaveDeviceBusy              ExceptionCode = 0x06
	ExceptionNegativeAcknowledge          ExceptionCode = 0x07
	ExceptionMemoryParityError            ExceptionCode = 0x08
	ExceptionGatewayPathUnavailable       ExceptionCode = 0x0A
	ExceptionGatewayTargetFailedToRespond ExceptionCode = 0x0B
)

var exceptionStrings = map[ExceptionCode]string{
	ExceptionInvalid:                      "invalid exception code",
	ExceptionIllegalFunction:              "illegal function",
	ExceptionIllegalDataAddress:           "illegal data address",
	ExceptionIllegalDataValue:             "illegal data value",
	ExceptionSlaveDeviceFailure:           "slave device failure",
	ExceptionAcknowledge:                  "acknowledge",
	ExceptionSlaveDeviceBusy:              "slave device busy",
	ExceptionNegativeAcknowledge:          "negative acknowledge",
	ExceptionMemoryParityError:            "memory parity error",
	ExceptionGatewayPathUnavailable:       "gateway path unavailable",
	ExceptionGatewayTargetFailedToRespond: "gateway target device failed to respond",
}

// IsException reports whether ec is a real exception, i.e. neither
// ExceptionInvalid nor ExceptionAcknowledge.
func (ec ExceptionCode) IsException() bool {
	return ec != ExceptionInvalid && ec != ExceptionAcknowledge
}

func (ec ExceptionCode) String() string {
	if s, ok := exceptionStrings[ec]; ok {
		return s
	}
	return fmt.Sprintf("unknown exception 0x%02X", byte(ec))
}

// Error makes an exception usable as the error of a failed master operation.
func (ec ExceptionCode) Error() string {
	return "modbus: exception '" + ec.String() + "'"
}
