// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "fmt"

// FunctionCode is a Modbus function code as carried in the second byte of a serial frame.
type FunctionCode byte

// Function Codes
const (
	FuncCodeInvalid FunctionCode = 0x00

	FuncCodeReadCoils            FunctionCode = 0x01
	FuncCodeReadDiscreteInputs   FunctionCode = 0x02
	FuncCodeReadHoldingRegisters FunctionCode = 0x03
	FuncCodeReadInputRegisters   FunctionCode = 0x04

	FuncCodeWriteSingleCoil     FunctionCode = 0x05
	FuncCodeWriteSingleRegister FunctionCode = 0x06

	FuncCodeReadExceptionStatus FunctionCode = 0x07
	FuncCodeDiagnostics         FunctionCode = 0x08
	FuncCodeGetCommEventCounter FunctionCode = 0x0B
	FuncCodeGetCommEventLog     FunctionCode = 0x0C

	FuncCodeWriteMultipleCoils     FunctionCode = 0x0F
	FuncCodeWriteMultipleRegisters FunctionCode = 0x10
	FuncCodeReportSlaveID          FunctionCode = 0x11

	FuncCodeReadFileRecord  FunctionCode = 0x14
	FuncCodeWriteFileRecord FunctionCode = 0x15

	FuncCodeMaskWriteRegister          FunctionCode = 0x16
	FuncCodeReadWriteMultipleRegisters FunctionCode = 0x17
	FuncCodeReadFIFOQueue              FunctionCode = 0x18
)

// ExceptionBit is set in the function code of an exception response.
const ExceptionBit byte = 0x80

var functionNames = map[FunctionCode]string{
	FuncCodeReadCoils:                  "ReadCoils",
	FuncCodeReadDiscreteInputs:         "ReadDiscreteInputs",
	FuncCodeReadHoldingRegisters:       "ReadHoldingRegisters",
	FuncCodeReadInputRegisters:         "ReadInputRegisters",
	FuncCodeWriteSingleCoil:            "WriteSingleCoil",
	FuncCodeWriteSingleRegister:        "WriteSingleRegister",
	FuncCodeReadExceptionStatus:        "ReadExceptionStatus",
	FuncCodeDiagnostics:                "Diagnostics",
	FuncCodeGetCommEventCounter:        "GetCommEventCounter",
	FuncCodeGetCommEventLog:            "GetCommEventLog",
	FuncCodeWriteMultipleCoils:         "WriteMultipleCoils",
	FuncCodeWriteMultipleRegisters:     "WriteMultipleRegisters",
	FuncCodeReportSlaveID:              "ReportSlaveID",
	FuncCodeReadFileRecord:             "ReadFileRecord",
	FuncCodeWriteFileRecord:            "WriteFileRecord",
	FuncCodeMaskWriteRegister:          "MaskWriteRegister",
	FuncCodeReadWriteMultipleRegisters: "ReadWriteMultipleRegisters",
	FuncCodeReadFIFOQueue:              "ReadFIFOQueue",
}

// SupportedFunctionCodes lists every function code this package can build and parse.
func SupportedFunctionCodes() []FunctionCode {
	return []FunctionCode{
		FuncCodeReadCoils, FuncCodeReadDiscreteInputs,
		FuncCodeReadHoldingRegisters, FuncCodeReadInputRegisters,
		FuncCodeWriteSingleCoil, FuncCodeWriteSingleRegister,
		FuncCodeReadExceptionStatus, FuncCodeDiagnostics,
		FuncCodeGetCommEventCounter, FuncCodeGetCommEventLog,
		FuncCodeWriteMultipleCoils, FuncCodeWriteMultipleRegisters,
		FuncCodeReportSlaveID, FuncCodeReadFileRecord, FuncCodeWriteFileRecord,
		FuncCodeMaskWriteRegister, FuncCodeReadWriteMultipleRegisters,
		FuncCodeReadFIFOQueue,
	}
}

// ParseFunctionCode maps a wire byte to a supported function code,
// or FuncCodeInvalid.
func ParseFunctionCode(b byte) FunctionCode {
	fc := FunctionCode(b &^ ExceptionBit)
	if !fc.IsSupported() {
		return FuncCodeInvalid
	}
	return fc
}

func (fc FunctionCode) IsSupported() bool {
	_, ok := functionNames[fc]
	return ok
}

// IsBroadcastable reports whether a request with this code may be sent to slave 0.
func (fc FunctionCode) IsBroadcastable() bool {
	switch fc {
	case FuncCodeWriteSingleCoil,
		FuncCodeWriteSingleRegister,
		FuncCodeWriteMultipleCoils,
		FuncCodeWriteMultipleRegisters:
		return true
	}
	return false
}

// bearsAddressSpan reports whether the first four request bytes are an address followed by a count or value.
func (fc FunctionCode) bearsAddressSpan() bool {
	switch fc {
	case FuncCodeReadCoils,
		FuncCodeReadDiscreteInputs,
		FuncCodeReadHoldingRegisters,
		FuncCodeReadInputRegisters,
		FuncCodeWriteSingleCoil,
		FuncCodeWriteSingleRegister,
		FuncCodeWriteMultipleCoils,
		FuncCodeWriteMultipleRegisters,
		FuncCodeMaskWriteRegister,
		FuncCodeReadWriteMultipleRegisters:
		return true
	}
	return false
}

func (fc FunctionCode) String() string {
	if name, ok := functionNames[fc]; ok {
		return name
	}
	return fmt.Sprintf("FunctionCode(0x%02X)", byte(fc))
}
