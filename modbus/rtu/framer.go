// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtu implements Modbus RTU framing: slave id, function code,
// body and a CRC-16 sent low byte first.
//
// Frame completeness is only decided with the direction known. There is no
// combined check guessing whether a buffer holds a request or a response:
// for most function codes the two have different layouts, and a partial
// buffer can match both by length alone.
package rtu

import (
	"fmt"

	"github.com/ffutop/modbus-serial/modbus"
	"github.com/ffutop/modbus-serial/modbus/crc"
)

type InvalidLengthError struct {
	Length int
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("invalid length received: %d", e.Length)
}

// incompleteHeaderError reports that more bytes are needed before the
// frame length is known.
type incompleteHeaderError struct {
	funcCode byte
	need     int
	got      int
}

func (e *incompleteHeaderError) Error() string {
	return fmt.Sprintf("need %d bytes to determine length for 0x%02X, got %d", e.need, e.funcCode, e.got)
}

// CalculateRequestLength returns the total length of the request RTU ADU
// whose first bytes are in header. Unknown function codes get MinSize.
func CalculateRequestLength(header []byte) (int, error) {
	if len(header) < headerSize {
		return 0, &incompleteHeaderError{need: headerSize, got: len(header)}
	}
	funcCode := header[1]
	need := func(n int) error {
		if len(header) < n {
			return &incompleteHeaderError{funcCode: funcCode, need: n, got: len(header)}
		}
		return nil
	}

	switch modbus.FunctionCode(funcCode) {
	case modbus.FuncCodeReadCoils,
		modbus.FuncCodeReadDiscreteInputs,
		modbus.FuncCodeReadHoldingRegisters,
		modbus.FuncCodeReadInputRegisters,
		modbus.FuncCodeWriteSingleCoil,
		modbus.FuncCodeWriteSingleRegister:
		// [SlaveID, Func, Addr(2), Val(2), CRC(2)]
		return readRequestSize, nil
	case modbus.FuncCodeReadExceptionStatus,
		modbus.FuncCodeGetCommEventCounter,
		modbus.FuncCodeGetCommEventLog,
		modbus.FuncCodeReportSlaveID:
		return MinSize, nil
	case modbus.FuncCodeDiagnostics:
		return diagnosticsSize, nil
	case modbus.FuncCodeWriteMultipleCoils,
		modbus.FuncCodeWriteMultipleRegisters:
		// [SlaveID, Func, Addr(2), Quant(2), ByteCount(1), Data(N), CRC(2)]
		if err := need(7); err != nil {
			return 0, err
		}
		return 7 + int(header[6]) + crcSize, nil
	case modbus.FuncCodeReadFileRecord,
		modbus.FuncCodeWriteFileRecord:
		// [SlaveID, Func, ByteCount(1), Data(N), CRC(2)]
		if err := need(3); err != nil {
			return 0, err
		}
		return 3 + int(header[2]) + crcSize, nil
	case modbus.FuncCodeMaskWriteRegister:
		return maskWriteRequestSize, nil
	case modbus.FuncCodeReadWriteMultipleRegisters:
		// [SlaveID, Func, ReadAddr(2), ReadQuant(2), WriteAddr(2), WriteQuant(2), ByteCount(1), Data(N), CRC(2)]
		if err := need(11); err != nil {
			return 0, err
		}
		return 11 + int(header[10]) + crcSize, nil
	case modbus.FuncCodeReadFIFOQueue:
		return fifoRequestSize, nil
	default:
		return MinSize, nil
	}
}

// CalculateResponseLength returns the total length of the response RTU ADU
// whose first bytes are in header.
func CalculateResponseLength(header []byte, order modbus.ByteOrder) (int, error) {
	if len(header) < headerSize {
		return 0, &incompleteHeaderError{need: headerSize, got: len(header)}
	}
	funcCode := header[1]
	if funcCode&modbus.ExceptionBit != 0 {
		return ExceptionSize, nil
	}
	need := func(n int) error {
		if len(header) < n {
			return &incompleteHeaderError{funcCode: funcCode, need: n, got: len(header)}
		}
		return nil
	}

	switch modbus.FunctionCode(funcCode) {
	case modbus.FuncCodeReadCoils,
		modbus.FuncCodeReadDiscreteInputs,
		modbus.FuncCodeReadHoldingRegisters,
		modbus.FuncCodeReadInputRegisters,
		modbus.FuncCodeGetCommEventLog,
		modbus.FuncCodeReportSlaveID,
		modbus.FuncCodeReadFileRecord,
		modbus.FuncCodeWriteFileRecord,
		modbus.FuncCodeReadWriteMultipleRegisters:
		// [SlaveID, Func, ByteCount(1), Data(N), CRC(2)]
		if err := need(3); err != nil {
			return 0, err
		}
		return 3 + int(header[2]) + crcSize, nil
	case modbus.FuncCodeWriteSingleCoil,
		modbus.FuncCodeWriteSingleRegister,
		modbus.FuncCodeWriteMultipleCoils,
		modbus.FuncCodeWriteMultipleRegisters,
		modbus.FuncCodeDiagnostics,
		modbus.FuncCodeGetCommEventCounter:
		return echoResponseSize, nil
	case modbus.FuncCodeMaskWriteRegister:
		return maskWriteResponseSize, nil
	case modbus.FuncCodeReadExceptionStatus:
		return exceptionStatusResponseSize, nil
	case modbus.FuncCodeReadFIFOQueue:
		// [SlaveID, Func, ByteCount(2), FIFOCount(2), Values(N), CRC(2)]
		if err := need(4); err != nil {
			return 0, err
		}
		n := 4 + int(modbus.DecodeUint16(header[2], header[3], order)) + crcSize
		if n > MaxSize {
			return 0, &InvalidLengthError{Length: n}
		}
		return n, nil
	default:
		return MinSize, nil
	}
}

// IsRequestFrameComplete reports whether buf holds at least one whole request frame.
func IsRequestFrameComplete(buf []byte) bool {
	n, err := CalculateRequestLength(buf)
	return err == nil && len(buf) >= n
}

// IsResponseFrameComplete reports whether buf holds at least one whole response frame.
func IsResponseFrameComplete(buf []byte, order modbus.ByteOrder) bool {
	n, err := CalculateResponseLength(buf, order)
	return err == nil && len(buf) >= n
}

// Framer is the RTU implementation of modbus.Framer.
type Framer struct {
	format modbus.WireFormat
}

var _ modbus.Framer = (*Framer)(nil)

func NewFramer(format modbus.WireFormat) *Framer {
	return &Framer{format: format.Clone()}
}

func (f *Framer) Format() modbus.WireFormat { return f.format.Clone() }

func (f *Framer) EncodeRequest(req *modbus.Request) []byte {
	return crc.Append(modbus.EncodeRequestPDU(req))
}

func (f *Framer) EncodeResponse(resp *modbus.Response) []byte {
	return crc.Append(modbus.EncodeResponsePDU(resp))
}

func (f *Framer) DecodeRequest(frame []byte) (*modbus.Request, error) {
	pdu, err := f.verify(frame)
	if err != nil {
		return nil, err
	}
	return modbus.DecodeRequestPDU(pdu, f.format.ByteOrder)
}

func (f *Framer) DecodeResponse(frame []byte) (*modbus.Response, error) {
	pdu, err := f.verify(frame)
	if err != nil {
		return nil, err
	}
	return modbus.DecodeResponsePDU(pdu, f.format.ByteOrder)
}

func (f *Framer) verify(frame []byte) ([]byte, error) {
	if len(frame) < MinSize {
		return nil, modbus.ErrFrameTooShort
	}
	if !crc.Verify(frame) {
		return nil, modbus.ErrBadCRC
	}
	return frame[:len(frame)-crcSize], nil
}

func (f *Framer) RequestFrame(buf []byte) ([]byte, bool) {
	n, err := CalculateRequestLength(buf)
	if err != nil || len(buf) < n {
		return nil, false
	}
	return buf[:n], true
}

func (f *Framer) ResponseFrame(buf []byte) ([]byte, bool) {
	n, err := CalculateResponseLength(buf, f.format.ByteOrder)
	if err != nil || len(buf) < n {
		return nil, false
	}
	return buf[:n], true
}
