// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "fmt"

// Request is a Modbus request PDU addressed to one slave.
//
// The body is set either raw with SetData or with one of the structured
// setters. A structured setter only accepts the function code it was written
// for; calling it on any other request is a programming error and panics.
// Use Builder to get requests whose setter cannot mismatch.
type Request struct {
	SlaveID  byte
	Function FunctionCode
	// Order is the register byte order every setter and accessor uses.
	Order ByteOrder

	data    []byte
	payload Payload
}

func NewRequest(slaveID byte, fc FunctionCode, order ByteOrder) *Request {
	return &Request{SlaveID: slaveID, Function: fc, Order: order, payload: Raw(nil)}
}

// Data returns the encoded body, without slave id, function code or checksum.
func (r *Request) Data() []byte { return r.data }

// Payload returns the typed view of the body.
func (r *Request) Payload() Payload {
	if r.payload == nil {
		return Raw(r.data)
	}
	return r.payload
}

// SetData replaces the body with raw bytes and re-derives the typed view.
func (r *Request) SetData(data []byte) {
	r.data = data
	r.payload = parseRequestPayload(r.Function, data, r.Order)
}

// AddressSpan returns the first two words of the body as a span for the
// function codes whose body starts with an address. It reports false for
// other codes and for bodies shorter than four bytes.
func (r *Request) AddressSpan() (AddressSpan, bool) {
	if !r.Function.bearsAddressSpan() || len(r.data) < 4 {
		return AddressSpan{}, false
	}
	return AddressSpan{
		Start: DecodeUint16(r.data[0], r.data[1], r.Order),
		Count: DecodeUint16(r.data[2], r.data[3], r.Order),
	}, true
}

func (r *Request) String() string {
	return fmt.Sprintf("slave=%d function=%s data=% X", r.SlaveID, r.Function, r.data)
}

func (r *Request) mustBe(setter string, fcs ...FunctionCode) {
	for _, fc := range fcs {
		if r.Function == fc {
			return
		}
	}
	panic(fmt.Sprintf("modbus: %s called for function %s", setter, r.Function))
}

func (r *Request) set(data []byte, p Payload) {
	r.data = data
	r.payload = p
}

func (r *Request) words(values ...uint16) []byte {
	return EncodeRegisters(values, r.Order)
}

// SetAddressSpan sets the body of a read request.
func (r *Request) SetAddressSpan(span AddressSpan) {
	r.mustBe("SetAddressSpan",
		FuncCodeReadCoils, FuncCodeReadDiscreteInputs,
		FuncCodeReadHoldingRegisters, FuncCodeReadInputRegisters)
	r.set(r.words(span.Start, span.Count), span)
}

func (r *Request) SetWriteSingleRegister(address, value uint16) {
	r.mustBe("SetWriteSingleRegister", FuncCodeWriteSingleRegister)
	r.set(r.words(address, value), SingleRegister{Address: address, Value: value})
}

// SetWriteSingleCoil encodes on as 0xFF00 and off as 0x0000.
func (r *Request) SetWriteSingleCoil(address uint16, on bool) {
	r.mustBe("SetWriteSingleCoil", FuncCodeWriteSingleCoil)
	v := coilOff
	if on {
		v = coilOn
	}
	r.set(r.words(address, v), SingleCoil{Address: address, On: on})
}

func (r *Request) SetWriteMultipleRegisters(start, count uint16, values []uint16) error {
	r.mustBe("SetWriteMultipleRegisters", FuncCodeWriteMultipleRegisters)
	if len(values) != int(count) {
		return ErrLengthMismatch
	}
	if 2*len(values) > 0xFF {
		return ErrTooManyValues
	}
	data := r.words(start, count)
	data = append(data, byte(2*len(values)))
	data = append(data, EncodeRegisters(values, r.Order)...)
	r.set(data, MultipleRegisters{
		Span:   AddressSpan{Start: start, Count: count},
		Values: append([]uint16(nil), values...),
	})
	return nil
}

// SetWriteMultipleCoils packs values eight per byte, first coil in the
// least significant bit, zero padding the last byte.
func (r *Request) SetWriteMultipleCoils(start, count uint16, values []bool) error {
	r.mustBe("SetWriteMultipleCoils", FuncCodeWriteMultipleCoils)
	if len(values) != int(count) {
		return ErrLengthMismatch
	}
	packed := PackBits(values)
	if len(packed) > 0xFF {
		return ErrTooManyValues
	}
	data := r.words(start, count)
	data = append(data, byte(len(packed)))
	data = append(data, packed...)
	r.set(data, MultipleCoils{
		Span:   AddressSpan{Start: start, Count: count},
		Values: append([]bool(nil), values...),
	})
	return nil
}

func (r *Request) SetDiagnostics(subFunction uint16, data []byte) {
	r.mustBe("SetDiagnostics", FuncCodeDiagnostics)
	body := append(r.words(subFunction), data...)
	r.set(body, Diagnostic{SubFunction: subFunction, Data: append([]byte(nil), data...)})
}

func (r *Request) SetMaskWrite(address, andMask, orMask uint16) {
	r.mustBe("SetMaskWrite", FuncCodeMaskWriteRegister)
	r.set(r.words(address, andMask, orMask), MaskWrite{Address: address, AndMask: andMask, OrMask: orMask})
}

func (r *Request) SetReadWriteMultiple(read AddressSpan, writeStart, writeCount uint16, values []uint16) error {
	r.mustBe("SetReadWriteMultiple", FuncCodeReadWriteMultipleRegisters)
	if len(values) != int(writeCount) {
		return ErrLengthMismatch
	}
	if 2*len(values) > 0xFF {
		return ErrTooManyValues
	}
	data := r.words(read.Start, read.Count, writeStart, writeCount)
	data = append(data, byte(2*len(values)))
	data = append(data, EncodeRegisters(values, r.Order)...)
	r.set(data, ReadWriteMultiple{
		Read:   read,
		Write:  AddressSpan{Start: writeStart, Count: writeCount},
		Values: append([]uint16(nil), values...),
	})
	return nil
}

func (r *Request) SetReadFIFO(address uint16) {
	r.mustBe("SetReadFIFO", FuncCodeReadFIFOQueue)
	r.set(r.words(address), FIFOAddress(address))
}

// SetReadFileRecords encodes one seven byte sub-request per entry after a
// byte count, which must not exceed 255.
func (r *Request) SetReadFileRecords(reads []FileRecordRead) error {
	r.mustBe("SetReadFileRecords", FuncCodeReadFileRecord)
	if len(reads) == 0 {
		return ErrEmptyFileRecords
	}
	body := make([]byte, 1, 1+7*len(reads))
	for _, rd := range reads {
		body = append(body, FileRecordRefType)
		body = append(body, r.words(rd.File, rd.Record, rd.Length)...)
	}
	if len(body)-1 > 0xFF {
		return ErrTooManyValues
	}
	body[0] = byte(len(body) - 1)
	r.set(body, FileRecordReads(append([]FileRecordRead(nil), reads...)))
	return nil
}

// SetWriteFileRecords encodes each record as reference type, file, record,
// length and data after a byte count, which must not exceed 255.
func (r *Request) SetWriteFileRecords(writes []FileRecordWrite) error {
	r.mustBe("SetWriteFileRecords", FuncCodeWriteFileRecord)
	if len(writes) == 0 {
		return ErrEmptyFileRecords
	}
	body := make([]byte, 1)
	for _, w := range writes {
		body = append(body, FileRecordRefType)
		body = append(body, r.words(w.File, w.Record, uint16(len(w.Data)))...)
		body = append(body, EncodeRegisters(w.Data, r.Order)...)
		if len(body)-1 > 0xFF {
			return ErrTooManyValues
		}
	}
	body[0] = byte(len(body) - 1)
	copied := make(FileRecordWrites, len(writes))
	for i, w := range writes {
		copied[i] = FileRecordWrite{FileRecordRef: w.FileRecordRef, Data: append([]uint16(nil), w.Data...)}
	}
	r.set(body, copied)
	return nil
}
