// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

// Payload is the typed view of a request or response body. The concrete
// types below are the only implementations.
type Payload interface {
	isPayload()
}

// Raw is a body this package does not interpret.
type Raw []byte

// AddressSpan is a start address and a quantity of coils or registers.
type AddressSpan struct {
	Start uint16
	Count uint16
}

type SingleRegister struct {
	Address uint16
	Value   uint16
}

type SingleCoil struct {
	Address uint16
	On      bool
}

type MultipleRegisters struct {
	Span   AddressSpan
	Values []uint16
}

type MultipleCoils struct {
	Span   AddressSpan
	Values []bool
}

type Diagnostic struct {
	SubFunction uint16
	Data        []byte
}

type MaskWrite struct {
	Address uint16
	AndMask uint16
	OrMask  uint16
}

type ReadWriteMultiple struct {
	Read   AddressSpan
	Write  AddressSpan
	Values []uint16
}

type FIFOAddress uint16

// FileRecordRef is a (file, record) pair addressing one file record.
type FileRecordRef struct {
	File   uint16
	Record uint16
}

// FileRecordRead asks for Length registers starting at a record.
type FileRecordRead struct {
	FileRecordRef
	Length uint16
}

type FileRecordReads []FileRecordRead

type FileRecordWrite struct {
	FileRecordRef
	Data []uint16
}

type FileRecordWrites []FileRecordWrite

func (Raw) isPayload()               {}
func (AddressSpan) isPayload()       {}
func (SingleRegister) isPayload()    {}
func (SingleCoil) isPayload()        {}
func (MultipleRegisters) isPayload() {}
func (MultipleCoils) isPayload()     {}
func (Diagnostic) isPayload()        {}
func (MaskWrite) isPayload()         {}
func (ReadWriteMultiple) isPayload() {}
func (FIFOAddress) isPayload()       {}
func (FileRecordReads) isPayload()   {}
func (FileRecordWrites) isPayload()  {}

// FileRecordRefType is the reference type every file sub-request carries.
const FileRecordRefType byte = 0x06

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// parseRequestPayload builds the typed view of a request body. Bodies that
// do not match the layout of their function code stay Raw. Fixed layouts
// ignore trailing bytes, as AddressSpan does.
func parseRequestPayload(fc FunctionCode, data []byte, order ByteOrder) Payload {
	u16 := func(i int) uint16 { return DecodeUint16(data[i], data[i+1], order) }

	switch fc {
	case FuncCodeReadCoils, FuncCodeReadDiscreteInputs,
		FuncCodeReadHoldingRegisters, FuncCodeReadInputRegisters:
		if len(data) >= 4 {
			return AddressSpan{Start: u16(0), Count: u16(2)}
		}
	case FuncCodeWriteSingleCoil:
		if len(data) >= 4 {
			switch u16(2) {
			case coilOn:
				return SingleCoil{Address: u16(0), On: true}
			case coilOff:
				return SingleCoil{Address: u16(0), On: false}
			}
		}
	case FuncCodeWriteSingleRegister:
		if len(data) >= 4 {
			return SingleRegister{Address: u16(0), Value: u16(2)}
		}
	case FuncCodeDiagnostics:
		if len(data) >= 2 {
			return Diagnostic{SubFunction: u16(0), Data: append([]byte(nil), data[2:]...)}
		}
	case FuncCodeWriteMultipleCoils:
		if len(data) >= 5 {
			span := AddressSpan{Start: u16(0), Count: u16(2)}
			bc := int(data[4])
			if len(data) == 5+bc && bc == (int(span.Count)+7)/8 {
				return MultipleCoils{Span: span, Values: UnpackBits(data[5:], int(span.Count))}
			}
		}
	case FuncCodeWriteMultipleRegisters:
		if len(data) >= 5 {
			span := AddressSpan{Start: u16(0), Count: u16(2)}
			bc := int(data[4])
			if len(data) == 5+bc && bc == 2*int(span.Count) {
				return MultipleRegisters{Span: span, Values: DecodeRegisters(data[5:], order)}
			}
		}
	case FuncCodeReadFileRecord:
		if reads, ok := parseFileRecordReads(data, order); ok {
			return reads
		}
	case FuncCodeWriteFileRecord:
		if writes, ok := parseFileRecordWrites(data, order); ok {
			return writes
		}
	case FuncCodeMaskWriteRegister:
		if len(data) == 6 {
			return MaskWrite{Address: u16(0), AndMask: u16(2), OrMask: u16(4)}
		}
	case FuncCodeReadWriteMultipleRegisters:
		if len(data) >= 9 {
			rw := ReadWriteMultiple{
				Read:  AddressSpan{Start: u16(0), Count: u16(2)},
				Write: AddressSpan{Start: u16(4), Count: u16(6)},
			}
			bc := int(data[8])
			if len(data) == 9+bc && bc == 2*int(rw.Write.Count) {
				rw.Values = DecodeRegisters(data[9:], order)
				return rw
			}
		}
	case FuncCodeReadFIFOQueue:
		if len(data) == 2 {
			return FIFOAddress(u16(0))
		}
	}
	return Raw(data)
}

// parseResponsePayload types the echo responses; everything else stays Raw.
func parseResponsePayload(fc FunctionCode, data []byte, order ByteOrder) Payload {
	switch fc {
	case FuncCodeWriteSingleCoil:
		if len(data) == 4 {
			return SingleCoil{
				Address: DecodeUint16(data[0], data[1], order),
				On:      DecodeUint16(data[2], data[3], order) == coilOn,
			}
		}
	case FuncCodeWriteSingleRegister:
		if len(data) == 4 {
			return SingleRegister{
				Address: DecodeUint16(data[0], data[1], order),
				Value:   DecodeUint16(data[2], data[3], order),
			}
		}
	case FuncCodeWriteMultipleCoils, FuncCodeWriteMultipleRegisters:
		if len(data) == 4 {
			return AddressSpan{
				Start: DecodeUint16(data[0], data[1], order),
				Count: DecodeUint16(data[2], data[3], order),
			}
		}
	case FuncCodeMaskWriteRegister:
		if len(data) == 6 {
			return MaskWrite{
				Address: DecodeUint16(data[0], data[1], order),
				AndMask: DecodeUint16(data[2], data[3], order),
				OrMask:  DecodeUint16(data[4], data[5], order),
			}
		}
	}
	return Raw(data)
}

func parseFileRecordReads(data []byte, order ByteOrder) (FileRecordReads, bool) {
	if len(data) < 1 {
		return nil, false
	}
	bc := int(data[0])
	if bc == 0 || bc%7 != 0 || len(data) != 1+bc {
		return nil, false
	}
	var reads FileRecordReads
	for p := data[1:]; len(p) > 0; p = p[7:] {
		if p[0] != FileRecordRefType {
			return nil, false
		}
		reads = append(reads, FileRecordRead{
			FileRecordRef: FileRecordRef{
				File:   DecodeUint16(p[1], p[2], order),
				Record: DecodeUint16(p[3], p[4], order),
			},
			Length: DecodeUint16(p[5], p[6], order),
		})
	}
	return reads, true
}

func parseFileRecordWrites(data []byte, order ByteOrder) (FileRecordWrites, bool) {
	if len(data) < 1 {
		return nil, false
	}
	bc := int(data[0])
	if bc == 0 || len(data) != 1+bc {
		return nil, false
	}
	var writes FileRecordWrites
	for p := data[1:]; len(p) > 0; {
		if len(p) < 7 || p[0] != FileRecordRefType {
			return nil, false
		}
		n := int(DecodeUint16(p[5], p[6], order))
		if len(p) < 7+2*n {
			return nil, false
		}
		writes = append(writes, FileRecordWrite{
			FileRecordRef: FileRecordRef{
				File:   DecodeUint16(p[1], p[2], order),
				Record: DecodeUint16(p[3], p[4], order),
			},
			Data: DecodeRegisters(p[7:7+2*n], order),
		})
		p = p[7+2*n:]
	}
	return writes, true
}
