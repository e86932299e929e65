// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

// Builder constructs requests with one method per function code, so the
// body always matches its function code.
type Builder struct {
	Order ByteOrder
}

func (b Builder) request(slaveID byte, fc FunctionCode) *Request {
	return NewRequest(slaveID, fc, b.Order)
}

func (b Builder) read(slaveID byte, fc FunctionCode, start, count uint16) *Request {
	req := b.request(slaveID, fc)
	req.SetAddressSpan(AddressSpan{Start: start, Count: count})
	return req
}

func (b Builder) ReadCoils(slaveID byte, start, count uint16) *Request {
	return b.read(slaveID, FuncCodeReadCoils, start, count)
}

func (b Builder) ReadDiscreteInputs(slaveID byte, start, count uint16) *Request {
	return b.read(slaveID, FuncCodeReadDiscreteInputs, start, count)
}

func (b Builder) ReadHoldingRegisters(slaveID byte, start, count uint16) *Request {
	return b.read(slaveID, FuncCodeReadHoldingRegisters, start, count)
}

func (b Builder) ReadInputRegisters(slaveID byte, start, count uint16) *Request {
	return b.read(slaveID, FuncCodeReadInputRegisters, start, count)
}

func (b Builder) WriteSingleCoil(slaveID byte, address uint16, on bool) *Request {
	req := b.request(slaveID, FuncCodeWriteSingleCoil)
	req.SetWriteSingleCoil(address, on)
	return req
}

func (b Builder) WriteSingleRegister(slaveID byte, address, value uint16) *Request {
	req := b.request(slaveID, FuncCodeWriteSingleRegister)
	req.SetWriteSingleRegister(address, value)
	return req
}

func (b Builder) ReadExceptionStatus(slaveID byte) *Request {
	return b.request(slaveID, FuncCodeReadExceptionStatus)
}

func (b Builder) Diagnostics(slaveID byte, subFunction uint16, data []byte) *Request {
	req := b.request(slaveID, FuncCodeDiagnostics)
	req.SetDiagnostics(subFunction, data)
	return req
}

func (b Builder) GetCommEventCounter(slaveID byte) *Request {
	return b.request(slaveID, FuncCodeGetCommEventCounter)
}

func (b Builder) GetCommEventLog(slaveID byte) *Request {
	return b.request(slaveID, FuncCodeGetCommEventLog)
}

// WriteMultipleCoils takes its quantity from len(values).
func (b Builder) WriteMultipleCoils(slaveID byte, start uint16, values []bool) (*Request, error) {
	req := b.request(slaveID, FuncCodeWriteMultipleCoils)
	if err := req.SetWriteMultipleCoils(start, uint16(len(values)), values); err != nil {
		return nil, err
	}
	return req, nil
}

// WriteMultipleRegisters takes its quantity from len(values).
func (b Builder) WriteMultipleRegisters(slaveID byte, start uint16, values []uint16) (*Request, error) {
	req := b.request(slaveID, FuncCodeWriteMultipleRegisters)
	if err := req.SetWriteMultipleRegisters(start, uint16(len(values)), values); err != nil {
		return nil, err
	}
	return req, nil
}

func (b Builder) ReportSlaveID(slaveID byte) *Request {
	return b.request(slaveID, FuncCodeReportSlaveID)
}

func (b Builder) ReadFileRecord(slaveID byte, reads []FileRecordRead) (*Request, error) {
	req := b.request(slaveID, FuncCodeReadFileRecord)
	if err := req.SetReadFileRecords(reads); err != nil {
		return nil, err
	}
	return req, nil
}

func (b Builder) WriteFileRecord(slaveID byte, writes []FileRecordWrite) (*Request, error) {
	req := b.request(slaveID, FuncCodeWriteFileRecord)
	if err := req.SetWriteFileRecords(writes); err != nil {
		return nil, err
	}
	return req, nil
}

func (b Builder) MaskWriteRegister(slaveID byte, address, andMask, orMask uint16) *Request {
	req := b.request(slaveID, FuncCodeMaskWriteRegister)
	req.SetMaskWrite(address, andMask, orMask)
	return req
}

func (b Builder) ReadWriteMultipleRegisters(slaveID byte, read AddressSpan, writeStart uint16, values []uint16) (*Request, error) {
	req := b.request(slaveID, FuncCodeReadWriteMultipleRegisters)
	if err := req.SetReadWriteMultiple(read, writeStart, uint16(len(values)), values); err != nil {
		return nil, err
	}
	return req, nil
}

func (b Builder) ReadFIFOQueue(slaveID byte, address uint16) *Request {
	req := b.request(slaveID, FuncCodeReadFIFOQueue)
	req.SetReadFIFO(address)
	return req
}
