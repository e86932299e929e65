// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package localslave

import (
	"errors"

	"github.com/ffutop/modbus-serial/internal/local-slave/model"
	"github.com/ffutop/modbus-serial/modbus"
)

// Diagnostic sub-functions
const (
	DiagReturnQueryData          uint16 = 0x0000
	DiagReturnDiagnosticRegister uint16 = 0x0002
	DiagClearCounters            uint16 = 0x000A
	DiagBusMessageCount          uint16 = 0x000B
	DiagBusCommErrorCount        uint16 = 0x000C
	DiagBusExceptionErrorCount   uint16 = 0x000D
	DiagSlaveMessageCount        uint16 = 0x000E
)

// Comm event log entries
const (
	eventReceive         byte = 0x80
	eventSend            byte = 0x40
	eventSendReadExcept  byte = 0x01
	eventSendSlaveAbort  byte = 0x02
	runIndicatorOn       byte = 0xFF
	commStatusNotBusy         = 0x0000
	maxReadBits               = 2000
	maxWriteBits              = 1968
	maxReadRegisters          = 125
	maxWriteRegisters         = 123
	maxReadWriteRegisters     = 121
)

// LocalSlave implements the Modbus protocol logic on top of a DataModel.
type LocalSlave struct {
	model    *model.DataModel
	id       byte
	identity []byte
}

// NewLocalSlave creates a new LocalSlave. id and identity are what
// ReportSlaveID answers with.
func NewLocalSlave(m *model.DataModel, id byte, identity string) *LocalSlave {
	return &LocalSlave{model: m, id: id, identity: []byte(identity)}
}

func (s *LocalSlave) Model() *model.DataModel { return s.model }

// Process executes the Modbus Function Code against the memory model.
// Protocol failures are answered with exception responses, never errors.
func (s *LocalSlave) Process(req *modbus.Request) (*modbus.Response, error) {
	resp := s.dispatch(req)
	s.count(req, resp)
	return resp, nil
}

func (s *LocalSlave) dispatch(req *modbus.Request) *modbus.Response {
	switch req.Function {
	case modbus.FuncCodeReadCoils:
		return s.handleReadBits(req, s.model.ReadCoils)
	case modbus.FuncCodeReadDiscreteInputs:
		return s.handleReadBits(req, s.model.ReadDiscreteInputs)
	case modbus.FuncCodeReadHoldingRegisters:
		return s.handleReadRegisters(req, s.model.ReadHoldingRegisters)
	case modbus.FuncCodeReadInputRegisters:
		return s.handleReadRegisters(req, s.model.ReadInputRegisters)
	case modbus.FuncCodeWriteSingleCoil:
		return s.handleWriteSingleCoil(req)
	case modbus.FuncCodeWriteSingleRegister:
		return s.handleWriteSingleRegister(req)
	case modbus.FuncCodeReadExceptionStatus:
		return s.handleReadExceptionStatus(req)
	case modbus.FuncCodeDiagnostics:
		return s.handleDiagnostics(req)
	case modbus.FuncCodeGetCommEventCounter:
		return s.handleGetCommEventCounter(req)
	case modbus.FuncCodeGetCommEventLog:
		return s.handleGetCommEventLog(req)
	case modbus.FuncCodeWriteMultipleCoils:
		return s.handleWriteMultipleCoils(req)
	case modbus.FuncCodeWriteMultipleRegisters:
		return s.handleWriteMultipleRegisters(req)
	case modbus.FuncCodeReportSlaveID:
		return s.handleReportSlaveID(req)
	case modbus.FuncCodeReadFileRecord:
		return s.handleReadFileRecord(req)
	case modbus.FuncCodeWriteFileRecord:
		return s.handleWriteFileRecord(req)
	case modbus.FuncCodeMaskWriteRegister:
		return s.handleMaskWriteRegister(req)
	case modbus.FuncCodeReadWriteMultipleRegisters:
		return s.handleReadWriteMultipleRegisters(req)
	case modbus.FuncCodeReadFIFOQueue:
		return s.handleReadFIFOQueue(req)
	default:
		return s.exception(req, modbus.ExceptionIllegalFunction)
	}
}

// count updates the diagnostic counters and the comm event log.
func (s *LocalSlave) count(req *modbus.Request, resp *modbus.Response) {
	exc := resp.Exception
	s.model.UpdateCounters(func(c *model.Counters) {
		c.BusMessages++
		c.SlaveMessages++
		if exc.IsException() {
			c.SlaveExceptions++
		} else if req.Function != modbus.FuncCodeGetCommEventCounter && req.Function != modbus.FuncCodeGetCommEventLog {
			c.EventCount++
		}
	})
	if req.Function == modbus.FuncCodeGetCommEventCounter || req.Function == modbus.FuncCodeGetCommEventLog {
		return
	}
	s.model.LogEvent(eventReceive)
	event := eventSend
	switch exc {
	case modbus.ExceptionIllegalFunction, modbus.ExceptionIllegalDataAddress, modbus.ExceptionIllegalDataValue:
		event |= eventSendReadExcept
	case modbus.ExceptionSlaveDeviceFailure:
		event |= eventSendSlaveAbort
	}
	s.model.LogEvent(event)
}

func (s *LocalSlave) ok(req *modbus.Request) *modbus.Response {
	resp := modbus.NewResponse(req)
	resp.Exception = modbus.ExceptionAcknowledge
	return resp
}

func (s *LocalSlave) exception(req *modbus.Request, code modbus.ExceptionCode) *modbus.Response {
	return modbus.NewExceptionResponse(req, code)
}

// modelException maps a data model error to the exception answering it.
func (s *LocalSlave) modelException(req *modbus.Request, err error) *modbus.Response {
	switch {
	case errors.Is(err, model.ErrQuantity), errors.Is(err, model.ErrFIFOCount):
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	default:
		return s.exception(req, modbus.ExceptionIllegalDataAddress)
	}
}

func (s *LocalSlave) words(order modbus.ByteOrder, values ...uint16) []byte {
	return modbus.EncodeRegisters(values, order)
}

func (s *LocalSlave) handleReadBits(req *modbus.Request, read func(address, quantity uint16) ([]bool, error)) *modbus.Response {
	span, ok := req.Payload().(modbus.AddressSpan)
	if !ok || span.Count < 1 || span.Count > maxReadBits {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	values, err := read(span.Start, span.Count)
	if err != nil {
		return s.modelException(req, err)
	}
	resp := s.ok(req)
	resp.SetBits(values)
	return resp
}

func (s *LocalSlave) handleReadRegisters(req *modbus.Request, read func(address, quantity uint16) ([]uint16, error)) *modbus.Response {
	span, ok := req.Payload().(modbus.AddressSpan)
	if !ok || span.Count < 1 || span.Count > maxReadRegisters {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	values, err := read(span.Start, span.Count)
	if err != nil {
		return s.modelException(req, err)
	}
	resp := s.ok(req)
	resp.SetRegisters(values)
	return resp
}

func (s *LocalSlave) handleWriteSingleCoil(req *modbus.Request) *modbus.Response {
	coil, ok := req.Payload().(modbus.SingleCoil)
	if !ok {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	s.model.WriteSingleCoil(coil.Address, coil.On)

	resp := s.ok(req) // Echo request
	resp.SetData(req.Data())
	return resp
}

func (s *LocalSlave) handleWriteSingleRegister(req *modbus.Request) *modbus.Response {
	reg, ok := req.Payload().(modbus.SingleRegister)
	if !ok {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	s.model.WriteSingleRegister(reg.Address, reg.Value)

	resp := s.ok(req) // Echo request
	resp.SetData(req.Data())
	return resp
}

// handleReadExceptionStatus reports coils 0 to 7 as the exception status byte.
func (s *LocalSlave) handleReadExceptionStatus(req *modbus.Request) *modbus.Response {
	coils, err := s.model.ReadCoils(0, 8)
	if err != nil {
		return s.modelException(req, err)
	}
	resp := s.ok(req)
	resp.SetData(modbus.PackBits(coils))
	return resp
}

func (s *LocalSlave) handleDiagnostics(req *modbus.Request) *modbus.Response {
	diag, ok := req.Payload().(modbus.Diagnostic)
	if !ok {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}

	var data []byte
	c := s.model.Counters()
	switch diag.SubFunction {
	case DiagReturnQueryData:
		data = diag.Data
	case DiagClearCounters:
		s.model.ClearCounters()
		data = diag.Data
	case DiagReturnDiagnosticRegister:
		data = s.words(req.Order, c.DiagnosticRegister)
	case DiagBusMessageCount:
		data = s.words(req.Order, c.BusMessages)
	case DiagBusCommErrorCount:
		data = s.words(req.Order, c.BusCommErrors)
	case DiagBusExceptionErrorCount:
		data = s.words(req.Order, c.SlaveExceptions)
	case DiagSlaveMessageCount:
		data = s.words(req.Order, c.SlaveMessages)
	default:
		return s.exception(req, modbus.ExceptionIllegalFunction)
	}

	resp := s.ok(req)
	resp.SetData(append(s.words(req.Order, diag.SubFunction), data...))
	return resp
}

func (s *LocalSlave) handleGetCommEventCounter(req *modbus.Request) *modbus.Response {
	c := s.model.Counters()
	resp := s.ok(req)
	resp.SetData(s.words(req.Order, commStatusNotBusy, c.EventCount))
	return resp
}

func (s *LocalSlave) handleGetCommEventLog(req *modbus.Request) *modbus.Response {
	c, events := s.model.EventLog()
	body := s.words(req.Order, commStatusNotBusy, c.EventCount, c.BusMessages)
	body = append(body, events...)

	resp := s.ok(req)
	resp.SetData(append([]byte{byte(len(body))}, body...))
	return resp
}

func (s *LocalSlave) handleWriteMultipleCoils(req *modbus.Request) *modbus.Response {
	coils, ok := req.Payload().(modbus.MultipleCoils)
	if !ok || coils.Span.Count < 1 || coils.Span.Count > maxWriteBits {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	if err := s.model.WriteMultipleCoils(coils.Span.Start, coils.Values); err != nil {
		return s.modelException(req, err)
	}

	resp := s.ok(req)
	resp.SetData(s.words(req.Order, coils.Span.Start, coils.Span.Count))
	return resp
}

func (s *LocalSlave) handleWriteMultipleRegisters(req *modbus.Request) *modbus.Response {
	regs, ok := req.Payload().(modbus.MultipleRegisters)
	if !ok || regs.Span.Count < 1 || regs.Span.Count > maxWriteRegisters {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	if err := s.model.WriteMultipleRegisters(regs.Span.Start, regs.Values); err != nil {
		return s.modelException(req, err)
	}

	resp := s.ok(req)
	resp.SetData(s.words(req.Order, regs.Span.Start, regs.Span.Count))
	return resp
}

func (s *LocalSlave) handleReportSlaveID(req *modbus.Request) *modbus.Response {
	body := append([]byte{s.id, runIndicatorOn}, s.identity...)
	if len(body) > 0xFF {
		body = body[:0xFF]
	}
	resp := s.ok(req)
	resp.SetData(append([]byte{byte(len(body))}, body...))
	return resp
}

// handleReadFileRecord answers each sub-request with reference type, file,
// record and length followed by the registers.
func (s *LocalSlave) handleReadFileRecord(req *modbus.Request) *modbus.Response {
	reads, ok := req.Payload().(modbus.FileRecordReads)
	if !ok {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	body := []byte{}
	for _, rd := range reads {
		data, err := s.model.ReadFileRecord(rd.File, rd.Record, rd.Length)
		if err != nil {
			return s.modelException(req, err)
		}
		body = append(body, modbus.FileRecordRefType)
		body = append(body, s.words(req.Order, rd.File, rd.Record, rd.Length)...)
		body = append(body, modbus.EncodeRegisters(data, req.Order)...)
		if len(body) > 0xFF {
			return s.exception(req, modbus.ExceptionIllegalDataValue)
		}
	}
	resp := s.ok(req)
	resp.SetData(append([]byte{byte(len(body))}, body...))
	return resp
}

func (s *LocalSlave) handleWriteFileRecord(req *modbus.Request) *modbus.Response {
	writes, ok := req.Payload().(modbus.FileRecordWrites)
	if !ok {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	for _, w := range writes {
		if err := s.model.WriteFileRecord(w.File, w.Record, w.Data); err != nil {
			return s.modelException(req, err)
		}
	}
	resp := s.ok(req) // Echo request
	resp.SetData(req.Data())
	return resp
}

func (s *LocalSlave) handleMaskWriteRegister(req *modbus.Request) *modbus.Response {
	mw, ok := req.Payload().(modbus.MaskWrite)
	if !ok {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	s.model.MaskWriteRegister(mw.Address, mw.AndMask, mw.OrMask)

	resp := s.ok(req) // Echo request
	resp.SetData(req.Data())
	return resp
}

func (s *LocalSlave) handleReadWriteMultipleRegisters(req *modbus.Request) *modbus.Response {
	rw, ok := req.Payload().(modbus.ReadWriteMultiple)
	if !ok ||
		rw.Read.Count < 1 || rw.Read.Count > maxReadRegisters ||
		rw.Write.Count < 1 || rw.Write.Count > maxReadWriteRegisters {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	values, err := s.model.ReadWriteMultipleRegisters(rw.Read.Start, rw.Read.Count, rw.Write.Start, rw.Values)
	if err != nil {
		return s.modelException(req, err)
	}
	resp := s.ok(req)
	resp.SetRegisters(values)
	return resp
}

func (s *LocalSlave) handleReadFIFOQueue(req *modbus.Request) *modbus.Response {
	addr, ok := req.Payload().(modbus.FIFOAddress)
	if !ok {
		return s.exception(req, modbus.ExceptionIllegalDataValue)
	}
	values, err := s.model.ReadFIFO(uint16(addr))
	if err != nil {
		return s.modelException(req, err)
	}
	body := s.words(req.Order, uint16(2+2*len(values)), uint16(len(values)))
	resp := s.ok(req)
	resp.SetData(append(body, modbus.EncodeRegisters(values, req.Order)...))
	return resp
}
