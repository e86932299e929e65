// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package master

import (
	"context"
	"fmt"

	"github.com/ffutop/modbus-serial/modbus"
)

// CommEventLog is the body of a GetCommEventLog response.
type CommEventLog struct {
	Status       uint16
	EventCount   uint16
	MessageCount uint16
	Events       []byte
}

// SlaveInfo is the body of a ReportSlaveID response.
type SlaveInfo struct {
	ID         byte
	Running    bool
	Additional []byte
}

// maxReadRegisters is the most registers one read response can carry.
const maxReadRegisters = 125

func (m *Master) u16(b []byte) uint16 {
	return modbus.DecodeUint16(b[0], b[1], m.format.ByteOrder)
}

func (m *Master) ReadCoils(ctx context.Context, slaveID byte, start, count uint16) ([]bool, error) {
	return m.readBits(ctx, m.builder.ReadCoils(slaveID, start, count), count)
}

func (m *Master) ReadDiscreteInputs(ctx context.Context, slaveID byte, start, count uint16) ([]bool, error) {
	return m.readBits(ctx, m.builder.ReadDiscreteInputs(slaveID, start, count), count)
}

func (m *Master) readBits(ctx context.Context, req *modbus.Request, count uint16) ([]bool, error) {
	resp, err := m.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	body, err := countedBody(resp.Data())
	if err != nil {
		return nil, err
	}
	if len(body) < (int(count)+7)/8 {
		return nil, modbus.ErrShortResponse
	}
	return modbus.UnpackBits(body, int(count)), nil
}

func (m *Master) ReadHoldingRegisters(ctx context.Context, slaveID byte, start, count uint16) ([]uint16, error) {
	raw, err := m.readRegisterBytes(ctx, m.builder.ReadHoldingRegisters(slaveID, start, count), int(count))
	if err != nil {
		return nil, err
	}
	return modbus.DecodeRegisters(raw, m.format.ByteOrder), nil
}

func (m *Master) ReadInputRegisters(ctx context.Context, slaveID byte, start, count uint16) ([]uint16, error) {
	raw, err := m.readRegisterBytes(ctx, m.builder.ReadInputRegisters(slaveID, start, count), int(count))
	if err != nil {
		return nil, err
	}
	return modbus.DecodeRegisters(raw, m.format.ByteOrder), nil
}

// readRegisterBytes returns exactly 2*count register bytes in wire order.
func (m *Master) readRegisterBytes(ctx context.Context, req *modbus.Request, count int) ([]byte, error) {
	resp, err := m.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	body, err := countedBody(resp.Data())
	if err != nil {
		return nil, err
	}
	if len(body) < 2*count {
		return nil, modbus.ErrShortResponse
	}
	return body[:2*count], nil
}

func (m *Master) WriteSingleCoil(ctx context.Context, slaveID byte, address uint16, on bool) error {
	_, err := m.execute(ctx, m.builder.WriteSingleCoil(slaveID, address, on))
	return err
}

func (m *Master) WriteSingleRegister(ctx context.Context, slaveID byte, address, value uint16) error {
	_, err := m.execute(ctx, m.builder.WriteSingleRegister(slaveID, address, value))
	return err
}

func (m *Master) ReadExceptionStatus(ctx context.Context, slaveID byte) (byte, error) {
	resp, err := m.execute(ctx, m.builder.ReadExceptionStatus(slaveID))
	if err != nil {
		return 0, err
	}
	if len(resp.Data()) < 1 {
		return 0, modbus.ErrShortResponse
	}
	return resp.Data()[0], nil
}

// Diagnostics runs a diagnostic sub-function and returns the data the slave
// answered with, without the echoed sub-function.
func (m *Master) Diagnostics(ctx context.Context, slaveID byte, subFunction uint16, data []byte) ([]byte, error) {
	resp, err := m.execute(ctx, m.builder.Diagnostics(slaveID, subFunction, data))
	if err != nil {
		return nil, err
	}
	body := resp.Data()
	if len(body) < 2 {
		return nil, modbus.ErrShortResponse
	}
	if echo := m.u16(body); echo != subFunction {
		return nil, fmt.Errorf("%w: sub-function 0x%04X", modbus.ErrEchoMismatch, echo)
	}
	return body[2:], nil
}

func (m *Master) GetCommEventCounter(ctx context.Context, slaveID byte) (status, count uint16, err error) {
	resp, err := m.execute(ctx, m.builder.GetCommEventCounter(slaveID))
	if err != nil {
		return 0, 0, err
	}
	data := resp.Data()
	if len(data) < 4 {
		return 0, 0, modbus.ErrShortResponse
	}
	return m.u16(data[0:]), m.u16(data[2:]), nil
}

func (m *Master) GetCommEventLog(ctx context.Context, slaveID byte) (*CommEventLog, error) {
	resp, err := m.execute(ctx, m.builder.GetCommEventLog(slaveID))
	if err != nil {
		return nil, err
	}
	body, err := countedBody(resp.Data())
	if err != nil {
		return nil, err
	}
	if len(body) < 6 {
		return nil, modbus.ErrShortResponse
	}
	return &CommEventLog{
		Status:       m.u16(body[0:]),
		EventCount:   m.u16(body[2:]),
		MessageCount: m.u16(body[4:]),
		Events:       append([]byte(nil), body[6:]...),
	}, nil
}

func (m *Master) WriteMultipleCoils(ctx context.Context, slaveID byte, start uint16, values []bool) error {
	req, err := m.builder.WriteMultipleCoils(slaveID, start, values)
	if err != nil {
		return err
	}
	_, err = m.execute(ctx, req)
	return err
}

func (m *Master) WriteMultipleRegisters(ctx context.Context, slaveID byte, start uint16, values []uint16) error {
	req, err := m.builder.WriteMultipleRegisters(slaveID, start, values)
	if err != nil {
		return err
	}
	_, err = m.execute(ctx, req)
	return err
}

func (m *Master) ReportSlaveID(ctx context.Context, slaveID byte) (*SlaveInfo, error) {
	resp, err := m.execute(ctx, m.builder.ReportSlaveID(slaveID))
	if err != nil {
		return nil, err
	}
	body, err := countedBody(resp.Data())
	if err != nil {
		return nil, err
	}
	if len(body) < 2 {
		return nil, modbus.ErrShortResponse
	}
	return &SlaveInfo{
		ID:         body[0],
		Running:    body[1] == 0xFF,
		Additional: append([]byte(nil), body[2:]...),
	}, nil
}

// ReadFileRecord reads the given records. The response lists each record as
// reference type 0x06, file, record and length words, then length registers.
func (m *Master) ReadFileRecord(ctx context.Context, slaveID byte, reads []modbus.FileRecordRead) (map[modbus.FileRecordRef][]uint16, error) {
	req, err := m.builder.ReadFileRecord(slaveID, reads)
	if err != nil {
		return nil, err
	}
	resp, err := m.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	body, err := countedBody(resp.Data())
	if err != nil {
		return nil, err
	}

	records := make(map[modbus.FileRecordRef][]uint16)
	for len(body) > 0 {
		if len(body) < 7 {
			return nil, modbus.ErrShortResponse
		}
		if body[0] != modbus.FileRecordRefType {
			return nil, fmt.Errorf("%w: 0x%02X", modbus.ErrBadReferenceType, body[0])
		}
		ref := modbus.FileRecordRef{File: m.u16(body[1:]), Record: m.u16(body[3:])}
		n := 2 * int(m.u16(body[5:]))
		if len(body) < 7+n {
			return nil, modbus.ErrShortResponse
		}
		records[ref] = modbus.DecodeRegisters(body[7:7+n], m.format.ByteOrder)
		body = body[7+n:]
	}
	return records, nil
}

func (m *Master) WriteFileRecord(ctx context.Context, slaveID byte, writes []modbus.FileRecordWrite) error {
	req, err := m.builder.WriteFileRecord(slaveID, writes)
	if err != nil {
		return err
	}
	_, err = m.execute(ctx, req)
	return err
}

// MaskWriteRegister fails with ErrEchoMismatch unless the slave echoes the
// address and both masks unchanged.
func (m *Master) MaskWriteRegister(ctx context.Context, slaveID byte, address, andMask, orMask uint16) error {
	resp, err := m.execute(ctx, m.builder.MaskWriteRegister(slaveID, address, andMask, orMask))
	if err != nil {
		return err
	}
	echo, ok := resp.Payload().(modbus.MaskWrite)
	if !ok {
		return modbus.ErrShortResponse
	}
	if echo != (modbus.MaskWrite{Address: address, AndMask: andMask, OrMask: orMask}) {
		return fmt.Errorf("%w: %+v", modbus.ErrEchoMismatch, echo)
	}
	return nil
}

func (m *Master) ReadWriteMultipleRegisters(ctx context.Context, slaveID byte, read modbus.AddressSpan, writeStart uint16, values []uint16) ([]uint16, error) {
	req, err := m.builder.ReadWriteMultipleRegisters(slaveID, read, writeStart, values)
	if err != nil {
		return nil, err
	}
	raw, err := m.readRegisterBytes(ctx, req, int(read.Count))
	if err != nil {
		return nil, err
	}
	return modbus.DecodeRegisters(raw, m.format.ByteOrder), nil
}

// ReadFIFOQueue returns the queued registers. The response body is a two
// byte byte count and a two byte FIFO count followed by the values.
func (m *Master) ReadFIFOQueue(ctx context.Context, slaveID byte, address uint16) ([]uint16, error) {
	resp, err := m.execute(ctx, m.builder.ReadFIFOQueue(slaveID, address))
	if err != nil {
		return nil, err
	}
	data := resp.Data()
	if len(data) < 4 {
		return nil, modbus.ErrShortResponse
	}
	byteCount := int(m.u16(data[0:]))
	fifoCount := int(m.u16(data[2:]))
	if byteCount < 2+2*fifoCount || len(data) < 2+byteCount {
		return nil, modbus.ErrShortResponse
	}
	return modbus.DecodeRegisters(data[4:4+2*fifoCount], m.format.ByteOrder), nil
}

// floatSpan converts a float count to registers and applies the float range.
func (m *Master) floatSpan(start, count uint16) (int, error) {
	regs := m.format.FloatRegisters(count)
	if regs > maxReadRegisters {
		return 0, fmt.Errorf("%w: %d registers", modbus.ErrTooManyValues, regs)
	}
	if regs%2 != 0 {
		return 0, fmt.Errorf("%w: %d registers do not hold whole floats", modbus.ErrLengthMismatch, regs)
	}
	if !m.format.AllowsFloatAccess(start, regs) {
		return 0, fmt.Errorf("%w: %d registers at %d", modbus.ErrOutOfRange, regs, start)
	}
	return regs, nil
}

// ReadFloats reads IEEE-754 singles from holding registers. count is a
// number of floats or of registers as the wire format's FloatCount says.
func (m *Master) ReadFloats(ctx context.Context, slaveID byte, start, count uint16) ([]float32, error) {
	regs, err := m.floatSpan(start, count)
	if err != nil {
		return nil, err
	}
	raw, err := m.readRegisterBytes(ctx, m.builder.ReadHoldingRegisters(slaveID, start, uint16(regs)), regs)
	if err != nil {
		return nil, err
	}
	values := make([]float32, regs/2)
	for i := range values {
		values[i] = modbus.DecodeFloat32(raw[4*i:], m.format.ByteOrder, m.format.WordOrder)
	}
	return values, nil
}

func (m *Master) WriteFloats(ctx context.Context, slaveID byte, start uint16, values []float32) error {
	regs := 2 * len(values)
	if !m.format.AllowsFloatAccess(start, regs) {
		return fmt.Errorf("%w: %d registers at %d", modbus.ErrOutOfRange, regs, start)
	}
	raw := make([]byte, 2*regs)
	for i, v := range values {
		modbus.EncodeFloat32(v, m.format.ByteOrder, m.format.WordOrder, raw[4*i:])
	}
	return m.WriteMultipleRegisters(ctx, slaveID, start, modbus.DecodeRegisters(raw, m.format.ByteOrder))
}

// ReadUint32s reads count 32-bit values, two registers each, combined by word order.
func (m *Master) ReadUint32s(ctx context.Context, slaveID byte, start, count uint16) ([]uint32, error) {
	regs := 2 * int(count)
	if regs > maxReadRegisters {
		return nil, fmt.Errorf("%w: %d registers", modbus.ErrTooManyValues, regs)
	}
	raw, err := m.readRegisterBytes(ctx, m.builder.ReadHoldingRegisters(slaveID, start, uint16(regs)), regs)
	if err != nil {
		return nil, err
	}
	values := make([]uint32, count)
	for i := range values {
		values[i] = modbus.DecodeUint32(raw[4*i:], m.format.ByteOrder, m.format.WordOrder)
	}
	return values, nil
}

func (m *Master) WriteUint32s(ctx context.Context, slaveID byte, start uint16, values []uint32) error {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		modbus.EncodeUint32(v, m.format.ByteOrder, m.format.WordOrder, raw[4*i:])
	}
	return m.WriteMultipleRegisters(ctx, slaveID, start, modbus.DecodeRegisters(raw, m.format.ByteOrder))
}
