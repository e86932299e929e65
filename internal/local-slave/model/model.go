// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package model

import (
	"errors"
	"sync"

	"github.com/TheCount/go-multilocker/multilocker"
)

const (
	MaxAddress = 65535

	// MaxFIFOCount is the deepest queue a ReadFIFOQueue response may carry.
	MaxFIFOCount = 31
	// MaxFileRecords is the number of records (registers) in one file.
	MaxFileRecords = 10000
	// EventLogSize is the number of events GetCommEventLog reports.
	EventLogSize = 64
)

var (
	ErrQuantity   = errors.New("model: quantity out of range")
	ErrAddress    = errors.New("model: address range out of bounds")
	ErrFIFOCount  = errors.New("model: fifo queue too long")
	ErrFileNumber = errors.New("model: invalid file number")
)

// TableType represents the type of Modbus data table.
type TableType int

const (
	TableCoils TableType = iota
	TableDiscreteInputs
	TableHoldingRegisters
	TableInputRegisters
	TableFIFOs
	TableFiles
	TableCounters
	TableEvents

	tableCount
)

// Counters are the communication counters kept for Diagnostics and the
// comm event functions.
type Counters struct {
	// EventCount counts successfully completed messages, excluding the
	// comm event functions themselves.
	EventCount         uint16
	BusMessages        uint16
	BusCommErrors      uint16
	SlaveExceptions    uint16
	SlaveMessages      uint16
	DiagnosticRegister uint16
}

// DataModel holds the modbus data in memory.
// It uses a simple flat memory model covering the full 16-bit address space.
// Each table has its own lock; operations touching several tables take
// all their locks at once.
type DataModel struct {
	locks [tableCount]sync.RWMutex

	// 0x Coils (Read/Write). Stored as 1 (ON) or 0 (OFF).
	Coils []byte
	// 1x Discrete Inputs (Read Only). Stored as 1 (ON) or 0 (OFF).
	DiscreteInputs []byte
	// 4x Holding Registers (Read/Write).
	HoldingRegisters []uint16
	// 3x Input Registers (Read Only).
	InputRegisters []uint16

	fifos    map[uint16][]uint16
	files    map[uint16][]uint16
	counters Counters
	// events holds the most recent event first.
	events []byte
}

// NewDataModel creates a new memory model initialized to zero.
func NewDataModel() *DataModel {
	return &DataModel{
		Coils:            make([]byte, MaxAddress+1),
		DiscreteInputs:   make([]byte, MaxAddress+1),
		HoldingRegisters: make([]uint16, MaxAddress+1),
		InputRegisters:   make([]uint16, MaxAddress+1),
		fifos:            make(map[uint16][]uint16),
		files:            make(map[uint16][]uint16),
	}
}

// readLocker returns a locker that atomically read-locks all tables.
func (m *DataModel) readLocker(tables ...TableType) sync.Locker {
	lockers := make([]sync.Locker, len(tables))
	for i, t := range tables {
		lockers[i] = m.locks[t].RLocker()
	}
	return multilocker.New(lockers...)
}

// writeLocker returns a locker that atomically write-locks all tables.
func (m *DataModel) writeLocker(tables ...TableType) sync.Locker {
	lockers := make([]sync.Locker, len(tables))
	for i, t := range tables {
		lockers[i] = &m.locks[t]
	}
	return multilocker.New(lockers...)
}

func validateRange(address, quantity uint16) error {
	if quantity == 0 {
		return ErrQuantity
	}
	// address is 0-based.
	if int(address)+int(quantity) > MaxAddress+1 {
		return ErrAddress
	}
	return nil
}

func readBits(table []byte, address, quantity uint16) []bool {
	result := make([]bool, quantity)
	for i := range result {
		result[i] = table[int(address)+i] != 0
	}
	return result
}

func writeBits(table []byte, address uint16, values []bool) {
	for i, v := range values {
		var b byte
		if v {
			b = 1
		}
		table[int(address)+i] = b
	}
}

// ReadCoils reads a range of coils.
func (m *DataModel) ReadCoils(address, quantity uint16) ([]bool, error) {
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	l := m.readLocker(TableCoils)
	l.Lock()
	defer l.Unlock()

	return readBits(m.Coils, address, quantity), nil
}

// WriteSingleCoil writes a single coil.
func (m *DataModel) WriteSingleCoil(address uint16, on bool) {
	l := m.writeLocker(TableCoils)
	l.Lock()
	defer l.Unlock()

	writeBits(m.Coils, address, []bool{on})
}

// WriteMultipleCoils writes a range of coils.
func (m *DataModel) WriteMultipleCoils(address uint16, values []bool) error {
	if err := validateRange(address, uint16(len(values))); err != nil {
		return err
	}
	l := m.writeLocker(TableCoils)
	l.Lock()
	defer l.Unlock()

	writeBits(m.Coils, address, values)
	return nil
}

// ReadDiscreteInputs reads a range of discrete inputs.
func (m *DataModel) ReadDiscreteInputs(address, quantity uint16) ([]bool, error) {
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	l := m.readLocker(TableDiscreteInputs)
	l.Lock()
	defer l.Unlock()

	return readBits(m.DiscreteInputs, address, quantity), nil
}

// SetDiscreteInputs sets inputs the protocol can only read.
func (m *DataModel) SetDiscreteInputs(address uint16, values []bool) error {
	if err := validateRange(address, uint16(len(values))); err != nil {
		return err
	}
	l := m.writeLocker(TableDiscreteInputs)
	l.Lock()
	defer l.Unlock()

	writeBits(m.DiscreteInputs, address, values)
	return nil
}

// ReadHoldingRegisters reads a range of holding registers.
func (m *DataModel) ReadHoldingRegisters(address, quantity uint16) ([]uint16, error) {
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	l := m.readLocker(TableHoldingRegisters)
	l.Lock()
	defer l.Unlock()

	return append([]uint16(nil), m.HoldingRegisters[address:int(address)+int(quantity)]...), nil
}

// WriteSingleRegister writes a single holding register.
func (m *DataModel) WriteSingleRegister(address uint16, value uint16) {
	l := m.writeLocker(TableHoldingRegisters)
	l.Lock()
	defer l.Unlock()

	m.HoldingRegisters[address] = value
}

// WriteMultipleRegisters writes a range of holding registers.
func (m *DataModel) WriteMultipleRegisters(address uint16, values []uint16) error {
	if err := validateRange(address, uint16(len(values))); err != nil {
		return err
	}
	l := m.writeLocker(TableHoldingRegisters)
	l.Lock()
	defer l.Unlock()

	copy(m.HoldingRegisters[address:], values)
	return nil
}

// MaskWriteRegister sets a holding register to (current AND andMask) OR (orMask AND NOT andMask).
func (m *DataModel) MaskWriteRegister(address, andMask, orMask uint16) {
	l := m.writeLocker(TableHoldingRegisters)
	l.Lock()
	defer l.Unlock()

	current := m.HoldingRegisters[address]
	m.HoldingRegisters[address] = (current & andMask) | (orMask &^ andMask)
}

// ReadWriteMultipleRegisters writes values at writeAddress, then reads
// readQuantity registers at readAddress, under one lock.
func (m *DataModel) ReadWriteMultipleRegisters(readAddress, readQuantity, writeAddress uint16, values []uint16) ([]uint16, error) {
	if err := validateRange(readAddress, readQuantity); err != nil {
		return nil, err
	}
	if err := validateRange(writeAddress, uint16(len(values))); err != nil {
		return nil, err
	}
	l := m.writeLocker(TableHoldingRegisters)
	l.Lock()
	defer l.Unlock()

	copy(m.HoldingRegisters[writeAddress:], values)
	return append([]uint16(nil), m.HoldingRegisters[readAddress:int(readAddress)+int(readQuantity)]...), nil
}

// ReadInputRegisters reads a range of input registers.
func (m *DataModel) ReadInputRegisters(address, quantity uint16) ([]uint16, error) {
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	l := m.readLocker(TableInputRegisters)
	l.Lock()
	defer l.Unlock()

	return append([]uint16(nil), m.InputRegisters[address:int(address)+int(quantity)]...), nil
}

// SetInputRegisters sets registers the protocol can only read.
func (m *DataModel) SetInputRegisters(address uint16, values []uint16) error {
	if err := validateRange(address, uint16(len(values))); err != nil {
		return err
	}
	l := m.writeLocker(TableInputRegisters)
	l.Lock()
	defer l.Unlock()

	copy(m.InputRegisters[address:], values)
	return nil
}

// PushFIFO appends values to the queue at address.
func (m *DataModel) PushFIFO(address uint16, values ...uint16) {
	l := m.writeLocker(TableFIFOs)
	l.Lock()
	defer l.Unlock()

	m.fifos[address] = append(m.fifos[address], values...)
}

// ReadFIFO returns the queue at address without consuming it.
func (m *DataModel) ReadFIFO(address uint16) ([]uint16, error) {
	l := m.readLocker(TableFIFOs)
	l.Lock()
	defer l.Unlock()

	q := m.fifos[address]
	if len(q) > MaxFIFOCount {
		return nil, ErrFIFOCount
	}
	return append([]uint16(nil), q...), nil
}

func validateFileRange(file, record, length uint16) error {
	if file == 0 {
		return ErrFileNumber
	}
	if int(record)+int(length) > MaxFileRecords {
		return ErrAddress
	}
	return nil
}

// ReadFileRecord reads length registers of file starting at record.
func (m *DataModel) ReadFileRecord(file, record, length uint16) ([]uint16, error) {
	if err := validateFileRange(file, record, length); err != nil {
		return nil, err
	}
	l := m.readLocker(TableFiles)
	l.Lock()
	defer l.Unlock()

	out := make([]uint16, length)
	if f, ok := m.files[file]; ok {
		copy(out, f[record:])
	}
	return out, nil
}

// WriteFileRecord writes data into file starting at record.
func (m *DataModel) WriteFileRecord(file, record uint16, data []uint16) error {
	if err := validateFileRange(file, record, uint16(len(data))); err != nil {
		return err
	}
	l := m.writeLocker(TableFiles)
	l.Lock()
	defer l.Unlock()

	f, ok := m.files[file]
	if !ok {
		f = make([]uint16, MaxFileRecords)
		m.files[file] = f
	}
	copy(f[record:], data)
	return nil
}

// UpdateCounters applies fn to the counters under the counters lock.
func (m *DataModel) UpdateCounters(fn func(c *Counters)) {
	l := m.writeLocker(TableCounters)
	l.Lock()
	defer l.Unlock()

	fn(&m.counters)
}

func (m *DataModel) Counters() Counters {
	l := m.readLocker(TableCounters)
	l.Lock()
	defer l.Unlock()

	return m.counters
}

// LogEvent records an event byte, keeping the newest EventLogSize events.
func (m *DataModel) LogEvent(event byte) {
	l := m.writeLocker(TableEvents)
	l.Lock()
	defer l.Unlock()

	m.events = append([]byte{event}, m.events...)
	if len(m.events) > EventLogSize {
		m.events = m.events[:EventLogSize]
	}
}

// EventLog returns the counters and the events, newest first, as one snapshot.
func (m *DataModel) EventLog() (Counters, []byte) {
	l := m.readLocker(TableCounters, TableEvents)
	l.Lock()
	defer l.Unlock()

	return m.counters, append([]byte(nil), m.events...)
}

// ClearCounters resets every counter and the event log.
func (m *DataModel) ClearCounters() {
	l := m.writeLocker(TableCounters, TableEvents)
	l.Lock()
	defer l.Unlock()

	m.counters = Counters{}
	m.events = nil
}
