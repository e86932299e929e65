// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package master

import (
	"bytes"
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	localslave "github.com/ffutop/modbus-serial/internal/local-slave"
	"github.com/ffutop/modbus-serial/internal/local-slave/model"
	"github.com/ffutop/modbus-serial/modbus"
	"github.com/ffutop/modbus-serial/modbus/rtu"
	"github.com/ffutop/modbus-serial/slave"
	"github.com/ffutop/modbus-serial/transport"
	"github.com/ffutop/modbus-serial/transport/loopback"
)

const testTimeout = 500 * time.Millisecond

type framing struct {
	name   string
	master func(transport.Transport, Options) *Master
	slave  func(byte, modbus.WireFormat, slave.Processor, slave.Options) *slave.Slave
}

var framings = []framing{
	{"rtu", NewRTU, slave.NewRTU},
	{"ascii", NewASCII, slave.NewASCII},
}

// startSlave serves a local slave with id 1 on the far end of a loopback
// pair until the test ends.
func startSlave(t *testing.T, f framing, format modbus.WireFormat) (*Master, *loopback.Endpoint, *localslave.LocalSlave) {
	t.Helper()
	near, far := loopback.Pair()
	local := localslave.NewLocalSlave(model.NewDataModel(), 1, "test")
	s := f.slave(1, format, local, slave.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Serve(ctx, far)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return f.master(near, Options{Format: format, Timeout: testTimeout}), far, local
}

func TestReadHoldingRegisters(t *testing.T) {
	for _, f := range framings {
		t.Run(f.name, func(t *testing.T) {
			m, _, local := startSlave(t, f, modbus.WireFormat{})
			local.Model().WriteMultipleRegisters(0, []uint16{0, 1, 2, 3, 4, 5})

			got, err := m.ReadHoldingRegisters(context.Background(), 1, 0, 6)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, []uint16{0, 1, 2, 3, 4, 5}) {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestRoundTrips(t *testing.T) {
	ctx := context.Background()
	for _, f := range framings {
		for _, order := range []modbus.ByteOrder{modbus.BigEndian, modbus.LittleEndian} {
			t.Run(f.name+"/"+order.String(), func(t *testing.T) {
				m, _, local := startSlave(t, f, modbus.WireFormat{ByteOrder: order})

				if err := m.WriteMultipleCoils(ctx, 1, 3, []bool{true, true, false, true}); err != nil {
					t.Fatal(err)
				}
				coils, err := m.ReadCoils(ctx, 1, 3, 4)
				if err != nil || !reflect.DeepEqual(coils, []bool{true, true, false, true}) {
					t.Errorf("ReadCoils = %v, %v", coils, err)
				}

				if err := m.WriteSingleRegister(ctx, 1, 10, 0x1234); err != nil {
					t.Fatal(err)
				}
				if err := m.MaskWriteRegister(ctx, 1, 10, 0x00FF, 0x0100); err != nil {
					t.Fatal(err)
				}
				regs, err := m.ReadWriteMultipleRegisters(ctx, 1, modbus.AddressSpan{Start: 10, Count: 2}, 11, []uint16{0xCAFE})
				if err != nil || !reflect.DeepEqual(regs, []uint16{0x0134, 0xCAFE}) {
					t.Errorf("ReadWriteMultipleRegisters = %#v, %v", regs, err)
				}

				local.Model().PushFIFO(7, 1, 2, 3)
				fifo, err := m.ReadFIFOQueue(ctx, 1, 7)
				if err != nil || !reflect.DeepEqual(fifo, []uint16{1, 2, 3}) {
					t.Errorf("ReadFIFOQueue = %v, %v", fifo, err)
				}

				ref := modbus.FileRecordRef{File: 4, Record: 1}
				if err := m.WriteFileRecord(ctx, 1, []modbus.FileRecordWrite{{FileRecordRef: ref, Data: []uint16{9, 8, 7}}}); err != nil {
					t.Fatal(err)
				}
				records, err := m.ReadFileRecord(ctx, 1, []modbus.FileRecordRead{{FileRecordRef: ref, Length: 3}})
				if err != nil || !reflect.DeepEqual(records[ref], []uint16{9, 8, 7}) {
					t.Errorf("ReadFileRecord = %v, %v", records, err)
				}

				info, err := m.ReportSlaveID(ctx, 1)
				if err != nil || info.ID != 1 || !info.Running || string(info.Additional) != "test" {
					t.Errorf("ReportSlaveID = %+v, %v", info, err)
				}

				echo, err := m.Diagnostics(ctx, 1, 0, []byte{0xA5, 0x37})
				if err != nil || !bytes.Equal(echo, []byte{0xA5, 0x37}) {
					t.Errorf("Diagnostics = % X, %v", echo, err)
				}

				status, count, err := m.GetCommEventCounter(ctx, 1)
				if err != nil || status != 0 || count == 0 {
					t.Errorf("GetCommEventCounter = %d, %d, %v", status, count, err)
				}
				log, err := m.GetCommEventLog(ctx, 1)
				if err != nil || log.EventCount != count || len(log.Events) == 0 {
					t.Errorf("GetCommEventLog = %+v, %v", log, err)
				}
			})
		}
	}
}

func TestFloatsAndUint32s(t *testing.T) {
	ctx := context.Background()
	format := modbus.WireFormat{ByteOrder: modbus.LittleEndian, WordOrder: modbus.LowWordFirst}
	m, _, _ := startSlave(t, framings[0], format)

	floats := []float32{1.5, -2.25, float32(math.Inf(1))}
	if err := m.WriteFloats(ctx, 1, 100, floats); err != nil {
		t.Fatal(err)
	}
	got, err := m.ReadFloats(ctx, 1, 100, 3)
	if err != nil || !reflect.DeepEqual(got, floats) {
		t.Errorf("ReadFloats = %v, %v", got, err)
	}

	if err := m.WriteUint32s(ctx, 1, 200, []uint32{0xDEADBEEF, 1}); err != nil {
		t.Fatal(err)
	}
	u, err := m.ReadUint32s(ctx, 1, 200, 2)
	if err != nil || !reflect.DeepEqual(u, []uint32{0xDEADBEEF, 1}) {
		t.Errorf("ReadUint32s = %#v, %v", u, err)
	}
}

func TestReadFloatsRejectedBeforeIO(t *testing.T) {
	ep := loopback.New()
	m := NewRTU(ep, Options{
		Format: modbus.WireFormat{
			FloatCount: modbus.CountRegisters,
			FloatRange: &modbus.AddressSpan{Start: 100, Count: 10},
		},
		Timeout: testTimeout,
	})
	ctx := context.Background()

	if _, err := m.ReadFloats(ctx, 1, 108, 4); !errors.Is(err, modbus.ErrOutOfRange) {
		t.Errorf("outside range: %v, want %v", err, modbus.ErrOutOfRange)
	}
	if _, err := m.ReadFloats(ctx, 1, 100, 3); !errors.Is(err, modbus.ErrLengthMismatch) {
		t.Errorf("odd registers: %v, want %v", err, modbus.ErrLengthMismatch)
	}
	if err := m.WriteFloats(ctx, 1, 90, []float32{1}); !errors.Is(err, modbus.ErrOutOfRange) {
		t.Errorf("write outside range: %v", err)
	}
	if sent := ep.Sent(); len(sent) != 0 {
		t.Errorf("sent % X, want nothing", sent)
	}

	ep = loopback.New()
	m = NewRTU(ep, Options{Format: modbus.WireFormat{FloatRange: &modbus.AddressSpan{Start: 0, Count: 4}}})
	if _, err := m.ReadFloats(ctx, 1, 4, 1); !errors.Is(err, modbus.ErrOutOfRange) {
		t.Errorf("start outside (0,4): %v", err)
	}
	if sent := ep.Sent(); len(sent) != 0 {
		t.Errorf("sent % X, want nothing", sent)
	}
}

func TestOversizedReadsRejectedBeforeIO(t *testing.T) {
	ep := loopback.New()
	m := NewRTU(ep, Options{Timeout: testTimeout})
	ctx := context.Background()

	if _, err := m.ReadFloats(ctx, 1, 0, 32768); !errors.Is(err, modbus.ErrTooManyValues) {
		t.Errorf("32768 floats: %v, want %v", err, modbus.ErrTooManyValues)
	}
	if _, err := m.ReadFloats(ctx, 1, 0, 63); !errors.Is(err, modbus.ErrTooManyValues) {
		t.Errorf("63 floats: %v, want %v", err, modbus.ErrTooManyValues)
	}
	if _, err := m.ReadUint32s(ctx, 1, 0, 63); !errors.Is(err, modbus.ErrTooManyValues) {
		t.Errorf("63 uint32s: %v, want %v", err, modbus.ErrTooManyValues)
	}
	if sent := ep.Sent(); len(sent) != 0 {
		t.Errorf("sent % X, want nothing", sent)
	}
}

func TestBroadcast(t *testing.T) {
	m, far, local := startSlave(t, framings[0], modbus.WireFormat{})

	start := time.Now()
	if err := m.WriteSingleRegister(context.Background(), 0, 5, 42); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed >= testTimeout {
		t.Errorf("broadcast waited %v for a response", elapsed)
	}

	deadline := time.Now().Add(testTimeout)
	for {
		regs, _ := local.Model().ReadHoldingRegisters(5, 1)
		if regs[0] == 42 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("broadcast write not applied")
		}
		time.Sleep(time.Millisecond)
	}
	if sent := far.Sent(); len(sent) != 0 {
		t.Errorf("slave answered a broadcast: % X", sent)
	}
}

func TestOtherSlaveTimesOut(t *testing.T) {
	m, far, _ := startSlave(t, framings[0], modbus.WireFormat{})
	m.timeout = 50 * time.Millisecond

	if _, err := m.ReadHoldingRegisters(context.Background(), 2, 0, 1); !errors.Is(err, transport.ErrTimeout) {
		t.Errorf("err = %v, want %v", err, transport.ErrTimeout)
	}
	if sent := far.Sent(); len(sent) != 0 {
		t.Errorf("slave 1 answered slave 2: % X", sent)
	}
}

func TestExceptionAsError(t *testing.T) {
	for _, f := range framings {
		t.Run(f.name, func(t *testing.T) {
			m, _, _ := startSlave(t, f, modbus.WireFormat{})

			_, err := m.ReadInputRegisters(context.Background(), 1, 65530, 10)
			var ec modbus.ExceptionCode
			if !errors.As(err, &ec) || ec != modbus.ExceptionIllegalDataAddress {
				t.Errorf("err = %v, want %v", err, modbus.ExceptionIllegalDataAddress)
			}
		})
	}
}

// replyOnFlush is a link whose far end answers each flushed request with
// the next queued frame; a nil frame means no answer.
type replyOnFlush struct {
	*loopback.Endpoint
	replies [][]byte
}

func (r *replyOnFlush) Flush() error {
	if err := r.Endpoint.Flush(); err != nil {
		return err
	}
	if len(r.replies) > 0 {
		r.Feed(r.replies[0])
		r.replies = r.replies[1:]
	}
	return nil
}

func registerFrame(framer modbus.Framer, slaveID byte, values ...uint16) []byte {
	resp := modbus.NewResponse(modbus.Builder{}.ReadHoldingRegisters(slaveID, 0, uint16(len(values))))
	resp.Exception = modbus.ExceptionAcknowledge
	resp.SetRegisters(values)
	return framer.EncodeResponse(resp)
}

func TestMaskWriteEcho(t *testing.T) {
	tests := []struct {
		name   string
		echoOr uint16
		want   error
	}{
		{"exact echo", 0x0005, nil},
		{"or mask differs", 0x0007, modbus.ErrEchoMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			framer := rtu.NewFramer(modbus.WireFormat{})
			resp := modbus.NewResponse(modbus.Builder{}.MaskWriteRegister(1, 16, 0x000F, tt.echoOr))
			resp.Exception = modbus.ExceptionAcknowledge
			resp.SetData([]byte{0, 16, 0, 0x0F, byte(tt.echoOr >> 8), byte(tt.echoOr)})
			link := &replyOnFlush{Endpoint: loopback.New(), replies: [][]byte{framer.EncodeResponse(resp)}}
			m := New(link, framer, testTimeout)

			if err := m.MaskWriteRegister(context.Background(), 1, 16, 0x000F, 0x0005); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSlaveIDMismatch(t *testing.T) {
	framer := rtu.NewFramer(modbus.WireFormat{})
	link := &replyOnFlush{Endpoint: loopback.New(), replies: [][]byte{registerFrame(framer, 3, 1)}}
	m := New(link, framer, testTimeout)

	if _, err := m.ReadHoldingRegisters(context.Background(), 1, 0, 1); !errors.Is(err, modbus.ErrSlaveIDMismatch) {
		t.Errorf("err = %v, want %v", err, modbus.ErrSlaveIDMismatch)
	}
}

func TestLateResponseDiscarded(t *testing.T) {
	ctx := context.Background()
	framer := rtu.NewFramer(modbus.WireFormat{})
	link := &replyOnFlush{Endpoint: loopback.New(), replies: [][]byte{nil, registerFrame(framer, 1, 222)}}
	m := New(link, framer, 20*time.Millisecond)

	if _, err := m.ReadHoldingRegisters(ctx, 1, 0, 1); !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("first poll: %v, want %v", err, transport.ErrTimeout)
	}

	// The answer to the first poll arrives after the master gave up on it.
	link.Feed(registerFrame(framer, 1, 111))

	got, err := m.ReadHoldingRegisters(ctx, 1, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []uint16{222}) {
		t.Errorf("second poll = %v, want [222]", got)
	}
}

func TestTransportFailures(t *testing.T) {
	ctx := context.Background()

	ep := loopback.New()
	ep.ShortWrites()
	if _, err := NewRTU(ep, Options{Timeout: testTimeout}).ReadCoils(ctx, 1, 0, 1); !errors.Is(err, modbus.ErrShortWrite) {
		t.Errorf("short write: %v", err)
	}

	flushErr := errors.New("line down")
	ep = loopback.New()
	ep.FailFlush(flushErr)
	if _, err := NewRTU(ep, Options{Timeout: testTimeout}).ReadCoils(ctx, 1, 0, 1); !errors.Is(err, flushErr) {
		t.Errorf("flush: %v", err)
	}

	m := NewRTU(loopback.New(), Options{Timeout: 20 * time.Millisecond})
	if _, err := m.ReadCoils(ctx, 1, 0, 1); !errors.Is(err, transport.ErrTimeout) {
		t.Errorf("silent line: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	m = NewRTU(loopback.New(), Options{})
	if _, err := m.ReadCoils(cctx, 1, 0, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("context: %v", err)
	}
}
