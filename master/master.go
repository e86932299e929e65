// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package master implements the Modbus serial-line master: one blocking
// request/response exchange at a time over a transport.Transport.
package master

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/ffutop/modbus-serial/modbus"
	"github.com/ffutop/modbus-serial/modbus/ascii"
	"github.com/ffutop/modbus-serial/modbus/rtu"
	"github.com/ffutop/modbus-serial/transport"
)

type Options struct {
	Format modbus.WireFormat
	// Timeout bounds the wait for a response; 0 waits until the context ends.
	Timeout time.Duration
}

// Master sends requests through a framer over one transport. It is not safe
// for concurrent use.
type Master struct {
	transport transport.Transport
	framer    modbus.Framer
	format    modbus.WireFormat
	timeout   time.Duration
	builder   modbus.Builder
}

func New(t transport.Transport, framer modbus.Framer, timeout time.Duration) *Master {
	format := framer.Format()
	return &Master{
		transport: t,
		framer:    framer,
		format:    format,
		timeout:   timeout,
		builder:   modbus.Builder{Order: format.ByteOrder},
	}
}

// NewRTU returns a master using RTU framing.
func NewRTU(t transport.Transport, opts Options) *Master {
	return New(t, rtu.NewFramer(opts.Format), opts.Timeout)
}

// NewASCII returns a master using ASCII framing.
func NewASCII(t transport.Transport, opts Options) *Master {
	return New(t, ascii.NewFramer(opts.Format), opts.Timeout)
}

// Builder returns the request builder matching the master's byte order.
func (m *Master) Builder() modbus.Builder { return m.builder }

// SendRequest writes req and waits for the matching response.
//
// A broadcast of a broadcastable write returns a synthetic acknowledge
// without reading. The returned response may carry a Modbus exception; the
// typed operations turn that into an error.
func (m *Master) SendRequest(ctx context.Context, req *modbus.Request) (*modbus.Response, error) {
	adu := m.framer.EncodeRequest(req)

	// Late answers to an earlier request must not be taken for this one.
	stale, err := transport.Discard(m.transport)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		slog.Debug("discard stale input", "slave", req.SlaveID, "data", hex.EncodeToString(stale))
	}

	slog.Debug("send to modbus slave", "slave", req.SlaveID, "function", req.Function, "request", hex.EncodeToString(adu))
	n, err := m.transport.Write(adu)
	if err != nil {
		return nil, fmt.Errorf("modbus: write request: %w", err)
	}
	if n != len(adu) {
		return nil, modbus.ErrShortWrite
	}
	if err := m.transport.Flush(); err != nil {
		return nil, fmt.Errorf("modbus: flush request: %w", err)
	}

	if req.SlaveID == 0 && req.Function.IsBroadcastable() {
		return modbus.Acknowledge(req), nil
	}

	frame, err := transport.ReadFrame(ctx, m.transport, m.timeout, m.framer.ResponseFrame)
	if err != nil {
		return nil, err
	}
	slog.Debug("recv from modbus slave", "slave", req.SlaveID, "response", hex.EncodeToString(frame))

	resp, err := m.framer.DecodeResponse(frame)
	if err != nil {
		return nil, fmt.Errorf("modbus: decode response: %w", err)
	}
	if resp.SlaveID != req.SlaveID {
		return nil, fmt.Errorf("%w: got %d, want %d", modbus.ErrSlaveIDMismatch, resp.SlaveID, req.SlaveID)
	}
	return resp, nil
}

// execute sends req and returns the body of an acknowledged response.
func (m *Master) execute(ctx context.Context, req *modbus.Request) (*modbus.Response, error) {
	resp, err := m.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if resp.Function != req.Function {
		return nil, fmt.Errorf("%w: got %s, want %s", modbus.ErrFunctionMismatch, resp.Function, req.Function)
	}
	return resp, nil
}

// countedBody returns the bytes following a one byte count, checking the
// count against the body length.
func countedBody(data []byte) ([]byte, error) {
	if len(data) < 1 || len(data) < 1+int(data[0]) {
		return nil, modbus.ErrShortResponse
	}
	return data[1 : 1+int(data[0])], nil
}
