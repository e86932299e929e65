// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package slave implements the Modbus serial-line slave: it reads request
// frames, hands them to a Processor and writes the answers back.
package slave

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ffutop/modbus-serial/modbus"
	"github.com/ffutop/modbus-serial/modbus/ascii"
	"github.com/ffutop/modbus-serial/modbus/rtu"
	"github.com/ffutop/modbus-serial/transport"
)

// Processor executes a decoded request against the slave's data.
// An error is answered with a SlaveDeviceFailure exception.
type Processor interface {
	Process(req *modbus.Request) (*modbus.Response, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(req *modbus.Request) (*modbus.Response, error)

func (f ProcessorFunc) Process(req *modbus.Request) (*modbus.Response, error) { return f(req) }

type Options struct {
	// Timeout bounds the wait for one request frame; 0 waits until the context ends.
	Timeout time.Duration
}

type Slave struct {
	id        byte
	framer    modbus.Framer
	processor Processor
	timeout   time.Duration
}

func New(id byte, framer modbus.Framer, processor Processor, opts Options) *Slave {
	return &Slave{id: id, framer: framer, processor: processor, timeout: opts.Timeout}
}

func NewRTU(id byte, format modbus.WireFormat, processor Processor, opts Options) *Slave {
	return New(id, rtu.NewFramer(format), processor, opts)
}

func NewASCII(id byte, format modbus.WireFormat, processor Processor, opts Options) *Slave {
	return New(id, ascii.NewFramer(format), processor, opts)
}

func (s *Slave) ID() byte { return s.id }

// ProcessIncomingFrame handles one request read from t.
//
// Frames for other slaves fail with ErrNotAddressed and a broadcast of a
// function that may not be broadcast fails with ErrBroadcastRejected;
// neither is answered. Accepted broadcasts are processed but not answered.
func (s *Slave) ProcessIncomingFrame(ctx context.Context, t transport.Transport) error {
	frame, err := transport.ReadFrame(ctx, t, s.timeout, s.framer.RequestFrame)
	if err != nil {
		return err
	}
	slog.Debug("recv from modbus master", "request", hex.EncodeToString(frame))

	req, err := s.framer.DecodeRequest(frame)
	if err != nil {
		return fmt.Errorf("modbus: decode request: %w", err)
	}

	broadcast := req.SlaveID == 0
	switch {
	case broadcast && !req.Function.IsBroadcastable():
		return fmt.Errorf("%w: %s", modbus.ErrBroadcastRejected, req.Function)
	case !broadcast && req.SlaveID != s.id:
		return fmt.Errorf("%w: %d", modbus.ErrNotAddressed, req.SlaveID)
	}

	resp, err := s.processor.Process(req)
	switch {
	case err != nil:
		slog.Error("failed to process request", "slave", s.id, "function", req.Function, "error", err)
		resp = modbus.NewExceptionResponse(req, modbus.ExceptionSlaveDeviceFailure)
	case resp == nil:
		slog.Error("processor returned no response", "slave", s.id, "function", req.Function)
		resp = modbus.NewExceptionResponse(req, modbus.ExceptionSlaveDeviceFailure)
	}
	if broadcast {
		return nil
	}

	resp.SlaveID = s.id
	adu := s.framer.EncodeResponse(resp)
	slog.Debug("send to modbus master", "response", hex.EncodeToString(adu))
	n, err := t.Write(adu)
	if err != nil {
		return fmt.Errorf("modbus: write response: %w", err)
	}
	if n != len(adu) {
		return modbus.ErrShortWrite
	}
	if err := t.Flush(); err != nil {
		return fmt.Errorf("modbus: flush response: %w", err)
	}
	return nil
}

// Serve processes frames until ctx ends. Per-frame failures are logged and
// do not stop the loop.
func (s *Slave) Serve(ctx context.Context, t transport.Transport) error {
	slog.Info("modbus slave serving", "slave", s.id)
	for {
		err := s.ProcessIncomingFrame(ctx, t)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, transport.ErrTimeout):
		case errors.Is(err, modbus.ErrNotAddressed):
			slog.Debug("ignored frame", "slave", s.id, "error", err)
		default:
			slog.Warn("failed to handle frame", "slave", s.id, "error", err)
		}
	}
}
