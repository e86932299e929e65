// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package transport defines the byte stream masters and slaves talk over
// and the polling loop that cuts frames out of it.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Transport is a buffered, non-blocking byte stream such as a serial port.
//
// Write only buffers; Flush sends what was buffered. Read never blocks: it
// returns at most Available bytes, possibly zero.
type Transport interface {
	Write(p []byte) (int, error)
	Flush() error
	Read(p []byte) (int, error)
	Available() int
}

var (
	ErrTimeout  = errors.New("transport: timed out waiting for frame")
	ErrOverflow = errors.New("transport: frame exceeds receive buffer")
)

const (
	// PollInterval is how long ReadFrame sleeps when no byte is pending.
	PollInterval = time.Millisecond
	// MaxFrameSize bounds the receive buffer; it fits the longest ASCII frame.
	MaxFrameSize = 513
)

// Discard drops every byte already received on t and returns them.
func Discard(t Transport) ([]byte, error) {
	var dropped []byte
	for n := t.Available(); n > 0; n = t.Available() {
		buf := make([]byte, n)
		m, err := t.Read(buf)
		dropped = append(dropped, buf[:m]...)
		if err != nil {
			return dropped, fmt.Errorf("transport: discard: %w", err)
		}
		if m == 0 {
			break
		}
	}
	return dropped, nil
}

// ScanFunc returns the first complete frame in buf, or false if more bytes are needed.
type ScanFunc func(buf []byte) ([]byte, bool)

// ReadFrame accumulates bytes from t until scan recognises a frame.
//
// Pending bytes are read back to back; otherwise it sleeps PollInterval
// between polls. It gives up with ErrTimeout once timeout has elapsed, or
// never when timeout is 0, and with the context error when ctx ends.
func ReadFrame(ctx context.Context, t Transport, timeout time.Duration, scan ScanFunc) ([]byte, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	buf := make([]byte, 0, MaxFrameSize)
	chunk := make([]byte, MaxFrameSize)
	timer := time.NewTimer(PollInterval)
	defer timer.Stop()

	for {
		if frame, ok := scan(buf); ok {
			return frame, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if n := t.Available(); n > 0 {
			if n > len(chunk) {
				n = len(chunk)
			}
			m, err := t.Read(chunk[:n])
			if err != nil {
				return nil, fmt.Errorf("transport: read: %w", err)
			}
			if len(buf)+m > MaxFrameSize {
				return nil, ErrOverflow
			}
			buf = append(buf, chunk[:m]...)
			if m > 0 {
				continue
			}
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil, ErrTimeout
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(PollInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
