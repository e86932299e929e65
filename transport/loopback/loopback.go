// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package loopback provides in-memory transports for wiring masters and
// slaves together without hardware.
package loopback

import (
	"sync"

	"github.com/ffutop/modbus-serial/transport"
)

// Endpoint is one end of an in-memory link. Flushed bytes are delivered to
// the peer, if any, and recorded in Sent.
type Endpoint struct {
	mu      sync.Mutex
	peer    *Endpoint
	rx      []byte
	pending []byte
	sent    []byte

	writeErr   error
	flushErr   error
	shortWrite bool
}

var _ transport.Transport = (*Endpoint)(nil)

// New returns an endpoint without a peer; use Feed to give it input.
func New() *Endpoint {
	return &Endpoint{}
}

// Pair returns two endpoints connected to each other.
func Pair() (*Endpoint, *Endpoint) {
	a, b := &Endpoint{}, &Endpoint{}
	a.peer, b.peer = b, a
	return a, b
}

func (e *Endpoint) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.writeErr != nil {
		return 0, e.writeErr
	}
	n := len(p)
	if e.shortWrite && n > 0 {
		n--
	}
	e.pending = append(e.pending, p[:n]...)
	return n, nil
}

func (e *Endpoint) Flush() error {
	e.mu.Lock()
	if e.flushErr != nil {
		e.mu.Unlock()
		return e.flushErr
	}
	out := e.pending
	e.pending = nil
	e.sent = append(e.sent, out...)
	peer := e.peer
	e.mu.Unlock()

	if peer != nil {
		peer.Feed(out)
	}
	return nil
}

func (e *Endpoint) Read(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := copy(p, e.rx)
	e.rx = e.rx[n:]
	return n, nil
}

func (e *Endpoint) Available() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rx)
}

// Feed makes p readable on e.
func (e *Endpoint) Feed(p []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rx = append(e.rx, p...)
}

// Sent returns a copy of every byte flushed so far.
func (e *Endpoint) Sent() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.sent...)
}

// FailWrite makes subsequent writes fail with err.
func (e *Endpoint) FailWrite(err error) {
	e.mu.Lock()
	e.writeErr = err
	e.mu.Unlock()
}

// FailFlush makes subsequent flushes fail with err.
func (e *Endpoint) FailFlush(err error) {
	e.mu.Lock()
	e.flushErr = err
	e.mu.Unlock()
}

// ShortWrites makes every write accept one byte less than offered.
func (e *Endpoint) ShortWrites() {
	e.mu.Lock()
	e.shortWrite = true
	e.mu.Unlock()
}
