// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package serial binds transport.Transport to a serial line.
package serial

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	gridserial "github.com/grid-x/serial"

	"github.com/ffutop/modbus-serial/modbus"
	"github.com/ffutop/modbus-serial/transport"
)

const (
	serialIdleTimeout = 60 * time.Second

	// readTimeout bounds each blocking read of the receive pump.
	readTimeout = 10 * time.Millisecond
	rxBufSize   = 1024
)

// Port is a serial line used as a transport.Transport.
//
// The line is opened on first use. A receive goroutine moves incoming bytes
// into a buffer so Available and Read never block. Writes are buffered until
// Flush, which first waits out the inter-frame silence of the baud rate.
type Port struct {
	// Serial port configuration.
	gridserial.Config

	IdleTimeout time.Duration

	open func(*gridserial.Config) (io.ReadWriteCloser, error)

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port         io.ReadWriteCloser
	lastActivity time.Time
	closeTimer   *time.Timer
	tx           []byte

	rxMu    sync.Mutex
	rx      []byte
	readErr error
}

var _ transport.Transport = (*Port)(nil)

// New returns a port for cfg; nothing is opened yet.
func New(cfg gridserial.Config) *Port {
	if cfg.Timeout <= 0 || cfg.Timeout > readTimeout {
		cfg.Timeout = readTimeout
	}
	return &Port{
		Config:      cfg,
		IdleTimeout: serialIdleTimeout,
		open: func(c *gridserial.Config) (io.ReadWriteCloser, error) {
			return gridserial.Open(c)
		},
	}
}

func (p *Port) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.connect(ctx)
}

// connect opens the serial port if it is not open. Caller must hold the mutex.
func (p *Port) connect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.port == nil {
		port, err := p.open(&p.Config)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", p.Config.Address, err)
		}
		p.port = port
		p.rxMu.Lock()
		p.readErr = nil
		p.rxMu.Unlock()
		go p.receive(port)
	}
	return nil
}

// receive copies bytes from port into the receive buffer until the port fails or is closed.
func (p *Port) receive(port io.ReadWriteCloser) {
	buf := make([]byte, rxBufSize)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			p.rxMu.Lock()
			p.rx = append(p.rx, buf[:n]...)
			p.rxMu.Unlock()
		}
		if err == nil || errors.Is(err, gridserial.ErrTimeout) {
			continue
		}

		p.mu.Lock()
		current := p.port == port
		p.mu.Unlock()
		if current {
			p.rxMu.Lock()
			p.readErr = err
			p.rxMu.Unlock()
			slog.Error("serial receive failed", "device", p.Config.Address, "error", err)
		}
		return
	}
}

// Write buffers b until Flush.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tx = append(p.tx, b...)
	return len(b), nil
}

// Flush sends the buffered bytes after the inter-frame delay.
func (p *Port) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(context.Background()); err != nil {
		return err
	}
	if len(p.tx) == 0 {
		return nil
	}
	if wait := time.Until(p.lastActivity.Add(p.calculateDelay(0))); wait > 0 {
		time.Sleep(wait)
	}

	out := p.tx
	p.tx = nil
	slog.Debug("serial write", "device", p.Config.Address, "frame", hex.EncodeToString(out))
	n, err := p.port.Write(out)
	p.lastActivity = time.Now().Add(p.calculateDelay(n))
	p.startCloseTimer()
	if err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if n != len(out) {
		return modbus.ErrShortWrite
	}
	return nil
}

func (p *Port) Available() int {
	p.rxMu.Lock()
	defer p.rxMu.Unlock()
	return len(p.rx)
}

// Read drains up to len(b) received bytes. Once the buffer is empty it
// reports the error that stopped the receiver, if any.
func (p *Port) Read(b []byte) (int, error) {
	p.rxMu.Lock()
	if len(p.rx) == 0 && p.readErr != nil {
		err := p.readErr
		p.rxMu.Unlock()
		return 0, err
	}
	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	p.rxMu.Unlock()

	if n > 0 {
		p.mu.Lock()
		p.lastActivity = time.Now()
		p.mu.Unlock()
	}
	return n, nil
}

func (p *Port) Close() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.close()
}

// close closes the serial port if it is open. Caller must hold the mutex.
func (p *Port) close() (err error) {
	if p.closeTimer != nil {
		p.closeTimer.Stop()
	}
	if p.port != nil {
		err = p.port.Close()
		p.port = nil
	}
	return
}

func (p *Port) startCloseTimer() {
	if p.IdleTimeout <= 0 {
		return
	}
	if p.closeTimer == nil {
		p.closeTimer = time.AfterFunc(p.IdleTimeout, p.closeIdle)
	} else {
		p.closeTimer.Reset(p.IdleTimeout)
	}
}

// closeIdle closes the connection if last activity is passed behind IdleTimeout.
func (p *Port) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.IdleTimeout <= 0 {
		return
	}

	if idle := time.Since(p.lastActivity); idle >= p.IdleTimeout {
		slog.Debug("closing serial port due to idle timeout", "device", p.Config.Address, "idle", idle)
		p.close()
	}
}

// calculateDelay calculates the time chars take on the wire plus the
// silent interval that separates frames.
func (p *Port) calculateDelay(chars int) time.Duration {
	var characterDelay, frameDelay int

	if p.BaudRate <= 0 || p.BaudRate > 19200 {
		characterDelay = 750
		frameDelay = 1750
	} else {
		characterDelay = 15000000 / p.BaudRate
		frameDelay = 35000000 / p.BaudRate
	}
	return time.Duration(characterDelay*chars+frameDelay) * time.Microsecond
}
