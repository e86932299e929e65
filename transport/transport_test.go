// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ffutop/modbus-serial/transport"
	"github.com/ffutop/modbus-serial/transport/loopback"
)

// lineScan recognises frames terminated by a newline.
func lineScan(buf []byte) ([]byte, bool) {
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		return buf[:i+1], true
	}
	return nil, false
}

func TestReadFrameAcrossPartialReads(t *testing.T) {
	ep := loopback.New()
	ep.Feed([]byte("hel"))
	go func() {
		time.Sleep(5 * time.Millisecond)
		ep.Feed([]byte("lo\nrest"))
	}()

	frame, err := transport.ReadFrame(context.Background(), ep, time.Second, lineScan)
	if err != nil {
		t.Fatal(err)
	}
	if string(frame) != "hello\n" {
		t.Fatalf("frame = %q", frame)
	}
}

func TestReadFrameTimeout(t *testing.T) {
	ep := loopback.New()
	ep.Feed([]byte("no newline"))
	start := time.Now()
	_, err := transport.ReadFrame(context.Background(), ep, 20*time.Millisecond, lineScan)
	if !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("returned after %v", elapsed)
	}
}

func TestReadFrameContextCancel(t *testing.T) {
	ep := loopback.New()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	// Timeout 0 waits for ever; only the context ends the call.
	if _, err := transport.ReadFrame(ctx, ep, 0, lineScan); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReadFrameOverflow(t *testing.T) {
	ep := loopback.New()
	ep.Feed(bytes.Repeat([]byte{'x'}, transport.MaxFrameSize+1))
	if _, err := transport.ReadFrame(context.Background(), ep, time.Second, lineScan); !errors.Is(err, transport.ErrOverflow) {
		t.Fatalf("err = %v, want ErrOverflow", err)
	}
}

func TestLoopbackPair(t *testing.T) {
	a, b := loopback.Pair()
	if _, err := a.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	if b.Available() != 0 {
		t.Fatal("bytes delivered before Flush")
	}
	if err := a.Flush(); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 8)
	n, _ := b.Read(buf)
	if string(buf[:n]) != "ping" || string(a.Sent()) != "ping" {
		t.Fatalf("read %q, sent %q", buf[:n], a.Sent())
	}
}

func TestDiscard(t *testing.T) {
	ep := loopback.New()
	ep.Feed([]byte{0x01, 0x03, 0x02})
	dropped, err := transport.Discard(ep)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dropped, []byte{0x01, 0x03, 0x02}) {
		t.Errorf("dropped % X", dropped)
	}
	if n := ep.Available(); n != 0 {
		t.Errorf("Available = %d after Discard", n)
	}

	if dropped, err := transport.Discard(ep); err != nil || len(dropped) != 0 {
		t.Errorf("Discard of empty link = % X, %v", dropped, err)
	}
}
