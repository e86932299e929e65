// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package ascii implements Modbus ASCII framing: a colon, the uppercase hex
// of slave id, function code, body and LRC, then CR LF.
package ascii

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ffutop/modbus-serial/modbus"
	"github.com/ffutop/modbus-serial/modbus/lrc"
)

const (
	Start = ':'
	CR    = '\r'
	LF    = '\n'

	// MaxSize is the longest ASCII frame: start, 2*(255+1+1+1) hex digits and CR LF.
	MaxSize = 513
	// MinSize is start, slave id, function code, LRC and CR LF.
	MinSize = 1 + 2*3 + 2
)

var crlf = []byte{CR, LF}

// Framer is the ASCII implementation of modbus.Framer.
type Framer struct {
	format modbus.WireFormat
}

var _ modbus.Framer = (*Framer)(nil)

func NewFramer(format modbus.WireFormat) *Framer {
	return &Framer{format: format.Clone()}
}

func (f *Framer) Format() modbus.WireFormat { return f.format.Clone() }

func (f *Framer) EncodeRequest(req *modbus.Request) []byte {
	return encode(modbus.EncodeRequestPDU(req))
}

func (f *Framer) EncodeResponse(resp *modbus.Response) []byte {
	return encode(modbus.EncodeResponsePDU(resp))
}

func encode(pdu []byte) []byte {
	pdu = append(pdu, lrc.Checksum(pdu))
	frame := make([]byte, 1+hex.EncodedLen(len(pdu)), 1+hex.EncodedLen(len(pdu))+len(crlf))
	frame[0] = Start
	hex.Encode(frame[1:], pdu)
	frame = bytes.ToUpper(frame)
	return append(frame, crlf...)
}

func (f *Framer) DecodeRequest(frame []byte) (*modbus.Request, error) {
	pdu, err := decode(frame)
	if err != nil {
		return nil, err
	}
	return modbus.DecodeRequestPDU(pdu, f.format.ByteOrder)
}

func (f *Framer) DecodeResponse(frame []byte) (*modbus.Response, error) {
	pdu, err := decode(frame)
	if err != nil {
		return nil, err
	}
	return modbus.DecodeResponsePDU(pdu, f.format.ByteOrder)
}

// decode checks delimiters and LRC and returns slave id, function code and body.
func decode(frame []byte) ([]byte, error) {
	if len(frame) == 0 || frame[0] != Start {
		return nil, modbus.ErrBadStart
	}
	end := bytes.IndexByte(frame[1:], CR)
	if end < 0 {
		return nil, modbus.ErrBadEnd
	}
	digits := frame[1 : 1+end]
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", modbus.ErrBadHex, len(digits))
	}
	raw := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(raw, digits); err != nil {
		return nil, fmt.Errorf("%w: %v", modbus.ErrBadHex, err)
	}
	if len(raw) < 3 {
		return nil, modbus.ErrFrameTooShort
	}
	if !lrc.Verify(raw) {
		return nil, modbus.ErrBadLRC
	}
	return raw[:len(raw)-1], nil
}

// RequestFrame and ResponseFrame share one rule: the frame ends at the first
// CR LF preceded by a colon and starts at the last colon before it. A colon
// starts a new frame, so an unterminated fragment ahead of it is dropped.
func (f *Framer) RequestFrame(buf []byte) ([]byte, bool) { return scan(buf) }

func (f *Framer) ResponseFrame(buf []byte) ([]byte, bool) { return scan(buf) }

func scan(buf []byte) ([]byte, bool) {
	start := bytes.IndexByte(buf, Start)
	if start < 0 {
		return nil, false
	}
	end := bytes.Index(buf[start:], crlf)
	if end < 0 {
		return nil, false
	}
	end += start
	start = bytes.LastIndexByte(buf[:end], Start)
	return buf[start : end+len(crlf)], true
}
