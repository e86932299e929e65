// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus holds the framing independent protocol model shared by the
// RTU and ASCII framers, masters and slaves.
package modbus

// Framer turns requests and responses into serial-line frames and back.
//
// RequestFrame and ResponseFrame inspect bytes accumulated from a stream.
// They return the first complete frame in buf and true, or false when more
// bytes are needed. The direction must be known: a request and a response
// with the same function code generally differ in length.
type Framer interface {
	Format() WireFormat

	EncodeRequest(req *Request) []byte
	EncodeResponse(resp *Response) []byte
	DecodeRequest(frame []byte) (*Request, error)
	DecodeResponse(frame []byte) (*Response, error)

	RequestFrame(buf []byte) ([]byte, bool)
	ResponseFrame(buf []byte) ([]byte, bool)
}
