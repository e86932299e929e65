// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "fmt"

// Response is a Modbus response PDU.
//
// Exception starts as ExceptionInvalid. A response that carries a real
// exception encodes only the exception byte, and its function code goes on
// the wire with ExceptionBit set.
type Response struct {
	SlaveID   byte
	Function  FunctionCode
	Exception ExceptionCode
	Order     ByteOrder

	data    []byte
	payload Payload
}

// NewResponse returns an empty response answering req.
func NewResponse(req *Request) *Response {
	return &Response{SlaveID: req.SlaveID, Function: req.Function, Order: req.Order, payload: Raw(nil)}
}

// NewExceptionResponse returns a response answering req with ec.
func NewExceptionResponse(req *Request, ec ExceptionCode) *Response {
	resp := NewResponse(req)
	resp.Exception = ec
	return resp
}

// Acknowledge returns the response a master synthesizes for a broadcast write.
func Acknowledge(req *Request) *Response {
	resp := NewResponse(req)
	resp.Exception = ExceptionAcknowledge
	return resp
}

func (r *Response) Data() []byte { return r.data }

func (r *Response) Payload() Payload {
	if r.payload == nil {
		return Raw(r.data)
	}
	return r.payload
}

// SetData replaces the body and re-derives the typed view.
func (r *Response) SetData(data []byte) {
	r.data = data
	r.payload = parseResponsePayload(r.Function, data, r.Order)
}

// SetRegisters sets a byte count prefixed register list, the body of
// register read responses.
func (r *Response) SetRegisters(values []uint16) {
	body := make([]byte, 1, 1+2*len(values))
	body[0] = byte(2 * len(values))
	r.SetData(append(body, EncodeRegisters(values, r.Order)...))
}

// SetBits sets a byte count prefixed bit list, the body of coil and
// discrete input read responses.
func (r *Response) SetBits(values []bool) {
	packed := PackBits(values)
	r.SetData(append([]byte{byte(len(packed))}, packed...))
}

// Err returns the exception as an error, or nil for an acknowledged response.
func (r *Response) Err() error {
	if r.Exception == ExceptionAcknowledge {
		return nil
	}
	return r.Exception
}

func (r *Response) String() string {
	if r.Exception.IsException() {
		return fmt.Sprintf("slave=%d function=%s exception=%s", r.SlaveID, r.Function, r.Exception)
	}
	return fmt.Sprintf("slave=%d function=%s data=% X", r.SlaveID, r.Function, r.data)
}
