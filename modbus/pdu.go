// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

// EncodeRequestPDU returns slave id, function code and body.
func EncodeRequestPDU(req *Request) []byte {
	pdu := make([]byte, 0, 2+len(req.data)+2)
	pdu = append(pdu, req.SlaveID, byte(req.Function))
	return append(pdu, req.data...)
}

// EncodeResponsePDU returns slave id, function code and body, or the
// flagged function code and exception byte for exception responses.
func EncodeResponsePDU(resp *Response) []byte {
	if resp.Exception.IsException() {
		return []byte{resp.SlaveID, byte(resp.Function) | ExceptionBit, byte(resp.Exception)}
	}
	pdu := make([]byte, 0, 2+len(resp.data)+2)
	pdu = append(pdu, resp.SlaveID, byte(resp.Function))
	return append(pdu, resp.data...)
}

// DecodeRequestPDU parses slave id, function code and body. Unknown
// function codes are kept with a Raw payload.
func DecodeRequestPDU(pdu []byte, order ByteOrder) (*Request, error) {
	if len(pdu) < 2 {
		return nil, ErrFrameTooShort
	}
	req := NewRequest(pdu[0], FunctionCode(pdu[1]), order)
	req.SetData(append([]byte(nil), pdu[2:]...))
	return req, nil
}

// DecodeResponsePDU parses slave id, function code and body, splitting off
// the exception bit. Normal responses get ExceptionAcknowledge.
func DecodeResponsePDU(pdu []byte, order ByteOrder) (*Response, error) {
	if len(pdu) < 2 {
		return nil, ErrFrameTooShort
	}
	resp := &Response{
		SlaveID:  pdu[0],
		Function: FunctionCode(pdu[1] &^ ExceptionBit),
		Order:    order,
	}
	if pdu[1]&ExceptionBit != 0 {
		if len(pdu) < 3 {
			return nil, ErrFrameTooShort
		}
		resp.Exception = ExceptionCode(pdu[2])
		resp.payload = Raw(nil)
		return resp, nil
	}
	resp.Exception = ExceptionAcknowledge
	resp.SetData(append([]byte(nil), pdu[2:]...))
	return resp, nil
}
