// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"testing"

	gomodbus "github.com/goburrow/modbus"

	"github.com/ffutop/modbus-serial/modbus"
)

// The goburrow packager is an independent RTU implementation; frames must
// be byte-identical in both directions.
func TestInteropWithGoburrow(t *testing.T) {
	handler := gomodbus.NewRTUClientHandler("")
	handler.SlaveId = 0x11
	f := NewFramer(modbus.WireFormat{})

	for _, req := range requestsForAllCodes(t, modbus.Builder{}, 0x11) {
		t.Run(req.Function.String(), func(t *testing.T) {
			theirs, err := handler.Encode(&gomodbus.ProtocolDataUnit{
				FunctionCode: byte(req.Function),
				Data:         req.Data(),
			})
			if err != nil {
				t.Fatal(err)
			}
			ours := f.EncodeRequest(req)
			if !bytes.Equal(ours, theirs) {
				t.Fatalf("EncodeRequest = % X, goburrow = % X", ours, theirs)
			}

			pdu, err := handler.Decode(ours)
			if err != nil {
				t.Fatalf("goburrow rejected our frame: %v", err)
			}
			if pdu.FunctionCode != byte(req.Function) || !bytes.Equal(pdu.Data, req.Data()) {
				t.Fatalf("goburrow decoded %02X % X", pdu.FunctionCode, pdu.Data)
			}
		})
	}
}
