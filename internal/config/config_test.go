// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ffutop/modbus-serial/modbus"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
wire:
  byte_order: little
  word_order: low
  float_count: registers
  float_range:
    start: 100
    count: 20
master:
  framing: ASCII
  timeout: 250ms
  serial:
    device: /dev/ttyUSB0
    baud_rate: 9600
    parity: n
slave:
  id: 17
  identity: boiler
  serial:
    device: /dev/ttyUSB1
    rs485: true
    delay_rts_before_send: 2ms
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Master.Framing != "ascii" || cfg.Master.Timeout != 250*time.Millisecond {
		t.Errorf("Master = %+v", cfg.Master)
	}
	if cfg.Slave.ID != 17 || cfg.Slave.Identity != "boiler" || cfg.Slave.Framing != "rtu" {
		t.Errorf("Slave = %+v", cfg.Slave)
	}

	ms := cfg.Master.Serial
	if ms.Parity != "N" || ms.BaudRate != 9600 || ms.DataBits != 8 || ms.StopBits != 1 || ms.Timeout != 500*time.Millisecond {
		t.Errorf("Master.Serial fixups = %+v", ms)
	}

	format, err := cfg.Wire.Format()
	if err != nil {
		t.Fatal(err)
	}
	want := modbus.WireFormat{
		ByteOrder:  modbus.LittleEndian,
		WordOrder:  modbus.LowWordFirst,
		FloatCount: modbus.CountRegisters,
		FloatRange: &modbus.AddressSpan{Start: 100, Count: 20},
	}
	if format.ByteOrder != want.ByteOrder || format.WordOrder != want.WordOrder ||
		format.FloatCount != want.FloatCount || *format.FloatRange != *want.FloatRange {
		t.Errorf("Format = %+v, want %+v", format, want)
	}

	pc := cfg.Slave.Serial.PortConfig()
	if pc.Address != "/dev/ttyUSB1" || pc.BaudRate != 19200 || pc.Parity != "E" {
		t.Errorf("PortConfig = %+v", pc)
	}
	if !pc.RS485.Enabled || pc.RS485.DelayRtsBeforeSend != 2*time.Millisecond {
		t.Errorf("PortConfig.RS485 = %+v", pc.RS485)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "log:\n  file: \"-\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "info" || cfg.Master.Timeout != time.Second || cfg.Slave.ID != 1 {
		t.Errorf("defaults = %+v", cfg)
	}
	format, err := cfg.Wire.Format()
	if err != nil {
		t.Fatal(err)
	}
	if format.ByteOrder != modbus.BigEndian || format.WordOrder != modbus.HighWordFirst || format.FloatRange != nil {
		t.Errorf("default format = %+v", format)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"byte order":  "wire:\n  byte_order: middle\n",
		"word order":  "wire:\n  word_order: sideways\n",
		"float count": "wire:\n  float_count: bytes\n",
		"framing":     "master:\n  framing: tcp\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
