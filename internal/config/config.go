// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strings"
	"time"

	gridserial "github.com/grid-x/serial"
	"github.com/spf13/viper"

	"github.com/ffutop/modbus-serial/modbus"
)

// Config defines the global configuration structure
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Wire   WireConfig   `mapstructure:"wire"`
	Master MasterConfig `mapstructure:"master"`
	Slave  SlaveConfig  `mapstructure:"slave"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// WireConfig defines how registers and floats are laid out on the wire
type WireConfig struct {
	ByteOrder  string `mapstructure:"byte_order"`  // "big" or "little"
	WordOrder  string `mapstructure:"word_order"`  // "high" or "low" word first
	FloatCount string `mapstructure:"float_count"` // "floats" or "registers"
	// FloatRange limits float accesses to [start, start+count); empty means no limit
	FloatRange *RangeConfig `mapstructure:"float_range"`
}

type RangeConfig struct {
	Start uint16 `mapstructure:"start"`
	Count uint16 `mapstructure:"count"`
}

// MasterConfig defines the master side of a serial line
type MasterConfig struct {
	Framing string        `mapstructure:"framing"` // "rtu" or "ascii"
	Timeout time.Duration `mapstructure:"timeout"` // Response wait time
	Serial  SerialConfig  `mapstructure:"serial"`
}

// SlaveConfig defines a local slave device served on a serial line
type SlaveConfig struct {
	ID       byte          `mapstructure:"id"`
	Framing  string        `mapstructure:"framing"`  // "rtu" or "ascii"
	Timeout  time.Duration `mapstructure:"timeout"`  // Request wait time; 0 waits forever
	Identity string        `mapstructure:"identity"` // ReportSlaveID additional data
	Serial   SerialConfig  `mapstructure:"serial"`
}

// SerialConfig defines RTU settings
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// LoadConfig loads configuration from file
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbus-serial/")
		v.AddConfigPath("$HOME/.modbus-serial")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("wire.byte_order", "big")
	v.SetDefault("wire.word_order", "high")
	v.SetDefault("wire.float_count", "floats")
	v.SetDefault("master.framing", "rtu")
	v.SetDefault("master.timeout", time.Second)
	v.SetDefault("slave.id", 1)
	v.SetDefault("slave.framing", "rtu")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return nil, fmt.Errorf("failed to found config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate / Fixups
	config.Master.Framing = strings.ToLower(config.Master.Framing)
	config.Slave.Framing = strings.ToLower(config.Slave.Framing)
	fixupSerial(&config.Master.Serial)
	fixupSerial(&config.Slave.Serial)

	if _, err := config.Wire.Format(); err != nil {
		return nil, err
	}
	for _, framing := range []string{config.Master.Framing, config.Slave.Framing} {
		if framing != "rtu" && framing != "ascii" {
			return nil, fmt.Errorf("unknown framing %q", framing)
		}
	}
	return &config, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Parity == "" {
		s.Parity = "E"
	}
	if s.BaudRate == 0 {
		s.BaudRate = 19200
	}
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.StopBits == 0 {
		s.StopBits = 1
	}
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
}

// Format converts the wire section to a modbus.WireFormat.
func (w WireConfig) Format() (modbus.WireFormat, error) {
	var f modbus.WireFormat

	switch strings.ToLower(w.ByteOrder) {
	case "", "big":
		f.ByteOrder = modbus.BigEndian
	case "little":
		f.ByteOrder = modbus.LittleEndian
	default:
		return f, fmt.Errorf("unknown byte order %q", w.ByteOrder)
	}

	switch strings.ToLower(w.WordOrder) {
	case "", "high":
		f.WordOrder = modbus.HighWordFirst
	case "low":
		f.WordOrder = modbus.LowWordFirst
	default:
		return f, fmt.Errorf("unknown word order %q", w.WordOrder)
	}

	switch strings.ToLower(w.FloatCount) {
	case "", "floats":
		f.FloatCount = modbus.CountFloats
	case "registers":
		f.FloatCount = modbus.CountRegisters
	default:
		return f, fmt.Errorf("unknown float count %q", w.FloatCount)
	}

	if w.FloatRange != nil {
		f.FloatRange = &modbus.AddressSpan{Start: w.FloatRange.Start, Count: w.FloatRange.Count}
	}
	return f, nil
}

// PortConfig maps the serial section to the serial driver's configuration.
func (s SerialConfig) PortConfig() gridserial.Config {
	cfg := gridserial.Config{
		Address:  s.Device,
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		StopBits: s.StopBits,
		Parity:   s.Parity,
		Timeout:  s.Timeout,
	}
	if s.RS485 {
		cfg.RS485.Enabled = true
		cfg.RS485.DelayRtsBeforeSend = s.DelayRtsBeforeSend
		cfg.RS485.DelayRtsAfterSend = s.DelayRtsAfterSend
		cfg.RS485.RtsHighDuringSend = s.RtsHighDuringSend
		cfg.RS485.RtsHighAfterSend = s.RtsHighAfterSend
		cfg.RS485.RxDuringTx = s.RxDuringTx
	}
	return cfg
}
