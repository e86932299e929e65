// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ffutop/modbus-serial/internal/config"
	localslave "github.com/ffutop/modbus-serial/internal/local-slave"
	"github.com/ffutop/modbus-serial/internal/local-slave/model"
	"github.com/ffutop/modbus-serial/internal/logging"
	"github.com/ffutop/modbus-serial/master"
	"github.com/ffutop/modbus-serial/modbus"
	"github.com/ffutop/modbus-serial/slave"
	"github.com/ffutop/modbus-serial/transport/serial"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "Configuration file path.")
	mode := pflag.StringP("mode", "m", "slave", "Run as a local 'slave' or 'poll' a remote slave as master.")
	slaveID := pflag.Uint8P("slave-id", "i", 1, "Slave polled in poll mode.")
	start := pflag.Uint16P("start", "s", 0, "First holding register polled.")
	count := pflag.Uint16P("count", "n", 10, "Number of holding registers polled.")
	interval := pflag.DurationP("interval", "I", time.Second, "Pause between polls.")
	pflag.Parse()

	// Load Configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logFile := logging.Setup(cfg.Log)
	defer logFile.Close()

	format, err := cfg.Wire.Format()
	if err != nil {
		slog.Error("Invalid wire format", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "slave":
		err = runSlave(ctx, cfg.Slave, format)
	case "poll":
		err = runPoll(ctx, cfg.Master, format, *slaveID, *start, *count, *interval)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Stopped with error", "mode", *mode, "err", err)
		os.Exit(1)
	}
	slog.Info("Goodbye.")
}

func runSlave(ctx context.Context, cfg config.SlaveConfig, format modbus.WireFormat) error {
	port := serial.New(cfg.Serial.PortConfig())
	// A slave must keep listening however long the line stays quiet.
	port.IdleTimeout = 0
	defer port.Close()
	if err := port.Connect(ctx); err != nil {
		return err
	}

	local := localslave.NewLocalSlave(model.NewDataModel(), cfg.ID, cfg.Identity)
	opts := slave.Options{Timeout: cfg.Timeout}
	s := slave.NewRTU(cfg.ID, format, local, opts)
	if cfg.Framing == "ascii" {
		s = slave.NewASCII(cfg.ID, format, local, opts)
	}

	slog.Info("Starting Modbus slave...", "device", cfg.Serial.Device, "framing", cfg.Framing, "slave", cfg.ID)
	return s.Serve(ctx, port)
}

func runPoll(ctx context.Context, cfg config.MasterConfig, format modbus.WireFormat, slaveID byte, start, count uint16, interval time.Duration) error {
	port := serial.New(cfg.Serial.PortConfig())
	defer port.Close()

	opts := master.Options{Format: format, Timeout: cfg.Timeout}
	m := master.NewRTU(port, opts)
	if cfg.Framing == "ascii" {
		m = master.NewASCII(port, opts)
	}

	slog.Info("Polling Modbus slave...", "device", cfg.Serial.Device, "framing", cfg.Framing, "slave", slaveID)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		values, err := m.ReadHoldingRegisters(ctx, slaveID, start, count)
		if err != nil {
			slog.Warn("Poll failed", "slave", slaveID, "err", err)
		} else {
			slog.Info("Holding registers", "slave", slaveID, "start", start, "values", values)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
