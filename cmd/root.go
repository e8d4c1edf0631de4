// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Thermoquad/trvlink/internal/config"
	"github.com/Thermoquad/trvlink/internal/logging"
)

var (
	// Merged flag/env/file settings, filled before any command runs
	conf = &config.Config{}

	configFile string
	logLevel   = logging.DefaultLogLevel
)

var rootCmd = &cobra.Command{
	Use:   "trvlink",
	Short: "OpenTRV CRC-7 link analyzer",
	Long: `trvlink - compute, check and monitor CRC-7 protected OpenTRV frames.

The CRC is the 7-bit polynomial 0x5B (Koopman) / 0x37 (normal), MSB first,
initial value 0, no output XOR. Frames on the wire are the payload, one CRC
byte and a 0xFF terminator.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Every flag can also be set with a TRVLINK_<FLAG> environment variable
(dashes become underscores) or in trvlink.yaml. For WebSocket authentication
the password is read from TRVLINK_PASSWORD, or prompted interactively if not
set. There is no --password flag so credentials stay out of shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringP("port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntP("baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().String("username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Framing
	rootCmd.PersistentFlags().Bool("sync", false, "Expect an RFM22/23 preamble and sync word before each frame")

	// Logging and config
	rootCmd.PersistentFlags().String("log-level", logging.DefaultLogLevel.String(), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log in JSON instead of console format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./trvlink.yaml or $HOME/.config/trvlink/trvlink.yaml)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	c, err := config.Load(v, cmd.Root().PersistentFlags(), configFile)
	if err != nil {
		return err
	}

	// Command flags such as --tui or --reconnect follow the same rules
	if err := config.ApplyToFlags(v, cmd.Flags()); err != nil {
		return err
	}

	level, err := logging.ParseLogLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logging.ConfigureLogger(level, c.LogJSON)
	logLevel = level

	conf = c
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
