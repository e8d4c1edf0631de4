// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/trvlink/pkg/frame"
)

var verifyHex bool

var verifyCmd = &cobra.Command{
	Use:   "verify <frame>",
	Short: "Check the CRC-7 of a payload+CRC byte string",
	Long: `Check a frame given as payload bytes followed by one CRC-7 byte.

A trailing 0xFF terminator is accepted and stripped. Exits non-zero when the
CRC does not match or the frame is malformed.

Examples:
  trvlink verify --hex 68 65 6C 6C 6F 0B
  trvlink verify --hex 68656c6c6f0bff`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().BoolVar(&verifyHex, "hex", false, "Parse input as hex")
}

func runVerify(cmd *cobra.Command, args []string) error {
	data, err := readInput(args, verifyHex, "", cmd.InOrStdin())
	if err != nil {
		return err
	}
	return verifyFrame(cmd.OutOrStdout(), data)
}

func verifyFrame(w io.Writer, data []byte) error {
	if n := len(data); n > 0 && data[n-1] == frame.Terminator {
		data = data[:n-1]
	}

	f, err := frame.Parse(data)
	if err != nil {
		fmt.Fprintf(w, "FAIL: %v\n", err)
		return err
	}
	fmt.Fprintf(w, "OK: %d byte payload, CRC 0x%02X\n", f.Length(), f.CRC())
	fmt.Fprint(w, frame.FormatPayload(f.Payload()))
	return nil
}
