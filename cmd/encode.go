// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/trvlink/pkg/frame"
)

var (
	encodeHex      bool
	encodePreamble bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode <payload>",
	Short: "Print the wire bytes of a frame",
	Long: `Encode a payload into a frame: payload, CRC-7, 0xFF terminator.

With --preamble the RFM22/23 preamble and sync bytes are prepended.

Examples:
  trvlink encode hello                 # 68 65 6C 6C 6F 0B FF
  trvlink encode --preamble '{"@":"0a45","T|C16":299}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().BoolVar(&encodeHex, "hex", false, "Parse payload as hex")
	encodeCmd.Flags().BoolVar(&encodePreamble, "preamble", false, "Prepend preamble and sync bytes")
}

func runEncode(cmd *cobra.Command, args []string) error {
	payload, err := readInput(args, encodeHex, "", cmd.InOrStdin())
	if err != nil {
		return err
	}
	return encodeFrame(cmd.OutOrStdout(), payload, encodePreamble)
}

// newEncoder returns a frame encoder with the preamble option applied
func newEncoder(preamble bool) *frame.Encoder {
	if preamble {
		return frame.NewEncoder(frame.WithPreamble())
	}
	return frame.NewEncoder()
}

func encodeFrame(w io.Writer, payload []byte, preamble bool) error {
	wire, err := newEncoder(preamble).Encode(payload)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, formatBytes(wire))
	return nil
}
