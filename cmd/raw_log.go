// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/trvlink/pkg/frame"
)

var rawLogReconnect bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display CRC-7 frames as they arrive.

Each frame is shown with timestamp, payload kind, length and CRC, followed
by the payload as JSON stats text, CBOR diagnostic notation or a hex dump.
Rejected frames are shown as errors.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogReconnect, "reconnect", false, "Reconnect with backoff when the link drops")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	fmt.Printf("trvlink - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	data := make(chan []byte, 10)
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- streamConnection(ctx, reuseFirst(conn, connInfo, OpenConnection), rawLogReconnect, data)
	}()

	decoder := newDecoder()
	for {
		select {
		case chunk := <-data:
			printFrames(os.Stdout, decoder, chunk)

		case err := <-streamErr:
			return streamResult(err)
		}
	}
}

// printFrames decodes chunk and writes every frame or decode error to w
func printFrames(w io.Writer, decoder *frame.Decoder, chunk []byte) {
	for _, b := range chunk {
		f, err := decoder.DecodeByte(b)
		if err != nil {
			fmt.Fprintf(w, "[ERROR] %v\n", err)
			continue
		}
		if f != nil {
			fmt.Fprint(w, frame.FormatFrame(f))
		}
	}
}
