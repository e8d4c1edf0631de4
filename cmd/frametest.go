// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/trvlink/pkg/frame"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid CRC-7 frame",
	Long: `Wait for a valid frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any frame
that passes the CRC-7 check. Garbage and rejected frames are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("trvlink - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid frame...\n\n")

	frameChan := make(chan *frame.Frame, 1)
	errChan := make(chan error, 1)
	go waitForFrame(conn, newDecoder(), frameChan, errChan)

	select {
	case f := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Kind: %s\n", frame.FormatKind(f.Payload()))
		fmt.Printf("  Length: %d bytes\n", f.Length())
		fmt.Printf("  CRC: 0x%02X\n", f.CRC())
		fmt.Print(frame.FormatPayload(f.Payload()))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}

// waitForFrame reads conn until the decoder yields a valid frame, which is
// sent on frameChan. A read error is sent on errChan instead.
func waitForFrame(conn Connection, decoder *frame.Decoder, frameChan chan<- *frame.Frame, errChan chan<- error) {
	buf := make([]byte, 128)
	skipped := 0
	for {
		n, err := conn.Read(buf)
		if err != nil {
			errChan <- err
			return
		}

		for i := 0; i < n; i++ {
			f, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil {
				skipped++
				continue
			}
			if f != nil {
				if skipped > 0 {
					fmt.Printf("(skipped %d rejected frames before sync)\n", skipped)
				}
				frameChan <- f
				return
			}
		}
	}
}
