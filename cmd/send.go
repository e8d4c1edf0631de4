// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/trvlink/pkg/frame"
)

var (
	sendHex       bool
	sendPreamble  bool
	sendCount     int
	sendInterval  time.Duration
	sendWaitReply bool
	sendTimeout   int
)

var sendCmd = &cobra.Command{
	Use:   "send <payload>",
	Short: "Encode a payload and transmit it as CRC-7 frames",
	Long: `Encode a payload into a frame and write it to the connection.

With --wait-reply each send waits for one valid frame in return (for
example from an echoing bridge) and reports the round trip time.

Exit codes:
  0 - All frames sent (and answered, with --wait-reply)
  1 - One or more sends failed or timed out
  2 - Connection or encoding error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendHex, "hex", false, "Parse payload as hex")
	sendCmd.Flags().BoolVar(&sendPreamble, "preamble", false, "Prepend preamble and sync bytes")
	sendCmd.Flags().IntVar(&sendCount, "count", 1, "Number of frames to send")
	sendCmd.Flags().DurationVar(&sendInterval, "interval", time.Second, "Delay between frames")
	sendCmd.Flags().BoolVar(&sendWaitReply, "wait-reply", false, "Wait for a valid frame after each send")
	sendCmd.Flags().IntVar(&sendTimeout, "timeout", 5, "Timeout in seconds for each reply")
}

func runSend(cmd *cobra.Command, args []string) error {
	if sendCount < 1 {
		return errors.Errorf("--count must be at least 1, got %d", sendCount)
	}

	payload, err := readInput(args, sendHex, "", cmd.InOrStdin())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Input error: %v\n", err)
		os.Exit(2)
	}

	wireBytes, err := newEncoder(sendPreamble).Encode(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode error: %v\n", err)
		os.Exit(2)
	}

	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("trvlink - Send\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Frame: %s\n", formatBytes(wireBytes))
	fmt.Printf("Count: %d\n\n", sendCount)

	// A single reader serves every reply so no goroutine is left blocked
	// on the connection between sends
	var frameChan chan *frame.Frame
	var errChan chan error
	if sendWaitReply {
		frameChan = make(chan *frame.Frame, 1)
		errChan = make(chan error, 1)
		go readReplies(conn, newDecoder(), frameChan, errChan)
	}

	successCount := 0
	failCount := 0

sendLoop:
	for i := 1; i <= sendCount; i++ {
		fmt.Printf("Frame %d/%d: ", i, sendCount)

		// A late reply to an earlier frame must not count for this one
		if sendWaitReply {
			if stale := drainFrames(frameChan); stale > 0 {
				fmt.Printf("(dropped %d late replies) ", stale)
			}
		}

		startTime := time.Now()
		if _, err := conn.Write(wireBytes); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		if !sendWaitReply {
			fmt.Printf("sent %d bytes\n", len(wireBytes))
			successCount++
		} else {
			select {
			case f := <-frameChan:
				rtt := time.Since(startTime)
				fmt.Printf("reply %s len=%d crc=0x%02X, rtt=%v\n",
					frame.FormatKind(f.Payload()), f.Length(), f.CRC(), rtt.Round(time.Millisecond))
				successCount++

			case err := <-errChan:
				fmt.Printf("READ FAILED: %v\n", err)
				failCount += sendCount - i + 1
				break sendLoop

			case <-time.After(time.Duration(sendTimeout) * time.Second):
				fmt.Printf("TIMEOUT (no reply in %ds)\n", sendTimeout)
				failCount++
			}
		}

		if i < sendCount {
			time.Sleep(sendInterval)
		}
	}

	fmt.Printf("\n--- Send statistics ---\n")
	if sendWaitReply {
		fmt.Printf("%d frames sent, %d replies received, %.0f%% loss\n",
			sendCount, successCount, float64(failCount)/float64(sendCount)*100)
	} else {
		fmt.Printf("%d frames sent, %d failed\n", successCount, failCount)
	}

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// readReplies delivers every valid frame read from conn until a read fails
func readReplies(conn Connection, decoder *frame.Decoder, frameChan chan<- *frame.Frame, errChan chan<- error) {
	buf := make([]byte, 128)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			errChan <- err
			return
		}
		frames, _ := decoder.Decode(buf[:n])
		for _, f := range frames {
			frameChan <- f
		}
	}
}

// drainFrames discards frames already waiting on frameChan and returns how
// many there were
func drainFrames(frameChan <-chan *frame.Frame) int {
	n := 0
	for {
		select {
		case <-frameChan:
			n++
		default:
			return n
		}
	}
}
