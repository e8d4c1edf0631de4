// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/trvlink/internal/metrics"
	"github.com/Thermoquad/trvlink/pkg/frame"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
	metricsAddr   string
	reconnect     bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze corrupted frames on a link",
	Long: `Track CRC and framing errors on a link with statistics.

This command decodes every frame and detects:
  - CRC mismatches (bit errors on the link)
  - Framing errors (frames too short, too long or missing a terminator)
  - Statistics and trends (frame rate, error rate, success rate)

By default, only errors are displayed. Use --show-all to display valid frames too.

Errors seen before the first valid frame are not counted: the link is usually
joined in the middle of a frame.

With --metrics-addr the counters are also served in Prometheus format at
http://<addr>/metrics. With --reconnect a dropped link is reopened with
exponential backoff instead of ending the command.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	errorDetectionCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	errorDetectionCmd.Flags().BoolVar(&reconnect, "reconnect", false, "Reconnect with backoff when the link drops")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	if err := validateStatsInterval(statsInterval); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lm *metrics.LinkMetrics
	if metricsAddr != "" {
		lm = metrics.NewLinkMetrics()
		server, err := metrics.Start(metricsAddr, lm)
		if err != nil {
			return err
		}
		defer server.Close()
	}

	// Open the first connection up front so a bad port or password fails fast
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	monitor := newLinkMonitor(newDecoder(), lm)
	data := make(chan []byte, 10)
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- streamConnection(ctx, reuseFirst(conn, connInfo, OpenConnection), reconnect, data)
	}()

	if useTUI {
		return runTUIMode(ctx, connInfo, monitor, data, streamErr)
	}
	return runTextMode(ctx, connInfo, monitor, data, streamErr)
}

func validateStatsInterval(seconds int) error {
	if seconds <= 0 {
		return errors.Errorf("--stats-interval must be positive, got %d", seconds)
	}
	return nil
}

// printEvent prints one monitor event in highlighted format
func printEvent(w io.Writer, ev monitorEvent, showAll bool) {
	switch ev.kind {
	case eventSync:
		if ev.skipped > 0 {
			fmt.Fprintf(w, "[SYNC] Synchronized after skipping %d bytes\n\n", ev.skipped)
		} else {
			fmt.Fprintf(w, "[SYNC] Synchronized\n\n")
		}

	case eventError:
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Fprintf(w, "[%s] \033[1;31m%s:\033[0m %v\n", timestamp, errorKind(ev.err), ev.err)
		fmt.Fprintf(w, "  >>> FRAME REJECTED <<<\n\n")

	case eventFrame:
		if showAll {
			fmt.Fprint(w, frame.FormatFrame(ev.frame))
		}
	}
}

// runTextMode runs error detection in text mode
func runTextMode(ctx context.Context, connInfo string, monitor *linkMonitor, data <-chan []byte, streamErr <-chan error) error {
	fmt.Printf("trvlink - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	emit := func(ev monitorEvent) {
		printEvent(os.Stdout, ev, showAll)
	}

	for {
		select {
		case chunk := <-data:
			monitor.process(chunk, emit)

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(monitor.stats.String())
			fmt.Println()

		case err := <-streamErr:
			// Final summary
			fmt.Println()
			fmt.Print(monitor.stats.String())
			return streamResult(err)

		case <-ctx.Done():
			fmt.Println()
			fmt.Print(monitor.stats.String())
			return nil
		}
	}
}

// streamResult maps the end of a stream to the command result
func streamResult(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if isCleanClose(err) {
		slog.Info("Connection closed")
		return nil
	}
	return err
}

// isCleanClose reports whether err is an orderly end of the link: a close
// handshake with a normal or going-away code, or a read on a connection
// already known to be closed. Abnormal closes (1006) and network errors are
// not clean.
func isCleanClose(err error) bool {
	if !errors.Is(err, ErrConnectionClosed) {
		return false
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway
	}

	var netErr net.Error
	return !errors.As(err, &netErr) && !errors.Is(err, io.ErrUnexpectedEOF)
}
