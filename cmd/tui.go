// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/Thermoquad/trvlink/internal/logging"
	"github.com/Thermoquad/trvlink/pkg/frame"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// TUI model
type model struct {
	connInfo      string
	showAll       bool
	monitor       *linkMonitor
	eventLog      []eventLogEntry
	maxLogEntries int
	synchronized  bool
	skippedBytes  int
	linkErr       error
	width         int
	height        int
	quitting      bool
	events        viewport.Model
}

// Messages
type tickMsg time.Time
type linkDataMsg []byte
type linkClosedMsg struct {
	err error
}
type logLineMsg string

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// Rows taken by everything above the event log
const tuiChromeHeight = 14

func initialModel(connInfo string, showAll bool, monitor *linkMonitor) model {
	m := model{
		connInfo:      connInfo,
		showAll:       showAll,
		monitor:       monitor,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 500,
		width:         80,
		height:        24,
	}
	m.events = viewport.New(m.width-4, m.height-tuiChromeHeight)
	m.refreshLog()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		// Remaining keys scroll the event log
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.events.Width = max(msg.Width-4, 20)
		m.events.Height = max(msg.Height-tuiChromeHeight, 5)
		m.refreshLog()

	case tickMsg:
		// Update statistics rates
		m.monitor.stats.CalculateRates()
		return m, tickCmd()

	case linkDataMsg:
		m.monitor.process(msg, m.handleEvent)
		m.refreshLog()

	case linkClosedMsg:
		m.linkErr = msg.err
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("LINK DOWN: %v", msg.err), true)
		} else {
			m.addLogEntry("Link closed", false)
		}
		m.refreshLog()

	case logLineMsg:
		m.addLogEntry(string(msg), false)
		m.refreshLog()
	}

	return m, nil
}

// handleEvent turns a monitor event into event log entries
func (m *model) handleEvent(ev monitorEvent) {
	switch ev.kind {
	case eventSync:
		m.synchronized = true
		m.skippedBytes = ev.skipped
		if ev.skipped > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d bytes", ev.skipped), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case eventError:
		m.addLogEntry(fmt.Sprintf("%s: %v", errorKind(ev.err), ev.err), true)

	case eventFrame:
		if m.showAll {
			m.addLogEntry(fmt.Sprintf("%s len=%d crc=0x%02X (valid)",
				frame.FormatKind(ev.frame.Payload()), ev.frame.Length(), ev.frame.CRC()), false)
		}
	}
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// refreshLog re-renders the event log, following new entries unless the
// user has scrolled up
func (m *model) refreshLog() {
	follow := m.events.AtBottom()

	var content strings.Builder
	if len(m.eventLog) == 0 {
		content.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for i, entry := range m.eventLog {
		if i > 0 {
			content.WriteString("\n")
		}
		timestamp := headerStyle.Render(entry.timestamp.Format("01/02/06 15:04:05.000"))
		if entry.isError {
			content.WriteString(timestamp + " " + errorStyle.Render("✗ "+entry.message))
		} else {
			content.WriteString(timestamp + " " + warningStyle.Render("ℹ "+entry.message))
		}
	}

	m.events.SetContent(content.String())
	if follow {
		m.events.GotoBottom()
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	stats := m.monitor.stats

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("TRVLINK - ERROR DETECTION"))
	s.WriteString("\n")
	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Press 'q' to quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.linkErr != nil:
		s.WriteString(errorStyle.Render("✗ Link down"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.skippedBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d bytes)", m.skippedBytes)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	var errorPercent float64
	if stats.TotalFrames > 0 {
		errorPercent = float64(stats.ErrorCount()) * 100.0 / float64(stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(humanize.Comma(int64(stats.TotalFrames))),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%s (%.1f%%)", humanize.Comma(int64(stats.ValidFrames)), stats.ValidPercent())),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%s (%.1f%%)", humanize.Comma(int64(stats.ErrorCount())), errorPercent)),
	))

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("CRC Errors:"), errorStyle.Render(fmt.Sprintf("%d", stats.CRCErrors)),
		statsLabelStyle.Render("Framing Errors:"), errorStyle.Render(fmt.Sprintf("%d", stats.FramingErrors)),
		statsLabelStyle.Render("Read:"), statsValueStyle.Render(humanize.Bytes(stats.BytesRead)),
	))

	errorRate := statsValueStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
	if stats.ErrorRate > 0 {
		errorRate = errorStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", stats.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), errorRate,
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString(headerStyle.Render(fmt.Sprintf(" (%3.f%%)", m.events.ScrollPercent()*100)))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 2).Render(m.events.View()))

	return s.String()
}

// programWriter forwards log output into the TUI event log
type programWriter struct {
	p *tea.Program
}

func (w programWriter) Write(b []byte) (int, error) {
	w.p.Send(logLineMsg(strings.TrimRight(string(b), "\n")))
	return len(b), nil
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(ctx context.Context, connInfo string, monitor *linkMonitor, data <-chan []byte, streamErr <-chan error) error {
	m := initialModel(connInfo, showAll, monitor)
	p := tea.NewProgram(m)

	// Logs would corrupt the alternate screen; show them as events instead
	previous := slog.Default()
	slog.SetDefault(logging.NewLogger(programWriter{p: p}, logLevel, false))
	defer slog.SetDefault(previous)

	// Link reader goroutine
	go func() {
		for {
			select {
			case chunk := <-data:
				p.Send(linkDataMsg(chunk))
			case err := <-streamErr:
				p.Send(linkClosedMsg{err: streamResult(err)})
				return
			case <-ctx.Done():
				p.Quit()
				return
			}
		}
	}()

	// Run TUI
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "TUI error")
	}

	fmt.Print(monitor.stats.String())
	return nil
}
