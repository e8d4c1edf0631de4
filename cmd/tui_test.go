// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/trvlink/pkg/frame"
)

func updateModel(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	updated, ok := next.(model)
	require.True(t, ok)
	return updated
}

func TestModel_LinkData(t *testing.T) {
	m := initialModel("Serial: /dev/null @ 115200 baud", false, newLinkMonitor(frame.NewDecoder(), nil))

	bad := mustEncode(t, "hello")
	bad[5] ^= 0x01
	data := append(mustEncode(t, "hello"), bad...)
	m = updateModel(t, m, linkDataMsg(data))

	assert.True(t, m.synchronized)
	assert.Equal(t, uint64(1), m.monitor.stats.ValidFrames)
	assert.Equal(t, uint64(1), m.monitor.stats.CRCErrors)

	// Sync and the CRC error; the valid frame is hidden without --show-all
	require.Len(t, m.eventLog, 2)
	assert.Equal(t, "Synchronized", m.eventLog[0].message)
	assert.True(t, m.eventLog[1].isError)
	assert.Contains(t, m.eventLog[1].message, "CRC ERROR")

	view := m.View()
	assert.Contains(t, view, "TRVLINK - ERROR DETECTION")
	assert.Contains(t, view, "Synchronized")
}

func TestModel_ShowAll(t *testing.T) {
	m := initialModel("test", true, newLinkMonitor(frame.NewDecoder(), nil))
	m = updateModel(t, m, linkDataMsg(mustEncode(t, `{"@":"0a45","T|C16":299}`)))

	require.Len(t, m.eventLog, 2)
	assert.Equal(t, "STATS_JSON len=24 crc=0x04 (valid)", m.eventLog[1].message)
}

func TestModel_LinkClosed(t *testing.T) {
	m := initialModel("test", false, newLinkMonitor(frame.NewDecoder(), nil))
	m = updateModel(t, m, linkClosedMsg{err: errors.New("read failed: EOF")})

	require.NotNil(t, m.linkErr)
	require.Len(t, m.eventLog, 1)
	assert.Equal(t, "LINK DOWN: read failed: EOF", m.eventLog[0].message)
	assert.Contains(t, m.View(), "Link down")
}

func TestModel_LogLines(t *testing.T) {
	m := initialModel("test", false, newLinkMonitor(frame.NewDecoder(), nil))
	m = updateModel(t, m, logLineMsg("Link lost, reconnecting"))

	require.Len(t, m.eventLog, 1)
	assert.False(t, m.eventLog[0].isError)
}

func TestModel_LogIsBounded(t *testing.T) {
	m := initialModel("test", false, newLinkMonitor(frame.NewDecoder(), nil))
	for i := 0; i < m.maxLogEntries+10; i++ {
		m.addLogEntry("event", false)
	}
	assert.Len(t, m.eventLog, m.maxLogEntries)
}

func TestModel_Quit(t *testing.T) {
	m := initialModel("test", false, newLinkMonitor(frame.NewDecoder(), nil))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	assert.True(t, next.(model).quitting)
	assert.NotNil(t, cmd)
	assert.Equal(t, "Shutting down...\n", next.(model).View())
}
