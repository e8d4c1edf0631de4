// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/trvlink/internal/metrics"
	"github.com/Thermoquad/trvlink/pkg/frame"
)

func mustEncode(t *testing.T, payload string) []byte {
	t.Helper()
	data, err := frame.EncodePayload([]byte(payload))
	require.NoError(t, err)
	return data
}

func collect(lm *linkMonitor, data []byte) []monitorEvent {
	var events []monitorEvent
	lm.process(data, func(ev monitorEvent) {
		events = append(events, ev)
	})
	return events
}

func TestLinkMonitor_SyncAfterGarbage(t *testing.T) {
	lm := newLinkMonitor(frame.NewDecoder(), nil)

	// Tail of a frame joined mid-way: rejected, but not counted
	stream := append([]byte{0x01, 0x02, frame.Terminator}, mustEncode(t, "hello")...)
	events := collect(lm, stream)

	require.Len(t, events, 2)
	assert.Equal(t, eventSync, events[0].kind)
	assert.Equal(t, 3, events[0].skipped)
	assert.Equal(t, eventFrame, events[1].kind)
	assert.Equal(t, []byte("hello"), events[1].frame.Payload())

	assert.True(t, lm.synchronized)
	assert.Equal(t, uint64(1), lm.stats.TotalFrames)
	assert.Equal(t, uint64(1), lm.stats.ValidFrames)
	assert.Equal(t, uint64(0), lm.stats.ErrorCount())
	assert.Equal(t, uint64(len(stream)), lm.stats.BytesRead)
}

func TestLinkMonitor_CleanStart(t *testing.T) {
	lm := newLinkMonitor(frame.NewDecoder(), nil)
	events := collect(lm, mustEncode(t, "hi"))

	require.Len(t, events, 2)
	assert.Equal(t, eventSync, events[0].kind)
	assert.Zero(t, events[0].skipped)
}

func TestLinkMonitor_ErrorsAfterSync(t *testing.T) {
	lm := newLinkMonitor(frame.NewDecoder(), nil)
	collect(lm, mustEncode(t, "hello"))

	bad := mustEncode(t, "hello")
	bad[5] ^= 0x01 // corrupt the CRC
	events := collect(lm, bad)
	require.Len(t, events, 1)
	assert.Equal(t, eventError, events[0].kind)
	assert.True(t, frame.IsCRCError(events[0].err))

	events = collect(lm, []byte{0x05, frame.Terminator})
	require.Len(t, events, 1)
	assert.True(t, frame.IsFramingError(events[0].err))

	assert.Equal(t, uint64(3), lm.stats.TotalFrames)
	assert.Equal(t, uint64(1), lm.stats.ValidFrames)
	assert.Equal(t, uint64(1), lm.stats.CRCErrors)
	assert.Equal(t, uint64(1), lm.stats.FramingErrors)
}

func TestLinkMonitor_ChunkBoundaries(t *testing.T) {
	lm := newLinkMonitor(frame.NewDecoder(), nil)
	stream := append(mustEncode(t, "OpenTRV"), mustEncode(t, `{"@":"0a45","T|C16":299}`)...)

	var frames []*frame.Frame
	for _, b := range stream {
		lm.process([]byte{b}, func(ev monitorEvent) {
			if ev.kind == eventFrame {
				frames = append(frames, ev.frame)
			}
		})
	}

	require.Len(t, frames, 2)
	assert.Equal(t, []byte("OpenTRV"), frames[0].Payload())
	assert.True(t, frames[1].IsText())
}

func TestLinkMonitor_WithSync(t *testing.T) {
	lm := newLinkMonitor(frame.NewDecoder(frame.WithSync()), nil)

	wire, err := frame.NewEncoder(frame.WithPreamble()).Encode([]byte("hello"))
	require.NoError(t, err)

	// Unsynchronised garbage is dropped silently while hunting
	events := collect(lm, append([]byte{0x12, 0x34}, wire...))
	require.Len(t, events, 2)
	assert.Equal(t, eventSync, events[0].kind)
	assert.Equal(t, 2, events[0].skipped)
	assert.Equal(t, eventFrame, events[1].kind)
	assert.Equal(t, wire, events[1].frame.Raw())
}

func TestLinkMonitor_Metrics(t *testing.T) {
	m := metrics.NewLinkMetrics()
	lm := newLinkMonitor(frame.NewDecoder(), m)

	bad := mustEncode(t, "hello")
	bad[5] ^= 0x01
	collect(lm, mustEncode(t, "hello"))
	collect(lm, bad)

	assert.Equal(t, uint64(1), lm.stats.ValidFrames)
	assert.Equal(t, uint64(1), lm.stats.CRCErrors)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames(metrics.ResultValid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames(metrics.ResultCRCError)))
}
