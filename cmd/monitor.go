// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/trvlink/internal/metrics"
	"github.com/Thermoquad/trvlink/pkg/frame"
)

type monitorEventKind int

const (
	eventSync monitorEventKind = iota
	eventFrame
	eventError
)

// monitorEvent is one observation reported by linkMonitor.process
type monitorEvent struct {
	kind    monitorEventKind
	frame   *frame.Frame
	err     error
	skipped int // bytes dropped before the first frame (eventSync only)
}

// linkMonitor decodes a byte stream and keeps statistics. Decode errors are
// ignored until the first valid frame, since a link joined mid-frame always
// starts with garbage.
type linkMonitor struct {
	decoder *frame.Decoder
	stats   *frame.Statistics
	metrics *metrics.LinkMetrics // optional

	synchronized    bool
	bytesBeforeSync int
}

func newLinkMonitor(decoder *frame.Decoder, m *metrics.LinkMetrics) *linkMonitor {
	return &linkMonitor{
		decoder: decoder,
		stats:   frame.NewStatistics(),
		metrics: m,
	}
}

// process feeds data through the decoder and calls emit for every event
func (lm *linkMonitor) process(data []byte, emit func(monitorEvent)) {
	lm.stats.AddBytes(len(data))
	if lm.metrics != nil {
		lm.metrics.AddBytes(len(data))
	}

	for _, b := range data {
		f, err := lm.decoder.DecodeByte(b)

		if !lm.synchronized {
			lm.bytesBeforeSync++
			if f == nil {
				continue
			}
			lm.synchronized = true
			skipped := lm.bytesBeforeSync - len(f.Raw())
			if skipped < 0 {
				skipped = 0
			}
			emit(monitorEvent{kind: eventSync, skipped: skipped})
		}

		switch {
		case err != nil:
			lm.record(nil, err)
			emit(monitorEvent{kind: eventError, err: err})
		case f != nil:
			lm.record(f, nil)
			emit(monitorEvent{kind: eventFrame, frame: f})
		}
	}
}

func (lm *linkMonitor) record(f *frame.Frame, err error) {
	lm.stats.Update(f, err)
	if lm.metrics != nil {
		lm.metrics.ObserveFrame(f, err)
	}
}

// errorKind names the class of a decode error for display
func errorKind(err error) string {
	switch {
	case frame.IsCRCError(err):
		return "CRC ERROR"
	case frame.IsFramingError(err):
		return "FRAMING ERROR"
	default:
		return "DECODE ERROR"
	}
}
