// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import "fmt"

// Decoder implements the frame decoder state machine
type Decoder struct {
	state       int
	requireSync bool
	syncBytes   int // Consecutive sync bytes seen while hunting
	buffer      []byte
	rawBuffer   []byte // Accumulate raw bytes including preamble and terminator
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithSync makes the decoder wait for SyncMinBytes consecutive sync bytes
// before each frame, as sent by an Encoder created WithPreamble.
func WithSync() DecoderOption {
	return func(d *Decoder) {
		d.requireSync = true
	}
}

// NewDecoder creates a new frame decoder
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		buffer:    make([]byte, 0, MaxFrameSize),
		rawBuffer: make([]byte, 0, PreambleSize+MaxFrameSize+1),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Reset()
	return d
}

// Reset resets the decoder to wait for the start of a frame
func (d *Decoder) Reset() {
	if d.requireSync {
		d.state = stateHunt
	} else {
		d.state = stateFrame
	}
	d.syncBytes = 0
	d.buffer = d.buffer[:0]
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the raw bytes accumulated since the last frame
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed frame, or nil if the frame is incomplete.
// Returns an error if the frame is rejected.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case stateHunt:
		// Only the current preamble/sync run is kept as raw bytes
		switch b {
		case SyncByte:
			d.syncBytes++
		case PreambleByte:
			if d.syncBytes > 0 {
				d.rawBuffer = d.rawBuffer[:0]
				d.syncBytes = 0
			}
		default:
			d.rawBuffer = d.rawBuffer[:0]
			d.syncBytes = 0
			return nil, nil
		}
		d.rawBuffer = append(d.rawBuffer, b)
		if n := len(d.rawBuffer); n > PreambleSize {
			d.rawBuffer = append(d.rawBuffer[:0], d.rawBuffer[n-PreambleSize:]...)
		}
		if d.syncBytes >= SyncMinBytes {
			d.state = stateFrame
		}
		return nil, nil

	case stateFrame:
		if b == Terminator {
			if len(d.buffer) == 0 {
				// Idle fill between frames
				d.Reset()
				return nil, nil
			}
			d.rawBuffer = append(d.rawBuffer, b)
			return d.complete()
		}
		if len(d.buffer) >= MaxFrameSize {
			n := len(d.buffer) + 1
			d.Reset()
			d.state = stateDiscard
			return nil, fmt.Errorf("%w: %d bytes without terminator (max %d)", ErrFrameTooLong, n, MaxFrameSize)
		}
		d.rawBuffer = append(d.rawBuffer, b)
		d.buffer = append(d.buffer, b)
		return nil, nil

	case stateDiscard:
		// Resynchronise on the next terminator
		if b == Terminator {
			d.Reset()
		}
		return nil, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// complete validates the buffered frame and resets the decoder
func (d *Decoder) complete() (*Frame, error) {
	f, err := Parse(d.buffer)
	if err != nil {
		d.Reset()
		return nil, err
	}
	f.raw = append([]byte(nil), d.rawBuffer...)
	d.Reset()
	return f, nil
}

// Decode feeds every byte of data through the decoder and returns the frames
// completed along the way together with any decode errors, in order.
func (d *Decoder) Decode(data []byte) ([]*Frame, []error) {
	var frames []*Frame
	var errs []error
	for _, b := range data {
		f, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if f != nil {
			frames = append(frames, f)
		}
	}
	return frames, errs
}
