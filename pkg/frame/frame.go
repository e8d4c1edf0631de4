// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Thermoquad/trvlink/pkg/crc7"
)

// Frame represents a decoded link frame
type Frame struct {
	payload   []byte
	crc       uint8
	raw       []byte // Wire bytes including preamble and terminator
	timestamp time.Time
}

// NewFrame creates a frame for the given payload, computing its CRC
func NewFrame(payload []byte) *Frame {
	return &Frame{
		payload:   payload,
		crc:       crc7.Checksum(payload),
		timestamp: time.Now(),
	}
}

// Parse validates an unframed payload+CRC byte sequence and returns the frame.
// The terminator must already be stripped.
func Parse(data []byte) (*Frame, error) {
	if err := Verify(data); err != nil {
		return nil, err
	}
	n := len(data) - 1
	payload := make([]byte, n)
	copy(payload, data[:n])
	return &Frame{
		payload:   payload,
		crc:       data[n],
		timestamp: time.Now(),
	}, nil
}

// Verify checks the length, content and trailing CRC of a payload+CRC byte
// sequence.
func Verify(data []byte) error {
	if len(data) < MinFrameSize {
		return fmt.Errorf("%w: %d bytes (min %d)", ErrFrameTooShort, len(data), MinFrameSize)
	}
	if len(data) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLong, len(data), MaxFrameSize)
	}
	n := len(data) - 1
	if i := bytes.IndexByte(data[:n], Terminator); i >= 0 {
		return fmt.Errorf("%w at offset %d", ErrPayloadContainsTerminator, i)
	}
	calculated := crc7.Checksum(data[:n])
	if data[n] != calculated {
		return fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrCRCMismatch, calculated, data[n])
	}
	return nil
}

// Payload returns the frame payload without the CRC
func (f *Frame) Payload() []byte {
	return f.payload
}

// CRC returns the frame's CRC-7 value
func (f *Frame) CRC() uint8 {
	return f.crc
}

// Length returns the payload length in bytes
func (f *Frame) Length() int {
	return len(f.payload)
}

// Raw returns the bytes the frame was decoded from, nil for locally built frames
func (f *Frame) Raw() []byte {
	return f.raw
}

// Timestamp returns the frame's decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// IsText returns true for JSON stats payloads
func (f *Frame) IsText() bool {
	return len(f.payload) > 0 && f.payload[0] == '{'
}
