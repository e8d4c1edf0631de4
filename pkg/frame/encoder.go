// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"bytes"
	"fmt"

	"github.com/Thermoquad/trvlink/pkg/crc7"
)

// Encoder encodes frames for transmission.
type Encoder struct {
	preamble bool
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithPreamble prefixes every frame with the RFM22/23 preamble and sync word.
func WithPreamble() EncoderOption {
	return func(e *Encoder) {
		e.preamble = true
	}
}

// NewEncoder creates a new frame encoder.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode encodes a payload to wire format.
func (e *Encoder) Encode(payload []byte) ([]byte, error) {
	data, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	if e.preamble {
		return AddPreamble(data), nil
	}
	return data, nil
}

// EncodeFrame encodes an existing Frame to wire format.
func (e *Encoder) EncodeFrame(f *Frame) ([]byte, error) {
	return e.Encode(f.Payload())
}

// EncodePayload creates a wire-formatted frame: payload, CRC-7, terminator.
func EncodePayload(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	if i := bytes.IndexByte(payload, Terminator); i >= 0 {
		return nil, fmt.Errorf("%w at offset %d", ErrPayloadContainsTerminator, i)
	}

	data := make([]byte, 0, len(payload)+2)
	data = append(data, payload...)
	data = append(data, crc7.Checksum(payload), Terminator)
	return data, nil
}

// AddPreamble returns data prefixed with the preamble and sync bytes an
// RFM22B/RFM23B receiver needs to lock on.
func AddPreamble(data []byte) []byte {
	out := make([]byte, 0, PreambleSize+len(data))
	out = append(out, bytes.Repeat([]byte{PreambleByte}, PreambleBytes)...)
	out = append(out, bytes.Repeat([]byte{SyncByte}, SyncMinBytes)...)
	return append(out, data...)
}
