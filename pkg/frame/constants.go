// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package frame encodes and decodes short OpenTRV link frames protected by a
// trailing CRC-7.
//
// A frame on the wire is the payload, one CRC-7 byte over the payload, and a
// 0xFF terminator. The CRC byte never has its top bit set so it cannot be
// mistaken for the terminator; the payload itself must not contain 0xFF.
// Radio transmissions may be prefixed with an RFM22/23 preamble and sync word.
package frame

// Framing bytes
const (
	Terminator   = 0xFF
	PreambleByte = 0xAA
	SyncByte     = 0xCC
)

// Preamble lengths for RFM22/23 reception
const (
	PreambleBytes    = 5 // recommended for reliable reception
	PreambleMinBytes = 4
	SyncMinBytes     = 3
)

// Frame size limits
const (
	PreambleSize   = PreambleBytes + SyncMinBytes
	MaxFrameSize   = 64 - PreambleSize // payload + CRC, excluding the terminator
	MaxPayloadSize = MaxFrameSize - 1
	MinFrameSize   = 2
)

// Decoder states (internal)
const (
	stateHunt = iota
	stateFrame
	stateDiscard
)
