// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s len=%d crc=0x%02X\n", timestamp, FormatKind(f.payload), len(f.payload), f.crc)

	if len(f.payload) > 0 {
		result += FormatPayload(f.payload)
	}

	return result
}

// FormatKind returns a short name for the payload encoding
func FormatKind(payload []byte) string {
	switch {
	case len(payload) > 0 && payload[0] == '{':
		return "STATS_JSON"
	case looksLikeCBOR(payload):
		return "CBOR"
	default:
		return "BINARY"
	}
}

// FormatPayload renders a payload as text, CBOR diagnostic notation, or a hex dump
func FormatPayload(payload []byte) string {
	if len(payload) > 0 && payload[0] == '{' {
		return fmt.Sprintf("  Text: %s\n", sanitizeText(payload))
	}

	if looksLikeCBOR(payload) {
		if diag, err := cbor.Diagnose(payload); err == nil {
			return fmt.Sprintf("  CBOR: %s\n", diag)
		}
	}

	return FormatHex(payload)
}

// FormatHex returns a 16-column hex dump of data
func FormatHex(data []byte) string {
	var b strings.Builder
	b.WriteString("  Payload: ")
	for i, v := range data {
		if i > 0 && i%16 == 0 {
			b.WriteString("\n           ")
		}
		fmt.Fprintf(&b, "%02X ", v)
	}
	b.WriteString("\n")
	return b.String()
}

// looksLikeCBOR reports whether the payload is a single well-formed CBOR
// array or map. Almost any short byte string starts with a valid CBOR
// head, so bare scalars are not treated as CBOR.
func looksLikeCBOR(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	major := payload[0] >> 5
	if major != 4 && major != 5 {
		return false
	}
	return cbor.Wellformed(payload) == nil
}

// sanitizeText replaces non-printable bytes so a corrupt payload cannot
// drive the terminal
func sanitizeText(payload []byte) string {
	var b strings.Builder
	for _, c := range payload {
		if c >= 0x20 && c < 0x7F {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "\\x%02X", c)
		}
	}
	return b.String()
}
