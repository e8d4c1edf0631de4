// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import "errors"

// Encoding errors
var (
	ErrEmptyPayload              = errors.New("empty payload")
	ErrPayloadTooLarge           = errors.New("payload too large")
	ErrPayloadContainsTerminator = errors.New("payload contains terminator byte 0xFF")
)

// Decoding errors
var (
	ErrCRCMismatch   = errors.New("CRC mismatch")
	ErrFrameTooShort = errors.New("frame too short")
	ErrFrameTooLong  = errors.New("frame too long")
)

// IsCRCError reports whether err is a CRC mismatch.
func IsCRCError(err error) bool {
	return errors.Is(err, ErrCRCMismatch)
}

// IsFramingError reports whether err is a framing error (bad length or
// misplaced terminator) rather than a CRC mismatch.
func IsFramingError(err error) bool {
	return errors.Is(err, ErrFrameTooShort) ||
		errors.Is(err, ErrFrameTooLong) ||
		errors.Is(err, ErrPayloadContainsTerminator)
}
