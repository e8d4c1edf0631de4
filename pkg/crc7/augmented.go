// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crc7

import (
	"errors"
	"fmt"
)

// ErrInvalidLength is returned by UpdateN when the requested length does not
// fit the buffer.
var ErrInvalidLength = errors.New("crc7: invalid length")

// Augmented is a register for the two-phase protocol: any number of Update
// calls followed by exactly one Finalize. Its value before Finalize is not a
// CRC and must not be passed to the package-level Update.
type Augmented uint8

// InitAugmented returns the initial two-phase register.
func InitAugmented() Augmented {
	return Augmented(initial)
}

// Update shifts every bit of data into the register, most significant bit
// first, and returns the new register.
func (a Augmented) Update(data []byte) Augmented {
	crc := uint8(a)
	for _, c := range data {
		for i := 0; i < 8; i++ {
			bit := crc&0x40 != 0
			crc = crc<<1 | (c>>(7-i))&0x01
			if bit {
				crc ^= Polynomial
			}
		}
		crc &= Mask
	}
	return Augmented(crc & Mask)
}

// UpdateN is Update over the first n bytes of data.
// The register is returned unchanged when n is negative or exceeds len(data).
func (a Augmented) UpdateN(data []byte, n int) (Augmented, error) {
	if n < 0 || n > len(data) {
		return a, fmt.Errorf("%w: %d bytes requested, %d available", ErrInvalidLength, n, len(data))
	}
	return a.Update(data[:n]), nil
}

// Finalize drains the register with Width zero bits and returns the CRC.
// It is not idempotent.
func (a Augmented) Finalize() uint8 {
	crc := uint8(a)
	for i := 0; i < Width; i++ {
		bit := crc&0x40 != 0
		crc <<= 1
		if bit {
			crc ^= Polynomial
		}
	}
	return crc & Mask
}
