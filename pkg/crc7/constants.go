// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package crc7 implements the 7-bit CRC used on OpenTRV radio and serial links.
//
// Polynomial 0x5B in Koopman notation (1011011) is 0x37 in normal notation
// (0110111), which factors as (x+1)(x^6 + x^5 + x^3 + x^2 + 1). Input and
// output are not reflected, the initial value is 0 and there is no output XOR.
// For 2 or 3 byte payloads the polynomial gives Hamming distance 4 and detects
// all 3-bit errors in up to 7 bytes of payload.
//
// Two calling conventions are provided and must not be mixed on one running
// register:
//
//   - Update folds each byte straight into the register; the value returned
//     after the last byte is the CRC.
//   - Augmented shifts message bits into the register and needs exactly one
//     Finalize to drain it.
//
// Both are bit-by-bit implementations; there is no lookup table.
package crc7

// CRC-7 parameters
const (
	Polynomial        = 0x37 // normal representation
	PolynomialKoopman = 0x5B // Koopman representation
	Width             = 7
	Mask              = 0x7F
	initial           = 0x00
)

// Size is the size of a CRC-7 checksum in bytes.
const Size = 1

// Check is the CRC of the ASCII bytes "123456789".
const Check = 0x04
