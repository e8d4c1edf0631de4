// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crc7

// Init returns the initial register value.
//
// A seed of 0xFF would arguably detect leading zero bytes better, but 0 is what
// the devices on the other end of the link use.
func Init() uint8 {
	return initial
}

// Update folds one byte into the CRC, most significant bit first.
// The result always has the top bit clear. Bit 7 of crc is ignored.
func Update(crc, datum uint8) uint8 {
	for i := uint8(0x80); i != 0; i >>= 1 {
		bit := crc&0x40 != 0
		if datum&i != 0 {
			bit = !bit
		}
		crc <<= 1
		if bit {
			crc ^= Polynomial
		}
	}
	return crc & Mask
}

// UpdateInt is Update for int-typed arguments such as untyped constants.
// Only the low 8 bits of each argument are used.
func UpdateInt(crc, datum int) uint8 {
	return Update(uint8(crc), uint8(datum))
}

// Checksum computes the CRC of data starting from Init.
func Checksum(data []byte) uint8 {
	crc := Init()
	for _, b := range data {
		crc = Update(crc, b)
	}
	return crc
}

// Verify reports whether crc is the CRC of data.
func Verify(data []byte, crc uint8) bool {
	return Checksum(data) == crc
}
