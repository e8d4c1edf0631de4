// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crc7

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================
// Update Tests
// ============================================================

func TestInit(t *testing.T) {
	assert.Equal(t, uint8(0), Init())
}

func TestChecksum_CheckValue(t *testing.T) {
	assert.Equal(t, uint8(Check), Checksum([]byte("123456789")))
}

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint8
	}{
		{name: "empty", data: []byte{}, expected: 0x00},
		{name: "single zero byte", data: []byte{0x00}, expected: 0x00},
		{name: "0x01", data: []byte{0x01}, expected: 0x37},
		{name: "0x80", data: []byte{0x80}, expected: 0x1A},
		{name: "0xFF", data: []byte{0xFF}, expected: 0x6C},
		{name: "ASCII 'A'", data: []byte("A"), expected: 0x3A},
		{name: "ASCII 'hello'", data: []byte("hello"), expected: 0x0B},
		{name: "ASCII 'OpenTRV'", data: []byte("OpenTRV"), expected: 0x70},
		{name: "six bytes", data: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}, expected: 0x25},
		{name: "stats JSON", data: []byte(`{"@":"0a45","T|C16":299}`), expected: 0x04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Checksum(tt.data), "CRC mismatch: expected 0x%02X", tt.expected)
		})
	}
}

func TestUpdate_Deterministic(t *testing.T) {
	for b := 0; b < 256; b++ {
		assert.Equal(t, Update(0, uint8(b)), Update(0, uint8(b)))
	}
}

func TestUpdate_TopBitAlwaysClear(t *testing.T) {
	for crc := 0; crc < 256; crc++ {
		for b := 0; b < 256; b++ {
			got := Update(uint8(crc), uint8(b))
			if got > Mask {
				t.Fatalf("Update(0x%02X, 0x%02X) = 0x%02X, top bit set", crc, b, got)
			}
		}
	}
}

func TestUpdate_IgnoresBit7OnEntry(t *testing.T) {
	for crc := 0; crc < 128; crc++ {
		for b := 0; b < 256; b++ {
			if Update(uint8(crc), uint8(b)) != Update(uint8(crc)|0x80, uint8(b)) {
				t.Fatalf("bit 7 of register 0x%02X changed the result for datum 0x%02X", crc, b)
			}
		}
	}
}

func TestUpdateInt(t *testing.T) {
	assert.Equal(t, Update(0x00, 0x31), UpdateInt(0x00, 0x31))
	// Only the low 8 bits of each argument count.
	assert.Equal(t, Update(0x80, 0x31), UpdateInt(0x180, 0x131))
	assert.Equal(t, uint8(0x1F), UpdateInt(0x180, 0x131))
	assert.Equal(t, Update(0xFF, 0xAB), UpdateInt(-1, 0xAB))
	assert.Equal(t, uint8(0x24), UpdateInt(-1, 0xAB))
}

func TestUpdate_Chaining(t *testing.T) {
	// The running value after each byte is the CRC of the prefix so far.
	data := []byte("123456789")
	crc := Init()
	for i, b := range data {
		crc = Update(crc, b)
		assert.Equal(t, Checksum(data[:i+1]), crc, "prefix length %d", i+1)
	}
	assert.Equal(t, uint8(Check), crc)
}

func TestVerify(t *testing.T) {
	assert.True(t, Verify([]byte("123456789"), Check))
	assert.False(t, Verify([]byte("123456789"), Check^0x01))
	assert.False(t, Verify([]byte("123456780"), Check))
}

func TestChecksum_DetectsSingleBitErrors(t *testing.T) {
	data := []byte{0x10, 0x30, 0x01, 0x02, 0x03, 0x04}
	want := Checksum(data)
	for i := range data {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), data...)
			corrupted[i] ^= 1 << bit
			assert.NotEqual(t, want, Checksum(corrupted), "flip of byte %d bit %d went undetected", i, bit)
		}
	}
}
