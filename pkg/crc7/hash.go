// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crc7

import "hash"

// Hash7 is the common interface implemented by CRC-7 digests.
type Hash7 interface {
	hash.Hash
	Sum7() uint8
}

// digest represents the partial evaluation of a checksum.
type digest struct {
	crc uint8
}

// New returns a Hash7 computing the CRC-7 checksum.
func New() Hash7 {
	return &digest{crc: Init()}
}

func (d *digest) Write(p []byte) (n int, err error) {
	for _, b := range p {
		d.crc = Update(d.crc, b)
	}
	return len(p), nil
}

// Sum appends the current checksum to in.
func (d *digest) Sum(in []byte) []byte {
	return append(in, d.crc)
}

// Sum7 returns the 7-bit checksum of the hash.
func (d *digest) Sum7() uint8 {
	return d.crc
}

func (d *digest) Reset() {
	d.crc = Init()
}

func (*digest) Size() int {
	return Size
}

func (*digest) BlockSize() int {
	return 1
}
