// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// readInput returns the bytes named on the command line: the contents of
// file ("-" for stdin) when set, else the arguments joined by spaces. With
// hexInput the result is parsed as hex first.
func readInput(args []string, hexInput bool, file string, stdin io.Reader) ([]byte, error) {
	var data []byte

	switch {
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read stdin")
		}
		data = b

	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", file)
		}
		data = b

	default:
		data = []byte(strings.Join(args, " "))
	}

	if hexInput {
		return parseHex(string(data))
	}
	return data, nil
}

// parseHex accepts "68656c6c6f", "68 65 6C 6C 6F", "0x68,0x65" and
// "68:65:6c" forms.
func parseHex(s string) ([]byte, error) {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "0x", "")

	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ',', ':', '-':
			return -1
		}
		return r
	}, s)

	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex input")
	}
	return data, nil
}

// formatBytes renders data as space separated upper case hex
func formatBytes(data []byte) string {
	return fmt.Sprintf("% X", data)
}
