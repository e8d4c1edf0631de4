// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// trvlink - OpenTRV link analyzer
//
// A CLI tool for computing and checking CRC-7 protected frames and for
// monitoring them on serial and WebSocket links.

package main

import (
	"os"

	"github.com/Thermoquad/trvlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
