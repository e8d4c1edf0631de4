// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/trvlink/pkg/crc7"
)

var selfTestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the CRC-7 check vectors",
	Long: `Run the built-in CRC-7 check vectors through both the per-byte and the
buffer+finalize code paths.

Exits non-zero if any vector fails.`,
	Args: cobra.NoArgs,
	RunE: runSelfTest,
}

func init() {
	rootCmd.AddCommand(selfTestCmd)
}

type crcVector struct {
	name string
	data []byte
	want uint8
}

var crcVectors = []crcVector{
	{"check", []byte("123456789"), crc7.Check},
	{"empty", nil, 0x00},
	{"0x01", []byte{0x01}, 0x37},
	{"0x80", []byte{0x80}, 0x1A},
	{"0xFF", []byte{0xFF}, 0x6C},
	{"A", []byte("A"), 0x3A},
	{"hello", []byte("hello"), 0x0B},
	{"OpenTRV", []byte("OpenTRV"), 0x70},
	{"1..6", []byte{1, 2, 3, 4, 5, 6}, 0x25},
	{"stats", []byte(`{"@":"0a45","T|C16":299}`), 0x04},
}

func runSelfTest(cmd *cobra.Command, args []string) error {
	if failures := runSelfTestVectors(cmd.OutOrStdout()); failures > 0 {
		return errors.Errorf("%d self test(s) failed", failures)
	}
	return nil
}

// runSelfTestVectors checks every vector on both paths and returns the
// number of failures
func runSelfTestVectors(w io.Writer) int {
	failures := 0

	for _, v := range crcVectors {
		direct := crc7.Checksum(v.data)
		augmented := crc7.InitAugmented().Update(v.data).Finalize()

		status := "PASS"
		if direct != v.want || augmented != v.want {
			status = "FAIL"
			failures++
		}
		fmt.Fprintf(w, "%s  %-8s direct=0x%02X augmented=0x%02X want=0x%02X\n",
			status, v.name, direct, augmented, v.want)
	}

	// A second finalize must change the result
	twice := crc7.Augmented(crc7.InitAugmented().Update([]byte("123456789")).Finalize()).Finalize()
	status := "PASS"
	if twice == crc7.Check {
		status = "FAIL"
		failures++
	}
	fmt.Fprintf(w, "%s  %-8s finalize twice=0x%02X (must differ from 0x%02X)\n", status, "refinal", twice, crc7.Check)

	if failures == 0 {
		fmt.Fprintf(w, "\nAll %d checks passed\n", len(crcVectors)+1)
	} else {
		fmt.Fprintf(w, "\n%d of %d checks failed\n", failures, len(crcVectors)+1)
	}
	return failures
}
