// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames   uint64
	ValidFrames   uint64
	CRCErrors     uint64
	FramingErrors uint64
	OtherErrors   uint64
	BytesRead     uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a decoded frame or a decode error
func (s *Statistics) Update(f *Frame, decodeErr error) {
	s.TotalFrames++

	switch {
	case decodeErr == nil && f != nil:
		s.ValidFrames++
	case IsCRCError(decodeErr):
		s.CRCErrors++
	case IsFramingError(decodeErr):
		s.FramingErrors++
	default:
		s.OtherErrors++
	}

	s.LastUpdateTime = time.Now()
}

// AddBytes records n bytes read from the link
func (s *Statistics) AddBytes(n int) {
	if n > 0 {
		s.BytesRead += uint64(n)
	}
}

// ErrorCount returns the total number of rejected frames
func (s *Statistics) ErrorCount() uint64 {
	return s.CRCErrors + s.FramingErrors + s.OtherErrors
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.ErrorCount()) / elapsed
	}
}

// ValidPercent returns the share of valid frames in percent
func (s *Statistics) ValidPercent() float64 {
	if s.TotalFrames == 0 {
		return 0
	}
	return float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var crcErrorPercent, framingErrorPercent float64
	if s.TotalFrames > 0 {
		crcErrorPercent = float64(s.CRCErrors) * 100.0 / float64(s.TotalFrames)
		framingErrorPercent = float64(s.FramingErrors) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8s\n", humanize.Comma(int64(s.TotalFrames)))
	result += fmt.Sprintf("Valid Frames:    %8s (%.1f%%)\n", humanize.Comma(int64(s.ValidFrames)), s.ValidPercent())

	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8s (%.1f%%)\n", humanize.Comma(int64(s.CRCErrors)), crcErrorPercent)
	}
	if s.FramingErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8s (%.1f%%)\n", humanize.Comma(int64(s.FramingErrors)), framingErrorPercent)
	}
	if s.OtherErrors > 0 {
		result += fmt.Sprintf("Other Errors:    %8s\n", humanize.Comma(int64(s.OtherErrors)))
	}

	result += fmt.Sprintf("Bytes Read:      %8s\n", humanize.Bytes(s.BytesRead))
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalFrames = 0
	s.ValidFrames = 0
	s.CRCErrors = 0
	s.FramingErrors = 0
	s.OtherErrors = 0
	s.BytesRead = 0
	s.FrameRate = 0
	s.ErrorRate = 0
}
