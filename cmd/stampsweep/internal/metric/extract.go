// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metric extracts the elapsed-time sample from a benchmark's captured
// output.
//
// A line is a time line when it contains "time" in any case. The first numeric
// literal of every time line is added to a running sequence seeded with 0, and
// the sample is the sum of that sequence. ssca2 reports its kernels on one line
// that starts with "Time taken for all is"; such a line replaces the sequence
// with every number it carries instead of appending to it.
package metric

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// AllTimesPhrase marks a line whose numbers replace the accumulated sequence.
const AllTimesPhrase = "Time taken for all is"

var numberPattern = regexp.MustCompile(`[-+]?(?:\d*\.\d+|\d+)`)

// Extraction is the result of scanning one invocation's output.
//
// # Description
//
// Sum is the recorded sample. The other fields exist for debug output and
// never change Sum.
type Extraction struct {
	// Lines holds every captured line without its terminator.
	Lines []string

	// TimeLines holds the lines that contained "time" and a number.
	TimeLines []string

	// Sequence is the accumulated values, starting with the 0 seed unless an
	// AllTimesPhrase line replaced it.
	Sequence []float64

	// Skipped holds time lines that carried no numeric literal.
	Skipped []string

	// Sum is the arithmetic sum of Sequence.
	Sum float64
}

// IsZero reports whether the sample is exactly zero.
func (e Extraction) IsZero() bool {
	return e.Sum == 0
}

// Extract scans combined stdout/stderr output and computes the sample.
//
// # Description
//
// Lines are split on '\n' with a trailing '\r' removed. A time line without
// any numeric literal is recorded in Skipped and contributes nothing; it does
// not abort extraction.
//
// # Inputs
//
//   - output: Raw bytes captured from the child process
//
// # Outputs
//
//   - Extraction: Always populated; Sum is 0 when no time line matched
//
// # Examples
//
//	e := metric.Extract([]byte("Time = 1.25\nTime taken for all is 1.5 2.5 0.5\n"))
//	// e.Sum == 4.5
func Extract(output []byte) Extraction {
	e := Extraction{Sequence: []float64{0}}

	sc := bufio.NewScanner(bytes.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), len(output)+1)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		e.Lines = append(e.Lines, line)

		if !strings.Contains(strings.ToLower(line), "time") {
			continue
		}
		nums := numbers(line)
		if len(nums) == 0 {
			e.Skipped = append(e.Skipped, line)
			continue
		}
		e.TimeLines = append(e.TimeLines, line)
		if strings.Contains(line, AllTimesPhrase) {
			e.Sequence = nums
			continue
		}
		e.Sequence = append(e.Sequence, nums[0])
	}

	for _, v := range e.Sequence {
		e.Sum += v
	}
	return e
}

// numbers returns every numeric literal on the line in order of appearance.
func numbers(line string) []float64 {
	matches := numberPattern.FindAllString(line, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
