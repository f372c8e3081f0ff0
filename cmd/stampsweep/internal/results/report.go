// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteReport serialises a Summary in the line-oriented report format.
func WriteReport(w io.Writer, sum Summary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Times: %d\n", sum.Repeat)
	for _, vs := range sum.Variants {
		fmt.Fprintf(bw, "Benchmarks: %s\n", vs.Variant)
		for _, s := range vs.Samples {
			bw.WriteString(FormatFloat(s))
			bw.WriteString(", ")
		}
		bw.WriteString("\nAverage: ")
		for _, m := range vs.Means {
			bw.WriteString(FormatFloat(m))
			bw.WriteString(",")
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// WriteReportFile writes the report to path through a temporary file in the
// same directory, so a failed write never leaves a truncated report.
func WriteReportFile(path string, sum Summary) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create report in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = WriteReport(tmp, sum); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}

// FormatFloat renders a sample the way existing report consumers expect,
// which is how Python prints a float: the shortest round-tripping digits,
// ".0" kept on integral values, and exponent form when the decimal exponent
// is below -4 or at least 16.
//
// # Examples
//
//	FormatFloat(2)      // "2.0"
//	FormatFloat(0.1)    // "0.1"
//	FormatFloat(0.0001) // "0.0001"
//	FormatFloat(1e-05)  // "1e-05"
//	FormatFloat(1e16)   // "1e+16"
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if v != 0 {
		if exp := decimalExponent(v); exp < -4 || exp >= 16 {
			return strconv.FormatFloat(v, 'e', -1, 64)
		}
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) {
		s += ".0"
	}
	return s
}

// decimalExponent returns the exponent of v's shortest scientific form.
func decimalExponent(v float64) int {
	s := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(s[strings.IndexByte(s, 'e')+1:])
	return exp
}
