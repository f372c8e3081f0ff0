// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra/process"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/metric"
)

// dumpZero shows the operator everything the child printed on a zero run.
func (e *Executor) dumpZero(inv Invocation, attempt int, res process.Result) {
	title := fmt.Sprintf("zero result: %s at %d threads (attempt %d, exit %d)",
		inv.Variant, inv.Threads, attempt, res.ExitCode)
	e.config.Operator.WarningBox(title, string(res.Output))
}

// dumpDebug writes the raw lines and the extraction state of one attempt.
func (e *Executor) dumpDebug(inv Invocation, ext metric.Extraction) {
	p := e.config.Operator
	w := p.Writer()
	for _, line := range ext.Lines {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "cmd: %s\n", inv.CommandLine)
	fmt.Fprintf(w, "match line: %q\n", ext.TimeLines)
	fmt.Fprintf(w, "exe_time: [%s]\n", formatSequence(ext.Sequence))
	fmt.Fprintf(w, "exe_sum: %s\n", strconv.FormatFloat(ext.Sum, 'f', -1, 64))
	p.Rule()
}

func formatSequence(seq []float64) string {
	parts := make([]string, len(seq))
	for i, v := range seq {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}
