// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/results"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/sweep"
	"github.com/AleutianAI/stampsweep/pkg/ux"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess = 0 // Operation completed successfully
	CLIExitError   = 2 // Operation failed
)

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// OutputError writes a failure to w, with remediation for preflight errors.
func OutputError(w io.Writer, err error) {
	var checkErr *infra.CheckError
	if errors.As(err, &checkErr) {
		fmt.Fprintf(w, "Error: %s\n", checkErr.FullError())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// writeSummaryTable renders the per-variant group means as a table.
//
// # Description
//
// One row per variant in report order, one column per thread count. The
// report file remains the machine-readable output; this is for the operator.
func writeSummaryTable(w io.Writer, sum results.Summary, threads []int, stats sweep.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault

	header := table.Row{"variant"}
	for _, n := range threads {
		header = append(header, fmt.Sprintf("t=%d", n))
	}
	header = append(header, "samples")
	t.AppendHeader(header)

	for _, v := range sum.Variants {
		if len(v.Samples) == 0 {
			continue
		}
		row := table.Row{string(v.Variant)}
		for i := range threads {
			if i < len(v.Means) {
				row = append(row, results.FormatFloat(v.Means[i]))
			} else {
				row = append(row, "-")
			}
		}
		row = append(row, len(v.Samples))
		t.AppendRow(row)
	}
	t.Render()

	fmt.Fprintf(w, "%d runs, %d attempts, %d exhausted, %s\n",
		stats.Invocations, stats.Attempts, stats.Exhausted, stats.Duration.Round(time.Millisecond))
}

// writeCommandTable renders a command table for the tables command.
func writeCommandTable(w io.Writer, plain bool, tbl *commands.Table) error {
	ux.NewPrinter(w, plain).Title(fmt.Sprintf("%s workload", tbl.Workload()))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"variant", "directory", "command"})

	for _, v := range commands.Variants {
		spec, err := tbl.Resolve(v)
		if err != nil {
			return err
		}
		parts := append([]string{"./" + spec.Executable}, spec.Args...)
		if spec.SupportsThreadArg() {
			parts = append(parts, spec.ThreadFlag+"<threads>")
		}
		t.AppendRow(table.Row{string(v), string(v.Benchmark()), strings.Join(parts, " ")})
	}
	t.Render()
	return nil
}
