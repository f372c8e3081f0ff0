// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package infra contains system_checker.go which provides pre-flight checks for
a benchmark sweep.

# Problem Statement

A sweep can run for hours. Problems that only surface when the first process
launches, or worse halfway through, waste that time:

 1. make is missing, so every build silently fails and stale binaries run
 2. perf is missing while --perf was requested
 3. a benchmark directory is absent under --root, so a launch fails later
 4. max_thread exceeds the host's logical CPUs, so high thread counts are
    oversubscribed and their timings are not comparable

# Solution

SystemChecker validates all of this before anything is built or run. Missing
tools and directories are errors. Oversubscription is a warning: simulators
and deliberate oversubscription experiments are legitimate.

	report := infra.NewDefaultSystemChecker().RunPreflight(ctx, infra.Preflight{
	    Root:       root,
	    Benchmarks: commands.Benchmarks,
	    MaxThread:  16,
	    NeedMake:   true,
	})
	if !report.OK() {
	    fmt.Print(report.String())
	}

# Error Types

	CheckErrorToolMissing         - make or perf not on PATH
	CheckErrorBenchmarkDirMissing - <root>/<benchmark> does not exist
	CheckErrorOversubscribed      - max_thread exceeds logical CPUs
	CheckErrorCPUUnknown          - logical CPU count could not be read
*/
package infra

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
)

// -----------------------------------------------------------------------------
// Error Types
// -----------------------------------------------------------------------------

// CheckErrorType categorizes preflight failures for programmatic handling.
type CheckErrorType int

const (
	// CheckErrorToolMissing indicates a required binary is not on PATH.
	CheckErrorToolMissing CheckErrorType = iota

	// CheckErrorBenchmarkDirMissing indicates a build directory is absent.
	CheckErrorBenchmarkDirMissing

	// CheckErrorOversubscribed indicates more threads than logical CPUs.
	CheckErrorOversubscribed

	// CheckErrorCPUUnknown indicates the logical CPU count is unavailable.
	CheckErrorCPUUnknown
)

// String returns the error type as a string for logging.
func (t CheckErrorType) String() string {
	switch t {
	case CheckErrorToolMissing:
		return "TOOL_MISSING"
	case CheckErrorBenchmarkDirMissing:
		return "BENCHMARK_DIR_MISSING"
	case CheckErrorOversubscribed:
		return "OVERSUBSCRIBED"
	case CheckErrorCPUUnknown:
		return "CPU_UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// CheckError provides structured error information for preflight checks.
type CheckError struct {
	// Type categorizes the error for programmatic handling.
	Type CheckErrorType

	// Message is a human-readable error description.
	Message string

	// Detail provides technical information for debugging.
	Detail string

	// Remediation suggests how to fix the issue.
	Remediation string
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	return e.Message
}

// FullError returns a detailed error message including remediation.
func (e *CheckError) FullError() string {
	var buf bytes.Buffer
	buf.WriteString(e.Message)
	if e.Detail != "" {
		buf.WriteString("\n\nDetails: ")
		buf.WriteString(e.Detail)
	}
	if e.Remediation != "" {
		buf.WriteString("\n\nTo fix:\n")
		buf.WriteString(e.Remediation)
	}
	return buf.String()
}

// -----------------------------------------------------------------------------
// Preflight Report
// -----------------------------------------------------------------------------

// Preflight describes what a sweep is about to need.
type Preflight struct {
	Root       string
	Benchmarks []commands.BenchmarkID
	MaxThread  int

	// NeedMake is false when the build step is skipped.
	NeedMake bool

	// NeedPerf is true when probes will be installed.
	NeedPerf bool
}

// PreflightReport holds the outcome of RunPreflight.
type PreflightReport struct {
	Timestamp   time.Time
	LogicalCPUs int

	// Errors must be fixed before the sweep can run.
	Errors []*CheckError

	// Warnings are reported but do not stop the sweep.
	Warnings []*CheckError
}

// OK reports whether the report has no errors.
func (r *PreflightReport) OK() bool {
	return len(r.Errors) == 0
}

// String formats the report for display.
func (r *PreflightReport) String() string {
	var buf bytes.Buffer
	buf.WriteString("=== Sweep Preflight ===\n")
	buf.WriteString(fmt.Sprintf("Generated: %s\n", r.Timestamp.Format(time.RFC3339)))
	if r.LogicalCPUs > 0 {
		buf.WriteString(fmt.Sprintf("Logical CPUs: %d\n", r.LogicalCPUs))
	}
	buf.WriteString("\n")

	for _, e := range r.Errors {
		buf.WriteString(fmt.Sprintf("  ✗ [%s] %s\n", e.Type, e.Message))
		if e.Remediation != "" {
			buf.WriteString(fmt.Sprintf("    fix: %s\n", e.Remediation))
		}
	}
	for _, w := range r.Warnings {
		buf.WriteString(fmt.Sprintf("  ! [%s] %s\n", w.Type, w.Message))
	}
	if len(r.Errors) == 0 && len(r.Warnings) == 0 {
		buf.WriteString("  ✓ All checks passed\n")
	}
	return buf.String()
}

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// SystemChecker verifies the host is ready for a sweep.
//
// Implementations must be safe for concurrent use.
type SystemChecker interface {
	// CheckTool verifies a binary is on PATH.
	CheckTool(name string) error

	// CheckBenchmarkDirs verifies each benchmark has a build directory.
	CheckBenchmarkDirs(root string, benchmarks []commands.BenchmarkID) []*CheckError

	// LogicalCPUs returns the number of logical CPUs.
	LogicalCPUs(ctx context.Context) (int, error)

	// RunPreflight runs every check relevant to p.
	RunPreflight(ctx context.Context, p Preflight) *PreflightReport
}

// -----------------------------------------------------------------------------
// Struct Definition
// -----------------------------------------------------------------------------

// DefaultSystemChecker implements SystemChecker for the local system.
type DefaultSystemChecker struct {
	lookPath func(string) (string, error)
	cpuCount func(ctx context.Context) (int, error)
}

// NewDefaultSystemChecker creates a checker backed by PATH lookup and gopsutil.
func NewDefaultSystemChecker() *DefaultSystemChecker {
	return &DefaultSystemChecker{
		lookPath: exec.LookPath,
		cpuCount: func(ctx context.Context) (int, error) {
			return cpu.CountsWithContext(ctx, true)
		},
	}
}

// CheckTool verifies a binary is on PATH.
func (c *DefaultSystemChecker) CheckTool(name string) error {
	if _, err := c.lookPath(name); err != nil {
		return &CheckError{
			Type:        CheckErrorToolMissing,
			Message:     fmt.Sprintf("%s not found in PATH", name),
			Detail:      err.Error(),
			Remediation: fmt.Sprintf("Install %s or add its directory to PATH.", name),
		}
	}
	return nil
}

// CheckBenchmarkDirs verifies each benchmark has a build directory.
func (c *DefaultSystemChecker) CheckBenchmarkDirs(root string, benchmarks []commands.BenchmarkID) []*CheckError {
	var errs []*CheckError
	for _, b := range benchmarks {
		dir := commands.BuildDir(root, b)
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			continue
		}
		detail := "not a directory"
		if err != nil {
			detail = err.Error()
		}
		errs = append(errs, &CheckError{
			Type:        CheckErrorBenchmarkDirMissing,
			Message:     fmt.Sprintf("benchmark directory %s is missing", dir),
			Detail:      detail,
			Remediation: "Point --root at the STAMP source tree that contains one directory per benchmark.",
		})
	}
	return errs
}

// LogicalCPUs returns the number of logical CPUs.
func (c *DefaultSystemChecker) LogicalCPUs(ctx context.Context) (int, error) {
	return c.cpuCount(ctx)
}

// RunPreflight runs every check relevant to p.
func (c *DefaultSystemChecker) RunPreflight(ctx context.Context, p Preflight) *PreflightReport {
	report := &PreflightReport{Timestamp: time.Now()}

	var tools []string
	if p.NeedMake {
		tools = append(tools, "make")
	}
	if p.NeedPerf {
		tools = append(tools, "perf")
	}
	for _, tool := range tools {
		if err := c.CheckTool(tool); err != nil {
			report.Errors = append(report.Errors, err.(*CheckError))
		}
	}

	report.Errors = append(report.Errors, c.CheckBenchmarkDirs(p.Root, p.Benchmarks)...)

	n, err := c.LogicalCPUs(ctx)
	switch {
	case err != nil:
		report.Warnings = append(report.Warnings, &CheckError{
			Type:    CheckErrorCPUUnknown,
			Message: "could not read the logical CPU count",
			Detail:  err.Error(),
		})
	case p.MaxThread > n:
		report.LogicalCPUs = n
		report.Warnings = append(report.Warnings, &CheckError{
			Type:        CheckErrorOversubscribed,
			Message:     fmt.Sprintf("max_thread %d exceeds %d logical CPUs", p.MaxThread, n),
			Remediation: fmt.Sprintf("Use --max-thread %d or lower for unshared cores.", floorPow2(n)),
		})
	default:
		report.LogicalCPUs = n
	}
	return report
}

// floorPow2 returns the largest power of two not above n, or 1.
func floorPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

var _ SystemChecker = (*DefaultSystemChecker)(nil)
