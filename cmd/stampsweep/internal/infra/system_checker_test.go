// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package infra

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
)

func fakeChecker(missing map[string]bool, cpus int, cpuErr error) *DefaultSystemChecker {
	return &DefaultSystemChecker{
		lookPath: func(name string) (string, error) {
			if missing[name] {
				return "", errors.New("executable file not found in $PATH")
			}
			return "/usr/bin/" + name, nil
		},
		cpuCount: func(ctx context.Context) (int, error) {
			return cpus, cpuErr
		},
	}
}

func benchmarkRoot(t *testing.T, benchmarks ...commands.BenchmarkID) string {
	t.Helper()
	root := t.TempDir()
	for _, b := range benchmarks {
		require.NoError(t, os.Mkdir(filepath.Join(root, string(b)), 0o755))
	}
	return root
}

func TestCheckErrorType_String(t *testing.T) {
	tests := []struct {
		typ  CheckErrorType
		want string
	}{
		{CheckErrorToolMissing, "TOOL_MISSING"},
		{CheckErrorBenchmarkDirMissing, "BENCHMARK_DIR_MISSING"},
		{CheckErrorOversubscribed, "OVERSUBSCRIBED"},
		{CheckErrorCPUUnknown, "CPU_UNKNOWN"},
		{CheckErrorType(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("CheckErrorType(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestCheckError_FullError(t *testing.T) {
	err := &CheckError{Message: "make not found in PATH", Detail: "lookup failed", Remediation: "Install make."}
	full := err.FullError()
	assert.Contains(t, full, "make not found in PATH")
	assert.Contains(t, full, "Details: lookup failed")
	assert.Contains(t, full, "To fix:\nInstall make.")
	assert.Equal(t, "make not found in PATH", err.Error())
}

func TestRunPreflight_AllPass(t *testing.T) {
	root := benchmarkRoot(t, commands.Benchmarks...)
	c := fakeChecker(nil, 16, nil)

	report := c.RunPreflight(context.Background(), Preflight{
		Root: root, Benchmarks: commands.Benchmarks, MaxThread: 16, NeedMake: true, NeedPerf: true,
	})

	assert.True(t, report.OK())
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 16, report.LogicalCPUs)
	assert.Contains(t, report.String(), "All checks passed")
}

func TestRunPreflight_MissingToolsAndDirs(t *testing.T) {
	root := benchmarkRoot(t, commands.Bayes)
	c := fakeChecker(map[string]bool{"make": true, "perf": true}, 8, nil)

	report := c.RunPreflight(context.Background(), Preflight{
		Root: root, Benchmarks: []commands.BenchmarkID{commands.Bayes, commands.Yada},
		MaxThread: 4, NeedMake: true,
	})

	require.False(t, report.OK())
	require.Len(t, report.Errors, 2)
	assert.Equal(t, CheckErrorToolMissing, report.Errors[0].Type)
	assert.Equal(t, "make not found in PATH", report.Errors[0].Message)
	assert.Equal(t, CheckErrorBenchmarkDirMissing, report.Errors[1].Type)
	assert.Contains(t, report.Errors[1].Message, "yada")
	assert.Contains(t, report.String(), "[TOOL_MISSING]")
}

func TestRunPreflight_SkippedBuildNeedsNoMake(t *testing.T) {
	c := fakeChecker(map[string]bool{"make": true}, 8, nil)
	report := c.RunPreflight(context.Background(), Preflight{Root: t.TempDir(), MaxThread: 1})
	assert.True(t, report.OK())
}

func TestRunPreflight_OversubscribedWarns(t *testing.T) {
	c := fakeChecker(nil, 6, nil)
	report := c.RunPreflight(context.Background(), Preflight{Root: t.TempDir(), MaxThread: 16})

	assert.True(t, report.OK())
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, CheckErrorOversubscribed, report.Warnings[0].Type)
	assert.Contains(t, report.Warnings[0].Remediation, "--max-thread 4")
}

func TestRunPreflight_CPUUnknownWarns(t *testing.T) {
	c := fakeChecker(nil, 0, errors.New("no /proc"))
	report := c.RunPreflight(context.Background(), Preflight{Root: t.TempDir(), MaxThread: 2})

	assert.True(t, report.OK())
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, CheckErrorCPUUnknown, report.Warnings[0].Type)
}

func TestCheckBenchmarkDirs_FileIsNotDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "genome"), nil, 0o644))

	errs := NewDefaultSystemChecker().CheckBenchmarkDirs(root, []commands.BenchmarkID{commands.Genome})
	require.Len(t, errs, 1)
	assert.Equal(t, "not a directory", errs[0].Detail)
}

func TestFloorPow2(t *testing.T) {
	for n, want := range map[int]int{0: 1, 1: 1, 3: 2, 6: 4, 8: 8, 12: 8} {
		assert.Equal(t, want, floorPow2(n), "n=%d", n)
	}
}

func TestDefaultSystemChecker_LogicalCPUs(t *testing.T) {
	n, err := NewDefaultSystemChecker().LogicalCPUs(context.Background())
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}
