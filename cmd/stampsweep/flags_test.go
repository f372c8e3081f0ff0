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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/config"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
)

// parseTestFlags registers the real flags on a fresh set and parses args.
func parseTestFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("stampsweep", pflag.ContinueOnError)
	fs.SetNormalizeFunc(normalizeFlagName)
	addCommonFlags(fs)
	addSweepFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.Output = "from-file.txt"
	cfg.Build.Jobs = 4

	fs := parseTestFlags(t, "-r", "5", "--max_thread", "8", "--sim", "-s", "kmeans_low", "-e", "--run-timeout", "2m")
	applyFlags(fs, &cfg)

	assert.Equal(t, "from-file.txt", cfg.Output)
	assert.Equal(t, 5, cfg.Repeat)
	assert.Equal(t, 8, cfg.MaxThread)
	assert.Equal(t, "sim", cfg.Workload)
	assert.Equal(t, "kmeans_low", cfg.Specific)
	assert.True(t, cfg.Diagnose)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 2*time.Minute, cfg.RunTimeout)
	assert.Equal(t, 3, cfg.MaxAttempts, "unset flag must not reset the file value")
	assert.Equal(t, 4, cfg.Build.Jobs)
	assert.NoError(t, cfg.Validate())
}

func TestApplyFlags_SimFalseOverridesFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workload = "sim"

	applyFlags(parseTestFlags(t, "--sim=false"), &cfg)
	assert.Equal(t, "full", cfg.Workload)
}

func TestApplyFlags_Export(t *testing.T) {
	cfg := config.DefaultConfig()
	fs := parseTestFlags(t,
		"--influx-url", "http://localhost:8086", "--influx-org", "lab", "--influx-bucket", "stamp", "--influx-token", "tok",
		"--upload", "gs://results/stamp", "--metrics-file", "stamp.prom", "--trace-file", "trace.json",
		"--skip-build", "--strict-build", "--build-jobs", "3", "--log-level", "debug", "--log-json")
	applyFlags(fs, &cfg)

	assert.Equal(t, config.InfluxConfig{URL: "http://localhost:8086", Token: "tok", Org: "lab", Bucket: "stamp"}, cfg.Influx)
	assert.Equal(t, "gs://results/stamp", cfg.Upload.URL)
	assert.Equal(t, config.TelemetryConfig{MetricsFile: "stamp.prom", TraceFile: "trace.json"}, cfg.Telemetry)
	assert.Equal(t, config.BuildConfig{Skip: true, Strict: true, Jobs: 3}, cfg.Build)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
}

func TestNormalizeFlagName(t *testing.T) {
	assert.Equal(t, pflag.NormalizedName("max-thread"), normalizeFlagName(nil, "max_thread"))
	assert.Equal(t, pflag.NormalizedName("output"), normalizeFlagName(nil, "output"))
}

func TestSelectedBenchmarks(t *testing.T) {
	all, err := selectedBenchmarks("all")
	require.NoError(t, err)
	assert.Equal(t, commands.Benchmarks, all)

	one, err := selectedBenchmarks("vacation_high")
	require.NoError(t, err)
	assert.Equal(t, []commands.BenchmarkID{commands.Vacation}, one)

	_, err = selectedBenchmarks("stream")
	assert.ErrorIs(t, err, commands.ErrUnknownVariant)
}

func TestLoadTable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workload = "sim"
	table, err := loadTable(cfg)
	require.NoError(t, err)
	assert.Equal(t, commands.WorkloadSim, table.Workload())

	cfg.Tables = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = loadTable(cfg)
	assert.Error(t, err)

	cfg.Tables = ""
	cfg.Workload = "huge"
	_, err = loadTable(cfg)
	assert.ErrorIs(t, err, commands.ErrUnknownWorkload)
}

func TestAbsRoot(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	root, err := absRoot(".")
	require.NoError(t, err)
	assert.Equal(t, wd, root)
}
