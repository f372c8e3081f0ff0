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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/config"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
	"github.com/AleutianAI/stampsweep/pkg/logging"
)

// loadConfig reads the config file and applies explicitly set flags on top.
//
// # Inputs
//
//   - fs: The executing command's merged flag set
//   - validate: Run full validation; the sweep needs it, helper commands
//     that ignore output and repeat do not
func loadConfig(fs *pflag.FlagSet, validate bool) (config.SweepConfig, error) {
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	applyFlags(fs, &cfg)
	if validate {
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// applyFlags copies every flag the user set into cfg. Unset flags leave the
// file or default value alone.
func applyFlags(fs *pflag.FlagSet, cfg *config.SweepConfig) {
	set := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}

	if set("root") {
		cfg.Root = flagRoot
	}
	if set("tables") {
		cfg.Tables = flagTables
	}
	if set("sim") {
		cfg.Workload = string(commands.WorkloadFull)
		if flagSim {
			cfg.Workload = string(commands.WorkloadSim)
		}
	}
	if set("specific") {
		cfg.Specific = flagSpecific
	}
	if set("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	if set("log-dir") {
		cfg.Logging.Dir = flagLogDir
	}
	if set("log-json") {
		cfg.Logging.JSON = flagLogJSON
	}
	if set("output") {
		cfg.Output = flagOutput
	}
	if set("repeat") {
		cfg.Repeat = flagRepeat
	}
	if set("max-thread") {
		cfg.MaxThread = flagMaxThread
	}
	if set("debug") {
		cfg.Debug = flagDebug
	}
	if set("error") {
		cfg.Diagnose = flagDiagnose
	}
	if set("perf") {
		cfg.Perf = flagPerf
	}
	if set("max-attempts") {
		cfg.MaxAttempts = flagMaxAttempts
	}
	if set("run-timeout") {
		cfg.RunTimeout = flagRunTimeout
	}
	if set("build-jobs") {
		cfg.Build.Jobs = flagBuildJobs
	}
	if set("skip-build") {
		cfg.Build.Skip = flagSkipBuild
	}
	if set("strict-build") {
		cfg.Build.Strict = flagStrictBuild
	}
	if set("metrics-file") {
		cfg.Telemetry.MetricsFile = flagMetricsFile
	}
	if set("trace-file") {
		cfg.Telemetry.TraceFile = flagTraceFile
	}
	if set("influx-url") {
		cfg.Influx.URL = flagInfluxURL
	}
	if set("influx-token") {
		cfg.Influx.Token = flagInfluxToken
	}
	if set("influx-org") {
		cfg.Influx.Org = flagInfluxOrg
	}
	if set("influx-bucket") {
		cfg.Influx.Bucket = flagInfluxBucket
	}
	if set("upload") {
		cfg.Upload.URL = flagUpload
	}
	if set("upload-credentials") {
		cfg.Upload.Credentials = flagUploadCredentials
	}
}

// newLogger builds the diagnostics logger from the logging section.
func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Dir,
		Service: "stampsweep",
		JSON:    cfg.JSON,
		Output:  os.Stderr,
	}), nil
}

// loadTable returns the command table for the configured workload.
func loadTable(cfg config.SweepConfig) (*commands.Table, error) {
	var (
		tables commands.Tables
		err    error
	)
	if cfg.Tables != "" {
		tables, err = commands.LoadTables(cfg.Tables)
	} else {
		tables, err = commands.DefaultTables()
	}
	if err != nil {
		return nil, err
	}
	w, err := commands.ParseWorkload(cfg.Workload)
	if err != nil {
		return nil, err
	}
	return tables.Select(w)
}

// selectedBenchmarks returns the benchmarks the --specific filter keeps.
func selectedBenchmarks(specific string) ([]commands.BenchmarkID, error) {
	if specific == "" || specific == config.SpecificAll {
		return commands.Benchmarks, nil
	}
	v, err := commands.ParseVariant(specific)
	if err != nil {
		return nil, err
	}
	return []commands.BenchmarkID{v.Benchmark()}, nil
}

// absRoot resolves the benchmark root so child paths do not depend on the
// working directory.
func absRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	return abs, nil
}
