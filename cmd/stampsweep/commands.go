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
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// --- Global Command Variables ---
var (
	configPath string

	// Shared by every command.
	flagRoot     string
	flagTables   string
	flagSim      bool
	flagSpecific string
	flagLogLevel string
	flagLogDir   string
	flagLogJSON  bool

	// Sweep.
	flagOutput      string
	flagRepeat      int
	flagMaxThread   int
	flagDebug       bool
	flagDiagnose    bool
	flagPerf        bool
	flagMaxAttempts int
	flagRunTimeout  time.Duration

	// Telemetry and export.
	flagMetricsFile       string
	flagTraceFile         string
	flagInfluxURL         string
	flagInfluxToken       string
	flagInfluxOrg         string
	flagInfluxBucket      string
	flagUpload            string
	flagUploadCredentials string

	// Build.
	flagBuildJobs   int
	flagSkipBuild   bool
	flagStrictBuild bool

	// config init.
	flagForce bool

	rootCmd = &cobra.Command{
		Use:   "stampsweep",
		Short: "Sweep the STAMP benchmarks across thread counts and report mean times",
		Long: `stampsweep rebuilds the STAMP benchmarks, runs every benchmark variant
repeatedly at 1, 2, 4, ... up to --max-thread threads, extracts the elapsed
time each run prints, and writes per-variant averages to the --output report.`,
		Example: `  stampsweep -o output.txt -r 5 -m 16
  stampsweep -o sim.txt -r 1 -m 4 --sim -s kmeans_low --error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSweepCommand, // Defined in cmd_run.go
	}

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Clean and rebuild the benchmark binaries without running them",
		Args:  cobra.NoArgs,
		RunE:  runBuildCommand, // Defined in cmd_build.go
	}

	probeCmd = &cobra.Command{
		Use:   "probe",
		Short: "Install perf uprobes on the STM entry points of every benchmark",
		Args:  cobra.NoArgs,
		RunE:  runProbeCommand, // Defined in cmd_probe.go
	}

	tablesCmd = &cobra.Command{
		Use:   "tables",
		Short: "Print the active command table",
		Args:  cobra.NoArgs,
		RunE:  runTablesCommand, // Defined in cmd_tables.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the stampsweep configuration file",
	}
	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit, // Defined in cmd_config.go
	}
)

// normalizeFlagName accepts --max_thread as well as --max-thread.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	addCommonFlags(rootCmd.PersistentFlags())
	addSweepFlags(rootCmd.Flags())

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(tablesCmd)

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing file")
}

// addCommonFlags registers the flags every command understands.
func addCommonFlags(pf *pflag.FlagSet) {
	pf.StringVar(&configPath, "config", "", "Config file (default: ./stampsweep.yaml, then ~/.stampsweep/stampsweep.yaml)")
	pf.StringVar(&flagRoot, "root", ".", "Directory containing one build directory per benchmark")
	pf.StringVar(&flagTables, "tables", "", "YAML file replacing the built-in command tables")
	pf.BoolVar(&flagSim, "sim", false, "Use the simulator-sized command table")
	pf.StringVarP(&flagSpecific, "specific", "s", "all", "Only run one benchmark variant (e.g. genome, kmeans_low)")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&flagLogDir, "log-dir", "", "Also write JSON logs to this directory")
	pf.BoolVar(&flagLogJSON, "log-json", false, "Write console logs as JSON")
	pf.IntVar(&flagBuildJobs, "build-jobs", 1, "Benchmarks built concurrently")
	pf.BoolVar(&flagStrictBuild, "strict-build", false, "Fail when any benchmark does not build")
}

// addSweepFlags registers the flags of the sweep itself.
func addSweepFlags(f *pflag.FlagSet) {
	f.StringVarP(&flagOutput, "output", "o", "", "Report file path")
	f.IntVarP(&flagRepeat, "repeat", "r", 0, "Runs per variant per thread count")
	f.IntVarP(&flagMaxThread, "max-thread", "m", 0, "Largest thread count; must be a power of two")
	f.BoolVar(&flagDebug, "debug", false, "Print every run's output, matched time lines and sum")
	f.BoolVarP(&flagDiagnose, "error", "e", false, "Re-run benchmarks that report zero time and print their output")
	f.BoolVar(&flagPerf, "perf", false, "Install perf probes before the sweep")
	f.IntVar(&flagMaxAttempts, "max-attempts", 10, "Attempts per run with --error; 0 retries forever")
	f.DurationVar(&flagRunTimeout, "run-timeout", 0, "Abort the sweep if one run exceeds this duration (0 = no limit)")
	f.BoolVar(&flagSkipBuild, "skip-build", false, "Run the existing binaries without rebuilding")
	f.StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the sweep")
	f.StringVar(&flagTraceFile, "trace-file", "", "Write OpenTelemetry spans as JSON to this file")
	f.StringVar(&flagInfluxURL, "influx-url", "", "InfluxDB v2 URL; enables the sample sink")
	f.StringVar(&flagInfluxToken, "influx-token", "", "InfluxDB API token")
	f.StringVar(&flagInfluxOrg, "influx-org", "", "InfluxDB organization")
	f.StringVar(&flagInfluxBucket, "influx-bucket", "", "InfluxDB bucket")
	f.StringVar(&flagUpload, "upload", "", "Upload the report and metrics to gs://bucket/prefix")
	f.StringVar(&flagUploadCredentials, "upload-credentials", "", "Service account key for --upload (default: application default credentials)")
}
