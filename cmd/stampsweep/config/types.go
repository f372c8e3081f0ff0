// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"
)

// DefaultFileName is the config file looked up in the working directory and
// in ~/.stampsweep.
const DefaultFileName = "stampsweep.yaml"

// SpecificAll disables the benchmark filter.
const SpecificAll = "all"

type SweepConfig struct {
	// Root holds one build directory per benchmark.
	Root string `yaml:"root" validate:"required"`

	// Output is the report file path.
	Output string `yaml:"output" validate:"required"`

	// Repeat is the number of samples per variant per thread count.
	Repeat int `yaml:"repeat" validate:"required,min=1"`

	// MaxThread bounds the doubling thread sweep 1, 2, 4, ...
	MaxThread int `yaml:"max_thread" validate:"required,pow2"`

	// Workload picks the full or simulator command table.
	Workload string `yaml:"workload" validate:"oneof=full sim"`

	// Specific restricts the sweep to one variant, or "all".
	Specific string `yaml:"specific" validate:"variant"`

	// Tables overrides the embedded command tables with a YAML file.
	Tables string `yaml:"tables,omitempty"`

	Debug    bool `yaml:"debug"`
	Diagnose bool `yaml:"diagnose"`

	// MaxAttempts caps zero-result retries; 0 means unbounded.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0"`

	// RunTimeout bounds one benchmark process; 0 means no limit.
	RunTimeout time.Duration `yaml:"run_timeout" validate:"min=0"`

	Perf bool `yaml:"perf"`

	Build     BuildConfig     `yaml:"build"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Influx    InfluxConfig    `yaml:"influx"`
	Upload    UploadConfig    `yaml:"upload"`
}

type BuildConfig struct {
	Skip   bool `yaml:"skip"`
	Strict bool `yaml:"strict"`
	Jobs   int  `yaml:"jobs" validate:"min=1"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

type TelemetryConfig struct {
	MetricsFile string `yaml:"metrics_file,omitempty"`
	TraceFile   string `yaml:"trace_file,omitempty"`
}

type InfluxConfig struct {
	URL    string `yaml:"url,omitempty" validate:"omitempty,url"`
	Token  string `yaml:"token,omitempty"`
	Org    string `yaml:"org,omitempty" validate:"required_with=URL"`
	Bucket string `yaml:"bucket,omitempty" validate:"required_with=URL"`
}

// Enabled reports whether results should be written to InfluxDB.
func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

type UploadConfig struct {
	// URL is gs://bucket[/prefix]; empty disables upload.
	URL string `yaml:"url,omitempty" validate:"omitempty,startswith=gs://"`

	// Credentials is a service account key; empty uses application default
	// credentials.
	Credentials string `yaml:"credentials,omitempty"`
}

// DefaultConfig returns the configuration used when no file is found.
// Output, Repeat and MaxThread have no defaults and must be supplied.
func DefaultConfig() SweepConfig {
	return SweepConfig{
		Root:        ".",
		Workload:    "full",
		Specific:    SpecificAll,
		MaxAttempts: 10,
		Build: BuildConfig{
			Jobs: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
