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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validConfig() SweepConfig {
	cfg := DefaultConfig()
	cfg.Output = "output.txt"
	cfg.Repeat = 3
	cfg.MaxThread = 8
	return cfg
}

// chdir moves into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, "full", cfg.Workload)
	assert.Equal(t, SpecificAll, cfg.Specific)
	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.Equal(t, 1, cfg.Build.Jobs)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Influx.Enabled())

	// Output, repeat and max_thread must come from the user.
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "output is required")
	assert.Contains(t, err.Error(), "repeat is required")
	assert.Contains(t, err.Error(), "max_thread is required")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SweepConfig)
		wantMsg string
	}{
		{name: "valid", mutate: func(c *SweepConfig) {}},
		{name: "valid variant", mutate: func(c *SweepConfig) { c.Specific = "vacation_low" }},
		{name: "valid influx", mutate: func(c *SweepConfig) {
			c.Influx = InfluxConfig{URL: "http://localhost:8086", Org: "lab", Bucket: "stamp"}
		}},
		{name: "max thread not pow2", mutate: func(c *SweepConfig) { c.MaxThread = 6 }, wantMsg: "max_thread must be a power of two (got 6)"},
		{name: "negative repeat", mutate: func(c *SweepConfig) { c.Repeat = -1 }, wantMsg: "repeat must be at least 1"},
		{name: "bad workload", mutate: func(c *SweepConfig) { c.Workload = "huge" }, wantMsg: "workload must be one of [full sim]"},
		{name: "bare kmeans", mutate: func(c *SweepConfig) { c.Specific = "kmeans" }, wantMsg: `specific must be "all" or a benchmark variant (got "kmeans")`},
		{name: "negative attempts", mutate: func(c *SweepConfig) { c.MaxAttempts = -1 }, wantMsg: "max_attempts must be at least 0"},
		{name: "negative timeout", mutate: func(c *SweepConfig) { c.RunTimeout = -time.Second }, wantMsg: "run_timeout"},
		{name: "zero jobs", mutate: func(c *SweepConfig) { c.Build.Jobs = 0 }, wantMsg: "build.jobs must be at least 1"},
		{name: "bad log level", mutate: func(c *SweepConfig) { c.Logging.Level = "trace" }, wantMsg: "logging.level must be one of"},
		{name: "influx without bucket", mutate: func(c *SweepConfig) {
			c.Influx = InfluxConfig{URL: "http://localhost:8086", Org: "lab"}
		}, wantMsg: "influx.bucket is required when url is set"},
		{name: "upload not gs", mutate: func(c *SweepConfig) { c.Upload.URL = "s3://bucket" }, wantMsg: "upload.url must start with gs://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	data := []byte("output: out.txt\nrepeat: 5\nmax_thread: 16\nworkload: sim\nrun_timeout: 90s\nbuild:\n  jobs: 4\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, from, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, from)
	assert.Equal(t, "out.txt", cfg.Output)
	assert.Equal(t, 5, cfg.Repeat)
	assert.Equal(t, 16, cfg.MaxThread)
	assert.Equal(t, "sim", cfg.Workload)
	assert.Equal(t, 90*time.Second, cfg.RunTimeout)
	assert.Equal(t, 4, cfg.Build.Jobs)
	// Unset values keep their defaults.
	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.Equal(t, SpecificAll, cfg.Specific)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_threads: 8\n"), 0o644))

	_, _, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	chdir(t, dir)
	require.NoError(t, os.WriteFile(DefaultFileName, []byte("repeat: 2\n"), 0o644))

	cfg, from, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFileName, from)
	assert.Equal(t, 2, cfg.Repeat)
}

func TestLoad_HomeDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())
	path := filepath.Join(home, ".stampsweep", DefaultFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("max_thread: 32\n"), 0o644))

	cfg, from, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, from)
	assert.Equal(t, 32, cfg.MaxThread)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	cfg, from, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, from)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestCreateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".stampsweep", DefaultFileName)

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	var cfg SweepConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	if cfg.Workload != "full" {
		t.Errorf("Workload = %q, want %q", cfg.Workload, "full")
	}
	if cfg.MaxAttempts != 10 {
		t.Errorf("MaxAttempts = %d, want 10", cfg.MaxAttempts)
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, Init(path, false))
	assert.ErrorIs(t, Init(path, false), ErrConfigExists)
	assert.NoError(t, Init(path, true))
}
