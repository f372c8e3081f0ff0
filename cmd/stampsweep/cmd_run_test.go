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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/config"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/export"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra/process"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/results"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/runner"
	"github.com/AleutianAI/stampsweep/pkg/logging"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type stubChecker struct {
	report *infra.PreflightReport
	got    infra.Preflight
}

func (c *stubChecker) CheckTool(string) error { return nil }

func (c *stubChecker) CheckBenchmarkDirs(string, []commands.BenchmarkID) []*infra.CheckError {
	return nil
}

func (c *stubChecker) LogicalCPUs(context.Context) (int, error) { return 8, nil }

func (c *stubChecker) RunPreflight(_ context.Context, p infra.Preflight) *infra.PreflightReport {
	c.got = p
	if c.report != nil {
		return c.report
	}
	return &infra.PreflightReport{LogicalCPUs: 8}
}

var _ infra.SystemChecker = (*stubChecker)(nil)

type recordingWriter struct {
	mu     sync.Mutex
	points []*write.Point
}

func (w *recordingWriter) WritePoint(_ context.Context, p ...*write.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, p...)
	return nil
}

type recordingUploader struct {
	mu      sync.Mutex
	objects []string
}

func (u *recordingUploader) UploadFile(_ context.Context, _, bucket, object string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects = append(u.objects, bucket+"/"+object)
	return nil
}

// timeByThreads reports 1s at one thread and 3s at two.
func timeByThreads(_ context.Context, _, _ string, args ...string) (process.Result, error) {
	if args[len(args)-1] == "-p2" {
		return process.Result{Output: []byte("Time = 3\n")}, nil
	}
	return process.Result{Output: []byte("Time = 1\n")}, nil
}

func okMake(context.Context, string, string, ...string) ([]byte, error) {
	return nil, nil
}

func newTestApp(t *testing.T, pm process.ProcessManager, checker infra.SystemChecker) (*sweepApp, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Root = t.TempDir()
	cfg.Output = filepath.Join(t.TempDir(), "result.txt")
	cfg.Workload = string(commands.WorkloadSim)
	cfg.Specific = "kmeans_low"
	cfg.Repeat = 2
	cfg.MaxThread = 2

	var stdout bytes.Buffer
	return &sweepApp{
		cfg:     cfg,
		pm:      pm,
		checker: checker,
		stdout:  &stdout,
		stderr:  &bytes.Buffer{},
		logger:  logging.Discard(),
		dialInflux: func(context.Context, export.InfluxConfig, export.SinkConfig) (*export.InfluxSink, func(), error) {
			return nil, nil, errors.New("not wired in this test")
		},
		newUploader: func(context.Context, string) (export.Uploader, func() error, error) {
			return nil, nil, errors.New("not wired in this test")
		},
	}, &stdout
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestSweepApp_Run_WritesReport(t *testing.T) {
	pm := &process.MockProcessManager{RunCombinedFunc: timeByThreads, RunFunc: okMake}
	checker := &stubChecker{}
	app, stdout := newTestApp(t, pm, checker)

	require.NoError(t, app.run(context.Background()))

	data, err := os.ReadFile(app.cfg.Output)
	require.NoError(t, err)
	report := string(data)
	assert.True(t, strings.HasPrefix(report, "Times: 2\nBenchmarks: bayes\n\nAverage: \n"))
	assert.Contains(t, report, "Benchmarks: kmeans_high\n1.0, 1.0, 3.0, 3.0, \nAverage: 1.0,3.0,\n")
	assert.Contains(t, report, "Benchmarks: kmeans_low\n1.0, 1.0, 3.0, 3.0, \nAverage: 1.0,3.0,\n")
	assert.Contains(t, report, "Benchmarks: yada\n\nAverage: \n")

	assert.Equal(t, []commands.BenchmarkID{commands.Kmeans}, checker.got.Benchmarks)
	assert.True(t, checker.got.NeedMake)

	var makes, runs int
	for _, c := range pm.GetCalls() {
		switch c.Method {
		case "Run":
			makes++
			assert.Equal(t, "make", c.Name)
			assert.Equal(t, filepath.Join(app.cfg.Root, "kmeans"), c.Dir)
		case "RunCombined":
			runs++
			assert.Equal(t, filepath.Join(app.cfg.Root, "kmeans", "kmeans.stm"), c.Name)
		}
	}
	assert.Equal(t, 2, makes, "clean and build")
	assert.Equal(t, 8, runs, "2 threads x 2 repeats x 2 variants")

	assert.Contains(t, stdout.String(), "kmeans_low")
	assert.Contains(t, stdout.String(), "8 runs, 8 attempts, 0 exhausted")
}

func TestSweepApp_Run_SkipBuild(t *testing.T) {
	pm := &process.MockProcessManager{RunCombinedFunc: timeByThreads}
	checker := &stubChecker{}
	app, _ := newTestApp(t, pm, checker)
	app.cfg.Build.Skip = true

	require.NoError(t, app.run(context.Background()))
	assert.False(t, checker.got.NeedMake)
	for _, c := range pm.GetCalls() {
		assert.Equal(t, "RunCombined", c.Method)
	}
}

func TestSweepApp_Run_PreflightFailure(t *testing.T) {
	pm := &process.MockProcessManager{}
	checker := &stubChecker{report: &infra.PreflightReport{
		Errors: []*infra.CheckError{{Type: infra.CheckErrorToolMissing, Message: "make not found in PATH"}},
	}}
	app, _ := newTestApp(t, pm, checker)

	err := app.run(context.Background())
	var checkErr *infra.CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "make not found in PATH", checkErr.Message)
	assert.Empty(t, pm.GetCalls())

	_, statErr := os.Stat(app.cfg.Output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSweepApp_Run_LaunchFailureWritesNoReport(t *testing.T) {
	pm := &process.MockProcessManager{
		RunFunc: okMake,
		RunCombinedFunc: func(context.Context, string, string, ...string) (process.Result, error) {
			return process.Result{}, errors.New("exec format error")
		},
	}
	app, _ := newTestApp(t, pm, &stubChecker{})

	err := app.run(context.Background())
	require.ErrorIs(t, err, runner.ErrLaunch)
	assert.Contains(t, err.Error(), "no report written")

	_, statErr := os.Stat(app.cfg.Output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSweepApp_Run_Cancelled(t *testing.T) {
	pm := &process.MockProcessManager{RunCombinedFunc: timeByThreads, RunFunc: okMake}
	app, _ := newTestApp(t, pm, &stubChecker{})
	app.cfg.Build.Skip = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := app.run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(app.cfg.Output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSweepApp_Run_Exports(t *testing.T) {
	pm := &process.MockProcessManager{RunCombinedFunc: timeByThreads, RunFunc: okMake}
	app, _ := newTestApp(t, pm, &stubChecker{})
	app.cfg.Telemetry.MetricsFile = filepath.Join(t.TempDir(), "stamp.prom")
	app.cfg.Influx = config.InfluxConfig{URL: "http://localhost:8086", Org: "lab", Bucket: "stamp"}
	app.cfg.Upload.URL = "gs://results/nightly"

	points := &recordingWriter{}
	var dialed export.SinkConfig
	app.dialInflux = func(_ context.Context, _ export.InfluxConfig, sink export.SinkConfig) (*export.InfluxSink, func(), error) {
		dialed = sink
		return export.NewInfluxSink(points, sink), func() {}, nil
	}
	uploader := &recordingUploader{}
	closed := false
	app.newUploader = func(context.Context, string) (export.Uploader, func() error, error) {
		return uploader, func() error { closed = true; return nil }, nil
	}

	require.NoError(t, app.run(context.Background()))

	metrics, err := os.ReadFile(app.cfg.Telemetry.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `stampsweep_benchmark_samples_total{variant="kmeans_low",workload="sim"} 4`)

	assert.Equal(t, "sim", dialed.Workload)
	assert.NotEmpty(t, dialed.SweepID)
	assert.Len(t, points.points, 8)

	require.Len(t, uploader.objects, 2)
	assert.True(t, strings.HasPrefix(uploader.objects[0], "results/nightly/"+dialed.SweepID+"/"))
	assert.True(t, strings.HasSuffix(uploader.objects[0], "/result.txt"))
	assert.True(t, strings.HasSuffix(uploader.objects[1], "/stamp.prom"))
	assert.True(t, closed)
}

func TestSweepApp_Run_ExportFailuresAreWarnings(t *testing.T) {
	pm := &process.MockProcessManager{RunCombinedFunc: timeByThreads, RunFunc: okMake}
	app, _ := newTestApp(t, pm, &stubChecker{})
	stderr := &bytes.Buffer{}
	app.stderr = stderr
	app.cfg.Influx = config.InfluxConfig{URL: "http://localhost:8086", Org: "lab", Bucket: "stamp"}
	app.cfg.Upload.URL = "gs://results"

	require.NoError(t, app.run(context.Background()))
	assert.Contains(t, stderr.String(), "WARN: InfluxDB disabled")
	assert.Contains(t, stderr.String(), "WARN: upload skipped")

	_, err := os.Stat(app.cfg.Output)
	assert.NoError(t, err)
}

func TestSweepApp_Run_PlanAndSampleCount(t *testing.T) {
	pm := &process.MockProcessManager{RunCombinedFunc: timeByThreads, RunFunc: okMake}
	app, _ := newTestApp(t, pm, &stubChecker{})
	stderr := &bytes.Buffer{}
	app.stderr = stderr
	exporter := logging.NewBufferedExporter()
	app.logger = logging.New(logging.Config{Quiet: true, Exporter: exporter})

	require.NoError(t, app.run(context.Background()))
	require.NoError(t, app.logger.Close())

	assert.Contains(t, stderr.String(), "sweep plan:\n")
	assert.Contains(t, stderr.String(), "invocations: 8")
	assert.Contains(t, stderr.String(), "threads: [1 2]")

	var total any
	for _, e := range exporter.Entries() {
		if e.Message == "samples recorded" {
			total = e.Attrs["total"]
		}
	}
	assert.Equal(t, 8, total)
	assert.Empty(t, exporter.Messages(logging.LevelWarn))
}

func TestCheckSampleCounts(t *testing.T) {
	store := results.NewStore()
	for i := 0; i < 4; i++ {
		store.Record("kmeans_high", 1)
	}
	for i := 0; i < 3; i++ {
		store.Record("kmeans_low", 1)
	}
	exporter := logging.NewBufferedExporter()
	logger := logging.New(logging.Config{Quiet: true, Exporter: exporter})

	checkSampleCounts(logger, store, []commands.BenchmarkID{commands.Kmeans}, 4)
	require.NoError(t, logger.Close())

	var warned []any
	for _, e := range exporter.Entries() {
		if e.Message == "unexpected sample count" {
			warned = append(warned, e.Attrs["variant"])
		}
	}
	assert.Equal(t, []any{"kmeans_low"}, warned)
}
