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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/config"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/build"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/export"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra/process"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/probe"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/results"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/runner"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/sweep"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/telemetry"
	"github.com/AleutianAI/stampsweep/pkg/logging"
	"github.com/AleutianAI/stampsweep/pkg/ux"
)

// version is stamped into trace resources.
var version = "dev"

// runSweepCommand is the root action: lock, preflight, build, sweep, report.
func runSweepCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags(), true)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock := process.NewProcessLock(process.DefaultProcessLockConfig())
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	shutdown, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		ServiceVersion: version,
		File:           cfg.Telemetry.TraceFile,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	app := &sweepApp{
		cfg:         cfg,
		pm:          process.NewDefaultProcessManager(),
		checker:     infra.NewDefaultSystemChecker(),
		stdout:      cmd.OutOrStdout(),
		stderr:      cmd.ErrOrStderr(),
		interactive: isTerminal(os.Stderr),
		logger:      logger,
		dialInflux:  export.DialInflux,
		newUploader: newGCSUploader,
	}
	return app.run(ctx)
}

// newGCSUploader adapts export.NewGCSClient to sweepApp.newUploader.
func newGCSUploader(ctx context.Context, credentials string) (export.Uploader, func() error, error) {
	client, err := export.NewGCSClient(ctx, credentials)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// sweepApp holds everything a sweep needs, so tests can swap the process
// manager, the preflight checker and the export endpoints.
type sweepApp struct {
	cfg         config.SweepConfig
	pm          process.ProcessManager
	checker     infra.SystemChecker
	stdout      io.Writer
	stderr      io.Writer
	interactive bool
	logger      *logging.Logger

	dialInflux  func(ctx context.Context, cfg export.InfluxConfig, sink export.SinkConfig) (*export.InfluxSink, func(), error)
	newUploader func(ctx context.Context, credentials string) (export.Uploader, func() error, error)
}

// run executes one sweep end to end.
//
// # Description
//
// The report is written only when every planned invocation completed.
// Launch failures, timeouts and cancellation return before it. Metrics,
// InfluxDB and GCS failures after the report is written are warnings.
func (a *sweepApp) run(ctx context.Context) error {
	sweepID := uuid.NewString()
	log := a.logger.With("sweep_id", sweepID)
	operator := ux.NewPrinter(a.stderr, !a.interactive)

	root, err := absRoot(a.cfg.Root)
	if err != nil {
		return err
	}
	table, err := loadTable(a.cfg)
	if err != nil {
		return err
	}
	var only commands.VariantKey
	if a.cfg.Specific != config.SpecificAll {
		only = commands.VariantKey(a.cfg.Specific)
	}
	plan, err := sweep.BuildPlan(sweep.Options{
		Root:      root,
		Table:     table,
		MaxThread: a.cfg.MaxThread,
		Repeat:    a.cfg.Repeat,
		Only:      only,
	})
	if err != nil {
		return err
	}
	benchmarks := plan.Benchmarks()
	log.Info("sweep planned",
		"workload", string(table.Workload()),
		"root", root,
		"invocations", plan.Invocations(),
		"max_thread", a.cfg.MaxThread,
		"repeat", a.cfg.Repeat)
	operator.Box("sweep plan", fmt.Sprintf("workload: %s\nroot: %s\nthreads: %v\nrepeat: %d\ninvocations: %d",
		table.Workload(), root, sweep.ThreadCounts(a.cfg.MaxThread), a.cfg.Repeat, plan.Invocations()))

	// Preflight
	report := a.checker.RunPreflight(ctx, infra.Preflight{
		Root:       root,
		Benchmarks: benchmarks,
		MaxThread:  a.cfg.MaxThread,
		NeedMake:   !a.cfg.Build.Skip,
		NeedPerf:   a.cfg.Perf,
	})
	for _, w := range report.Warnings {
		operator.Warning(w.Message)
	}
	if !report.OK() {
		for _, e := range report.Errors[1:] {
			operator.Error(e.Message)
		}
		return report.Errors[0]
	}

	// Build
	if !a.cfg.Build.Skip {
		builder := build.NewBuilder(a.pm, build.Config{
			Root:   root,
			Jobs:   a.cfg.Build.Jobs,
			Strict: a.cfg.Build.Strict,
			Logger: log,
		})
		built, err := builder.Build(ctx, benchmarks)
		if err != nil {
			return err
		}
		for _, r := range build.Failed(built) {
			operator.Warning(fmt.Sprintf("%s did not build: %v", r.Benchmark, r.Err))
		}
	}

	// Probes
	if a.cfg.Perf {
		installer := probe.NewInstaller(a.pm, probe.Config{Root: root, Table: table, Sudo: true, Logger: log})
		sum, err := installer.Install(ctx, benchmarks)
		if err != nil {
			return err
		}
		operator.Info(fmt.Sprintf("perf probes: %d installed, %d failed", sum.Installed, sum.Failed))
	}

	// Sweep
	store := results.NewStore()
	metrics := telemetry.NewSweepMetrics(string(table.Workload()))
	observers := []runner.Observer{metrics}

	var sink *export.InfluxSink
	if a.cfg.Influx.Enabled() {
		s, closeInflux, err := a.dialInflux(ctx, export.InfluxConfig{
			URL:    a.cfg.Influx.URL,
			Token:  a.cfg.Influx.Token,
			Org:    a.cfg.Influx.Org,
			Bucket: a.cfg.Influx.Bucket,
		}, export.SinkConfig{SweepID: sweepID, Workload: string(table.Workload()), Logger: log})
		if err != nil {
			operator.Warning(fmt.Sprintf("InfluxDB disabled: %v", err))
		} else {
			defer closeInflux()
			sink = s
			observers = append(observers, sink)
		}
	}

	exec := runner.NewExecutor(a.pm, runner.Config{
		Diagnose:    a.cfg.Diagnose,
		Debug:       a.cfg.Debug,
		MaxAttempts: a.cfg.MaxAttempts,
		Timeout:     a.cfg.RunTimeout,
		Operator:    ux.NewPrinter(a.stdout, !a.interactive),
		Logger:      log,
		Recorder:    store,
		Observers:   observers,
	})
	ctrl := sweep.NewController(exec,
		sweep.WithProgress(newProgress(a.stderr, a.interactive)),
		sweep.WithLogger(log))

	stats, err := ctrl.Run(ctx, plan)
	if err != nil {
		return fmt.Errorf("sweep aborted after %d runs, no report written: %w", stats.Invocations, err)
	}

	checkSampleCounts(log, store, benchmarks, a.cfg.Repeat*len(sweep.ThreadCounts(a.cfg.MaxThread)))

	// Report
	summary, err := results.Aggregate(store, a.cfg.Repeat)
	if err != nil {
		return err
	}
	if err := results.WriteReportFile(a.cfg.Output, summary); err != nil {
		return err
	}
	operator.Success(fmt.Sprintf("report written to %s", a.cfg.Output))
	writeSummaryTable(a.stdout, summary, sweep.ThreadCounts(a.cfg.MaxThread), stats)
	if stats.Exhausted > 0 {
		operator.Warning(fmt.Sprintf("%d runs recorded 0 after %d attempts", stats.Exhausted, a.cfg.MaxAttempts))
	}

	// Export
	artifacts := []string{a.cfg.Output}
	if path := a.cfg.Telemetry.MetricsFile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			operator.Warning(err.Error())
		} else {
			artifacts = append(artifacts, path)
		}
	}
	if sink != nil {
		if err := sink.Flush(ctx); err != nil {
			operator.Warning(fmt.Sprintf("some samples were not written to InfluxDB: %v", err))
		}
	}
	if a.cfg.Upload.URL != "" {
		a.upload(ctx, operator, sweepID, artifacts)
	}
	return nil
}

// upload archives the report and metrics. Failures are warnings.
func (a *sweepApp) upload(ctx context.Context, operator *ux.Printer, sweepID string, artifacts []string) {
	loc, err := export.ParseGCSURL(a.cfg.Upload.URL)
	if err != nil {
		operator.Warning(err.Error())
		return
	}
	up, closeFn, err := a.newUploader(ctx, a.cfg.Upload.Credentials)
	if err != nil {
		operator.Warning(fmt.Sprintf("upload skipped: %v", err))
		return
	}
	defer closeFn()

	urls, err := export.UploadArtifacts(ctx, up, loc, sweepID, artifacts...)
	for _, u := range urls {
		operator.Success("uploaded " + u)
	}
	if err != nil {
		operator.Warning(fmt.Sprintf("upload incomplete: %v", err))
	}
}

// checkSampleCounts logs the samples recorded and warns about any swept
// variant whose count is not repeat times the number of thread counts.
func checkSampleCounts(log *logging.Logger, store *results.Store, benchmarks []commands.BenchmarkID, want int) {
	log.Info("samples recorded", "total", store.Total())
	for _, b := range benchmarks {
		for _, v := range b.Variants() {
			if n := store.Len(v); n != want {
				log.Warn("unexpected sample count", "variant", string(v), "samples", n, "want", want)
			}
		}
	}
}
