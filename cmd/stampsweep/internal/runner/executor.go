// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra/process"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/metric"
	"github.com/AleutianAI/stampsweep/pkg/logging"
	"github.com/AleutianAI/stampsweep/pkg/ux"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrLaunch is returned when a benchmark binary cannot be started.
	ErrLaunch = errors.New("failed to launch benchmark")

	// ErrRetriesExhausted marks an outcome whose zero sample survived every
	// allowed attempt. It is reported through Outcome.Err, not returned.
	ErrRetriesExhausted = errors.New("zero result after all retry attempts")
)

// DefaultMaxAttempts bounds the zero-result retry loop.
const DefaultMaxAttempts = 10

// -----------------------------------------------------------------------------
// Types
// -----------------------------------------------------------------------------

// Invocation is one concrete benchmark command at one thread count.
type Invocation struct {
	// Variant is the key the sample is recorded under.
	Variant commands.VariantKey

	// Threads is the thread count appended to the command, if supported.
	Threads int

	// Dir is the benchmark build directory; the child runs there.
	Dir string

	// Path is the absolute path of the executable.
	Path string

	// Args is the full argument vector without the executable.
	Args []string

	// CommandLine is the invocation as typed inside Dir, for display.
	CommandLine string
}

// NewInvocation resolves spec against the build directory of its benchmark
// under root.
//
// # Examples
//
//	spec, _ := table.Resolve("kmeans_low")
//	inv := runner.NewInvocation("/opt/stamp", "kmeans_low", spec, 4)
//	// inv.Dir == "/opt/stamp/kmeans"
//	// inv.Path == "/opt/stamp/kmeans/kmeans.stm"
//	// inv.Args ends with "-p4"
func NewInvocation(root string, v commands.VariantKey, spec commands.CommandSpec, threads int) Invocation {
	dir := commands.BuildDir(root, v.Benchmark())
	return Invocation{
		Variant:     v,
		Threads:     threads,
		Dir:         dir,
		Path:        filepath.Join(dir, spec.Executable),
		Args:        spec.Argv(threads),
		CommandLine: spec.CommandLine(threads),
	}
}

// Attempt is one launch of an Invocation.
type Attempt struct {
	Invocation Invocation
	Number     int
	Extraction metric.Extraction
	Result     process.Result
}

// Outcome is the recorded result of an Invocation after the retry loop.
type Outcome struct {
	Invocation Invocation

	// Sample is the value appended to the ResultStore.
	Sample float64

	// Attempts is the number of launches it took.
	Attempts int

	// Err is ErrRetriesExhausted when the sample is a zero that survived the
	// attempt cap, otherwise nil.
	Err error
}

// Recorder receives the final sample of every invocation.
type Recorder interface {
	Record(v commands.VariantKey, sample float64)
}

// Observer is notified of every attempt and outcome, in order.
type Observer interface {
	ObserveAttempt(ctx context.Context, a Attempt)
	ObserveOutcome(ctx context.Context, o Outcome)
}

// Config configures an Executor.
type Config struct {
	// Diagnose enables the zero-result retry loop and its output dumps.
	Diagnose bool

	// Debug writes every captured line, the matched time lines, the
	// sequence and the sum of each attempt to Operator.
	Debug bool

	// MaxAttempts caps launches per invocation in Diagnose mode.
	// 0 means unlimited.
	MaxAttempts int

	// Timeout bounds a single launch. 0 means none.
	Timeout time.Duration

	// Operator receives debug and zero-result dumps.
	// Default: a plain printer on io.Discard
	Operator *ux.Printer

	// Logger receives diagnostics.
	// Default: logging.Discard()
	Logger *logging.Logger

	// Recorder receives each final sample. May be nil.
	Recorder Recorder

	// Observers are notified after the recorder.
	Observers []Observer

	// Tracer creates a span per invocation.
	// Default: otel.Tracer("stampsweep/runner")
	Tracer trace.Tracer
}

// -----------------------------------------------------------------------------
// Executor
// -----------------------------------------------------------------------------

// Executor runs benchmark invocations sequentially.
type Executor struct {
	pm     process.ProcessManager
	config Config
}

// NewExecutor creates an Executor that launches through pm.
func NewExecutor(pm process.ProcessManager, config Config) *Executor {
	if config.Operator == nil {
		config.Operator = ux.NewPrinter(io.Discard, true)
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer("stampsweep/runner")
	}
	if config.MaxAttempts < 0 {
		config.MaxAttempts = 0
	}
	return &Executor{pm: pm, config: config}
}

// Execute runs inv until it yields a sample, records it, and returns it.
//
// # Description
//
// Each attempt launches the child, blocks until it exits and extracts the
// sample. In Diagnose mode a zero sample dumps the output and triggers one
// more attempt, up to MaxAttempts. The final sample is passed to the
// Recorder and then to every Observer.
//
// # Inputs
//
//   - ctx: Cancels the running child and the retry loop
//   - inv: Resolved invocation
//
// # Outputs
//
//   - Outcome: Recorded sample and attempt count
//   - error: ErrLaunch (wrapped) or a context error; nothing is recorded
//
// # Limitations
//
//   - Without Timeout a child that never exits blocks Execute forever
func (e *Executor) Execute(ctx context.Context, inv Invocation) (Outcome, error) {
	ctx, span := e.config.Tracer.Start(ctx, "benchmark.invocation",
		trace.WithAttributes(
			attribute.String("stamp.variant", string(inv.Variant)),
			attribute.Int("stamp.threads", inv.Threads),
			attribute.String("stamp.command", inv.CommandLine),
		))
	defer span.End()

	log := e.config.Logger.With("variant", string(inv.Variant), "threads", inv.Threads)
	out := Outcome{Invocation: inv}

	for {
		out.Attempts++
		ext, res, err := e.attempt(ctx, inv, out.Attempts, log)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return out, err
		}
		out.Sample = ext.Sum

		if !e.config.Diagnose || !ext.IsZero() {
			break
		}

		e.dumpZero(inv, out.Attempts, res)
		if e.config.MaxAttempts > 0 && out.Attempts >= e.config.MaxAttempts {
			out.Err = ErrRetriesExhausted
			log.Warn("zero result after all attempts, recording 0",
				"attempts", out.Attempts, "command", inv.CommandLine)
			break
		}
		log.Warn("zero result, retrying", "attempt", out.Attempts, "command", inv.CommandLine)
	}

	span.SetAttributes(
		attribute.Float64("stamp.sample", out.Sample),
		attribute.Int("stamp.attempts", out.Attempts),
	)
	if out.Err != nil {
		span.SetStatus(codes.Error, out.Err.Error())
	}

	if e.config.Recorder != nil {
		e.config.Recorder.Record(inv.Variant, out.Sample)
	}
	for _, o := range e.config.Observers {
		o.ObserveOutcome(ctx, out)
	}
	return out, nil
}

func (e *Executor) attempt(ctx context.Context, inv Invocation, n int, log *logging.Logger) (metric.Extraction, process.Result, error) {
	runCtx := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	log.Debug("launching", "attempt", n, "dir", inv.Dir, "command", inv.CommandLine)
	res, err := e.pm.RunCombined(runCtx, inv.Dir, inv.Path, inv.Args...)
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return metric.Extraction{}, res, fmt.Errorf("%s at %d threads: %w", inv.Variant, inv.Threads, ctxErr)
		}
		return metric.Extraction{}, res, fmt.Errorf("%w: %s in %s: %w", ErrLaunch, inv.CommandLine, inv.Dir, err)
	}
	if res.ExitCode != 0 {
		log.Warn("benchmark exited non-zero", "exit_code", res.ExitCode, "command", inv.CommandLine)
	}

	ext := metric.Extract(res.Output)
	for _, line := range ext.Skipped {
		log.Warn("time line without a number, ignored", "line", line)
	}
	if e.config.Debug {
		e.dumpDebug(inv, ext)
	}

	a := Attempt{Invocation: inv, Number: n, Extraction: ext, Result: res}
	for _, o := range e.config.Observers {
		o.ObserveAttempt(ctx, a)
	}
	return ext, res, nil
}
