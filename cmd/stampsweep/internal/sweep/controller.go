// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sweep

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/runner"
	"github.com/AleutianAI/stampsweep/pkg/logging"
)

// Executor runs one invocation. *runner.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, inv runner.Invocation) (runner.Outcome, error)
}

// Progress tracks the sweep for the operator.
type Progress interface {
	// Start is called once with the number of planned invocations.
	Start(total int)

	// Advance is called after every completed invocation.
	Advance(o runner.Outcome)

	// Finish is called once when the sweep ends, successfully or not.
	Finish()
}

// Stats summarises a finished sweep.
type Stats struct {
	Invocations int
	Attempts    int
	Exhausted   int
	Duration    time.Duration
}

// Controller executes a Plan through an Executor.
//
// # Thread Safety
//
// Run must not be called concurrently.
type Controller struct {
	exec     Executor
	progress Progress
	logger   *logging.Logger
	tracer   trace.Tracer
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithProgress sets the operator progress display.
func WithProgress(p Progress) ControllerOption {
	return func(c *Controller) { c.progress = p }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *logging.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithTracer sets the tracer used for the sweep span.
func WithTracer(t trace.Tracer) ControllerOption {
	return func(c *Controller) { c.tracer = t }
}

// NewController creates a Controller.
func NewController(exec Executor, opts ...ControllerOption) *Controller {
	c := &Controller{
		exec:     exec,
		progress: nopProgress{},
		logger:   logging.Discard(),
		tracer:   otel.Tracer("stampsweep/sweep"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes every invocation of plan in order.
//
// # Description
//
// Each invocation blocks until its child exits. The first error (launch
// failure, timeout or cancellation) aborts the sweep; samples recorded
// before it stay in the store but the caller is expected not to write a
// report.
//
// # Outputs
//
//   - Stats: Counts up to the point the sweep stopped
//   - error: The Executor's error, unchanged
func (c *Controller) Run(ctx context.Context, plan Plan) (Stats, error) {
	total := plan.Invocations()
	ctx, span := c.tracer.Start(ctx, "stamp.sweep",
		trace.WithAttributes(
			attribute.Int("stamp.steps", len(plan.Steps)),
			attribute.Int("stamp.invocations", total),
		))
	defer span.End()

	start := time.Now()
	var stats Stats
	c.progress.Start(total)
	defer c.progress.Finish()

	lastThreads := 0
	for _, step := range plan.Steps {
		if step.Threads != lastThreads {
			c.logger.Info("thread count", "threads", step.Threads)
			lastThreads = step.Threads
		}
		for _, inv := range step.Invocations {
			if err := ctx.Err(); err != nil {
				return c.fail(span, stats, start, err)
			}
			out, err := c.exec.Execute(ctx, inv)
			if err != nil {
				return c.fail(span, stats, start, err)
			}
			stats.Invocations++
			stats.Attempts += out.Attempts
			if errors.Is(out.Err, runner.ErrRetriesExhausted) {
				stats.Exhausted++
			}
			c.progress.Advance(out)
		}
	}

	stats.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("stamp.attempts", stats.Attempts))
	c.logger.Info("sweep finished",
		"invocations", stats.Invocations,
		"attempts", stats.Attempts,
		"duration", stats.Duration.Round(time.Millisecond).String())
	return stats, nil
}

func (c *Controller) fail(span trace.Span, stats Stats, start time.Time, err error) (Stats, error) {
	stats.Duration = time.Since(start)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Error("sweep aborted", "error", err, "completed", stats.Invocations)
	return stats, err
}

type nopProgress struct{}

func (nopProgress) Start(int)              {}
func (nopProgress) Advance(runner.Outcome) {}
func (nopProgress) Finish()                {}
