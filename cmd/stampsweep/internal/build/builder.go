// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package build rebuilds the STAMP benchmark binaries before a sweep.
//
// Each benchmark directory is cleaned and rebuilt with its own makefile. A
// failed build is a warning by default: the sweep then runs whatever binary is
// present and a missing one surfaces as a launch failure. Strict mode turns
// build failures fatal instead.
package build

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra/process"
	"github.com/AleutianAI/stampsweep/pkg/logging"
)

// DefaultMakefile is the makefile every STAMP benchmark directory carries.
const DefaultMakefile = "Makefile.stm"

// ErrBuildFailed is returned in strict mode when any benchmark fails to build.
var ErrBuildFailed = errors.New("benchmark build failed")

// Config controls a build pass.
type Config struct {
	// Root contains one directory per benchmark.
	Root string

	// Jobs is the number of benchmarks built concurrently.
	// Default: 1
	Jobs int

	// Strict makes any failed build fatal.
	Strict bool

	// Makefile is passed to make -f.
	// Default: DefaultMakefile
	Makefile string

	Logger *logging.Logger
}

// Result is the outcome of building one benchmark.
type Result struct {
	Benchmark commands.BenchmarkID
	Duration  time.Duration
	Err       error
}

// Builder runs make in each benchmark directory.
type Builder struct {
	pm     process.ProcessManager
	config Config
}

// NewBuilder creates a Builder, filling defaults.
func NewBuilder(pm process.ProcessManager, config Config) *Builder {
	if config.Jobs < 1 {
		config.Jobs = 1
	}
	if config.Makefile == "" {
		config.Makefile = DefaultMakefile
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	return &Builder{pm: pm, config: config}
}

// Build cleans and rebuilds every listed benchmark.
//
// # Description
//
// Runs "make -f <Makefile> clean" then "make -f <Makefile>" in
// <Root>/<benchmark>, at most Jobs benchmarks at a time.
//
// # Outputs
//
//   - []Result: One entry per benchmark, in input order
//   - error: ErrBuildFailed (strict mode only) or a context error
//
// # Limitations
//
//   - In strict mode the first failure cancels builds still running; their
//     results carry the context error
func (b *Builder) Build(ctx context.Context, benchmarks []commands.BenchmarkID) ([]Result, error) {
	results := make([]Result, len(benchmarks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Jobs)

	for i, id := range benchmarks {
		g.Go(func() error {
			start := time.Now()
			err := b.buildOne(gctx, id)
			results[i] = Result{Benchmark: id, Duration: time.Since(start), Err: err}
			if err == nil {
				b.config.Logger.Info("built benchmark", "benchmark", string(id), "duration", results[i].Duration)
				return nil
			}
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if b.config.Strict {
				return fmt.Errorf("%w: %s: %w", ErrBuildFailed, id, err)
			}
			b.config.Logger.Warn("benchmark build failed, continuing with existing binary",
				"benchmark", string(id), "error", err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (b *Builder) buildOne(ctx context.Context, id commands.BenchmarkID) error {
	dir := commands.BuildDir(b.config.Root, id)
	for _, args := range [][]string{
		{"-f", b.config.Makefile, "clean"},
		{"-f", b.config.Makefile},
	} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := b.pm.Run(ctx, dir, "make", args...); err != nil {
			return err
		}
	}
	return nil
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
