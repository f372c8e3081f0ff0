// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sweep drives the thread-count × repeat × benchmark cross product.
//
// The loops nest outer to inner as thread count (1, 2, 4, ... max), repeat
// index, then benchmark in commands.Benchmarks order. kmeans and vacation
// dispatch their _high and _low variants back to back in the same inner
// iteration. Invocations run strictly one at a time.
package sweep

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/runner"
)

// ErrInvalidSweep is returned for a sweep configuration that cannot run.
var ErrInvalidSweep = errors.New("invalid sweep configuration")

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

// ThreadCounts returns every power of two from 1 through max inclusive.
//
// # Examples
//
//	ThreadCounts(4)  // [1 2 4]
//	ThreadCounts(1)  // [1]
//	ThreadCounts(6)  // nil
func ThreadCounts(max int) []int {
	if !IsPowerOfTwo(max) {
		return nil
	}
	var out []int
	for t := 1; t <= max; t <<= 1 {
		out = append(out, t)
	}
	return out
}

// Step is one inner-loop iteration: one benchmark at one thread count and
// repeat index. It holds two invocations for kmeans and vacation.
type Step struct {
	Threads     int
	Repeat      int
	Benchmark   commands.BenchmarkID
	Invocations []runner.Invocation
}

// Plan is the ordered list of steps a sweep will execute.
type Plan struct {
	Steps []Step
}

// Invocations returns the number of processes the plan launches, not
// counting zero-result retries.
func (p Plan) Invocations() int {
	n := 0
	for _, s := range p.Steps {
		n += len(s.Invocations)
	}
	return n
}

// Benchmarks returns each benchmark the plan runs, in first-use order.
func (p Plan) Benchmarks() []commands.BenchmarkID {
	seen := make(map[commands.BenchmarkID]bool)
	var out []commands.BenchmarkID
	for _, s := range p.Steps {
		if !seen[s.Benchmark] {
			seen[s.Benchmark] = true
			out = append(out, s.Benchmark)
		}
	}
	return out
}

// Options describes a sweep.
type Options struct {
	// Root is the directory holding one build directory per benchmark.
	Root string

	// Table is the active command table.
	Table *commands.Table

	// MaxThread is the largest thread count; must be a power of two.
	MaxThread int

	// Repeat is the number of runs per thread count; at least 1.
	Repeat int

	// Only restricts the sweep to one variant. "" runs everything.
	Only commands.VariantKey
}

// Validate checks Options before any process is launched.
func (o Options) Validate() error {
	if o.Table == nil {
		return fmt.Errorf("%w: no command table", ErrInvalidSweep)
	}
	if !IsPowerOfTwo(o.MaxThread) {
		return fmt.Errorf("%w: max thread %d is not a power of two", ErrInvalidSweep, o.MaxThread)
	}
	if o.Repeat < 1 {
		return fmt.Errorf("%w: repeat %d must be at least 1", ErrInvalidSweep, o.Repeat)
	}
	if o.Only != "" && !o.Only.IsKnown() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidSweep, commands.ErrUnknownVariant, o.Only)
	}
	return nil
}

// BuildPlan expands Options into the ordered steps of the sweep.
//
// # Description
//
// Steps filtered out by Only are omitted entirely. For kmeans and vacation a
// step is kept when either variant matches Only, and then both variants run.
//
// # Outputs
//
//   - Plan: Steps in execution order
//   - error: ErrInvalidSweep, or a table resolution error
func BuildPlan(o Options) (Plan, error) {
	if err := o.Validate(); err != nil {
		return Plan{}, err
	}

	var plan Plan
	for _, threads := range ThreadCounts(o.MaxThread) {
		for r := 0; r < o.Repeat; r++ {
			for _, b := range commands.Benchmarks {
				variants := b.Variants()
				if !matches(variants, o.Only) {
					continue
				}
				step := Step{Threads: threads, Repeat: r, Benchmark: b}
				for _, v := range variants {
					spec, err := o.Table.Resolve(v)
					if err != nil {
						return Plan{}, err
					}
					step.Invocations = append(step.Invocations, runner.NewInvocation(o.Root, v, spec, threads))
				}
				plan.Steps = append(plan.Steps, step)
			}
		}
	}
	return plan, nil
}

func matches(variants []commands.VariantKey, only commands.VariantKey) bool {
	if only == "" {
		return true
	}
	for _, v := range variants {
		if v == only {
			return true
		}
	}
	return false
}
