// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrUnknownVariant is returned when a variant key is not in the table.
	ErrUnknownVariant = errors.New("unknown benchmark variant")

	// ErrUnknownWorkload is returned for a workload other than full or sim.
	ErrUnknownWorkload = errors.New("unknown workload size")

	// ErrInvalidTable is returned when a command table fails validation.
	ErrInvalidTable = errors.New("invalid command table")
)

// -----------------------------------------------------------------------------
// Benchmarks and Variants
// -----------------------------------------------------------------------------

// BenchmarkID names a STAMP benchmark, its build directory and its binary.
type BenchmarkID string

// The STAMP benchmarks driven by the sweep.
const (
	Bayes     BenchmarkID = "bayes"
	Genome    BenchmarkID = "genome"
	Intruder  BenchmarkID = "intruder"
	Kmeans    BenchmarkID = "kmeans"
	Labyrinth BenchmarkID = "labyrinth"
	SSCA2     BenchmarkID = "ssca2"
	Vacation  BenchmarkID = "vacation"
	Yada      BenchmarkID = "yada"
)

// Benchmarks lists every benchmark in sweep order.
var Benchmarks = []BenchmarkID{Bayes, Genome, Intruder, Kmeans, Labyrinth, SSCA2, Vacation, Yada}

// VariantKey identifies one benchmark parameter profile for result bookkeeping.
type VariantKey string

const (
	highSuffix = "_high"
	lowSuffix  = "_low"
)

// Variants lists every variant key in report order.
var Variants = []VariantKey{
	"bayes", "genome", "intruder",
	"kmeans_high", "kmeans_low",
	"labyrinth", "ssca2",
	"vacation_high", "vacation_low",
	"yada",
}

// HasProfiles reports whether the benchmark runs as a _high/_low pair.
func (b BenchmarkID) HasProfiles() bool {
	return b == Kmeans || b == Vacation
}

// Variants returns the variant keys dispatched for one inner sweep iteration
// of the benchmark: the _high/_low pair for kmeans and vacation, otherwise the
// benchmark itself.
func (b BenchmarkID) Variants() []VariantKey {
	if b.HasProfiles() {
		return []VariantKey{VariantKey(string(b) + highSuffix), VariantKey(string(b) + lowSuffix)}
	}
	return []VariantKey{VariantKey(b)}
}

// Benchmark returns the benchmark that owns this variant.
func (v VariantKey) Benchmark() BenchmarkID {
	s := string(v)
	s = strings.TrimSuffix(s, highSuffix)
	s = strings.TrimSuffix(s, lowSuffix)
	return BenchmarkID(s)
}

// IsKnown reports whether v is one of the fixed variant keys.
func (v VariantKey) IsKnown() bool {
	for _, k := range Variants {
		if k == v {
			return true
		}
	}
	return false
}

// ParseVariant converts a user-supplied name into a known VariantKey.
//
// # Inputs
//
//   - s: Variant name such as "genome" or "kmeans_low"
//
// # Outputs
//
//   - VariantKey: The parsed key
//   - error: ErrUnknownVariant if s is not in Variants
func ParseVariant(s string) (VariantKey, error) {
	v := VariantKey(strings.TrimSpace(s))
	if !v.IsKnown() {
		return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownVariant, s, joinVariants(Variants))
	}
	return v, nil
}

func joinVariants(vs []VariantKey) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// -----------------------------------------------------------------------------
// Workload
// -----------------------------------------------------------------------------

// Workload selects which command table is active.
type Workload string

const (
	// WorkloadFull runs the native-size inputs.
	WorkloadFull Workload = "full"

	// WorkloadSim runs the reduced inputs sized for a simulator.
	WorkloadSim Workload = "sim"
)

// ParseWorkload converts a user-supplied workload name.
func ParseWorkload(s string) (Workload, error) {
	switch Workload(s) {
	case WorkloadFull, WorkloadSim:
		return Workload(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWorkload, s)
}

// -----------------------------------------------------------------------------
// CommandSpec
// -----------------------------------------------------------------------------

// CommandSpec is the immutable invocation template of one benchmark variant.
//
// # Description
//
// Executable is relative to the benchmark build directory. ThreadFlag, when
// set, is concatenated with the thread count and appended as the final
// argument, so ThreadFlag "-t" at 4 threads yields "-t4".
type CommandSpec struct {
	Executable string   `yaml:"executable"`
	Args       []string `yaml:"args"`
	ThreadFlag string   `yaml:"thread_flag"`
}

// SupportsThreadArg reports whether a trailing thread-count argument is appended.
func (c CommandSpec) SupportsThreadArg() bool {
	return c.ThreadFlag != ""
}

// Argv returns the argument vector (without the executable) for a thread count.
//
// # Inputs
//
//   - threads: Thread count; ignored when the command takes no thread argument
//
// # Outputs
//
//   - []string: A fresh slice; callers may modify it
func (c CommandSpec) Argv(threads int) []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Args...)
	if c.SupportsThreadArg() {
		argv = append(argv, c.ThreadFlag+strconv.Itoa(threads))
	}
	return argv
}

// CommandLine renders the invocation as it would be typed inside the build
// directory, e.g. "./bayes.stm -v32 ... -t4".
func (c CommandSpec) CommandLine(threads int) string {
	parts := append([]string{"./" + c.Executable}, c.Argv(threads)...)
	return strings.Join(parts, " ")
}

func (c CommandSpec) clone() CommandSpec {
	out := c
	out.Args = append([]string(nil), c.Args...)
	return out
}
