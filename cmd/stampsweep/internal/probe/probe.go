// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package probe installs perf uprobes on the STAMP transactional-memory entry
// points so a sweep can be traced with perf record.
package probe

import (
	"context"
	"fmt"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra/process"
	"github.com/AleutianAI/stampsweep/pkg/logging"
)

// Point is one uprobe placed on every benchmark binary.
type Point struct {
	// Event is appended to "<benchmark>_" to name the perf event.
	Event string

	// Location is the symbol, with %return for a return probe.
	Location string
}

// Points are the STM entry and exit probes, in insertion order.
var Points = []Point{
	{"stm_start_entry", "stm_start"},
	{"stm_commit_entry", "stm_commit"},
	{"stm_commit_exit", "stm_commit%return"},
	{"stm_abort_entry", "stm_abort"},
	{"stm_rollback_entry", "stm_rollback"},
	{"stm_rollback_exit", "stm_rollback%return"},
}

// Spec renders the perf probe definition for a benchmark,
// e.g. "genome_stm_commit_exit=stm_commit%return".
func (p Point) Spec(b commands.BenchmarkID) string {
	return fmt.Sprintf("%s_%s=%s", b, p.Event, p.Location)
}

// Config controls probe installation.
type Config struct {
	Root  string
	Table *commands.Table

	// Sudo runs perf through sudo; uprobe changes need root.
	Sudo bool

	Logger *logging.Logger
}

// Summary counts installed and failed probes.
type Summary struct {
	Installed int
	Failed    int
}

// Installer adds and removes perf probes.
//
// # Description
//
// Every failure is logged at Warn and counted. Nothing here stops a sweep:
// probes are an aid for perf record, not a precondition for timing.
type Installer struct {
	pm     process.ProcessManager
	config Config
}

// NewInstaller creates an Installer.
func NewInstaller(pm process.ProcessManager, config Config) *Installer {
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	return &Installer{pm: pm, config: config}
}

// Install deletes every existing probe, then adds the Points to each
// benchmark's binary from inside its build directory.
//
// # Outputs
//
//   - Summary: Installed and failed counts over all benchmarks
//   - error: Only a context error; probe failures are logged
func (in *Installer) Install(ctx context.Context, benchmarks []commands.BenchmarkID) (Summary, error) {
	var sum Summary
	if _, err := in.run(ctx, in.config.Root, "perf", "probe", "--del=*"); err != nil {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		in.config.Logger.Warn("failed to delete existing perf probes", "error", err)
	}

	for _, b := range benchmarks {
		exe, err := in.executable(b)
		if err != nil {
			in.config.Logger.Warn("no executable for probes", "benchmark", string(b), "error", err)
			sum.Failed += len(Points)
			continue
		}
		dir := commands.BuildDir(in.config.Root, b)
		for _, p := range Points {
			spec := p.Spec(b)
			if _, err := in.run(ctx, dir, "perf", "probe", "-x", "./"+exe, spec); err != nil {
				if ctx.Err() != nil {
					return sum, ctx.Err()
				}
				in.config.Logger.Warn("failed to add perf probe", "benchmark", string(b), "probe", spec, "error", err)
				sum.Failed++
				continue
			}
			sum.Installed++
		}
		in.config.Logger.Debug("probes added", "benchmark", string(b))
	}
	return sum, nil
}

// executable returns the binary shared by a benchmark's variants.
func (in *Installer) executable(b commands.BenchmarkID) (string, error) {
	if in.config.Table == nil {
		return string(b) + ".stm", nil
	}
	spec, err := in.config.Table.Resolve(b.Variants()[0])
	if err != nil {
		return "", err
	}
	return spec.Executable, nil
}

func (in *Installer) run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if in.config.Sudo {
		return in.pm.Run(ctx, dir, "sudo", append([]string{name}, args...)...)
	}
	return in.pm.Run(ctx, dir, name, args...)
}
