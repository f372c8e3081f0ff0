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
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/config"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/build"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra/process"
	"github.com/AleutianAI/stampsweep/pkg/logging"
	"github.com/AleutianAI/stampsweep/pkg/ux"
)

func runBuildCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags(), false)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	printer := ux.NewPrinter(cmd.OutOrStdout(), !isTerminal(os.Stdout))
	return buildBenchmarks(cmd.Context(), cfg, process.NewDefaultProcessManager(), printer, logger)
}

// buildBenchmarks rebuilds the benchmarks selected by --specific and prints
// one line per benchmark.
func buildBenchmarks(ctx context.Context, cfg config.SweepConfig, pm process.ProcessManager, printer *ux.Printer, logger *logging.Logger) error {
	root, err := absRoot(cfg.Root)
	if err != nil {
		return err
	}
	benchmarks, err := selectedBenchmarks(cfg.Specific)
	if err != nil {
		return err
	}

	builder := build.NewBuilder(pm, build.Config{
		Root:   root,
		Jobs:   cfg.Build.Jobs,
		Strict: cfg.Build.Strict,
		Logger: logger,
	})
	built, err := builder.Build(ctx, benchmarks)
	for _, r := range built {
		if r.Err != nil {
			printer.Warning(fmt.Sprintf("%s: %v", r.Benchmark, r.Err))
			continue
		}
		printer.Success(fmt.Sprintf("%s built", r.Benchmark))
	}
	return err
}
