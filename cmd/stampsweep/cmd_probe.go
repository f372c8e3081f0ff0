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
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra/process"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/probe"
	"github.com/AleutianAI/stampsweep/pkg/logging"
	"github.com/AleutianAI/stampsweep/pkg/ux"
)

func runProbeCommand(cmd *cobra.Command, args []string) error {
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
	return installProbes(cmd.Context(), cfg, process.NewDefaultProcessManager(), printer, logger)
}

// installProbes replaces every perf probe with the STM probes of the
// benchmarks selected by --specific.
func installProbes(ctx context.Context, cfg config.SweepConfig, pm process.ProcessManager, printer *ux.Printer, logger *logging.Logger) error {
	root, err := absRoot(cfg.Root)
	if err != nil {
		return err
	}
	table, err := loadTable(cfg)
	if err != nil {
		return err
	}
	benchmarks, err := selectedBenchmarks(cfg.Specific)
	if err != nil {
		return err
	}

	installer := probe.NewInstaller(pm, probe.Config{Root: root, Table: table, Sudo: true, Logger: logger})
	sum, err := installer.Install(ctx, benchmarks)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("%d probes installed on %d benchmarks", sum.Installed, len(benchmarks))
	if sum.Failed > 0 {
		printer.Warning(fmt.Sprintf("%s, %d failed (see log)", msg, sum.Failed))
		return nil
	}
	printer.Success(msg)
	return nil
}
