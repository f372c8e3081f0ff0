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
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/config"
	"github.com/AleutianAI/stampsweep/pkg/ux"
)

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultFileName
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.Init(path, flagForce); err != nil {
		return err
	}
	ux.NewPrinter(cmd.OutOrStdout(), !isTerminal(os.Stdout)).
		Success("wrote " + path + "; set output, repeat and max_thread before running")
	return nil
}
