// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package process launches benchmark and tool processes and serialises sweeps
across the host.

# Overview

  - ProcessManager: runs a child process in an explicit working directory
  - ProcessLocker: flock-based lock so only one sweep owns the cores

# ProcessManager

Every exec.Command in stampsweep goes through ProcessManager so the engine can
be driven by MockProcessManager in tests. RunCombined is the benchmark path:
stdout and stderr share one buffer and a non-zero exit is reported through
Result.ExitCode rather than as an error. Run is the tool path (make, perf)
and fails with *CommandError on a non-zero exit.

	pm := process.NewDefaultProcessManager()
	res, err := pm.RunCombined(ctx, "/opt/stamp/genome", "/opt/stamp/genome/genome.stm", "-g256", "-t4")
	if err != nil {
	    return fmt.Errorf("launch genome: %w", err)
	}

Neither method changes the working directory of the stampsweep process.

# ProcessLocker

	lock := process.NewProcessLock(process.DefaultProcessLockConfig())
	if err := lock.Acquire(); err != nil {
	    return err
	}
	defer lock.Release()

# Thread Safety

  - ProcessManager implementations are safe for concurrent use
  - ProcessLocker is NOT safe for concurrent use from multiple goroutines

# Limitations

  - ProcessLocker uses advisory locks and requires flock(2)
*/
package process
