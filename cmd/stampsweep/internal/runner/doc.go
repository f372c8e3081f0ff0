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
Package runner executes one benchmark invocation and turns its output into a
sample.

# Overview

Executor.Execute launches the resolved binary through a
process.ProcessManager, with the benchmark's build directory as the child's
working directory, captures stdout and stderr into one buffer and runs
metric.Extract over it.

# Zero-Result Retry

When Diagnose is enabled and a run measures exactly zero, the captured output
is dumped to the operator and the same invocation is launched again. The loop
stops at the first non-zero sample or after MaxAttempts launches (0 means no
limit); in the latter case the zero is recorded and a warning logged.
Without Diagnose a zero is recorded as-is after one launch.

# Failures

  - The binary cannot be launched: ErrLaunch, fatal for the sweep
  - The child exits non-zero: logged at Warn, output still measured
  - The context is cancelled or the run timeout fires: context error

# Thread Safety

An Executor is used from the sweep goroutine only. It holds no mutable state
beyond what its Recorder and Observers guard themselves.
*/
package runner
