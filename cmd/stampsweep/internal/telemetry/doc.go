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
Package telemetry provides the sweep's metrics and tracing.

# Metrics

SweepMetrics is a runner.Observer backed by a private Prometheus registry.
It counts attempts, zero results, non-zero exits and exhausted retries per
variant, and records each child's wall-clock duration and the latest sample.
A sweep is a batch job, so nothing is served over HTTP: WriteTextfile dumps
the registry in text exposition format for node_exporter's textfile
collector or for archiving next to the report.

	m := telemetry.NewSweepMetrics("full")
	exec := runner.NewExecutor(pm, runner.Config{Observers: []runner.Observer{m}})
	// ... run the sweep ...
	err := m.WriteTextfile("stamp.prom")

# Tracing

InitTracing installs a global TracerProvider that writes spans as JSON to a
file through the stdout exporter. With no file configured the global no-op
provider stays in place, so tracing costs nothing by default.

	shutdown, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{File: "trace.json"})
	if err != nil {
	    return err
	}
	defer shutdown(context.Background())

# Thread Safety

SweepMetrics is safe for concurrent use. InitTracing should be called once.
*/
package telemetry
