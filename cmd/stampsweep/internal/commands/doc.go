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
Package commands holds the STAMP benchmark identities and the command tables
that describe how each benchmark variant is invoked.

# Overview

A BenchmarkID names a build directory and binary (bayes, genome, ...). A
VariantKey is the finer-grained name results are recorded under: it equals
the BenchmarkID except for kmeans and vacation, which each run two fixed
parameter profiles (_high and _low) at the same thread count.

A Table maps every VariantKey to an immutable CommandSpec. Two tables exist,
one for full-size inputs and one for simulator-size inputs. Exactly one is
selected before the sweep starts and nothing downstream mutates it:

	tables, err := commands.DefaultTables()
	if err != nil {
	    return err
	}
	table, err := tables.Select(commands.WorkloadSim)
	spec, err := table.Resolve(commands.VariantKey("kmeans_high"))
	argv := spec.Argv(4) // [-m15 -n15 -t0.05 -i inputs/... -p4]

The default tables are embedded from tables.yaml. Alternative tables with the
same schema can be loaded with LoadTables.

# Thread Safety

Tables and CommandSpecs are read-only after construction and safe for
concurrent use.
*/
package commands
