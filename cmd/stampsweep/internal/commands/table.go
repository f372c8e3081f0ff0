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
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// Table maps each VariantKey to its CommandSpec for one workload size.
//
// # Thread Safety
//
// Read-only after construction. Resolve hands out copies.
type Table struct {
	workload Workload
	specs    map[VariantKey]CommandSpec
}

// NewTable builds a validated table from a spec map.
//
// # Description
//
// Every known VariantKey must be present, each spec must name an executable,
// and the kmeans/vacation profiles must accept a thread argument because the
// sweep always appends one for them. The input map is copied.
//
// # Inputs
//
//   - workload: Workload size the table describes
//   - specs: Variant to command template mapping
//
// # Outputs
//
//   - *Table: Immutable table
//   - error: ErrInvalidTable describing the first problem found
func NewTable(workload Workload, specs map[VariantKey]CommandSpec) (*Table, error) {
	t := &Table{workload: workload, specs: make(map[VariantKey]CommandSpec, len(specs))}
	for k, spec := range specs {
		if !k.IsKnown() {
			return nil, fmt.Errorf("%w: %s table: %w", ErrInvalidTable, workload, fmt.Errorf("%w: %q", ErrUnknownVariant, k))
		}
		if spec.Executable == "" {
			return nil, fmt.Errorf("%w: %s table: %s has no executable", ErrInvalidTable, workload, k)
		}
		if k.Benchmark().HasProfiles() && !spec.SupportsThreadArg() {
			return nil, fmt.Errorf("%w: %s table: %s must declare a thread_flag", ErrInvalidTable, workload, k)
		}
		t.specs[k] = spec.clone()
	}
	for _, k := range Variants {
		if _, ok := t.specs[k]; !ok {
			return nil, fmt.Errorf("%w: %s table: missing %s", ErrInvalidTable, workload, k)
		}
	}
	return t, nil
}

// Workload returns the workload size this table describes.
func (t *Table) Workload() Workload {
	return t.workload
}

// Resolve returns the command template for a variant.
//
// # Outputs
//
//   - CommandSpec: A copy; mutating it does not affect the table
//   - error: ErrUnknownVariant if the variant is not present
func (t *Table) Resolve(v VariantKey) (CommandSpec, error) {
	spec, ok := t.specs[v]
	if !ok {
		return CommandSpec{}, fmt.Errorf("%w: %q not in %s table", ErrUnknownVariant, v, t.workload)
	}
	return spec.clone(), nil
}

// BuildDir returns the build directory of a benchmark under root.
func BuildDir(root string, b BenchmarkID) string {
	return filepath.Join(root, string(b))
}

// -----------------------------------------------------------------------------
// Table sets
// -----------------------------------------------------------------------------

// Tables holds the two workload variants of the command table.
type Tables struct {
	Full *Table
	Sim  *Table
}

// Select returns the table for a workload size.
func (ts Tables) Select(w Workload) (*Table, error) {
	switch w {
	case WorkloadFull:
		return ts.Full, nil
	case WorkloadSim:
		return ts.Sim, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownWorkload, w)
}

type tablesFile struct {
	Full map[VariantKey]CommandSpec `yaml:"full"`
	Sim  map[VariantKey]CommandSpec `yaml:"sim"`
}

// ParseTables decodes a YAML table file with top-level full and sim keys.
func ParseTables(data []byte) (Tables, error) {
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Tables{}, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	full, err := NewTable(WorkloadFull, f.Full)
	if err != nil {
		return Tables{}, err
	}
	sim, err := NewTable(WorkloadSim, f.Sim)
	if err != nil {
		return Tables{}, err
	}
	return Tables{Full: full, Sim: sim}, nil
}

// DefaultTables returns the built-in STAMP command tables.
func DefaultTables() (Tables, error) {
	return ParseTables(defaultTablesYAML)
}

// LoadTables reads command tables from a YAML file.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read command tables %s: %w", path, err)
	}
	return ParseTables(data)
}
