// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package results holds the in-memory samples of one sweep and renders the
// report file.
//
// # Report Format
//
//	Times: 3
//	Benchmarks: bayes
//	1.5, 1.25, 1.75, 0.75, 0.5, 1.0,
//	Average: 1.5,0.75,
//	Benchmarks: genome
//	...
//
// One block per VariantKey in commands.Variants order. The samples line ends
// with ", " after every value; the averages line ends with "," after every
// mean. A variant with no samples still gets its block, with an empty
// samples line and no means.
package results

import (
	"sync"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
)

// Store maps each VariantKey to its samples in recording order.
//
// # Description
//
// Created empty at sweep start and read once at the end. Nothing is
// persisted between runs of the tool.
//
// # Thread Safety
//
// Safe for concurrent use, though the sweep records from one goroutine.
type Store struct {
	mu      sync.Mutex
	samples map[commands.VariantKey][]float64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{samples: make(map[commands.VariantKey][]float64)}
}

// Record appends a sample to the tail of v's sequence.
func (s *Store) Record(v commands.VariantKey, sample float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[v] = append(s.samples[v], sample)
}

// Samples returns a copy of v's samples.
func (s *Store) Samples(v commands.VariantKey) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.samples[v]...)
}

// Len returns the number of samples recorded for v.
func (s *Store) Len(v commands.VariantKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples[v])
}

// Total returns the number of samples across all variants.
func (s *Store) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, seq := range s.samples {
		n += len(seq)
	}
	return n
}
