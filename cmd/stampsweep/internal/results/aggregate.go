// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
)

// ErrInvalidRepeat is returned when the group size is not positive.
var ErrInvalidRepeat = errors.New("repeat must be at least 1")

// VariantSummary is the aggregated view of one VariantKey.
type VariantSummary struct {
	Variant commands.VariantKey

	// Samples is every recorded sample in order.
	Samples []float64

	// Means holds one arithmetic mean per complete group of Repeat samples.
	Means []float64

	// Partial is the number of trailing samples that did not fill a group.
	Partial int
}

// Summary is the aggregated view of a whole sweep.
type Summary struct {
	Repeat   int
	Variants []VariantSummary
}

// GroupMeans partitions samples into consecutive groups of repeat and
// returns the mean of each complete group.
//
// # Outputs
//
//   - []float64: One mean per complete group; empty for no samples
//   - int: Number of trailing samples left out of a group; all of them
//     when repeat < 1
//
// # Examples
//
//	means, rest := GroupMeans([]float64{1, 2, 3, 5, 7}, 2)
//	// means == [1.5, 4], rest == 1
func GroupMeans(samples []float64, repeat int) ([]float64, int) {
	if repeat < 1 {
		return nil, len(samples)
	}
	means := make([]float64, 0, len(samples)/repeat)
	for start := 0; start+repeat <= len(samples); start += repeat {
		var sum float64
		for _, v := range samples[start : start+repeat] {
			sum += v
		}
		means = append(means, sum/float64(repeat))
	}
	return means, len(samples) % repeat
}

// Aggregate summarises every known variant of the store, in report order.
//
// # Inputs
//
//   - store: Samples recorded by the sweep
//   - repeat: Group size, the sweep's repeat count
//
// # Outputs
//
//   - Summary: One entry per commands.Variants element
//   - error: ErrInvalidRepeat if repeat < 1
func Aggregate(store *Store, repeat int) (Summary, error) {
	if repeat < 1 {
		return Summary{}, fmt.Errorf("%w: got %d", ErrInvalidRepeat, repeat)
	}
	sum := Summary{Repeat: repeat, Variants: make([]VariantSummary, 0, len(commands.Variants))}
	for _, v := range commands.Variants {
		samples := store.Samples(v)
		means, partial := GroupMeans(samples, repeat)
		sum.Variants = append(sum.Variants, VariantSummary{
			Variant: v,
			Samples: samples,
			Means:   means,
			Partial: partial,
		})
	}
	return sum, nil
}
