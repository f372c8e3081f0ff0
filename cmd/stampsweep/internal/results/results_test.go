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
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
)

func TestGroupMeans(t *testing.T) {
	tests := []struct {
		name      string
		samples   []float64
		repeat    int
		wantMeans []float64
		wantRest  int
	}{
		{"empty", nil, 3, []float64{}, 0},
		{"one group", []float64{1, 2, 3}, 3, []float64{2}, 0},
		{"two groups", []float64{1, 2, 4, 8}, 2, []float64{1.5, 6}, 0},
		{"trailing partial", []float64{1, 2, 3, 5, 7}, 2, []float64{1.5, 4}, 1},
		{"repeat one", []float64{0.5, 0.25}, 1, []float64{0.5, 0.25}, 0},
		{"invalid repeat", []float64{1, 2}, 0, nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			means, rest := GroupMeans(tt.samples, tt.repeat)
			assert.Equal(t, tt.wantMeans, means)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestGroupMeans_ExactArithmetic(t *testing.T) {
	a, b, c := 0.1, 0.2, 0.3
	means, _ := GroupMeans([]float64{a, b, c}, 3)
	require.Len(t, means, 1)
	assert.Equal(t, (a+b+c)/3, means[0])
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Record("genome", 1)
	s.Record("genome", 2)
	s.Record("kmeans_low", 3)

	assert.Equal(t, []float64{1, 2}, s.Samples("genome"))
	assert.Equal(t, 2, s.Len("genome"))
	assert.Equal(t, 0, s.Len("yada"))
	assert.Equal(t, 3, s.Total())

	got := s.Samples("genome")
	got[0] = 99
	assert.Equal(t, 1.0, s.Samples("genome")[0], "Samples returns a copy")
}

func TestAggregate(t *testing.T) {
	s := NewStore()
	for _, v := range []float64{1, 2, 3, 4} {
		s.Record("ssca2", v)
	}
	s.Record("bayes", 5)

	sum, err := Aggregate(s, 2)
	require.NoError(t, err)

	require.Len(t, sum.Variants, len(commands.Variants))
	for i, vs := range sum.Variants {
		assert.Equal(t, commands.Variants[i], vs.Variant)
	}

	byKey := map[commands.VariantKey]VariantSummary{}
	for _, vs := range sum.Variants {
		byKey[vs.Variant] = vs
	}
	assert.Equal(t, []float64{1.5, 3.5}, byKey["ssca2"].Means)
	assert.Empty(t, byKey["bayes"].Means)
	assert.Equal(t, 1, byKey["bayes"].Partial)
	assert.Empty(t, byKey["yada"].Samples)

	_, err = Aggregate(s, 0)
	assert.ErrorIs(t, err, ErrInvalidRepeat)
}

func TestWriteReport(t *testing.T) {
	s := NewStore()
	for _, v := range []float64{1.5, 2.5, 2, 4} {
		s.Record("genome", v)
	}
	s.Record("kmeans_high", 0.25)
	s.Record("kmeans_high", 0.75)
	s.Record("kmeans_low", 1)
	s.Record("kmeans_low", 1)

	sum, err := Aggregate(s, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sum))

	want := strings.Join([]string{
		"Times: 2",
		"Benchmarks: bayes",
		"",
		"Average: ",
		"Benchmarks: genome",
		"1.5, 2.5, 2.0, 4.0, ",
		"Average: 2.0,3.0,",
		"Benchmarks: intruder",
		"",
		"Average: ",
		"Benchmarks: kmeans_high",
		"0.25, 0.75, ",
		"Average: 0.5,",
		"Benchmarks: kmeans_low",
		"1.0, 1.0, ",
		"Average: 1.0,",
		"Benchmarks: labyrinth",
		"",
		"Average: ",
		"Benchmarks: ssca2",
		"",
		"Average: ",
		"Benchmarks: vacation_high",
		"",
		"Average: ",
		"Benchmarks: vacation_low",
		"",
		"Average: ",
		"Benchmarks: yada",
		"",
		"Average: ",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteReportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	s := NewStore()
	s.Record("yada", 3)
	sum, err := Aggregate(s, 1)
	require.NoError(t, err)

	require.NoError(t, WriteReportFile(path, sum))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Times: 1\n"))
	assert.Contains(t, string(data), "Benchmarks: yada\n3.0, \nAverage: 3.0,\n")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	err = WriteReportFile(filepath.Join(dir, "missing", "result.txt"), sum)
	assert.Error(t, err)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{2, "2.0"},
		{4.5, "4.5"},
		{0.1, "0.1"},
		{-1.5, "-1.5"},
		{123456789, "123456789.0"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{0.000012345, "1.2345e-05"},
		{9999999999999998, "9999999999999998.0"},
		{1e16, "1e+16"},
		{-2.5e20, "-2.5e+20"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.in))
		})
	}
}
