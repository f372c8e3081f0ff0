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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/commands"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/infra"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/results"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/runner"
	"github.com/AleutianAI/stampsweep/cmd/stampsweep/internal/sweep"
)

func TestOutputError(t *testing.T) {
	var buf bytes.Buffer
	OutputError(&buf, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())

	buf.Reset()
	OutputError(&buf, &infra.CheckError{Message: "make not found in PATH", Remediation: "Install make."})
	assert.Contains(t, buf.String(), "To fix:\nInstall make.")
}

func TestWriteSummaryTable(t *testing.T) {
	store := results.NewStore()
	for _, v := range []float64{1, 2, 3, 5} {
		store.Record("genome", v)
	}
	store.Record("yada", 7)
	sum, err := results.Aggregate(store, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	writeSummaryTable(&buf, sum, []int{1, 2}, sweep.Stats{Invocations: 5, Attempts: 6, Duration: 1500 * time.Millisecond})
	out := buf.String()

	assert.Contains(t, out, "t=1")
	assert.Contains(t, out, "t=2")
	assert.Contains(t, out, "genome")
	assert.Contains(t, out, "1.5")
	assert.Contains(t, out, "4.0")
	assert.Contains(t, out, "yada")
	assert.NotContains(t, out, "bayes", "variants without samples are omitted")
	assert.Contains(t, out, "5 runs, 6 attempts, 0 exhausted, 1.5s")
}

func TestWriteCommandTable(t *testing.T) {
	tables, err := commands.DefaultTables()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeCommandTable(&buf, true, tables.Sim))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "sim workload\n"))
	assert.Contains(t, out, "./kmeans.stm -m40 -n40 -t0.05 -i inputs/random-n2048-d16-c16.txt -p<threads>")
	assert.Contains(t, out, "vacation_high")
}

func TestLineProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, false)
	p.Start(12)
	p.Advance(runner.Outcome{Invocation: runner.Invocation{Variant: "genome", Threads: 4}, Sample: 1.25, Attempts: 1})
	p.Finish()

	assert.Equal(t, "[ 1/12] genome threads=4 sample=1.25 attempts=1\n", buf.String())
}

func TestBarProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, true)
	_, ok := p.(*barProgress)
	require.True(t, ok)

	p.Start(2)
	p.Advance(runner.Outcome{Invocation: runner.Invocation{Variant: "ssca2", Threads: 2}})
	p.Finish()

	out := buf.String()
	assert.Contains(t, out, "\r")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "ssca2 t=2")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestExecute_UnknownFlag(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetErr(&buf)
	defer rootCmd.SetErr(nil)

	assert.Equal(t, CLIExitError, execute([]string{"--no-such-flag"}))
	assert.Contains(t, buf.String(), "Error: unknown flag")
}

func TestExecute_ConfigInit(t *testing.T) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	path := filepath.Join(t.TempDir(), "stampsweep.yaml")
	require.Equal(t, CLIExitSuccess, execute([]string{"config", "init", path}))
	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "wrote "+path)

	assert.Equal(t, CLIExitError, execute([]string{"config", "init", path}))
	assert.Contains(t, errOut.String(), "config file already exists")
}
