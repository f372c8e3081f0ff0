// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// Result is the outcome of a process that was launched and waited for.
type Result struct {
	// Output holds stdout and stderr interleaved in write order.
	Output []byte

	// ExitCode is the child's exit status, or -1 if it was killed by a signal.
	ExitCode int

	// Duration is the wall-clock time from start to exit.
	Duration time.Duration
}

// ProcessManager handles external process execution.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Handling
//
// Cancelling ctx kills the child. Callers that want a per-invocation timeout
// derive ctx with context.WithTimeout.
type ProcessManager interface {
	// RunCombined launches name in dir and captures combined output.
	//
	// # Description
	//
	// stdout and stderr are both wired to one buffer so the captured text
	// interleaves as the child wrote it. A non-zero exit is not an error: it
	// is reported in Result.ExitCode and the output is still returned.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - dir: Working directory of the child; "" inherits ours
	//   - name: Executable path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - Result: Captured output, exit status and duration
	//   - error: Non-nil if the process could not be started or ctx ended it
	//
	// # Limitations
	//
	//   - Output is fully buffered in memory
	RunCombined(ctx context.Context, dir, name string, args ...string) (Result, error)

	// Run executes a tool command in dir and returns its combined output.
	//
	// # Outputs
	//
	//   - []byte: Combined output
	//   - error: *CommandError on launch failure or non-zero exit
	//
	// # Examples
	//
	//	_, err := pm.Run(ctx, "/opt/stamp/bayes", "make", "-f", "Makefile.stm")
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// -----------------------------------------------------------------------------
// Default Implementation
// -----------------------------------------------------------------------------

// DefaultProcessManager implements ProcessManager using os/exec.
type DefaultProcessManager struct{}

// NewDefaultProcessManager creates a ProcessManager that runs real processes.
func NewDefaultProcessManager() *DefaultProcessManager {
	return &DefaultProcessManager{}
}

// RunCombined launches name in dir and captures combined output.
func (pm *DefaultProcessManager) RunCombined(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, err
	}
	err := cmd.Wait()
	res := Result{
		Output:   buf.Bytes(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return res, err
	}
	return res, nil
}

// Run executes a tool command in dir and returns its combined output.
func (pm *DefaultProcessManager) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		cmdErr := NewCommandError(CommandLine(name, args...), exitCode, string(out), err)
		cmdErr.Dir = dir
		return out, cmdErr
	}
	return out, nil
}

// CommandLine renders name and args as a single space-separated string.
func CommandLine(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// -----------------------------------------------------------------------------
// Mock Implementation
// -----------------------------------------------------------------------------

// MockProcessManager implements ProcessManager for testing.
//
// # Examples
//
//	mock := &MockProcessManager{
//	    RunCombinedFunc: func(ctx context.Context, dir, name string, args ...string) (Result, error) {
//	        return Result{Output: []byte("Time = 1.5\n")}, nil
//	    },
//	}
type MockProcessManager struct {
	// RunCombinedFunc is called when RunCombined is invoked
	RunCombinedFunc func(ctx context.Context, dir, name string, args ...string) (Result, error)

	// RunFunc is called when Run is invoked
	RunFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	// Calls records all method invocations for verification
	Calls []ProcessManagerCall

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// ProcessManagerCall records a single method invocation.
type ProcessManagerCall struct {
	Method string
	Dir    string
	Name   string
	Args   []string
}

// RunCombined delegates to RunCombinedFunc and records the call.
func (m *MockProcessManager) RunCombined(ctx context.Context, dir, name string, args ...string) (Result, error) {
	m.record("RunCombined", dir, name, args)
	if m.RunCombinedFunc == nil {
		panic("MockProcessManager.RunCombinedFunc not set")
	}
	return m.RunCombinedFunc(ctx, dir, name, args...)
}

// Run delegates to RunFunc and records the call.
func (m *MockProcessManager) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	m.record("Run", dir, name, args)
	if m.RunFunc == nil {
		panic("MockProcessManager.RunFunc not set")
	}
	return m.RunFunc(ctx, dir, name, args...)
}

func (m *MockProcessManager) record(method, dir, name string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, ProcessManagerCall{
		Method: method,
		Dir:    dir,
		Name:   name,
		Args:   append([]string(nil), args...),
	})
}

// GetCalls returns a copy of all recorded calls.
func (m *MockProcessManager) GetCalls() []ProcessManagerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ProcessManagerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ ProcessManager = (*DefaultProcessManager)(nil)
	_ ProcessManager = (*MockProcessManager)(nil)
)
