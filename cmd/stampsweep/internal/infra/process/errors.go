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
	"errors"
	"fmt"
	"strings"
)

// CommandError describes a tool command that exited unsuccessfully.
//
// # Description
//
// Carries the rendered command line, its exit code and the tail of its
// combined output so operators can see why make or perf failed.
//
// # Example
//
//	err := NewCommandError("make -f Makefile.stm", 2, "No rule to make target", cause)
//	fmt.Println(err.Error()) // "make -f Makefile.stm (exit 2): No rule to make target"
type CommandError struct {
	// Command is the command line that was executed.
	Command string

	// Dir is the working directory the command ran in.
	Dir string

	// ExitCode is the process exit code (-1 if unknown).
	ExitCode int

	// Output is the trimmed combined output.
	Output string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error returns a formatted error message.
func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, lastLine(e.Output))
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

// HasOutput returns true if output was captured.
func (e *CommandError) HasOutput() bool {
	return e.Output != ""
}

// NewCommandError creates a CommandError. Output is trimmed of surrounding
// whitespace.
func NewCommandError(cmd string, exitCode int, output string, wrapped error) *CommandError {
	return &CommandError{
		Command:  cmd,
		ExitCode: exitCode,
		Output:   strings.TrimSpace(output),
		Wrapped:  wrapped,
	}
}

// ExtractOutput walks the error chain and returns the first captured command
// output, or "" if there is none.
//
// # Example
//
//	if out := process.ExtractOutput(err); out != "" {
//	    fmt.Fprintf(os.Stderr, "Command output:\n%s\n", out)
//	}
func ExtractOutput(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasOutput() {
		return cmdErr.Output
	}
	return ""
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
