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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ProcessLocker defines the interface for sweep locking.
//
// # Description
//
// A sweep assumes it owns every core of the host. ProcessLocker keeps two
// stampsweep invocations on the same machine from measuring each other.
//
// # Thread Safety
//
// Implementations must be safe for use from a single goroutine. The lock
// itself provides inter-process synchronization, not intra-process.
type ProcessLocker interface {
	// Acquire attempts to get an exclusive lock without blocking.
	Acquire() error

	// Release releases the lock if held. Safe to call more than once.
	Release() error

	// IsHeld returns true if this instance currently holds the lock.
	IsHeld() bool

	// HolderPID returns the PID recorded by the current holder, or 0.
	HolderPID() int
}

// ProcessLockConfig configures process lock behavior.
type ProcessLockConfig struct {
	// LockDir is the directory for lock files.
	// Default: system temp directory
	LockDir string

	// LockName is the base name for lock files.
	// Default: "stampsweep"
	LockName string
}

// DefaultProcessLockConfig returns the temp directory and "stampsweep".
func DefaultProcessLockConfig() ProcessLockConfig {
	return ProcessLockConfig{
		LockDir:  os.TempDir(),
		LockName: "stampsweep",
	}
}

// ProcessLock implements ProcessLocker using flock(2).
//
// # How It Works
//
//  1. Creates a lock file at {LockDir}/{LockName}.lock
//  2. Attempts a non-blocking exclusive flock on the file
//  3. Writes PID to {LockDir}/{LockName}.pid for debugging
//  4. On release, removes the PID file and releases the flock
//
// # Limitations
//
//   - Advisory lock only
//   - NFS and some network filesystems don't support flock properly
//   - The OS drops the flock if the holder crashes; the PID file may linger
type ProcessLock struct {
	config   ProcessLockConfig
	lockPath string
	pidPath  string
	lockFile *os.File
	held     bool
}

// NewProcessLock creates a new process lock. Does not acquire it.
func NewProcessLock(config ProcessLockConfig) *ProcessLock {
	if config.LockDir == "" {
		config.LockDir = os.TempDir()
	}
	if config.LockName == "" {
		config.LockName = "stampsweep"
	}

	return &ProcessLock{
		config:   config,
		lockPath: filepath.Join(config.LockDir, config.LockName+".lock"),
		pidPath:  filepath.Join(config.LockDir, config.LockName+".pid"),
	}
}

// Acquire attempts to get an exclusive lock.
//
// # Outputs
//
//   - error: nil if acquired, *ErrLockHeld if another sweep holds it, or a
//     wrapped system error
func (p *ProcessLock) Acquire() error {
	if p.held {
		return nil
	}

	f, err := os.OpenFile(p.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create lock file %s: %w", p.lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return &ErrLockHeld{HolderPID: p.readHolderPID(), LockPath: p.lockPath}
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	p.lockFile = f
	p.held = true

	// Non-fatal: the flock is what matters.
	_ = p.writePID()

	return nil
}

// Release removes the PID file and releases the flock.
func (p *ProcessLock) Release() error {
	if !p.held || p.lockFile == nil {
		return nil
	}

	os.Remove(p.pidPath)
	err := unix.Flock(int(p.lockFile.Fd()), unix.LOCK_UN)
	p.lockFile.Close()
	p.lockFile = nil
	p.held = false

	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// IsHeld returns true if this instance currently holds the lock.
func (p *ProcessLock) IsHeld() bool {
	return p.held
}

// HolderPID returns the PID of the process holding the lock.
//
// # Limitations
//
//   - May return a stale PID if the holder crashed without cleanup
func (p *ProcessLock) HolderPID() int {
	return p.readHolderPID()
}

// LockPath returns the path to the lock file.
func (p *ProcessLock) LockPath() string {
	return p.lockPath
}

// PIDPath returns the path to the PID file.
func (p *ProcessLock) PIDPath() string {
	return p.pidPath
}

func (p *ProcessLock) writePID() error {
	return os.WriteFile(p.pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}

func (p *ProcessLock) readHolderPID() int {
	data, err := os.ReadFile(p.pidPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// ErrLockHeld is returned when the lock is held by another process.
type ErrLockHeld struct {
	HolderPID int
	LockPath  string
}

// Error implements the error interface.
func (e *ErrLockHeld) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("another sweep is running (PID %d)", e.HolderPID)
	}
	return fmt.Sprintf("another sweep is running (check: lsof %s)", e.LockPath)
}

// Compile-time interface satisfaction check
var _ ProcessLocker = (*ProcessLock)(nil)
