// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides the structured logger shared by stampsweep's
// commands and engine packages.
//
// It wraps log/slog with three destinations:
//
//   - Output: human-readable text (or JSON) on stderr by default
//   - LogDir: an optional JSON log file per service and day
//   - Exporter: an optional LogExporter that receives every entry
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{Level: logging.LevelInfo, Service: "stampsweep"})
//	defer logger.Close()
//	logger.Info("sweep started", "max_thread", 16, "repeat", 5)
//
// Every sweep derives a child logger carrying its id:
//
//	sweepLog := logger.With("sweep_id", id)
//
// # Operator Output
//
// The logger is for diagnostics. Raw benchmark output, debug dumps and the
// progress bar are written to the writers the CLI hands to the engine, not
// through this package.
//
// # Thread Safety
//
// Logger is safe for concurrent use.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level represents log severity levels, ordered Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for per-invocation detail such as resolved command lines.
	LevelDebug Level = iota

	// LevelInfo is for sweep progress: build finished, thread count advanced.
	LevelInfo

	// LevelWarn is for recoverable problems: zero results, non-zero exits,
	// failed builds or probes.
	LevelWarn

	// LevelError is for failures that end the sweep.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a --log-level value such as "debug" or "WARN".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures the Logger behavior.
//
// A zero-value Config writes Info+ messages to stderr in text format.
type Config struct {
	// Level sets the minimum log level.
	// Default: LevelInfo
	Level Level

	// LogDir enables JSON file logging to "{Service}_{YYYY-MM-DD}.log" in
	// this directory. A leading ~ expands to the home directory. The
	// directory is created with 0750 permissions.
	// Default: "" (file logging disabled)
	LogDir string

	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON switches the Output handler to JSON. File logs are always JSON.
	JSON bool

	// Quiet disables the Output handler.
	Quiet bool

	// Output is where console records go.
	// Default: os.Stderr
	Output io.Writer

	// Exporter, when set, also receives every entry at or above Level.
	Exporter LogExporter
}

// =============================================================================
// Export Interface
// =============================================================================

// LogExporter receives log entries for delivery to another system.
//
// Export is called from a separate goroutine per entry. Close on the Logger
// waits for in-flight exports, then calls Flush and Close.
type LogExporter interface {
	// Export sends one entry. Errors are dropped.
	Export(ctx context.Context, entry LogEntry) error

	// Flush sends anything buffered. Called during Logger.Close.
	Flush(ctx context.Context) error

	// Close releases exporter resources. Called after Flush.
	Close() error
}

// LogEntry is a structured log entry handed to a LogExporter.
type LogEntry struct {
	Timestamp time.Time
	Level     Level
	Message   string
	Service   string
	Attrs     map[string]any
}

// =============================================================================
// Logger
// =============================================================================

// Logger provides structured logging with multi-destination output.
//
// # Resource Management
//
// Call Close when done so the log file is synced and the exporter flushed:
//
//	logger := logging.New(config)
//	defer logger.Close()
type Logger struct {
	slog     *slog.Logger
	config   Config
	attrs    []any
	file     *os.File
	exporter LogExporter
	pending  *sync.WaitGroup
	mu       *sync.Mutex
}

// New creates a Logger for the given configuration.
//
// # Description
//
// Failure to create LogDir or the log file is not fatal: the logger falls
// back to console output only.
func New(config Config) *Logger {
	var handlers []slog.Handler

	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(out, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(out, opts))
		}
	}

	logger := &Logger{
		config:   config,
		exporter: config.Exporter,
		pending:  &sync.WaitGroup{},
		mu:       &sync.Mutex{},
	}

	if config.LogDir != "" {
		if file, err := openLogFile(config); err == nil {
			logger.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(handler)
	return logger
}

func openLogFile(config Config) (*os.File, error) {
	logDir := expandPath(config.LogDir)
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return nil, err
	}
	service := config.Service
	if service == "" {
		service = "stampsweep"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
}

// Discard returns a logger that drops everything. Used as the engine default
// when callers pass no logger.
func Discard() *Logger {
	return New(Config{Quiet: true})
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, msg, args...)
}

// Info logs a message at Info level.
func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a message at Warn level.
//
// Example:
//
//	logger.Warn("zero result, retrying",
//	    "variant", "genome",
//	    "attempt", 2,
//	)
func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, msg, args...)
}

// Error logs a message at Error level.
func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, msg, args...)
}

// With returns a child Logger with additional attributes. The child shares
// the parent's file and exporter; closing either closes both.
func (l *Logger) With(args ...any) *Logger {
	attrs := make([]any, 0, len(l.attrs)+len(args))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, args...)
	return &Logger{
		slog:     l.slog.With(args...),
		config:   l.config,
		attrs:    attrs,
		file:     l.file,
		exporter: l.exporter,
		pending:  l.pending,
		mu:       l.mu,
	}
}

// Close waits for pending exports, flushes and closes the exporter, then
// syncs and closes the log file. Returns the first error encountered.
func (l *Logger) Close() error {
	l.pending.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error

	if l.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.exporter.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush exporter: %w", err))
		}
		if err := l.exporter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close exporter: %w", err))
		}
		l.exporter = nil
	}

	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync log file: %w", err))
		}
		if err := l.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
		l.file = nil
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (l *Logger) log(level Level, msg string, args ...any) {
	switch level {
	case LevelDebug:
		l.slog.Debug(msg, args...)
	case LevelInfo:
		l.slog.Info(msg, args...)
	case LevelWarn:
		l.slog.Warn(msg, args...)
	case LevelError:
		l.slog.Error(msg, args...)
	}

	if l.exporter == nil || level < l.config.Level {
		return
	}
	attrs := argsToMap(l.attrs)
	for k, v := range argsToMap(args) {
		attrs[k] = v
	}
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Service:   l.config.Service,
		Attrs:     attrs,
	}
	exporter := l.exporter
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = exporter.Export(ctx, entry)
	}()
}

// =============================================================================
// Multi-Handler
// =============================================================================

// multiHandler fans out records to several slog handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// =============================================================================
// Helpers
// =============================================================================

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// argsToMap converts slog-style key-value args to a map. Non-string keys
// and a trailing odd value are dropped.
func argsToMap(args []any) map[string]any {
	result := make(map[string]any)
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			result[key] = args[i+1]
		}
	}
	return result
}

// =============================================================================
// Built-in Exporters
// =============================================================================

// BufferedExporter collects log entries in memory, for tests:
//
//	exporter := logging.NewBufferedExporter()
//	logger := logging.New(logging.Config{Quiet: true, Exporter: exporter})
//	logger.Warn("zero result", "variant", "genome")
//	logger.Close()
//	entries := exporter.Entries()
type BufferedExporter struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewBufferedExporter creates a new BufferedExporter.
func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{entries: make([]LogEntry, 0, 16)}
}

// Export adds the entry to the buffer.
func (e *BufferedExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

// Flush is a no-op.
func (e *BufferedExporter) Flush(ctx context.Context) error { return nil }

// Close is a no-op.
func (e *BufferedExporter) Close() error { return nil }

// Entries returns a copy of all collected entries.
func (e *BufferedExporter) Entries() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]LogEntry, len(e.entries))
	copy(result, e.entries)
	return result
}

// Messages returns the message of every collected entry at or above level.
func (e *BufferedExporter) Messages(level Level) []string {
	var out []string
	for _, entry := range e.Entries() {
		if entry.Level >= level {
			out = append(out, entry.Message)
		}
	}
	return out
}

var _ LogExporter = (*BufferedExporter)(nil)
